package verification

import (
	"context"

	"github.com/smallbiznis/metrolab/internal/config"
	"github.com/smallbiznis/metrolab/internal/observability/metrics"
	"github.com/smallbiznis/metrolab/internal/verification/repository"
	"github.com/smallbiznis/metrolab/internal/verification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("verification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Invoke(reportRulesReload),
)

func reportRulesReload(holder *config.RulesConfigHolder, m *metrics.Metrics) {
	holder.OnReload(func(ok bool) {
		m.RecordRulesConfigReload(context.Background(), ok)
	})
}
