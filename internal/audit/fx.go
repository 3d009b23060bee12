package audit

import (
	"github.com/smallbiznis/metrolab/internal/audit/repository"
	"github.com/smallbiznis/metrolab/internal/audit/service"
	"go.uber.org/fx"
)

// Module provides the append-only trail written by verification and
// authorization decisions.
var Module = fx.Module("audit",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
