package inspection

import (
	"github.com/smallbiznis/metrolab/internal/inspection/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("inspection.repository",
	fx.Provide(repository.Provide),
)
