package calibration

import (
	"github.com/smallbiznis/metrolab/internal/calibration/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("calibration.repository",
	fx.Provide(repository.Provide),
)
