package equipment

import (
	"github.com/smallbiznis/metrolab/internal/equipment/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("equipment.repository",
	fx.Provide(repository.Provide),
)
