package points

import (
	"trustmarket/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("points.service",
	db.Models(&PointsBalance{}),
	fx.Provide(NewService),
)
