package badge

import (
	"trustmarket/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("badge.service",
	db.Models(&BadgeToken{}),
	fx.Provide(NewService),
)
