package user

import (
	"trustmarket/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	db.Models(&User{}),
	fx.Provide(NewService),
)
