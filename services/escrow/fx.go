package escrow

import (
	"trustmarket/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("escrow.service",
	db.Models(&JobEscrow{}),
	fx.Provide(NewService),
)
