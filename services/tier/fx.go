package tier

import (
	"trustmarket/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("tier.service",
	db.Models(&TierHistory{}),
	fx.Provide(NewService),
)
