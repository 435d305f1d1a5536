package trust

import (
	"trustmarket/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("trust.service",
	db.Models(&TrustEvent{}, &TrustSnapshot{}),
	fx.Provide(
		NewService,
		NewCELOverlay,
	),
)
