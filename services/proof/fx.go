package proof

import (
	"trustmarket/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("proof.service",
	db.Models(&Proof{}),
	fx.Provide(
		NewProver,
		NewService,
	),
)

var TaskModule = fx.Module("task.proof",
	fx.Provide(NewTask),
	fx.Invoke(RegisterHandlers),
)
