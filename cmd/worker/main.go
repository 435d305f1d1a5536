package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"trustmarket/pkg/chain"
	"trustmarket/pkg/config"
	"trustmarket/pkg/db"
	"trustmarket/pkg/gen"
	"trustmarket/pkg/logger"
	"trustmarket/pkg/otelcol"
	"trustmarket/pkg/profiling"
	"trustmarket/pkg/secretmanager"
	"trustmarket/pkg/task"
	"trustmarket/services/proof"
	"trustmarket/services/user"
)

// The worker consumes background tasks enqueued by the engine. It only needs
// the services its handlers call.
func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		db.Module,
		gen.Module,
		chain.Module,
		profiling.Module,
		otelcol.Module,
		task.Server,
		fx.Provide(provideVerifier),
		user.Module,
		proof.Module,
		proof.TaskModule,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideVerifier(g chain.Gateway) proof.Verifier {
	return g
}
