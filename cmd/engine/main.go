package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"trustmarket/internal/httpapi"
	"trustmarket/pkg/chain"
	"trustmarket/pkg/config"
	"trustmarket/pkg/db"
	"trustmarket/pkg/featureflags"
	"trustmarket/pkg/gen"
	"trustmarket/pkg/health"
	"trustmarket/pkg/logger"
	"trustmarket/pkg/otelcol"
	"trustmarket/pkg/profiling"
	"trustmarket/pkg/redis"
	"trustmarket/pkg/secretmanager"
	"trustmarket/pkg/sequence"
	"trustmarket/pkg/server"
	"trustmarket/pkg/task"
	"trustmarket/services/badge"
	"trustmarket/services/escrow"
	"trustmarket/services/job"
	"trustmarket/services/notification"
	"trustmarket/services/points"
	"trustmarket/services/proof"
	"trustmarket/services/tier"
	"trustmarket/services/trust"
	"trustmarket/services/user"
)

func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		gen.Module,
		sequence.Module,
		task.Client,
		chain.Module,
		featureflags.Module,
		profiling.Module,
		otelcol.Module,
		fx.Provide(
			provideVerifier,
			provideMultiplierSource,
			provideScoreObserver,
			provideBadgeIssuer,
			provideProofRequester,
			provideTierNotifier,
			provideJobNotifier,
		),
		user.Module,
		points.Module,
		trust.Module,
		tier.Module,
		proof.Module,
		escrow.Module,
		badge.Module,
		notification.Module,
		job.Module,
		server.ProvideHTTPServer,
		health.Module,
		httpapi.Module,
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

func provideMultiplierSource(s *points.Service) trust.MultiplierSource {
	return s
}

func provideScoreObserver(s *tier.Service) trust.ScoreObserver {
	return s
}

func provideBadgeIssuer(s *badge.Service) tier.BadgeIssuer {
	return s
}

func provideProofRequester(s *proof.Service) tier.ProofRequester {
	return s
}

func provideTierNotifier(s *notification.Service) tier.Notifier {
	return s
}

func provideJobNotifier(s *notification.Service) job.Notifier {
	return s
}
