package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trustmarket/pkg/config"
)

func TestBuildHonoursLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "warn"

	log, err := Build(cfg)
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zap.InfoLevel))
	require.True(t, log.Core().Enabled(zap.WarnLevel))
}

func TestBuildFallsBackToInfo(t *testing.T) {
	cfg := config.Default()
	cfg.AppEnv = "production"
	cfg.LogLevel = "loud"

	log, err := Build(cfg)
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zap.InfoLevel))
	require.False(t, log.Core().Enabled(zap.DebugLevel))
}
