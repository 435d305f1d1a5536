package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Equal(t, int64(50), cfg.Points.DailyCap)
	require.Equal(t, 1.0, cfg.Points.Multiplier)
	require.Equal(t, int64(50), cfg.Jobs.CreateCost)
	require.Equal(t, int64(20), cfg.Jobs.ApplyCost)
	require.Equal(t, int64(100), cfg.Jobs.CompletionDelta)
	require.Equal(t, 30*time.Second, cfg.Chain.CallTimeout)
	require.Equal(t, int64(1), cfg.NodeID)
}

func TestLocation(t *testing.T) {
	cfg := Default()
	require.Equal(t, time.UTC, cfg.Location())

	cfg.Platform.Timezone = "Asia/Jakarta"
	require.Equal(t, "Asia/Jakarta", cfg.Location().String())

	cfg.Platform.Timezone = "Not/AZone"
	require.Equal(t, time.UTC, cfg.Location())

	var nilCfg *Config
	require.Equal(t, time.UTC, nilCfg.Location())
}
