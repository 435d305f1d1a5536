package gen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"trustmarket/pkg/config"
)

func TestNewSnowflakeNode(t *testing.T) {
	cfg := config.Default()
	node, err := NewSnowflakeNode(cfg)
	require.NoError(t, err)
	require.NotEqual(t, node.Generate(), node.Generate())

	cfg.NodeID = 5000
	_, err = NewSnowflakeNode(cfg)
	require.Error(t, err)
}
