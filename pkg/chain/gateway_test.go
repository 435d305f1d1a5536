package chain

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trustmarket/pkg/config"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newOffline(t *testing.T) *EthGateway {
	t.Helper()
	gw, err := NewGateway(Params{Config: config.Default()})
	require.NoError(t, err)

	g := gw.(*EthGateway)
	g.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return g
}

func TestOfflinePlaceholders(t *testing.T) {
	ctx := context.Background()
	g := newOffline(t)

	lock, err := g.LockEscrow(ctx, 7, "abc", "abc", 100)
	require.NoError(t, err)
	require.Equal(t, "offchain-lock-7-1700000000000", lock)

	release, err := g.ReleaseEscrow(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "offchain-release-7-1700000000000", release)

	refund, err := g.RefundEscrow(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "offchain-refund-7-1700000000000", refund)

	job, err := g.CreateJob(ctx, 200, "cid")
	require.NoError(t, err)
	require.Nil(t, job)

	badge, err := g.UpdateBadge(ctx, 99, "Spark", BadgeMint, "0x01")
	require.NoError(t, err)
	require.Equal(t, "offchain-sbt-mint-99", badge)

	valid, err := g.VerifyProof(ctx, "0xdead", []string{"1"})
	require.NoError(t, err)
	require.True(t, valid)
}

func TestNormalizeAddress(t *testing.T) {
	require.Equal(t, "0xabc", NormalizeAddress("abc"))
	require.Equal(t, "0xabc", NormalizeAddress(" 0xabc "))
	require.Equal(t, "0Xabc", NormalizeAddress("0Xabc"))
}

func TestToBytes32(t *testing.T) {
	word, err := ToBytes32("300")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(300), new(big.Int).SetBytes(word[:]))

	word, err = ToBytes32("0x012c")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(300), new(big.Int).SetBytes(word[:]))

	_, err = ToBytes32("-1")
	require.Error(t, err)

	_, err = ToBytes32("not-a-number")
	require.Error(t, err)
}
