package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trustmarket/pkg/errutil"
	"trustmarket/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestRegisterAndGet(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t, &User{})
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})

	u, err := svc.Register(ctx, " 0xabc ")
	require.NoError(t, err)
	require.Equal(t, "0xabc", u.Wallet())
	require.Equal(t, "Dust", u.Tier)

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), got.TrustScore)
	require.Equal(t, "0xabc", got.Wallet())
}

func TestGetMissingUser(t *testing.T) {
	db := testutil.NewTestDB(t, &User{})
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})

	_, err := svc.Get(context.Background(), "missing")
	require.True(t, errutil.Is(err, errutil.StatusNotFound))

	u, err := Find(context.Background(), db, "missing")
	require.NoError(t, err)
	require.Nil(t, u)
}

func TestLinkWallet(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t, &User{})
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})

	u, err := svc.Register(ctx, "")
	require.NoError(t, err)
	require.Empty(t, u.Wallet())

	_, err = svc.LinkWallet(ctx, u.ID, "  ")
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))

	u, err = svc.LinkWallet(ctx, u.ID, "0xdef")
	require.NoError(t, err)
	require.Equal(t, "0xdef", u.Wallet())
}
