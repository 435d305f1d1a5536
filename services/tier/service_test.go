package tier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trustmarket/services/testutil"
	"trustmarket/services/user"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeBadges struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeBadges) MintOrUpdate(ctx context.Context, userID string, tier string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID+":"+tier)
	return "0xbadge", f.err
}

type fakeProofs struct {
	mu       sync.Mutex
	requests []int64
	err      error
}

func (f *fakeProofs) RequestIssuance(ctx context.Context, userID string, minScore int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, minScore)
	return f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func setup(t *testing.T) (*Service, *gorm.DB, *fakeBadges, *fakeProofs, *fakeNotifier) {
	t.Helper()
	db := testutil.NewTestDB(t, &user.User{}, &TierHistory{})
	badges, proofs, notifier := &fakeBadges{}, &fakeProofs{}, &fakeNotifier{}
	svc := NewService(ServiceParams{
		DB:       db,
		Node:     testutil.NewNode(t),
		Badges:   badges,
		Proofs:   proofs,
		Notifier: notifier,
	})
	return svc, db, badges, proofs, notifier
}

func seedUser(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	require.NoError(t, db.Create(&user.User{ID: id, Tier: string(Dust)}).Error)
}

func TestResolve(t *testing.T) {
	require.Equal(t, Dust, Resolve(0))
	require.Equal(t, Dust, Resolve(299))
	require.Equal(t, Spark, Resolve(300))
	require.Equal(t, Flare, Resolve(600))
	require.Equal(t, Flare, Resolve(799))
	require.Equal(t, Nova, Resolve(800))
	require.Equal(t, Nova, Resolve(1000))
	require.Equal(t, int64(600), MinScore(Flare))
}

func TestHandleScoreChangeUpgrade(t *testing.T) {
	ctx := context.Background()
	svc, db, badges, proofs, notifier := setup(t)
	seedUser(t, db, "u1")

	require.NoError(t, svc.HandleScoreChange(ctx, "u1", 320))

	u, err := user.Load(ctx, db, "u1")
	require.NoError(t, err)
	require.Equal(t, string(Spark), u.Tier)

	view, err := svc.GetTier(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, Spark, view.Tier)
	require.Len(t, view.History, 1)
	require.Equal(t, int64(320), view.History[0].Score)

	require.Equal(t, []string{"u1:Spark"}, badges.calls)
	require.Equal(t, []int64{320}, proofs.requests)
	require.Equal(t, []string{"Tier upgraded to Spark"}, notifier.messages)
}

func TestHandleScoreChangeSameTierIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, db, badges, _, _ := setup(t)
	seedUser(t, db, "u1")

	require.NoError(t, svc.HandleScoreChange(ctx, "u1", 120))

	view, err := svc.GetTier(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, Dust, view.Tier)
	require.Empty(t, view.History)
	require.Empty(t, badges.calls)
}

func TestHandleScoreChangeUnknownUser(t *testing.T) {
	svc, _, badges, _, _ := setup(t)

	require.NoError(t, svc.HandleScoreChange(context.Background(), "ghost", 900))
	require.Empty(t, badges.calls)

	view, err := svc.GetTier(context.Background(), "ghost")
	require.NoError(t, err)
	require.Equal(t, Dust, view.Tier)
}

func TestSideEffectFailuresDoNotRollBack(t *testing.T) {
	ctx := context.Background()
	svc, db, badges, proofs, notifier := setup(t)
	badges.err = errors.New("badge contract reverted")
	proofs.err = errors.New("queue down")
	seedUser(t, db, "u1")

	require.NoError(t, svc.HandleScoreChange(ctx, "u1", 810))

	u, err := user.Load(ctx, db, "u1")
	require.NoError(t, err)
	require.Equal(t, string(Nova), u.Tier)
	require.Equal(t, []string{"Tier upgraded to Nova"}, notifier.messages)
}

func TestDowngradeAndHistoryOrder(t *testing.T) {
	ctx := context.Background()
	svc, db, _, _, notifier := setup(t)
	seedUser(t, db, "u1")

	require.NoError(t, svc.HandleScoreChange(ctx, "u1", 650))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, svc.HandleScoreChange(ctx, "u1", 310))

	view, err := svc.GetTier(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, Spark, view.Tier)
	require.Len(t, view.History, 2)
	require.Equal(t, Spark, view.History[0].Tier)
	require.Equal(t, Flare, view.History[1].Tier)
	require.Equal(t, "Tier changed to Spark", notifier.messages[1])
}
