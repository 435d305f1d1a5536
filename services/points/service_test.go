package points

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trustmarket/pkg/config"
	"trustmarket/pkg/errutil"
	"trustmarket/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewTestDB(t, &PointsBalance{})
	return NewService(ServiceParams{DB: db, Node: testutil.NewNode(t), Config: config.Default()})
}

func TestRewardRespectsDailyCap(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	res, err := svc.Reward(ctx, "u1", 30, "post")
	require.NoError(t, err)
	require.Equal(t, RewardResult{Credited: 30, Balance: 30}, *res)

	res, err = svc.Reward(ctx, "u1", 30, "post")
	require.NoError(t, err)
	require.Equal(t, RewardResult{Credited: 20, Balance: 50}, *res)

	res, err = svc.Reward(ctx, "u1", 10, "post")
	require.NoError(t, err)
	require.Equal(t, RewardResult{Credited: 0, Balance: 50}, *res)
}

func TestRewardNonPositiveAmountIsNoop(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	res, err := svc.Reward(ctx, "u1", -5, "bogus")
	require.NoError(t, err)
	require.Equal(t, int64(0), res.Credited)
	require.Equal(t, int64(0), res.Balance)
}

func TestRewardResetsOnNewCalendarDay(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	day := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day }

	_, err := svc.Reward(ctx, "u1", 50, "daily")
	require.NoError(t, err)

	res, err := svc.Reward(ctx, "u1", 10, "daily")
	require.NoError(t, err)
	require.Equal(t, int64(0), res.Credited)

	svc.now = func() time.Time { return day.Add(2 * time.Hour) }
	res, err = svc.Reward(ctx, "u1", 10, "daily")
	require.NoError(t, err)
	require.Equal(t, RewardResult{Credited: 10, Balance: 60}, *res)
}

func TestZeroRewardPersistsDayRollover(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	day := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day }
	_, err := svc.Reward(ctx, "u1", 50, "daily")
	require.NoError(t, err)

	next := day.Add(24 * time.Hour)
	svc.now = func() time.Time { return next }
	res, err := svc.Reward(ctx, "u1", 0, "noop")
	require.NoError(t, err)
	require.Equal(t, RewardResult{Credited: 0, Balance: 50}, *res)

	var row PointsBalance
	require.NoError(t, svc.db.Where("user_id = ?", "u1").Take(&row).Error)
	require.Equal(t, int64(0), row.DailyEarned)
	require.WithinDuration(t, next, row.DailyEarnedCheckpoint, time.Second)
	require.Equal(t, int64(50), row.Balance)
}

func TestEmptyUserIDIsRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Reward(ctx, "alice", 40, "daily")
	require.NoError(t, err)

	_, err = svc.Spend(ctx, "", 30, "job_apply")
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))

	_, err = svc.Reward(ctx, "", 10, "daily")
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))

	balance, err := svc.GetBalance(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(40), balance)
}

func TestRewardConcurrentCallsNeverExceedCap(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reward(ctx, "u1", 10, "burst")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	balance, err := svc.GetBalance(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(50), balance)
}

func TestSpend(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Reward(ctx, "u1", 40, "seed")
	require.NoError(t, err)

	_, err = svc.Spend(ctx, "u1", 0, "job_create")
	require.True(t, errutil.Is(err, errutil.StatusInvalidAmount))

	_, err = svc.Spend(ctx, "u1", 41, "job_create")
	require.True(t, errutil.Is(err, errutil.StatusInsufficientBalance))

	balance, err := svc.GetBalance(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(40), balance)

	balance, err = svc.Spend(ctx, "u1", 40, "job_create")
	require.NoError(t, err)
	require.Equal(t, int64(0), balance)
}

func TestSpendWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Reward(ctx, "u1", 30, "seed")
	require.NoError(t, err)

	tx := svc.db.Begin()
	balance, err := svc.WithTx(tx).Spend(ctx, "u1", 20, "job_apply")
	require.NoError(t, err)
	require.Equal(t, int64(10), balance)
	require.NoError(t, tx.Rollback().Error)

	balance, err = svc.GetBalance(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(30), balance)
}

func TestGetBalanceEnsuresRow(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	balance, err := svc.GetBalance(ctx, "fresh")
	require.NoError(t, err)
	require.Equal(t, int64(0), balance)

	balance, err = svc.GetBalance(ctx, "fresh")
	require.NoError(t, err)
	require.Equal(t, int64(0), balance)

	var count int64
	require.NoError(t, svc.db.Model(&PointsBalance{}).Where("user_id = ?", "fresh").Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestGetMultiplier(t *testing.T) {
	svc := newTestService(t)
	m, err := svc.GetMultiplier(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 1.0, m)
}
