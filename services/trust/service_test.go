package trust

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trustmarket/pkg/config"
	"trustmarket/pkg/errutil"
	"trustmarket/services/testutil"
	"trustmarket/services/user"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fixedMultiplier float64

func (m fixedMultiplier) GetMultiplier(ctx context.Context, userID string) (float64, error) {
	return float64(m), nil
}

type recordingObserver struct {
	scores []int64
	err    error
}

func (o *recordingObserver) HandleScoreChange(ctx context.Context, userID string, score int64) error {
	o.scores = append(o.scores, score)
	return o.err
}

func setup(t *testing.T, multiplier float64, overlay Overlay) (*Service, *gorm.DB, *recordingObserver) {
	t.Helper()
	db := testutil.NewTestDB(t, &user.User{}, &TrustEvent{}, &TrustSnapshot{})
	observer := &recordingObserver{}
	svc := NewService(ServiceParams{
		DB:         db,
		Node:       testutil.NewNode(t),
		Multiplier: fixedMultiplier(multiplier),
		Observer:   observer,
		Overlay:    overlay,
	})
	require.NoError(t, db.Create(&user.User{ID: "u1", Tier: "Dust"}).Error)
	return svc, db, observer
}

func TestComputeScore(t *testing.T) {
	cases := []struct {
		raw        int64
		multiplier float64
		want       int64
	}{
		{raw: 0, multiplier: 1, want: 0},
		{raw: 250, multiplier: 1, want: 250},
		{raw: -40, multiplier: 1, want: 0},
		{raw: -40, multiplier: 2, want: 0},
		{raw: 5, multiplier: 1.5, want: 8},
		{raw: 700, multiplier: 1.5, want: 1000},
		{raw: 1200, multiplier: 1, want: 1000},
		{raw: 1200, multiplier: 0.5, want: 600},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ComputeScore(c.raw, c.multiplier), "raw=%d multiplier=%v", c.raw, c.multiplier)
	}
}

func TestRecordEventCascades(t *testing.T) {
	svc, _, observer := setup(t, 1, nil)
	ctx := context.Background()

	score, err := svc.RecordEvent(ctx, "u1", "job_completed", 100)
	require.NoError(t, err)
	require.Equal(t, int64(100), score)

	score, err = svc.RecordEvent(ctx, "u1", "report", -30)
	require.NoError(t, err)
	require.Equal(t, int64(70), score)

	cached, err := svc.GetScore(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(70), cached)
	require.Equal(t, []int64{100, 70}, observer.scores)

	events, err := svc.ListEvents(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestNegativeSumFloorsAtZero(t *testing.T) {
	svc, _, _ := setup(t, 1, nil)

	score, err := svc.RecordEvent(context.Background(), "u1", "penalty", -500)
	require.NoError(t, err)
	require.Equal(t, int64(0), score)
}

func TestMultiplierClampsAfterScaling(t *testing.T) {
	svc, _, _ := setup(t, 2, nil)

	score, err := svc.RecordEvent(context.Background(), "u1", "bulk", 600)
	require.NoError(t, err)
	require.Equal(t, int64(1000), score)
}

func TestRecalculateIsIdempotent(t *testing.T) {
	svc, _, _ := setup(t, 1, nil)
	ctx := context.Background()

	_, err := svc.RecordEvent(ctx, "u1", "job_completed", 100)
	require.NoError(t, err)

	first, err := svc.Recalculate(ctx, "u1")
	require.NoError(t, err)
	second, err := svc.Recalculate(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, first, second)

	snapshots, err := svc.ListSnapshots(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	for _, snap := range snapshots {
		require.Equal(t, int64(100), snap.Score)
	}
}

func TestRecordEventUnknownUser(t *testing.T) {
	svc, db, _ := setup(t, 1, nil)

	_, err := svc.RecordEvent(context.Background(), "ghost", "job_completed", 100)
	require.True(t, errutil.Is(err, errutil.StatusNotFound))

	var count int64
	require.NoError(t, db.Model(&TrustEvent{}).Count(&count).Error)
	require.Zero(t, count)

	score, err := svc.GetScore(context.Background(), "ghost")
	require.NoError(t, err)
	require.Zero(t, score)
}

func TestObserverFailureSurfaces(t *testing.T) {
	svc, _, observer := setup(t, 1, nil)
	observer.err = errors.New("tier store down")

	_, err := svc.RecordEvent(context.Background(), "u1", "job_completed", 100)
	require.Error(t, err)
}

func TestOverlayAdjustsAndReclamps(t *testing.T) {
	cfg := config.Default()
	cfg.Trust.OverlayExpr = "events > 1 ? 5 : 0"
	overlay := NewCELOverlay(OverlayParams{Config: cfg})
	require.NotNil(t, overlay)

	svc, _, _ := setup(t, 1, overlay)
	ctx := context.Background()

	score, err := svc.RecordEvent(ctx, "u1", "a", 10)
	require.NoError(t, err)
	require.Equal(t, int64(10), score)

	score, err = svc.RecordEvent(ctx, "u1", "b", 10)
	require.NoError(t, err)
	require.Equal(t, int64(25), score)

	score, err = svc.RecordEvent(ctx, "u1", "c", 2000)
	require.NoError(t, err)
	require.Equal(t, int64(1000), score)
}

func TestOverlayHugeAdjustmentSaturates(t *testing.T) {
	ctx := context.Background()

	for expr, want := range map[string]int64{
		"1e30":                 1000,
		"-1e30":                0,
		"9223372036854775807":  1000,
		"-9223372036854775807": 0,
	} {
		t.Run(expr, func(t *testing.T) {
			cfg := config.Default()
			cfg.Trust.OverlayExpr = expr
			svc, _, _ := setup(t, 1, NewCELOverlay(OverlayParams{Config: cfg}))

			score, err := svc.RecordEvent(ctx, "u1", "a", 400)
			require.NoError(t, err)
			require.Equal(t, want, score)
		})
	}
}

func TestBrokenOverlayFallsBack(t *testing.T) {
	cfg := config.Default()
	cfg.Trust.OverlayExpr = "unknown_var + 1"
	svc, _, _ := setup(t, 1, NewCELOverlay(OverlayParams{Config: cfg}))

	score, err := svc.RecordEvent(context.Background(), "u1", "a", 40)
	require.NoError(t, err)
	require.Equal(t, int64(40), score)
}

func TestNoOverlayWithoutExpression(t *testing.T) {
	require.Nil(t, NewCELOverlay(OverlayParams{Config: config.Default()}))
}
