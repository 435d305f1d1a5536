package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trustmarket/pkg/db/option"
	"trustmarket/services/testutil"
)

type widget struct {
	ID        string `gorm:"column:id;primaryKey"`
	Owner     string `gorm:"column:owner"`
	Weight    int64  `gorm:"column:weight"`
	CreatedAt time.Time
}

func TestStoreFindOneMissing(t *testing.T) {
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)

	got, err := repo.FindOne(context.Background(), &widget{ID: "nope"})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStoreQueryOptions(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)

	base := time.Now()
	require.NoError(t, repo.BatchCreate(ctx, []*widget{
		{ID: "a", Owner: "u1", Weight: 1, CreatedAt: base},
		{ID: "b", Owner: "u1", Weight: 5, CreatedAt: base.Add(time.Second)},
		{ID: "c", Owner: "u1", Weight: 9, CreatedAt: base.Add(2 * time.Second)},
		{ID: "d", Owner: "u2", Weight: 7, CreatedAt: base},
	}))

	heavy, err := repo.Find(ctx, &widget{Owner: "u1"},
		option.ApplyOperator(option.Condition{Field: "weight", Operator: option.GT, Value: 1}),
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
	)
	require.NoError(t, err)
	require.Len(t, heavy, 2)
	require.Equal(t, "c", heavy[0].ID)
	require.Equal(t, "b", heavy[1].ID)

	limited, err := repo.Find(ctx, &widget{Owner: "u1"}, option.WithLimit(1), option.WithLockingUpdate())
	require.NoError(t, err)
	require.Len(t, limited, 1)

	n, err := repo.Count(ctx, &widget{Owner: "u1"})
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestStoreUpdateWithTrx(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)

	require.NoError(t, repo.Create(ctx, &widget{ID: "a", Owner: "u1", Weight: 1}))

	tx := db.Begin()
	require.NoError(t, repo.WithTrx(tx).Update(ctx, "a", map[string]any{"weight": 42}))
	require.NoError(t, tx.Rollback().Error)

	got, err := repo.FindOne(ctx, &widget{ID: "a"})
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Weight)

	require.NoError(t, repo.Update(ctx, "a", map[string]any{"weight": 42}))
	got, err = repo.FindOne(ctx, &widget{ID: "a"})
	require.NoError(t, err)
	require.Equal(t, int64(42), got.Weight)
}

func TestStoreZeroQueryMatchesNothing(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)

	require.NoError(t, repo.Create(ctx, &widget{ID: "a", Owner: "u1", Weight: 3}))

	got, err := repo.FindOne(ctx, &widget{Owner: ""}, option.WithLockingUpdate())
	require.NoError(t, err)
	require.Nil(t, got)

	all, err := repo.Find(ctx, &widget{})
	require.NoError(t, err)
	require.Empty(t, all)

	n, err := repo.Count(ctx, &widget{ID: ""})
	require.NoError(t, err)
	require.Zero(t, n)

	everything, err := repo.Find(ctx, nil)
	require.NoError(t, err)
	require.Len(t, everything, 1)
}
