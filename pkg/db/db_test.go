package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm/logger"

	"trustmarket/pkg/config"
)

func TestDialect(t *testing.T) {
	cfg := config.Default()

	require.Equal(t, "postgres", Dialect(cfg).Name())

	cfg.Database.Type = "mysql"
	require.Equal(t, "mysql", Dialect(cfg).Name())

	cfg.Database.Type = "sqlite"
	cfg.Database.DBNAME = ":memory:"
	require.Equal(t, "sqlite", Dialect(cfg).Name())
}

func TestZapGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := NewZapGormLogger(zap.New(core), logger.Warn, false)

	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sql, nil)
	require.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now(), sql, logger.ErrRecordNotFound)
	require.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	require.Equal(t, 1, logs.FilterMessage("gorm.query").Len())

	l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	require.Equal(t, 1, logs.FilterMessage("gorm.slow_query").Len())

	l.LogMode(logger.Silent).Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	require.Equal(t, 2, logs.Len())
}
