package postgres_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/realm/internal/config"
	"github.com/cory-johannsen/realm/internal/storage/postgres"
	"github.com/cory-johannsen/realm/internal/testutil"
)

func TestNewPool_UnreachableDatabase(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	core, logs := observer.New(zapcore.InfoLevel)

	_, err := postgres.NewPool(ctx, config.DatabaseConfig{
		Host:            "127.0.0.1",
		Port:            1,
		User:            "realm",
		Password:        "realm",
		Name:            "realm",
		SSLMode:         "disable",
		MaxConns:        2,
		MinConns:        0,
		MaxConnLifetime: time.Minute,
	}, zap.New(core))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1/realm")
	assert.Zero(t, logs.FilterMessage("postgres pool ready").Len())
}

func TestPool_LogsSizingAndWatchesHealth(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in -short mode")
	}
	pc := testutil.NewPostgresContainer(t)

	core, logs := observer.New(zapcore.InfoLevel)
	pool, err := postgres.NewPool(context.Background(), pc.Config, zap.New(core))
	require.NoError(t, err)
	defer pool.Close()

	ready := logs.FilterMessage("postgres pool ready").All()
	require.Len(t, ready, 1)
	assert.EqualValues(t, 5, ready[0].ContextMap()["max_conns"])

	var changes atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	pool.Watch(ctx, 20*time.Millisecond, time.Second, func(bool) { changes.Add(1) })
	assert.Zero(t, changes.Load(), "a healthy database reports no change")
}
