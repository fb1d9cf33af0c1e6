package db

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fieldops/missiond/internal/repository"
)

type fakePruner struct {
	calls atomic.Int32
	n     int64
	err   error
}

func (f *fakePruner) PruneInvalidPushTokens(context.Context) (int64, error) {
	f.calls.Add(1)
	return f.n, f.err
}

func TestStartTokenCleaner_PostgresPrune(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer dbMock.Close()

	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 3))

	core, logs := observer.New(zapcore.InfoLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartTokenCleaner(ctx, repository.NewPostgresUserRepository(dbMock), 10*time.Millisecond, zap.New(core))

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("pruned invalid push tokens").Len() > 0
	}, time.Second, 5*time.Millisecond)
	cancel()
}

func TestStartTokenCleaner_ErrorLogged(t *testing.T) {
	pruner := &fakePruner{err: errors.New("db fail")}
	core, logs := observer.New(zapcore.ErrorLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartTokenCleaner(ctx, pruner, 10*time.Millisecond, zap.New(core))

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("failed to prune push tokens").Len() > 0
	}, time.Second, 5*time.Millisecond)
}

func TestStartTokenCleaner_NothingToPruneIsQuiet(t *testing.T) {
	pruner := &fakePruner{}
	core, logs := observer.New(zapcore.DebugLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartTokenCleaner(ctx, pruner, 5*time.Millisecond, zap.New(core))

	assert.Eventually(t, func() bool { return pruner.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, logs.Len())
}

func TestStartTokenCleaner_CancelBeforeTicker(t *testing.T) {
	pruner := &fakePruner{}
	ctx, cancel := context.WithCancel(context.Background())

	StartTokenCleaner(ctx, pruner, 100*time.Millisecond, zap.NewNop())
	cancel()

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, pruner.calls.Load())
}
