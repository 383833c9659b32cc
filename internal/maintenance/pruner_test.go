package maintenance

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls       atomic.Int32
	suggestions int64
	events      int64
	err         error
}

func (f *fakeSweeper) Prune(ctx context.Context) (int64, int64, error) {
	f.calls.Add(1)
	return f.suggestions, f.events, f.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestPruner_RunOnce(t *testing.T) {
	sweeper := &fakeSweeper{suggestions: 4, events: 9}
	pruner := NewPruner(sweeper, "", quietLogger())

	result, err := pruner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.Suggestions)
	assert.Equal(t, int64(9), result.Events)
	assert.Equal(t, int32(1), sweeper.calls.Load())
}

func TestPruner_RunOnceError(t *testing.T) {
	sweeper := &fakeSweeper{suggestions: 2, err: errors.New("store down")}
	pruner := NewPruner(sweeper, "", quietLogger())

	result, err := pruner.RunOnce(context.Background())
	assert.ErrorContains(t, err, "store down")
	assert.Equal(t, int64(2), result.Suggestions)
}

func TestPruner_StartWithoutSchedule(t *testing.T) {
	sweeper := &fakeSweeper{}
	pruner := NewPruner(sweeper, "", quietLogger())

	require.NoError(t, pruner.Start(context.Background()))
	pruner.Stop()
	assert.Zero(t, sweeper.calls.Load())
}

func TestPruner_StartRejectsBadSpec(t *testing.T) {
	pruner := NewPruner(&fakeSweeper{}, "every tuesday", quietLogger())
	assert.Error(t, pruner.Start(context.Background()))
}

func TestPruner_Scheduled(t *testing.T) {
	sweeper := &fakeSweeper{}
	pruner := NewPruner(sweeper, "@every 1s", quietLogger())

	require.NoError(t, pruner.Start(context.Background()))
	defer pruner.Stop()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
}
