package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/simhost/internal/resource"
)

func TestTask_CompletesNormally(t *testing.T) {
	task := New()
	require.NoError(t, task.Start(context.Background(), nil, func(context.Context) error { return nil }))

	assert.NoError(t, task.Wait())
	assert.False(t, task.Cancelled())
	assert.True(t, task.Started())
}

func TestTask_StopIsCooperative(t *testing.T) {
	task := New()
	observed := make(chan struct{})
	require.NoError(t, task.Start(context.Background(), nil, func(ctx context.Context) error {
		<-ctx.Done()
		close(observed)
		return ctx.Err()
	}))

	select {
	case <-task.Done():
		t.Fatal("Task should still be running before Stop")
	case <-time.After(20 * time.Millisecond):
	}

	task.Stop()
	<-observed
	assert.ErrorIs(t, task.Wait(), context.Canceled)
	assert.True(t, task.Cancelled())
	assert.Positive(t, task.Duration())
}

func TestTask_ParentCancellationDoesNotLeak(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	task := New()
	require.NoError(t, task.Start(parent, nil, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}))
	cancel()
	time.Sleep(20 * time.Millisecond)
	assert.False(t, task.Cancelled())

	task.Stop()
	assert.NoError(t, task.Wait())
}

func TestTask_PanicBecomesError(t *testing.T) {
	task := New()
	require.NoError(t, task.Start(context.Background(), nil, func(context.Context) error { panic("kaboom") }))
	err := task.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestTask_RunsOnPool(t *testing.T) {
	pool := resource.NewPool(1, 1, 1, 1)
	task := New()
	boom := errors.New("boom")
	require.NoError(t, task.Start(context.Background(), pool, func(context.Context) error { return boom }))
	assert.ErrorIs(t, task.Wait(), boom)
	pool.Wait()

	assert.ErrorIs(t, task.Start(context.Background(), pool, nil), ErrAlreadyStarted)
}

// Personal.AI order the ending
