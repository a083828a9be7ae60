package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/turtacn/simhost/pkg/logger"
	"github.com/turtacn/simhost/pkg/protocol"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("run task already started")

// Task supervises the single asynchronous run task and owns its cancellation
// scope. Cancellation is cooperative: Stop only signals, it never kills.
type Task struct {
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
	started  time.Time
	finished time.Time
}

// New creates a new Task instance.
func New() *Task {
	return &Task{done: make(chan struct{})}
}

// Start launches fn on the scheduler (or a plain goroutine when sched is nil).
// The cancellation scope keeps parent's values but not its cancellation; only
// Stop triggers it. A panic in fn is reported as its error.
func (t *Task) Start(parent context.Context, sched protocol.Scheduler, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	t.ctx, t.cancel = context.WithCancel(context.WithoutCancel(parent))
	t.started = time.Now()
	ctx := t.ctx
	t.mu.Unlock()

	body := func(ctx context.Context) {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("run task panic: %v", r)
				logger.Log.Error("Supervisor: run task panicked", "panic", r, "stack", string(debug.Stack()))
			}
			t.finish(err)
		}()
		err = fn(ctx)
	}

	if sched == nil {
		go body(ctx)
		return nil
	}
	if err := sched.Go(ctx, protocol.WorkerClass, body); err != nil {
		t.finish(err)
		return err
	}
	return nil
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.finished = time.Now()
	t.mu.Unlock()
	close(t.done)
}

// Stop triggers the cancellation scope.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Cancelled reports whether the cancellation scope has been triggered.
func (t *Task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ctx != nil && t.ctx.Err() != nil
}

func (t *Task) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// Done is closed once the run task has returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the run task returns and yields its error.
func (t *Task) Wait() error {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Duration is the run time of a finished task, or zero.
func (t *Task) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished.IsZero() {
		return 0
	}
	return t.finished.Sub(t.started)
}

// Personal.AI order the ending
