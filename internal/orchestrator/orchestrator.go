package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/simhost/internal/config"
	"github.com/turtacn/simhost/internal/console"
	"github.com/turtacn/simhost/internal/control"
	"github.com/turtacn/simhost/internal/monitor"
	"github.com/turtacn/simhost/internal/probe"
	"github.com/turtacn/simhost/internal/resource"
	"github.com/turtacn/simhost/internal/supervisor"
	"github.com/turtacn/simhost/pkg/consts"
	herrors "github.com/turtacn/simhost/pkg/errors"
	"github.com/turtacn/simhost/pkg/fsm"
	"github.com/turtacn/simhost/pkg/logger"
	"github.com/turtacn/simhost/pkg/protocol"
)

// Pool is the execution pool: tuned by the governor, used to run the run task.
type Pool interface {
	resource.Runtime
	protocol.Scheduler
}

// ReaderFactory creates the interactive command reader once the engine has
// started. stop fires the host stop signal.
type ReaderFactory func(cfg *config.Layered, cmds *console.Commands, stop func()) (protocol.CommandReader, error)

// Options wires the orchestrator to its collaborators. Zero values select the
// production defaults.
type Options struct {
	Args      []string
	EnvPrefix string
	// Sources replaces the standard configuration sources. boot is the view
	// over defaults, environment and arguments used to locate files.
	Sources func(boot *config.Layered) []config.Source
	Engine  protocol.EngineFactory
	Reader  ReaderFactory
	Pool    Pool
	Policy  *resource.Policy
	Probe   *probe.Probe
	Logger  logger.Logger
	// Out receives console command output.
	Out io.Writer
}

// Orchestrator owns the host lifecycle:
// Created -> Starting -> Running -> Stopping -> Stopped.
type Orchestrator struct {
	opts  Options
	log   logger.Logger
	runID string
	pool  Pool
	fsm   *fsm.StateMachine
	task  *supervisor.Task

	// mu keeps one transition in flight at a time.
	mu sync.Mutex

	dataMu  sync.RWMutex
	cfg     *config.Layered
	mode    consts.ExecutionMode
	startup protocol.StartupOptions
	budget  protocol.CapacityBudget
	started time.Time
	code    int
	hasCode bool

	cmds      *console.Commands
	watcher   *config.Watcher
	listeners *resource.Listeners
	aux       *errgroup.Group
	auxStop   context.CancelFunc

	stopOnce sync.Once
	stopCh   chan struct{}
	stopped  chan struct{}
}

func New(opts Options) *Orchestrator {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = consts.EnvPrefix
	}
	if opts.Reader == nil {
		opts.Reader = DefaultReader
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	o := &Orchestrator{
		opts:    opts,
		runID:   uuid.NewString(),
		pool:    opts.Pool,
		fsm:     fsm.New(fsm.State(consts.StateCreated)),
		task:    supervisor.New(),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if o.pool == nil {
		o.pool = resource.DefaultPool()
	}
	o.log = logger.Or(opts.Logger).With("run_id", o.runID)
	o.setupFSM()
	return o
}

func (o *Orchestrator) setupFSM() {
	st := func(s consts.LifecycleState) fsm.State { return fsm.State(s) }

	o.fsm.AddTransition(st(consts.StateCreated), st(consts.StateStarting), consts.EventStart)
	o.fsm.AddTransition(st(consts.StateStarting), st(consts.StateRunning), consts.EventRun)
	o.fsm.AddTransition(st(consts.StateStarting), st(consts.StateStopping), consts.EventAbort)
	o.fsm.AddTransition(st(consts.StateCreated), st(consts.StateStopping), consts.EventStop)
	o.fsm.AddTransition(st(consts.StateRunning), st(consts.StateStopping), consts.EventStop)
	o.fsm.AddTransition(st(consts.StateStopping), st(consts.StateStopped), consts.EventComplete)

	o.fsm.OnTransition(func(from, to fsm.State, event fsm.Event) {
		state := consts.LifecycleState(to)
		o.log.Info("Lifecycle: transition", "from", from, "to", to, "event", event)
		monitor.ObserveTransition(state, string(event))
		monitor.Notify(state)
	})
}

func (o *Orchestrator) fire(event fsm.Event) {
	if err := o.fsm.Fire(event); err != nil {
		o.log.Error("Lifecycle: transition rejected", "event", event, "state", o.fsm.Current(),
			"err", herrors.New(herrors.ErrCodeInvalidTransition, "Fire", string(event), err))
	}
}

// Run starts the host and blocks until it is stopped. Cancelling ctx fires
// the stop signal. The result is the process exit code.
func (o *Orchestrator) Run(ctx context.Context) int {
	release := context.AfterFunc(ctx, o.RequestStop)
	defer release()

	if err := o.Start(ctx); err != nil {
		o.log.Error("Lifecycle: host did not start", "err", err)
	}
	return o.Wait()
}

// Start performs Created -> Starting -> Running. A startup failure leaves
// the orchestrator Stopped with a failure exit code and is returned. A stop
// requested while starting ends in Stopped without a run task.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.fsm.Can(consts.EventStart) {
		return herrors.New(herrors.ErrCodeInvalidTransition, "Start",
			fmt.Sprintf("cannot start from %s", o.fsm.Current()), nil)
	}
	o.fire(consts.EventStart)

	if err := o.configure(); err != nil {
		o.abort(consts.ExitFailure)
		return err
	}
	if o.stopRequested() {
		o.log.Warn("Lifecycle: stop requested while starting, run task not started")
		o.abort(consts.ExitInterrupted)
		return nil
	}

	o.startAux()
	if err := o.task.Start(ctx, o.pool, o.runTask); err != nil {
		err = herrors.New(herrors.ErrCodeEngineStartup, "Start", "cannot launch run task", err)
		o.abort(consts.ExitFailure)
		return err
	}
	o.fire(consts.EventRun)
	return nil
}

// RequestStop fires the host stop signal. It is safe to call at any time and
// more than once.
func (o *Orchestrator) RequestStop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
}

func (o *Orchestrator) stopRequested() bool {
	select {
	case <-o.stopCh:
		return true
	default:
		return false
	}
}

// Wait blocks until the stop signal fires or the run task ends by itself,
// drives Stopping -> Stopped and returns the exit code.
func (o *Orchestrator) Wait() int {
	select {
	case <-o.stopped:
	case <-o.stopCh:
		o.log.Info("Lifecycle: stop signal received")
		o.shutdown()
	case <-o.task.Done():
		o.log.Info("Lifecycle: run task ended")
		o.shutdown()
	}
	<-o.stopped
	code, _ := o.ExitCode()
	return code
}

// Done is closed once the orchestrator is Stopped.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.stopped
}

func (o *Orchestrator) shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch consts.LifecycleState(o.fsm.Current()) {
	case consts.StateCreated:
		o.fire(consts.EventStop)
		o.finish(consts.ExitInterrupted)
		return
	case consts.StateRunning:
	default:
		return
	}

	endedFirst := false
	select {
	case <-o.task.Done():
		endedFirst = true
	default:
	}

	o.fire(consts.EventStop)
	// Cancellation always precedes the wait.
	o.task.Stop()
	err := o.awaitTask()
	o.finish(o.classify(err, !endedFirst))
}

// awaitTask waits for the run task without a deadline, warning every
// shutdown_timeout that it is still running.
func (o *Orchestrator) awaitTask() error {
	grace := o.Config().Duration(consts.SectionStartup, consts.KeyShutdownTimeout, consts.DefaultShutdownTimeout)
	if grace <= 0 {
		return o.task.Wait()
	}
	ticker := time.NewTicker(grace)
	defer ticker.Stop()

	var waited time.Duration
	for {
		select {
		case <-o.task.Done():
			return o.task.Wait()
		case <-ticker.C:
			waited += grace
			o.log.Warn("Lifecycle: run task has not honored cancellation yet, still waiting", "waited", waited)
		}
	}
}

// classify maps the run task result to an exit code. cancelled says the
// cancellation scope was triggered before the task ended.
func (o *Orchestrator) classify(err error, cancelled bool) int {
	if err == nil {
		return consts.ExitOK
	}
	code, hasCode := herrors.ExitCodeOf(err)

	if cancelled {
		if herrors.IsCancellation(err) {
			o.log.Debug("Lifecycle: run task cancelled", "err", err)
		} else {
			o.log.Warn("Lifecycle: run task error during shutdown ignored",
				"err", herrors.New(herrors.ErrCodeShutdownInduced, "RunTask", "error after cancellation", err))
		}
		if hasCode {
			return code
		}
		return consts.ExitInterrupted
	}

	o.log.Error("Lifecycle: run task failed", "err", err)
	if hasCode {
		return code
	}
	return consts.ExitFailure
}

func (o *Orchestrator) abort(code int) {
	o.fire(consts.EventAbort)
	o.finish(code)
}

func (o *Orchestrator) finish(code int) {
	o.stopAux()

	o.dataMu.Lock()
	o.code, o.hasCode = code, true
	o.dataMu.Unlock()

	monitor.ObserveRunTask(o.task.Duration(), code)
	o.fire(consts.EventComplete)
	o.log.Info("Lifecycle: exiting", "exit_code", code)
	close(o.stopped)
}

// startAux starts the control socket and metrics endpoint when configured.
func (o *Orchestrator) startAux() {
	cfg := o.Config()
	ctx, cancel := context.WithCancel(context.Background())
	g := &errgroup.Group{}
	o.listeners = resource.NewListeners(o.log)

	if path := cfg.Get(consts.SectionStartup, consts.KeyControlSocket, ""); path != "" {
		if l, err := o.listeners.EnsureListener("unix", path); err != nil {
			o.log.Warn("Control: socket unavailable", "path", path,
				"err", herrors.New(herrors.ErrCodeControl, "Listen", path, err))
		} else {
			srv := control.NewServer(path, o, o.log)
			g.Go(func() error { return srv.ServeListener(ctx, l) })
		}
	}
	if addr := cfg.Get(consts.SectionStartup, consts.KeyMetricsAddr, ""); addr != "" {
		if l, err := o.listeners.EnsureListener("tcp", addr); err != nil {
			o.log.Warn("Monitor: metrics endpoint unavailable", "addr", addr, "err", err)
		} else {
			srv := monitor.NewServer(addr)
			g.Go(func() error {
				if err := srv.ServeListener(ctx, l); err != nil {
					o.log.Warn("Monitor: metrics endpoint stopped", "addr", addr, "err", err)
				}
				return nil
			})
		}
	}
	o.aux, o.auxStop = g, cancel
}

func (o *Orchestrator) stopAux() {
	if o.watcher != nil {
		o.watcher.Stop()
	}
	if o.auxStop != nil {
		o.auxStop()
		o.aux.Wait()
		o.listeners.Close()
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() consts.LifecycleState {
	return consts.LifecycleState(o.fsm.Current())
}

// ExitCode returns the recorded exit code; ok is false before Stopped.
func (o *Orchestrator) ExitCode() (code int, ok bool) {
	o.dataMu.RLock()
	defer o.dataMu.RUnlock()
	return o.code, o.hasCode
}

// Mode is empty until the configuration has been read.
func (o *Orchestrator) Mode() consts.ExecutionMode {
	o.dataMu.RLock()
	defer o.dataMu.RUnlock()
	return o.mode
}

// Config returns the resolved configuration, or an empty view before Starting.
func (o *Orchestrator) Config() *config.Layered {
	o.dataMu.RLock()
	defer o.dataMu.RUnlock()
	if o.cfg == nil {
		return &config.Layered{}
	}
	return o.cfg
}

// Budget is zero until the governor has run.
func (o *Orchestrator) Budget() protocol.CapacityBudget {
	o.dataMu.RLock()
	defer o.dataMu.RUnlock()
	return o.budget
}

func (o *Orchestrator) RunID() string { return o.runID }

// Status implements control.Handler.
func (o *Orchestrator) Status() protocol.ControlResponse {
	resp := protocol.ControlResponse{OK: true, State: string(o.State()), Mode: string(o.Mode())}
	if code, ok := o.ExitCode(); ok {
		resp.ExitCode = &code
	}
	if b := o.Budget(); b != (protocol.CapacityBudget{}) {
		resp.Budget = &b
	}
	return resp
}

// Personal.AI order the ending
