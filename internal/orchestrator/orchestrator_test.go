package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/simhost/internal/config"
	"github.com/turtacn/simhost/internal/console"
	"github.com/turtacn/simhost/internal/control"
	"github.com/turtacn/simhost/internal/resource"
	"github.com/turtacn/simhost/pkg/consts"
	herrors "github.com/turtacn/simhost/pkg/errors"
	"github.com/turtacn/simhost/pkg/logger"
	"github.com/turtacn/simhost/pkg/protocol"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeEngine struct {
	startup func(ctx context.Context) error
}

func (f *fakeEngine) Startup(ctx context.Context) error {
	if f.startup == nil {
		return nil
	}
	return f.startup(ctx)
}

// scriptReader hands out queued lines and reports end of input once the
// channel is closed.
type scriptReader struct {
	lines chan string
}

func (s *scriptReader) Next(ctx context.Context) (protocol.Command, error) {
	select {
	case <-ctx.Done():
		return protocol.Command{}, ctx.Err()
	case l, ok := <-s.lines:
		if !ok {
			return protocol.Command{}, io.EOF
		}
		return console.Parse(l), nil
	}
}

func register(hc protocol.HostContext, specs ...protocol.CommandSpec) error {
	for _, spec := range specs {
		if err := hc.Commands.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func readerOf(r protocol.CommandReader) ReaderFactory {
	return func(*config.Layered, *console.Commands, func()) (protocol.CommandReader, error) {
		return r, nil
	}
}

// hostDir writes the required base INI file and returns its directory.
func hostDir(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, consts.DefaultIniMaster), []byte(body), 0o644))
	return dir
}

func newTestOrchestrator(t *testing.T, dir string, args []string, engine protocol.EngineFactory, reader ReaderFactory, log logger.Logger) *Orchestrator {
	t.Helper()
	if log == nil {
		log = logger.Discard()
	}
	return New(Options{
		Args:      append([]string{"--inidirectory=" + dir}, args...),
		EnvPrefix: "SIMTEST_ORCH_",
		Engine:    engine,
		Reader:    reader,
		Pool:      resource.NewPool(2, 50, 2, 100),
		Logger:    log,
		Out:       io.Discard,
	})
}

func runAsync(o *Orchestrator) <-chan int {
	ch := make(chan int, 1)
	go func() { ch <- o.Run(context.Background()) }()
	return ch
}

func waitCode(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case code := <-ch:
		return code
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not stop")
		return 0
	}
}

func TestOrchestrator_HeadlessHonorsCancellation(t *testing.T) {
	started := make(chan struct{})
	var created protocol.HostContext
	engine := func(hc protocol.HostContext) (protocol.Engine, error) {
		created = hc
		return &fakeEngine{startup: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return nil
		}}, nil
	}

	o := newTestOrchestrator(t, hostDir(t, "[Startup]\nbackground = false\n"), []string{"--background=true"}, engine, nil, nil)
	done := runAsync(o)

	<-started
	assert.Equal(t, consts.StateRunning, o.State())
	assert.Equal(t, consts.ModeHeadless, created.Mode)
	assert.Nil(t, created.Commands)
	assert.Equal(t, 500, created.Budget.MaxWorker)

	o.RequestStop()
	assert.Equal(t, consts.ExitOK, waitCode(t, done))
	assert.Equal(t, consts.StateStopped, o.State())
}

func TestOrchestrator_InteractiveCommandFailureIsContained(t *testing.T) {
	var out syncBuffer
	log := logger.New(slog.NewTextHandler(&out, nil))
	var ran atomic.Int32

	engine := func(hc protocol.HostContext) (protocol.Engine, error) {
		return &fakeEngine{}, register(hc,
			protocol.CommandSpec{
				Name: "boom",
				Run:  func(context.Context, []string) error { return errors.New("terrain missing") },
			},
			protocol.CommandSpec{
				Name: "explode",
				Run:  func(context.Context, []string) error { panic("region on fire") },
			},
			protocol.CommandSpec{
				Name: "show uptime",
				Run: func(context.Context, []string) error {
					ran.Add(1)
					return nil
				},
			},
		)
	}

	lines := make(chan string, 4)
	lines <- "boom"
	lines <- "explode"
	lines <- "no such command"
	lines <- "show uptime"
	close(lines)

	o := newTestOrchestrator(t, hostDir(t, ""), nil, engine, readerOf(&scriptReader{lines: lines}), log)
	code := waitCode(t, runAsync(o))

	assert.Equal(t, consts.ExitOK, code)
	assert.Equal(t, int32(1), ran.Load(), "commands after a failure still run")
	assert.Contains(t, out.String(), "terrain missing")
	assert.Contains(t, out.String(), "region on fire")
	assert.Contains(t, out.String(), "Console: end of input")
}

func TestOrchestrator_InteractiveInterrupted(t *testing.T) {
	lines := make(chan string)
	o := newTestOrchestrator(t, hostDir(t, ""), nil,
		func(protocol.HostContext) (protocol.Engine, error) { return &fakeEngine{}, nil },
		readerOf(&scriptReader{lines: lines}), nil)
	done := runAsync(o)

	require.Eventually(t, func() bool { return o.State() == consts.StateRunning }, 2*time.Second, 5*time.Millisecond)
	o.RequestStop()

	assert.Equal(t, consts.ExitInterrupted, waitCode(t, done))
	assert.Equal(t, consts.StateStopped, o.State())
}

func TestOrchestrator_MissingBaseConfig(t *testing.T) {
	var constructed atomic.Bool
	engine := func(protocol.HostContext) (protocol.Engine, error) {
		constructed.Store(true)
		return &fakeEngine{}, nil
	}
	o := newTestOrchestrator(t, t.TempDir(), nil, engine, nil, nil)

	err := o.Start(context.Background())
	require.Error(t, err)
	assert.True(t, herrors.Is(err, herrors.ErrCodeConfigLoad))
	assert.Equal(t, consts.StateStopped, o.State())

	assert.Equal(t, consts.ExitFailure, o.Wait())
	assert.False(t, constructed.Load(), "engine must not be created without configuration")
}

func TestOrchestrator_StopSignalDuringFailedStartup(t *testing.T) {
	o := newTestOrchestrator(t, t.TempDir(), nil,
		func(protocol.HostContext) (protocol.Engine, error) { return &fakeEngine{}, nil }, nil, nil)
	o.RequestStop()

	code := o.Run(context.Background())
	assert.NotEqual(t, consts.ExitOK, code)
	assert.Equal(t, consts.StateStopped, o.State())
}

func TestOrchestrator_StopRequestedWhileStarting(t *testing.T) {
	var constructed atomic.Bool
	o := newTestOrchestrator(t, hostDir(t, ""), nil, func(protocol.HostContext) (protocol.Engine, error) {
		constructed.Store(true)
		return &fakeEngine{}, nil
	}, nil, nil)
	o.RequestStop()

	require.NoError(t, o.Start(context.Background()))
	assert.Equal(t, consts.StateStopped, o.State())
	code, ok := o.ExitCode()
	assert.True(t, ok)
	assert.Equal(t, consts.ExitInterrupted, code)
	assert.False(t, constructed.Load())
}

func TestOrchestrator_StopBeforeStart(t *testing.T) {
	o := newTestOrchestrator(t, hostDir(t, ""), nil, nil, nil, nil)
	o.RequestStop()

	assert.Equal(t, consts.ExitInterrupted, o.Wait())
	assert.Equal(t, consts.StateStopped, o.State())

	err := o.Start(context.Background())
	assert.True(t, herrors.Is(err, herrors.ErrCodeInvalidTransition))
}

func TestOrchestrator_EngineStartupFailure(t *testing.T) {
	engine := func(protocol.HostContext) (protocol.Engine, error) {
		return &fakeEngine{startup: func(context.Context) error { return errors.New("no regions") }}, nil
	}
	o := newTestOrchestrator(t, hostDir(t, ""), []string{"--background"}, engine, nil, nil)

	assert.Equal(t, consts.ExitFailure, waitCode(t, runAsync(o)))
	assert.Equal(t, consts.StateStopped, o.State())
}

func TestOrchestrator_PropagatedExitCode(t *testing.T) {
	engine := func(protocol.HostContext) (protocol.Engine, error) {
		return &fakeEngine{startup: func(context.Context) error {
			return herrors.WithExitCode(errors.New("estate offline"), 3)
		}}, nil
	}
	o := newTestOrchestrator(t, hostDir(t, ""), []string{"--background"}, engine, nil, nil)

	assert.Equal(t, 3, waitCode(t, runAsync(o)))
}

func TestOrchestrator_ErrorAfterCancellationIsSwallowed(t *testing.T) {
	started := make(chan struct{})
	engine := func(protocol.HostContext) (protocol.Engine, error) {
		return &fakeEngine{startup: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return errors.New("scene torn down")
		}}, nil
	}
	o := newTestOrchestrator(t, hostDir(t, ""), []string{"--background"}, engine, nil, nil)
	done := runAsync(o)

	<-started
	o.RequestStop()
	assert.Equal(t, consts.ExitInterrupted, waitCode(t, done))
}

func TestOrchestrator_CancellationShapedErrorIsSwallowed(t *testing.T) {
	started := make(chan struct{})
	engine := func(protocol.HostContext) (protocol.Engine, error) {
		return &fakeEngine{startup: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}}, nil
	}
	o := newTestOrchestrator(t, hostDir(t, ""), []string{"--background"}, engine, nil, nil)
	done := runAsync(o)

	<-started
	o.RequestStop()
	assert.Equal(t, consts.ExitInterrupted, waitCode(t, done))
}

func TestOrchestrator_ContextCancelStopsHost(t *testing.T) {
	engine := func(protocol.HostContext) (protocol.Engine, error) {
		return &fakeEngine{startup: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}}, nil
	}
	o := newTestOrchestrator(t, hostDir(t, ""), []string{"--background"}, engine, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan int, 1)
	go func() { ch <- o.Run(ctx) }()

	require.Eventually(t, func() bool { return o.State() == consts.StateRunning }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.Equal(t, consts.ExitOK, waitCode(t, ch))
}

func TestOrchestrator_QuitCommandRequestsStop(t *testing.T) {
	engine := func(hc protocol.HostContext) (protocol.Engine, error) {
		return &fakeEngine{}, register(hc, protocol.CommandSpec{
			Name: "quit",
			Run: func(context.Context, []string) error {
				hc.RequestStop()
				return nil
			},
		})
	}
	lines := make(chan string, 1)
	lines <- "quit"

	o := newTestOrchestrator(t, hostDir(t, ""), nil, engine, readerOf(&scriptReader{lines: lines}), nil)
	code := waitCode(t, runAsync(o))

	assert.Equal(t, consts.ExitInterrupted, code)
	assert.Equal(t, consts.StateStopped, o.State())
}

func TestOrchestrator_StartupOptionsReachEngine(t *testing.T) {
	got := make(chan protocol.HostContext, 1)
	engine := func(hc protocol.HostContext) (protocol.Engine, error) {
		got <- hc
		return &fakeEngine{}, nil
	}
	ini := "[Startup]\nsave_crashes = Yes\ncrash_dir = /var/crash/sim\n\n[Network]\nhttp_listener_port = 9000\n"
	o := newTestOrchestrator(t, hostDir(t, ini), []string{"--background=On"}, engine, nil, nil)

	assert.Equal(t, consts.ExitOK, waitCode(t, runAsync(o)))
	hc := <-got
	assert.True(t, hc.Startup.Background)
	assert.True(t, hc.Startup.SaveCrashes)
	assert.Equal(t, "/var/crash/sim", hc.Startup.CrashDir)
	assert.Equal(t, "9000", hc.Config.Get("Network", "http_listener_port", ""))
	assert.Equal(t, o.RunID(), hc.RunID)
	assert.NotNil(t, hc.Scheduler)
}

func TestOrchestrator_Status(t *testing.T) {
	o := newTestOrchestrator(t, hostDir(t, ""), nil, nil, nil, nil)
	st := o.Status()
	assert.Equal(t, string(consts.StateCreated), st.State)
	assert.Nil(t, st.ExitCode)
	assert.Nil(t, st.Budget)

	o.RequestStop()
	o.Wait()
	st = o.Status()
	assert.Equal(t, string(consts.StateStopped), st.State)
	require.NotNil(t, st.ExitCode)
	assert.Equal(t, consts.ExitInterrupted, *st.ExitCode)
}

func TestOrchestrator_ControlSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "ctl.sock")
	engine := func(protocol.HostContext) (protocol.Engine, error) {
		return &fakeEngine{startup: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}}, nil
	}
	o := newTestOrchestrator(t, hostDir(t, ""), []string{"--background", "--set", "Startup.control_socket=" + sock}, engine, nil, nil)
	done := runAsync(o)

	var resp protocol.ControlResponse
	require.Eventually(t, func() bool {
		var err error
		resp, err = control.Send(context.Background(), sock, control.CommandStatus)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, string(consts.StateRunning), resp.State)
	assert.Equal(t, string(consts.ModeHeadless), resp.Mode)
	require.NotNil(t, resp.Budget)
	assert.Equal(t, o.Budget(), *resp.Budget)
	assert.Positive(t, resp.Budget.MaxWorker)

	_, err := control.Send(context.Background(), sock, control.CommandStop)
	require.NoError(t, err)
	assert.Equal(t, consts.ExitOK, waitCode(t, done))

	_, err = os.Stat(sock)
	assert.True(t, os.IsNotExist(err))
}

func TestStep_ReaderErrorEndsInput(t *testing.T) {
	res := step(context.Background(), readerFunc(func(context.Context) (protocol.Command, error) {
		return protocol.Command{}, errors.New("tty gone")
	}), console.NewCommands(io.Discard))

	assert.Equal(t, protocol.StepEndOfInput, res.Kind)
	assert.Error(t, res.Err)
}

func TestStep_CommandErrorIsCoded(t *testing.T) {
	cmds := console.NewCommands(io.Discard)
	res := step(context.Background(), readerFunc(func(context.Context) (protocol.Command, error) {
		return console.Parse("frobnicate now"), nil
	}), cmds)

	assert.Equal(t, protocol.StepFailed, res.Kind)
	assert.True(t, herrors.Is(res.Err, herrors.ErrCodeCommandExecution))
	assert.ErrorIs(t, res.Err, console.ErrUnknownCommand)
}

type readerFunc func(ctx context.Context) (protocol.Command, error)

func (f readerFunc) Next(ctx context.Context) (protocol.Command, error) { return f(ctx) }

// Personal.AI order the ending
