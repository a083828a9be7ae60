package protocol

import (
	"context"
	"time"

	"github.com/turtacn/simhost/pkg/consts"
	"github.com/turtacn/simhost/pkg/logger"
)

// ConfigView is the read-only layered configuration handed to collaborators.
type ConfigView interface {
	Get(section, key, def string) string
	Bool(section, key string, def bool) bool
	Sections() []string
	Keys(section string) []string
}

// CapacityBudget is the concurrency ceiling applied to the execution pool.
type CapacityBudget struct {
	MinWorker int  `yaml:"min_worker" json:"min_worker"`
	MaxWorker int  `yaml:"max_worker" json:"max_worker"`
	MinIO     int  `yaml:"min_io" json:"min_io"`
	MaxIO     int  `yaml:"max_io" json:"max_io"`
	Applied   bool `yaml:"applied" json:"applied"`
}

// WorkClass selects which pool ceiling a unit of work counts against.
type WorkClass int

const (
	WorkerClass WorkClass = iota
	IOClass
)

func (c WorkClass) String() string {
	if c == IOClass {
		return "io"
	}
	return "worker"
}

// Scheduler runs work on the process-wide execution pool.
type Scheduler interface {
	Go(ctx context.Context, class WorkClass, fn func(ctx context.Context)) error
}

// StartupOptions are the Startup keys forwarded to the engine untouched.
type StartupOptions struct {
	Background  bool   `yaml:"background"`
	SaveCrashes bool   `yaml:"save_crashes"`
	CrashDir    string `yaml:"crash_dir"`
	LogConfig   string `yaml:"logconfig"`
}

// HostContext is what the orchestrator passes to the engine at construction.
type HostContext struct {
	RunID     string
	StartedAt time.Time
	Mode      consts.ExecutionMode
	Startup   StartupOptions
	Config    ConfigView
	Budget    CapacityBudget
	Scheduler Scheduler
	Commands  Registrar // nil in headless mode
	Logger    logger.Logger
	// RequestStop fires the host stop signal, e.g. from a "quit" command.
	RequestStop func()
}

// Engine is the hosted simulation engine. Startup must honor ctx promptly;
// the host never forcibly terminates it.
type Engine interface {
	Startup(ctx context.Context) error
}

// EngineFactory builds the engine for the selected mode.
type EngineFactory func(hc HostContext) (Engine, error)

// Command is one line read from the console.
type Command struct {
	Line string
	Name string
	Args []string
}

// CommandReader blocks until the next command is available.
// It returns io.EOF at end of input and ctx.Err() when cancelled.
type CommandReader interface {
	Next(ctx context.Context) (Command, error)
}

// CommandFunc executes a console command.
type CommandFunc func(ctx context.Context, args []string) error

// CommandSpec describes a console command.
type CommandSpec struct {
	Name    string
	Aliases []string
	Usage   string
	Help    string
	Run     CommandFunc
}

// Registrar accepts console command registrations.
type Registrar interface {
	Register(spec CommandSpec) error
}

// Dispatcher executes a parsed command.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd Command) error
}

// StepKind is the outcome of one interactive loop iteration.
type StepKind int

const (
	StepOK StepKind = iota
	StepFailed
	StepEndOfInput
	StepCancelled
)

func (k StepKind) String() string {
	switch k {
	case StepOK:
		return "ok"
	case StepFailed:
		return "failed"
	case StepEndOfInput:
		return "end-of-input"
	case StepCancelled:
		return "cancelled"
	}
	return "unknown"
}

// StepResult is the per-iteration result of the interactive loop.
type StepResult struct {
	Kind    StepKind
	Command Command
	Err     error
}

// ControlRequest is one newline-delimited JSON request on the control socket.
type ControlRequest struct {
	Command string `json:"command"` // stop or status
}

// ControlResponse answers a ControlRequest.
type ControlResponse struct {
	OK       bool   `json:"ok"`
	State    string `json:"state"`
	Mode     string `json:"mode,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
	Error    string `json:"error,omitempty"`

	Budget *CapacityBudget `json:"budget,omitempty"`
}

// Personal.AI order the ending
