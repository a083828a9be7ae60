package consts

import "time"

// ExecutionMode defines how the hosted engine is driven once started.
type ExecutionMode string

const (
	ModeInteractive ExecutionMode = "interactive" // Engine plus blocking command loop
	ModeHeadless    ExecutionMode = "headless"    // Engine only, no console
)

// LifecycleState is the state of the single host lifecycle.
type LifecycleState string

const (
	StateCreated  LifecycleState = "CREATED"
	StateStarting LifecycleState = "STARTING" // Config, probe, capacity, mode selection
	StateRunning  LifecycleState = "RUNNING"  // Run task in flight
	StateStopping LifecycleState = "STOPPING" // Cancellation triggered, awaiting run task
	StateStopped  LifecycleState = "STOPPED"  // Terminal, carries exit code
)

// Lifecycle events fired against the state machine.
const (
	EventStart    = "start"
	EventRun      = "run"
	EventAbort    = "abort"
	EventStop     = "stop"
	EventComplete = "complete"
)

// Exit codes reported in the Stopped state.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = -1 // Stop arrived before the run task reported a code
)

// Configuration sections and keys recognized by the host.
const (
	SectionStartup    = "Startup"
	SectionNetwork    = "Network"
	SectionStandAlone = "StandAlone"

	KeyBackground      = "background"
	KeySaveCrashes     = "save_crashes"
	KeyCrashDir        = "crash_dir"
	KeyLogConfig       = "logconfig"
	KeyIniFile         = "inifile"
	KeyIniMaster       = "inimaster"
	KeyIniDirectory    = "inidirectory"
	KeySettings        = "settings"
	KeyPhysics         = "physics"
	KeyGUI             = "gui"
	KeyConsole         = "console"
	KeyPrompt          = "prompt"
	KeyConsoleHistory  = "console_history"
	KeyWatchConfig     = "watch_config"
	KeyShutdownTimeout = "shutdown_timeout"
	KeyControlSocket   = "control_socket"
	KeyMetricsAddr     = "metrics_addr"
)

// Defaults for the recognized keys.
const (
	EnvPrefix              = "SIMHOST_"
	DefaultCrashDir        = "crashes"
	DefaultIniMaster       = "SimHostDefaults.ini"
	DefaultIniFile         = "SimHost.ini"
	DefaultSettingsFile    = "simhost.settings.json"
	DefaultConsole         = "local"
	DefaultPrompt          = "Region (root) # "
	DefaultShutdownTimeout = 20 * time.Second
)

// Capacity policy reproduced from the region host.
const (
	PolicyMinWorker = 500
	PolicyMaxWorker = 1000
	PolicyMinIO     = 1000
	PolicyMaxIO     = 2000
)

// Personal.AI order the ending
