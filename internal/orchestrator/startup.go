package orchestrator

import (
	"time"

	"github.com/turtacn/simhost/internal/config"
	"github.com/turtacn/simhost/internal/console"
	"github.com/turtacn/simhost/internal/monitor"
	"github.com/turtacn/simhost/internal/probe"
	"github.com/turtacn/simhost/internal/resource"
	"github.com/turtacn/simhost/pkg/consts"
	herrors "github.com/turtacn/simhost/pkg/errors"
	"github.com/turtacn/simhost/pkg/logger"
	"github.com/turtacn/simhost/pkg/protocol"
)

// configure is the body of the Starting state. The order is fixed:
// configuration, aliases, probe, capacity, mode.
func (o *Orchestrator) configure() error {
	if o.opts.Engine == nil {
		return herrors.New(herrors.ErrCodeConfigInvalid, "Start", "no engine factory configured", nil)
	}

	cfg, err := resolve(NewResolver(o.log), o.opts.Args, o.opts.EnvPrefix, o.opts.Sources)
	if err != nil {
		return err
	}
	config.PopulateAliases()
	o.applyLogConfig(cfg)
	o.log.Info("Config: resolved", "sources", cfg.Applied())

	p := o.opts.Probe
	if p == nil {
		p = probe.New()
	}
	p.Report(o.log)

	policy := resource.DefaultPolicy()
	if o.opts.Policy != nil {
		policy = *o.opts.Policy
	}
	budget := resource.NewGovernor(o.pool, o.log).Tune(policy)
	monitor.ObserveBudget(budget)

	mode := consts.ModeInteractive
	background := cfg.Bool(consts.SectionStartup, consts.KeyBackground, false)
	if background {
		mode = consts.ModeHeadless
	}
	startup := protocol.StartupOptions{
		Background:  background,
		SaveCrashes: cfg.Bool(consts.SectionStartup, consts.KeySaveCrashes, false),
		CrashDir:    cfg.Get(consts.SectionStartup, consts.KeyCrashDir, consts.DefaultCrashDir),
		LogConfig:   cfg.Get(consts.SectionStartup, consts.KeyLogConfig, ""),
	}

	o.dataMu.Lock()
	o.cfg, o.mode, o.startup, o.budget = cfg, mode, startup, budget
	o.started = time.Now()
	o.dataMu.Unlock()

	if mode == consts.ModeInteractive {
		o.cmds = console.NewCommands(o.opts.Out)
	}
	o.log.Info("Lifecycle: configured", "mode", mode, "save_crashes", startup.SaveCrashes, "crash_dir", startup.CrashDir)

	o.watch(cfg)
	return nil
}

// applyLogConfig hands Startup.logconfig to the logger. On failure the
// current logger stays.
func (o *Orchestrator) applyLogConfig(cfg *config.Layered) {
	path := cfg.Get(consts.SectionStartup, consts.KeyLogConfig, "")
	if path == "" {
		return
	}
	if err := logger.InitFromFile(path); err != nil {
		o.log.Warn("Config: logging configuration not applied", "path", path, "err", err)
		return
	}
	if o.opts.Logger == nil {
		o.log = logger.Log.With("run_id", o.runID)
	}
	o.log.Info("Config: logging configuration applied", "path", path)
}

func (o *Orchestrator) watch(cfg *config.Layered) {
	files := cfg.Files()
	if len(files) == 0 || !cfg.Bool(consts.SectionStartup, consts.KeyWatchConfig, true) {
		return
	}
	w := config.NewWatcher(files, nil, o.log)
	if err := w.Start(); err != nil {
		o.log.Warn("Config: cannot watch configuration files", "err", err)
		return
	}
	o.watcher = w
}

// HostContext is what the engine receives at construction.
func (o *Orchestrator) HostContext() protocol.HostContext {
	o.dataMu.RLock()
	defer o.dataMu.RUnlock()
	hc := protocol.HostContext{
		RunID:       o.runID,
		StartedAt:   o.started,
		Mode:        o.mode,
		Startup:     o.startup,
		Config:      o.cfg,
		Budget:      o.budget,
		Scheduler:   o.pool,
		Logger:      o.log,
		RequestStop: o.RequestStop,
	}
	if o.cmds != nil {
		hc.Commands = o.cmds
	}
	return hc
}

// Personal.AI order the ending
