package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/turtacn/simhost/internal/config"
	"github.com/turtacn/simhost/internal/console"
	"github.com/turtacn/simhost/internal/monitor"
	"github.com/turtacn/simhost/pkg/consts"
	herrors "github.com/turtacn/simhost/pkg/errors"
	"github.com/turtacn/simhost/pkg/protocol"
)

// runTask is the single asynchronous task of the Running state.
func (o *Orchestrator) runTask(ctx context.Context) error {
	hc := o.HostContext()

	eng, err := o.opts.Engine(hc)
	if err != nil {
		return herrors.New(herrors.ErrCodeEngineStartup, "NewEngine", "cannot create engine", err)
	}
	o.log.Info("Lifecycle: starting engine", "mode", hc.Mode)
	if err := eng.Startup(ctx); err != nil {
		return herrors.New(herrors.ErrCodeEngineStartup, "Startup", "engine startup failed", err)
	}
	if hc.Mode == consts.ModeHeadless {
		o.log.Info("Lifecycle: engine startup returned")
		return nil
	}

	reader, err := o.opts.Reader(o.Config(), o.cmds, o.RequestStop)
	if err != nil {
		return herrors.New(herrors.ErrCodeEngineStartup, "NewReader", "cannot open command reader", err)
	}
	if c, ok := reader.(io.Closer); ok {
		defer c.Close()
	}
	return o.commandLoop(ctx, reader, o.cmds)
}

// commandLoop reads and dispatches commands until end of input or
// cancellation. A failing command never ends the loop.
func (o *Orchestrator) commandLoop(ctx context.Context, r protocol.CommandReader, d protocol.Dispatcher) error {
	o.log.Info("Console: command loop started")
	for {
		res := step(ctx, r, d)
		monitor.ObserveCommand(res.Kind)

		switch res.Kind {
		case protocol.StepFailed:
			o.log.Error("Console: command failed", "command", res.Command.Line, "err", res.Err)
		case protocol.StepEndOfInput:
			if res.Err != nil {
				o.log.Warn("Console: command reader failed, treating as end of input", "err", res.Err)
			}
			o.log.Info("Console: end of input")
			return nil
		case protocol.StepCancelled:
			o.log.Info("Console: command loop cancelled")
			return res.Err
		}
	}
}

// step performs one loop iteration.
func step(ctx context.Context, r protocol.CommandReader, d protocol.Dispatcher) (res protocol.StepResult) {
	cmd, err := r.Next(ctx)
	switch {
	case ctx.Err() != nil:
		return protocol.StepResult{Kind: protocol.StepCancelled, Command: cmd, Err: ctx.Err()}
	case errors.Is(err, io.EOF):
		return protocol.StepResult{Kind: protocol.StepEndOfInput}
	case err != nil:
		return protocol.StepResult{Kind: protocol.StepEndOfInput, Err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			res = protocol.StepResult{
				Kind:    protocol.StepFailed,
				Command: cmd,
				Err:     herrors.New(herrors.ErrCodeCommandExecution, "Dispatch", cmd.Line, fmt.Errorf("panic: %v", p)),
			}
		}
	}()
	if err := d.Dispatch(ctx, cmd); err != nil {
		if ctx.Err() != nil && herrors.IsCancellation(err) {
			return protocol.StepResult{Kind: protocol.StepCancelled, Command: cmd, Err: err}
		}
		return protocol.StepResult{
			Kind:    protocol.StepFailed,
			Command: cmd,
			Err:     herrors.New(herrors.ErrCodeCommandExecution, "Dispatch", cmd.Line, err),
		}
	}
	return protocol.StepResult{Kind: protocol.StepOK, Command: cmd}
}

// DefaultReader opens the console selected by Startup.console: "basic" reads
// plain lines from stdin, anything else uses the readline console.
func DefaultReader(cfg *config.Layered, cmds *console.Commands, stop func()) (protocol.CommandReader, error) {
	kind := strings.ToLower(cfg.Get(consts.SectionStartup, consts.KeyConsole, consts.DefaultConsole))
	if kind == "basic" {
		return console.NewLineReader(os.Stdin), nil
	}
	return console.New(console.Config{
		Prompt:      cfg.Get(consts.SectionStartup, consts.KeyPrompt, consts.DefaultPrompt),
		HistoryFile: cfg.Get(consts.SectionStartup, consts.KeyConsoleHistory, ""),
		Commands:    cmds,
		OnInterrupt: stop,
	})
}

// Personal.AI order the ending
