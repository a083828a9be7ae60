package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/simhost/internal/console"
	"github.com/turtacn/simhost/internal/control"
	"github.com/turtacn/simhost/internal/orchestrator"
	"github.com/turtacn/simhost/internal/probe"
	"github.com/turtacn/simhost/internal/simulator"
	"github.com/turtacn/simhost/pkg/consts"
	"github.com/turtacn/simhost/pkg/logger"
)

var (
	logLevel   string
	socketPath string
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit code %d", e.code) }

var rootCmd = &cobra.Command{
	Use:           "simhost",
	Short:         "simhost: region simulator host",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.InitLogger(logLevel)
	},
}

const flagsHelp = `Configuration flags:
  --background[=bool]        run without a console
  --inidirectory=DIR         directory holding the configuration files
  --inimaster=FILE           required base INI file
  --inifile=FILE             optional override INI file
  --settings=FILE            optional structured file (.json, .yaml, .toml)
  --console=local|basic      console kind
  --save_crashes[=bool]      write crash reports
  --crash_dir=DIR            crash report directory
  --logconfig=FILE           logging configuration (YAML)
  --set section.key=value    set any key, repeatable

Environment: SIMHOST_SECTION__KEY=value`

var runCmd = &cobra.Command{
	Use:                "run [flags...]",
	Short:              "Run the host until stopped",
	Long:               "Run the host until stopped.\n\n" + flagsHelp,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if wantsHelp(args) {
			return cmd.Help()
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		o := orchestrator.New(orchestrator.Options{
			Args:   args,
			Engine: simulator.New(out),
			Out:    out,
		})
		logger.Log.Info("Booting simhost", "run_id", o.RunID(), "args", args)

		if code := o.Run(ctx); code != consts.ExitOK {
			return &exitError{code: code}
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:                "config [flags...]",
	Short:              "Resolve and print the layered configuration",
	Long:               "Resolve and print the layered configuration.\n\n" + flagsHelp,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if wantsHelp(args) {
			return cmd.Help()
		}
		cfg, err := orchestrator.ResolveConfig(args, consts.EnvPrefix, logger.Log)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		console.RenderConfig(out, cfg)
		fmt.Fprintf(out, "Sources: %v\n", cfg.Applied())
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check the runtime environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, reason := probe.New().Check()
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "unsupported: %s\n", reason)
			return &exitError{code: consts.ExitFailure}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "supported: %s\n", reason)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask a running host to stop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendControl(cmd.Context(), cmd.OutOrStdout(), control.CommandStop)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the lifecycle state of a running host",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendControl(cmd.Context(), cmd.OutOrStdout(), control.CommandStatus)
	},
}

func sendControl(ctx context.Context, out io.Writer, command string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := control.Send(ctx, socketPath, command)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%s: %s", command, resp.Error)
	}
	fmt.Fprintf(out, "state: %s\n", resp.State)
	if resp.Mode != "" {
		fmt.Fprintf(out, "mode: %s\n", resp.Mode)
	}
	if b := resp.Budget; b != nil {
		fmt.Fprintf(out, "workers: %d-%d\nio: %d-%d\n", b.MinWorker, b.MaxWorker, b.MinIO, b.MaxIO)
	}
	if resp.ExitCode != nil {
		fmt.Fprintf(out, "exit code: %d\n", *resp.ExitCode)
	}
	return nil
}

func wantsHelp(args []string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if a == "-h" || a == "--help" {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	for _, c := range []*cobra.Command{stopCmd, statusCmd} {
		c.Flags().StringVar(&socketPath, "socket", "", "control socket path (Startup.control_socket)")
		c.MarkFlagRequired("socket")
	}
	rootCmd.AddCommand(runCmd, configCmd, probeCmd, stopCmd, statusCmd)
}

// Execute runs the root command and exits with the host's exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(consts.ExitFailure)
	}
}

// Personal.AI order the ending
