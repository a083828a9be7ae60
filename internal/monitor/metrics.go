package monitor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/simhost/pkg/consts"
	"github.com/turtacn/simhost/pkg/logger"
	"github.com/turtacn/simhost/pkg/protocol"
)

var states = []consts.LifecycleState{
	consts.StateCreated,
	consts.StateStarting,
	consts.StateRunning,
	consts.StateStopping,
	consts.StateStopped,
}

var (
	// Registry holds every host metric.
	Registry = prometheus.NewRegistry()

	// LifecycleState is 1 for the current lifecycle state and 0 otherwise.
	LifecycleState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simhost_lifecycle_state",
		Help: "Current lifecycle state of the host",
	}, []string{"state"})
	// TransitionsTotal counts lifecycle transitions, partitioned by event.
	TransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simhost_lifecycle_transitions_total",
		Help: "Total number of lifecycle transitions",
	}, []string{"event"})
	// CommandsTotal counts interactive commands, partitioned by outcome.
	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simhost_console_commands_total",
		Help: "Interactive commands processed",
	}, []string{"outcome"})
	// RunTaskDuration tracks how long the run task lived in seconds.
	RunTaskDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simhost_run_task_duration_seconds",
		Help:    "Lifetime of the run task",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
	})
	// CapacityCeiling reports the applied pool ceilings.
	CapacityCeiling = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simhost_capacity_ceiling",
		Help: "Applied execution pool ceilings",
	}, []string{"class", "bound"})
	// ExitCode is the exit code recorded in the Stopped state.
	ExitCode = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simhost_exit_code",
		Help: "Exit code recorded when the host stopped",
	})
)

func init() {
	Registry.MustRegister(LifecycleState, TransitionsTotal, CommandsTotal, RunTaskDuration, CapacityCeiling, ExitCode)
}

// ObserveTransition updates the state gauge and transition counter.
func ObserveTransition(to consts.LifecycleState, event string) {
	for _, s := range states {
		v := 0.0
		if s == to {
			v = 1
		}
		LifecycleState.WithLabelValues(string(s)).Set(v)
	}
	TransitionsTotal.WithLabelValues(event).Inc()
}

// ObserveBudget publishes the applied capacity budget.
func ObserveBudget(b protocol.CapacityBudget) {
	CapacityCeiling.WithLabelValues("worker", "min").Set(float64(b.MinWorker))
	CapacityCeiling.WithLabelValues("worker", "max").Set(float64(b.MaxWorker))
	CapacityCeiling.WithLabelValues("io", "min").Set(float64(b.MinIO))
	CapacityCeiling.WithLabelValues("io", "max").Set(float64(b.MaxIO))
}

// ObserveCommand counts one interactive loop step.
func ObserveCommand(kind protocol.StepKind) {
	CommandsTotal.WithLabelValues(kind.String()).Inc()
}

// ObserveRunTask records the run task lifetime and the exit code.
func ObserveRunTask(d time.Duration, code int) {
	if d > 0 {
		RunTaskDuration.Observe(d.Seconds())
	}
	ExitCode.Set(float64(code))
}

// Server exposes Registry on /metrics.
type Server struct {
	srv *http.Server
}

func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
	return &Server{srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}
}

// Serve binds the configured address and serves until ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	l, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		logger.Log.Error("Metrics server failed", "err", err)
		return err
	}
	return s.ServeListener(ctx, l)
}

// ServeListener serves on l until ctx ends or the listener fails.
func (s *Server) ServeListener(ctx context.Context, l net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Metrics server starting", "addr", l.Addr().String())
		errCh <- s.srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Log.Error("Metrics server failed", "err", err)
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

// Personal.AI order the ending
