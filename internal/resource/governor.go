package resource

import (
	"sync"

	"github.com/turtacn/simhost/pkg/consts"
	herrors "github.com/turtacn/simhost/pkg/errors"
	"github.com/turtacn/simhost/pkg/logger"
	"github.com/turtacn/simhost/pkg/protocol"
)

// Runtime is the execution pool as seen by the governor.
type Runtime interface {
	MinThreads() (worker, io int)
	MaxThreads() (worker, io int)
	SetMaxThreads(worker, io int) bool
}

// Policy bounds the ceilings the governor will apply.
type Policy struct {
	MinWorker int
	MaxWorker int
	MinIO     int
	MaxIO     int
}

func DefaultPolicy() Policy {
	return Policy{
		MinWorker: consts.PolicyMinWorker,
		MaxWorker: consts.PolicyMaxWorker,
		MinIO:     consts.PolicyMinIO,
		MaxIO:     consts.PolicyMaxIO,
	}
}

// Decision is what the governor did with one ceiling.
type Decision string

const (
	DecisionRaised    Decision = "raised"
	DecisionCapped    Decision = "capped"
	DecisionUnchanged Decision = "unchanged"
	DecisionRejected  Decision = "rejected"
)

// Clamp moves current into [min, max] and says which way it went.
func Clamp(current, min, max int) (int, Decision) {
	switch {
	case current < min:
		return min, DecisionRaised
	case current > max:
		return max, DecisionCapped
	default:
		return current, DecisionUnchanged
	}
}

// Governor applies a capacity policy to the runtime exactly once.
type Governor struct {
	rt  Runtime
	log logger.Logger

	once   sync.Once
	mu     sync.RWMutex
	budget protocol.CapacityBudget
}

func NewGovernor(rt Runtime, log logger.Logger) *Governor {
	return &Governor{rt: rt, log: logger.Or(log)}
}

// Tune computes and applies the ceilings. A rejection by the runtime is logged
// and the previous ceilings stay in effect. Later calls return the first result.
func (g *Governor) Tune(p Policy) protocol.CapacityBudget {
	g.once.Do(func() {
		b := g.tune(p)
		g.mu.Lock()
		g.budget = b
		g.mu.Unlock()
	})
	return g.Budget()
}

// Budget returns the applied budget; zero until the first Tune completes.
// Safe to call concurrently with Tune.
func (g *Governor) Budget() protocol.CapacityBudget {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.budget
}

func (g *Governor) tune(p Policy) protocol.CapacityBudget {
	minWorker, minIO := g.rt.MinThreads()
	g.log.Info("Capacity: runtime minimums", "min_worker", minWorker, "min_io", minIO)
	curWorker, curIO := g.rt.MaxThreads()
	g.log.Info("Capacity: runtime maximums", "max_worker", curWorker, "max_io", curIO)

	worker, wd := Clamp(curWorker, p.MinWorker, p.MaxWorker)
	io, iod := Clamp(curIO, p.MinIO, p.MaxIO)
	g.log.Info("Capacity: max worker threads "+string(wd), "from", curWorker, "to", worker)
	g.log.Info("Capacity: max io threads "+string(iod), "from", curIO, "to", io)

	budget := protocol.CapacityBudget{
		MinWorker: minWorker,
		MaxWorker: curWorker,
		MinIO:     minIO,
		MaxIO:     curIO,
	}
	if wd == DecisionUnchanged && iod == DecisionUnchanged {
		budget.Applied = true
		return budget
	}

	if !g.rt.SetMaxThreads(worker, io) {
		err := herrors.New(herrors.ErrCodeCapacityTuning, "Tune", "runtime refused ceilings", nil)
		g.log.Warn("Capacity: reconfiguration "+string(DecisionRejected)+", runtime defaults still in effect",
			"worker", worker, "io", io, "err", err)
		return budget
	}

	budget.MaxWorker, budget.MaxIO, budget.Applied = worker, io, true
	g.log.Info("Capacity: pool set", "max_worker", worker, "max_io", io)
	return budget
}

// Personal.AI order the ending
