package resource

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/turtacn/simhost/pkg/protocol"
)

// Pool is the process-wide execution pool. Work is admitted against a worker
// or IO ceiling; the ceilings can be moved once the pool exists.
type Pool struct {
	mu        sync.Mutex
	minWorker int
	minIO     int
	maxWorker int
	maxIO     int
	worker    *semaphore.Weighted
	io        *semaphore.Weighted

	inflightWorker atomic.Int64
	inflightIO     atomic.Int64
	wg             sync.WaitGroup
}

func NewPool(minWorker, maxWorker, minIO, maxIO int) *Pool {
	return &Pool{
		minWorker: minWorker,
		minIO:     minIO,
		maxWorker: maxWorker,
		maxIO:     maxIO,
		worker:    semaphore.NewWeighted(int64(maxWorker)),
		io:        semaphore.NewWeighted(int64(maxIO)),
	}
}

// DefaultPool sizes the pool from the host's CPU count.
func DefaultPool() *Pool {
	n := runtime.NumCPU()
	return NewPool(n, n*64, n, n*4)
}

func (p *Pool) MinThreads() (worker, io int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.minWorker, p.minIO
}

func (p *Pool) MaxThreads() (worker, io int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxWorker, p.maxIO
}

func (p *Pool) InFlight() (worker, io int) {
	return int(p.inflightWorker.Load()), int(p.inflightIO.Load())
}

// SetMaxThreads moves both ceilings at once. It refuses ceilings below the
// pool minimums or below what in-flight work already holds, and then leaves
// the previous ceilings in place. New ceilings govern work admitted afterwards.
func (p *Pool) SetMaxThreads(worker, io int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if worker < p.minWorker || io < p.minIO {
		return false
	}
	if int64(worker) < p.inflightWorker.Load() || int64(io) < p.inflightIO.Load() {
		return false
	}
	if worker != p.maxWorker {
		p.maxWorker = worker
		p.worker = semaphore.NewWeighted(int64(worker))
	}
	if io != p.maxIO {
		p.maxIO = io
		p.io = semaphore.NewWeighted(int64(io))
	}
	return true
}

// Go blocks until a slot of the given class is free, then runs fn on its own
// goroutine. It fails only when ctx ends first.
func (p *Pool) Go(ctx context.Context, class protocol.WorkClass, fn func(ctx context.Context)) error {
	p.mu.Lock()
	sem, counter := p.worker, &p.inflightWorker
	if class == protocol.IOClass {
		sem, counter = p.io, &p.inflightIO
	}
	p.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return err
	}
	counter.Add(1)
	p.wg.Add(1)
	go func() {
		defer func() {
			counter.Add(-1)
			sem.Release(1)
			p.wg.Done()
		}()
		fn(ctx)
	}()
	return nil
}

// Wait blocks until all admitted work has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Personal.AI order the ending
