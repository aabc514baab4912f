// Package task implements the background execution model: a worker pool
// running "Do in background" bodies, task handles awaited explicitly, and
// FIFO channels between execution contexts. Await and a blocking receive
// are the only suspension points the engine has.
package task

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sfexlang/sfex/internal/value"
)

// Handle is the immediately returned result slot of a background task.
// Dropping a handle does not cancel the work; the task runs to completion
// and its result is discarded.
type Handle struct {
	ID     uuid.UUID
	done   chan struct{}
	result value.Value
}

// Await blocks until the task's result is available. Awaiting an already
// completed handle returns immediately.
func (h *Handle) Await() value.Value {
	<-h.done
	return h.result
}

// Done reports completion without blocking.
func (h *Handle) Done() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Pool executes background units of work on a fixed set of workers with an
// unbounded job queue, so spawning from inside a task cannot deadlock the
// pool.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	closing bool
	wg      sync.WaitGroup
}

// NewPool starts a pool with the given number of workers (minimum 1).
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closing {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.closing {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
		job()
	}
}

// Spawn schedules fn and returns its handle immediately. A task never
// panics the pool: fn is expected to convert its own failures into an
// error value result. Spawning on a closing pool runs fn inline so the
// handle always completes.
func (p *Pool) Spawn(fn func() value.Value) *Handle {
	h := &Handle{ID: uuid.New(), done: make(chan struct{})}
	job := func() {
		h.result = fn()
		close(h.done)
	}
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		job()
		return h
	}
	p.queue = append(p.queue, job)
	p.mu.Unlock()
	p.cond.Signal()
	return h
}

// Close drains the queue and stops the workers. Pending tasks still run.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closing = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}
