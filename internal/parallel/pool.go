package parallel

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned by Dispatch after Close.
var ErrPoolClosed = errors.New("parallel: pool closed")

// GroupPool runs independent work groups on a fixed set of goroutines.
//
// Each worker goroutine owns a queue; group indices are dealt round-robin
// across the queues and idle workers steal from their neighbours, so groups
// complete in no particular order. Callers must not rely on inter-group
// ordering.
//
// Thread safety: GroupPool is safe for concurrent use.
type GroupPool struct {
	// workers is the number of worker goroutines.
	workers int

	// queues holds per-worker task queues.
	queues []chan func()

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running indicates whether the pool is accepting work.
	running atomic.Bool

	// mu is held shared by in-flight dispatches and exclusively by Close,
	// so workers never stop while a dispatch still has queued groups.
	mu sync.RWMutex
}

// NewGroupPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewGroupPool(workers int) *GroupPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Buffer size: 2-4x workers helps hide latency
	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &GroupPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

func (p *GroupPool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]

	for {
		select {
		case <-p.done:
			p.drain(own)
			return

		case task := <-own:
			task()

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case task := <-own:
				task()
			}
		}
	}
}

// drain executes everything left in a queue.
func (p *GroupPool) drain(queue chan func()) {
	for {
		select {
		case task := <-queue:
			task()
		default:
			return
		}
	}
}

// steal takes one task from another worker's queue, or returns nil.
func (p *GroupPool) steal(self int) func() {
	for i := range p.workers {
		if i == self {
			continue
		}
		select {
		case task := <-p.queues[i]:
			return task
		default:
		}
	}
	return nil
}

// Dispatch runs fn for every group index in [0, groups) and waits for all
// of them. Either every group runs to completion or Dispatch reports an
// error; a panic inside fn is recovered and returned as *GroupFault after
// the remaining groups finish.
func (p *GroupPool) Dispatch(groups int, fn func(group int)) error {
	if groups <= 0 {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running.Load() {
		return ErrPoolClosed
	}

	var (
		pending sync.WaitGroup
		faultMu sync.Mutex
		fault   *GroupFault
	)
	pending.Add(groups)

	run := func(g int) {
		defer pending.Done()
		defer func() {
			if r := recover(); r != nil {
				faultMu.Lock()
				if fault == nil {
					fault = &GroupFault{Group: g, Value: r}
				}
				faultMu.Unlock()
			}
		}()
		fn(g)
	}

	for g := range groups {
		p.queues[g%p.workers] <- func() { run(g) }
	}

	pending.Wait()

	if fault != nil {
		return fault
	}
	return nil
}

// Close stops accepting work, waits for queued groups and stops the workers.
// Close is safe to call multiple times.
func (p *GroupPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.mu.Lock()
	close(p.done)
	p.mu.Unlock()
	p.wg.Wait()
}

// Workers returns the number of worker goroutines.
func (p *GroupPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool still accepts work.
func (p *GroupPool) IsRunning() bool {
	return p.running.Load()
}

// GroupFault reports a panic raised while executing one group.
type GroupFault struct {
	Group int
	Value any
}

func (f *GroupFault) Error() string {
	return fmt.Sprintf("parallel: group %d faulted: %v", f.Group, f.Value)
}
