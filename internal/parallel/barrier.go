package parallel

import "sync"

// Barrier is a reusable group-wide synchronization point for a fixed number
// of parties.
//
// Wait blocks until all parties of the current phase have called it. Every
// write made by any party before its Wait happens-before every read made by
// any party after its Wait returns. The barrier then resets for the next
// phase, tracked by a generation counter.
//
// All parties must call Wait the same number of times; a party that skips a
// phase deadlocks the others.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	waiting    int
	generation uint64
}

// NewBarrier creates a barrier for n parties. It panics if n < 1.
func NewBarrier(n int) *Barrier {
	if n < 1 {
		panic("parallel: barrier needs at least one party")
	}
	b := &Barrier{parties: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until all parties have arrived and returns the generation
// that was completed.
func (b *Barrier) Wait() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	gen := b.generation
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
		return gen
	}
	for gen == b.generation {
		b.cond.Wait()
	}
	return gen
}

// Generation returns the number of completed phases.
func (b *Barrier) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}
