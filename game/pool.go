package game

import "sync"

// IDPool hands out one of N unique numeric room IDs, tracking free/used via
// a buffered-channel FIFO plus a boolean free-map. The free-map is the
// authoritative source of truth (invariant F2); the FIFO may transiently
// hold stale IDs that are filtered at dequeue time elsewhere (the waiting
// queues), but the pool itself never returns a stale ID from Acquire.
type IDPool struct {
	mu    sync.Mutex
	free  []bool
	queue chan int
	size  int
}

// NewIDPool builds a pool over the ID range [0, size).
func NewIDPool(size int) *IDPool {
	p := &IDPool{
		free:  make([]bool, size),
		queue: make(chan int, size),
		size:  size,
	}
	for i := 0; i < size; i++ {
		p.free[i] = true
		p.queue <- i
	}
	return p
}

// Acquire pops a free ID off the FIFO and then marks it used in the
// free-map, so invariant F1 (id in queue => free[id] == true) holds for
// every other observer. Returns ErrAtCapacity if the pool is exhausted.
func (p *IDPool) Acquire() (int, error) {
	select {
	case id := <-p.queue:
		p.mu.Lock()
		p.free[id] = false
		p.mu.Unlock()
		return id, nil
	default:
		return 0, NewCapacityError(ErrAtCapacity)
	}
}

// Release returns id to the pool. Callers must have already removed the
// associated Game Instance from the Games table; Release sets free[id]=true
// before re-enqueuing so no racing Acquire can observe a stale false.
func (p *IDPool) Release(id int) {
	p.mu.Lock()
	p.free[id] = true
	p.mu.Unlock()
	p.queue <- id
}

// IsFree reports the free-map's authoritative view for id.
func (p *IDPool) IsFree(id int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.free[id]
}

// Size returns MAX_GAMES, the pool's fixed capacity.
func (p *IDPool) Size() int {
	return p.size
}

// Snapshot returns a consistent, order-preserving copy of the free-map and
// the set of IDs currently sitting in the FIFO, for use by the debug
// endpoint (spec section 6).
func (p *IDPool) Snapshot() (freeMap []bool, queued []int) {
	p.mu.Lock()
	freeMap = make([]bool, len(p.free))
	copy(freeMap, p.free)
	p.mu.Unlock()

	queued = make([]int, 0, len(p.queue))
	drained := make([]int, 0, len(p.queue))
	n := len(p.queue)
	for i := 0; i < n; i++ {
		id := <-p.queue
		drained = append(drained, id)
		queued = append(queued, id)
	}
	for _, id := range drained {
		p.queue <- id
	}
	return freeMap, queued
}
