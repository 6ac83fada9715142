package heap

import "fmt"

// Handle identifies an object issued by a Pool.
type Handle struct {
	index int32
	gen   uint32
}

// PoolDiagnostics reports the usage of a Pool.
type PoolDiagnostics struct {
	Capacity int
	InUse    int
	Peak     int
	OOMCount uint64
}

// Pool is a fixed-capacity arena of T. Objects are handed out zeroed and
// returned by handle, so nothing outlives the arena and a handle cannot be
// released twice.
type Pool[T any] struct {
	items []T
	gen   []uint32
	used  []bool
	free  []int32

	diag PoolDiagnostics
}

// NewPool creates a pool that holds up to capacity objects.
func NewPool[T any](capacity int) *Pool[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("pool capacity must be positive, got %d", capacity))
	}

	p := &Pool[T]{
		items: make([]T, capacity),
		gen:   make([]uint32, capacity),
		used:  make([]bool, capacity),
		free:  make([]int32, capacity),
	}

	for i := range p.free {
		p.free[i] = int32(capacity - 1 - i)
	}

	p.diag.Capacity = capacity

	return p
}

// Get takes a zeroed object from the pool. It returns false when the pool is
// exhausted.
func (p *Pool[T]) Get() (*T, Handle, bool) {
	if len(p.free) == 0 {
		p.diag.OOMCount++
		return nil, Handle{}, false
	}

	index := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	var zero T
	p.items[index] = zero
	p.used[index] = true
	p.gen[index]++

	p.diag.InUse++
	if p.diag.InUse > p.diag.Peak {
		p.diag.Peak = p.diag.InUse
	}

	return &p.items[index], Handle{index: index, gen: p.gen[index]}, true
}

// At resolves a handle to its object.
func (p *Pool[T]) At(h Handle) (*T, bool) {
	if !p.live(h) {
		return nil, false
	}

	return &p.items[h.index], true
}

// Put returns an object to the pool. It returns false for a stale handle.
func (p *Pool[T]) Put(h Handle) bool {
	if !p.live(h) {
		return false
	}

	var zero T
	p.items[h.index] = zero
	p.used[h.index] = false
	p.free = append(p.free, h.index)
	p.diag.InUse--

	return true
}

func (p *Pool[T]) live(h Handle) bool {
	if h.index < 0 || int(h.index) >= len(p.items) {
		return false
	}

	return p.used[h.index] && p.gen[h.index] == h.gen
}

// Diagnostics returns a snapshot of the pool usage counters.
func (p *Pool[T]) Diagnostics() PoolDiagnostics {
	return p.diag
}
