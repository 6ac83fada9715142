// Package heap provides the bounded allocators that back every transfer
// buffer and session record.
//
// A Heap is a single fixed-size region carved into power-of-two fragments by
// buddy splitting. Allocation and release are bounded by the number of size
// bins, which is fixed when the heap is built, so both run in constant time
// with respect to the number of live allocations. Running out of memory is
// not fatal: Allocate reports it and bumps a counter.
//
// Memory is handed out as Block handles rather than raw pointers. A handle
// knows which heap issued it and carries a generation number, so a stale or
// double-freed handle is rejected instead of corrupting the free lists.
package heap

import (
	"fmt"
	"math/bits"
	"unsafe"
)

// Alignment is the alignment, in bytes, of every block and also the size of
// the smallest fragment.
const Alignment = 32

const maxBins = 32

// Diagnostics reports the usage of a Heap.
type Diagnostics struct {
	Capacity        int
	Allocated       int
	PeakAllocated   int
	PeakRequestSize int
	OOMCount        uint64
}

// Heap is a fixed-capacity buddy allocator. It is not safe for concurrent
// use; the run-loop owns it.
type Heap struct {
	region  []byte
	units   int
	numBins int

	heads    [maxBins]int32
	nonEmpty uint32

	next  []int32
	prev  []int32
	order []uint8
	free  []bool
	used  []bool
	gen   []uint32

	diag Diagnostics
}

// New creates a heap that manages capacity bytes. The capacity must be a
// power of two no smaller than Alignment.
func New(capacity int) *Heap {
	capacityMustBeValid(capacity)

	h := &Heap{}
	h.region = alignedRegion(capacity)
	h.units = capacity / Alignment
	h.numBins = bits.Len(uint(h.units))
	h.next = make([]int32, h.units)
	h.prev = make([]int32, h.units)
	h.order = make([]uint8, h.units)
	h.free = make([]bool, h.units)
	h.used = make([]bool, h.units)
	h.gen = make([]uint32, h.units)
	h.diag.Capacity = capacity

	for i := range h.heads {
		h.heads[i] = -1
	}

	h.pushFree(0, h.numBins-1)

	return h
}

func capacityMustBeValid(capacity int) {
	if capacity < Alignment || capacity&(capacity-1) != 0 {
		panic(fmt.Sprintf(
			"heap capacity must be a power of two no smaller than %d, got %d",
			Alignment, capacity))
	}

	if bits.Len(uint(capacity/Alignment)) > maxBins {
		panic("heap capacity too large")
	}
}

func alignedRegion(capacity int) []byte {
	buf := make([]byte, capacity+Alignment)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	pad := int((Alignment - addr%Alignment) % Alignment)

	return buf[pad : pad+capacity : pad+capacity]
}

// Capacity returns the number of bytes the heap manages.
func (h *Heap) Capacity() int {
	return h.diag.Capacity
}

// Diagnostics returns a snapshot of the heap usage counters.
func (h *Heap) Diagnostics() Diagnostics {
	return h.diag
}

// Allocate reserves at least size bytes. It returns false when size is zero
// or when no fragment large enough is free; the latter counts as an
// out-of-memory event.
func (h *Heap) Allocate(size int) (Block, bool) {
	if size <= 0 {
		return Block{}, false
	}

	if size > h.diag.PeakRequestSize {
		h.diag.PeakRequestSize = size
	}

	order := orderFor(size)
	if order >= h.numBins {
		h.diag.OOMCount++
		return Block{}, false
	}

	candidates := h.nonEmpty &^ (uint32(1)<<order - 1)
	if candidates == 0 {
		h.diag.OOMCount++
		return Block{}, false
	}

	bin := bits.TrailingZeros32(candidates)
	unit := h.popFree(bin)

	for bin > order {
		bin--
		h.pushFree(unit+int32(1)<<bin, bin)
	}

	h.order[unit] = uint8(order)
	h.used[unit] = true
	h.gen[unit]++

	h.diag.Allocated += Alignment << order
	if h.diag.Allocated > h.diag.PeakAllocated {
		h.diag.PeakAllocated = h.diag.Allocated
	}

	b := Block{
		heap:  h,
		unit:  unit,
		order: uint8(order),
		gen:   h.gen[unit],
		size:  size,
	}

	return b, true
}

func orderFor(size int) int {
	units := (size + Alignment - 1) / Alignment
	return bits.Len(uint(units - 1))
}

func (h *Heap) release(b Block) bool {
	unit := b.unit
	if unit < 0 || int(unit) >= h.units {
		return false
	}

	if !h.used[unit] || h.order[unit] != b.order || h.gen[unit] != b.gen {
		return false
	}

	h.used[unit] = false
	order := int(b.order)
	h.diag.Allocated -= Alignment << order

	for order < h.numBins-1 {
		buddy := unit ^ int32(1)<<order
		if !h.free[buddy] || int(h.order[buddy]) != order {
			break
		}

		h.removeFree(buddy, order)

		if buddy < unit {
			unit = buddy
		}

		order++
	}

	h.pushFree(unit, order)

	return true
}

func (h *Heap) pushFree(unit int32, order int) {
	head := h.heads[order]

	h.next[unit] = head
	h.prev[unit] = -1

	if head >= 0 {
		h.prev[head] = unit
	}

	h.heads[order] = unit
	h.nonEmpty |= 1 << order
	h.order[unit] = uint8(order)
	h.free[unit] = true
}

func (h *Heap) popFree(order int) int32 {
	unit := h.heads[order]
	h.removeFree(unit, order)

	return unit
}

func (h *Heap) removeFree(unit int32, order int) {
	next, prev := h.next[unit], h.prev[unit]

	if prev >= 0 {
		h.next[prev] = next
	} else {
		h.heads[order] = next
	}

	if next >= 0 {
		h.prev[next] = prev
	}

	if h.heads[order] < 0 {
		h.nonEmpty &^= 1 << order
	}

	h.free[unit] = false
}

// Invariants checks that every byte of the region is accounted for exactly
// once, either in a free list or in an allocated block.
func (h *Heap) Invariants() bool {
	freeBytes := 0

	for order := 0; order < h.numBins; order++ {
		count := 0
		for u := h.heads[order]; u >= 0; u = h.next[u] {
			if !h.free[u] || int(h.order[u]) != order {
				return false
			}

			freeBytes += Alignment << order
			count++
		}

		if (count > 0) != (h.nonEmpty&(1<<order) != 0) {
			return false
		}
	}

	return freeBytes+h.diag.Allocated == h.diag.Capacity
}
