package task

import (
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/queueing"
)

// Buffered queues inbound transfers so that the task body can consume them
// at its own pace. When the backlog is full the oldest transfer is
// overwritten.
type Buffered struct {
	heap    *heap.Heap
	backlog *queueing.Buffer[*cyphal.Transfer]
	dropped uint64
}

// NewBuffered creates a backlog of capacity transfers whose copies live in h.
func NewBuffered(name string, h *heap.Heap, capacity int) Buffered {
	if h == nil {
		panic("buffered task " + name + " requires a heap")
	}

	return Buffered{
		heap:    h,
		backlog: queueing.NewBuffer[*cyphal.Transfer](name+".Backlog", capacity),
	}
}

// HandleMessage copies t into the backlog.
func (b *Buffered) HandleMessage(t *cyphal.Transfer) {
	c, ok := t.Clone(b.heap)
	if !ok {
		b.dropped++
		return
	}

	if evicted, didEvict := b.backlog.PushOverwrite(c); didEvict {
		evicted.Release()
	}
}

// Pop removes the oldest transfer. The caller owns it and must Release it.
func (b *Buffered) Pop() (*cyphal.Transfer, bool) {
	return b.backlog.Pop()
}

// Drain pops every queued transfer, passes it to f, and releases it.
func (b *Buffered) Drain(f func(t *cyphal.Transfer)) int {
	n := 0

	for {
		t, ok := b.backlog.Pop()
		if !ok {
			return n
		}

		f(t)
		t.Release()
		n++
	}
}

// Len returns the number of queued transfers.
func (b *Buffered) Len() int {
	return b.backlog.Size()
}

// Capacity returns the size of the backlog.
func (b *Buffered) Capacity() int {
	return b.backlog.Capacity()
}

// Overwritten returns how many unread transfers were evicted.
func (b *Buffered) Overwritten() uint64 {
	return b.backlog.Overwritten()
}

// Dropped returns how many transfers could not be copied for lack of heap.
func (b *Buffered) Dropped() uint64 {
	return b.dropped
}

// Backlog exposes the underlying buffer so observers can hook it.
func (b *Buffered) Backlog() *queueing.Buffer[*cyphal.Transfer] {
	return b.backlog
}
