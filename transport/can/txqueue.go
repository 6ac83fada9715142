package can

import (
	"container/heap"

	cheap "github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

// txItem is one queued frame. Its bytes, tail byte included, live in a heap
// block.
type txItem struct {
	id       uint32
	seq      uint64
	deadline timing.Tick
	block    cheap.Block
}

// txQueue orders frames by CAN ID, which is bus arbitration order, and by
// insertion order among equal IDs so that the frames of one transfer stay in
// sequence.
type txQueue struct {
	items    txHeap
	capacity int
	seq      uint64
}

func newTxQueue(capacity int) *txQueue {
	q := &txQueue{
		items:    make(txHeap, 0, capacity),
		capacity: capacity,
	}
	heap.Init(&q.items)

	return q
}

func (q *txQueue) Len() int {
	return q.items.Len()
}

func (q *txQueue) Room() int {
	return q.capacity - q.items.Len()
}

func (q *txQueue) Push(id uint32, deadline timing.Tick, block cheap.Block) {
	q.seq++
	heap.Push(&q.items, txItem{id: id, seq: q.seq, deadline: deadline, block: block})
}

func (q *txQueue) Peek() (txItem, bool) {
	if q.items.Len() == 0 {
		return txItem{}, false
	}

	return q.items[0], true
}

func (q *txQueue) Pop() txItem {
	return heap.Pop(&q.items).(txItem)
}

type txHeap []txItem

func (h txHeap) Len() int { return len(h) }

func (h txHeap) Less(i, j int) bool {
	if h[i].id != h[j].id {
		return h[i].id < h[j].id
	}

	return h[i].seq < h[j].seq
}

func (h txHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *txHeap) Push(x any) {
	*h = append(*h, x.(txItem))
}

func (h *txHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = txItem{}
	*h = old[:n-1]

	return item
}
