package loopback

import (
	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/queueing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
)

// Builder can build loopback adapters.
type Builder struct {
	heap          *heap.Heap
	clock         timing.TimeTeller
	log           logr.Logger
	nodeID        cyphal.NodeID
	queueCapacity int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		log:           logr.Discard(),
		nodeID:        cyphal.NodeIDUnset,
		queueCapacity: 16,
	}
}

// WithHeap sets the heap that backs queued transfers.
func (b Builder) WithHeap(h *heap.Heap) Builder {
	b.heap = h
	return b
}

// WithClock sets the tick source used for deadlines and timestamps.
func (b Builder) WithClock(c timing.TimeTeller) Builder {
	b.clock = c
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l logr.Logger) Builder {
	b.log = l
	return b
}

// WithNodeID sets the local node ID. Requests and responses addressed to
// other nodes are not looped back.
func (b Builder) WithNodeID(id cyphal.NodeID) Builder {
	b.nodeID = id
	return b
}

// WithQueueCapacity sets the number of transfers each direction can hold.
func (b Builder) WithQueueCapacity(n int) Builder {
	b.queueCapacity = n
	return b
}

// Build creates the adapter.
func (b Builder) Build(name string) *Adapter {
	b.parametersMustBeValid()

	return &Adapter{
		name:   name,
		nodeID: b.nodeID,
		heap:   b.heap,
		clock:  b.clock,
		log:    b.log,
		tx:     queueing.NewBuffer[pending](name+".TX", b.queueCapacity),
		rx:     queueing.NewBuffer[*cyphal.Transfer](name+".RX", b.queueCapacity),
		subs:   transport.NewSubscriptions(),
	}
}

func (b Builder) parametersMustBeValid() {
	if b.heap == nil {
		panic("loopback adapter requires a heap")
	}

	if b.clock == nil {
		panic("loopback adapter requires a clock")
	}
}
