package can

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	cheap "github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
)

// Builder can build CAN adapters.
type Builder struct {
	heap       *cheap.Heap
	clock      timing.TimeTeller
	log        logr.Logger
	driver     Driver
	nodeID     cyphal.NodeID
	mtu        int
	txCapacity int
	rxSessions int
	rxBudget   int
}

// MakeBuilder creates a builder with default parameters: classic CAN, room
// for 64 queued frames and 16 reassembly sessions.
func MakeBuilder() Builder {
	return Builder{
		log:        logr.Discard(),
		nodeID:     cyphal.NodeIDUnset,
		mtu:        MTUClassic,
		txCapacity: 64,
		rxSessions: 16,
		rxBudget:   32,
	}
}

// WithHeap sets the heap that backs frames and reassembly buffers.
func (b Builder) WithHeap(h *cheap.Heap) Builder {
	b.heap = h
	return b
}

// WithClock sets the tick source.
func (b Builder) WithClock(c timing.TimeTeller) Builder {
	b.clock = c
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l logr.Logger) Builder {
	b.log = l
	return b
}

// WithDriver sets the peripheral.
func (b Builder) WithDriver(d Driver) Builder {
	b.driver = d
	return b
}

// WithNodeID sets the local node ID. Without one the node is anonymous and
// can only publish single-frame messages.
func (b Builder) WithNodeID(id cyphal.NodeID) Builder {
	b.nodeID = id
	return b
}

// WithMTU selects classic CAN (8) or CAN FD (64).
func (b Builder) WithMTU(mtu int) Builder {
	b.mtu = mtu
	return b
}

// WithTxCapacity sets the number of frames the TX queue can hold.
func (b Builder) WithTxCapacity(n int) Builder {
	b.txCapacity = n
	return b
}

// WithRxSessions sets the number of concurrent reassembly sessions.
func (b Builder) WithRxSessions(n int) Builder {
	b.rxSessions = n
	return b
}

// WithRxBudget sets how many frames one Receive call may read.
func (b Builder) WithRxBudget(n int) Builder {
	b.rxBudget = n
	return b
}

// Build creates the adapter.
func (b Builder) Build(name string) *Adapter {
	b.parametersMustBeValid()

	return &Adapter{
		name:     name,
		nodeID:   b.nodeID,
		mtu:      b.mtu,
		rxBudget: b.rxBudget,
		heap:     b.heap,
		clock:    b.clock,
		log:      b.log,
		driver:   b.driver,
		tx:       newTxQueue(b.txCapacity),
		rx:       newReassembler(b.heap, b.rxSessions),
		subs:     transport.NewSubscriptions(),
	}
}

func (b Builder) parametersMustBeValid() {
	if b.heap == nil || b.clock == nil || b.driver == nil {
		panic("CAN adapter requires a heap, a clock and a driver")
	}

	if b.mtu != MTUClassic && b.mtu != MTUFD {
		panic(fmt.Sprintf("CAN MTU must be %d or %d, got %d", MTUClassic, MTUFD, b.mtu))
	}

	if b.nodeID.IsSet() && b.nodeID > NodeIDMax {
		panic(fmt.Sprintf("CAN node ID must be at most %d, got %d", NodeIDMax, b.nodeID))
	}

	if b.txCapacity <= 0 || b.rxSessions <= 0 || b.rxBudget <= 0 {
		panic("CAN queue sizes must be positive")
	}
}
