package serial

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	cheap "github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/queueing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
)

// Builder can build serial adapters.
type Builder struct {
	heap       *cheap.Heap
	clock      timing.TimeTeller
	log        logr.Logger
	port       Port
	nodeID     cyphal.NodeID
	maxPayload int
	txCapacity int
	rxSessions int
	rxBudget   int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		log:        logr.Discard(),
		nodeID:     cyphal.NodeIDUnset,
		maxPayload: 2048,
		txCapacity: 16,
		rxSessions: 16,
		rxBudget:   4096,
	}
}

// WithHeap sets the heap that backs frames and transfers.
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

// WithPort sets the UART.
func (b Builder) WithPort(p Port) Builder {
	b.port = p
	return b
}

// WithNodeID sets the local node ID.
func (b Builder) WithNodeID(id cyphal.NodeID) Builder {
	b.nodeID = id
	return b
}

// WithMaxPayload sets the largest payload a frame may carry.
func (b Builder) WithMaxPayload(n int) Builder {
	b.maxPayload = n
	return b
}

// WithTxCapacity sets the number of frames the TX queue can hold.
func (b Builder) WithTxCapacity(n int) Builder {
	b.txCapacity = n
	return b
}

// WithRxSessions sets the number of sources whose transfer IDs are tracked.
func (b Builder) WithRxSessions(n int) Builder {
	b.rxSessions = n
	return b
}

// WithRxBudget sets how many bytes one Receive call may consume.
func (b Builder) WithRxBudget(n int) Builder {
	b.rxBudget = n
	return b
}

// Build creates the adapter. The receive buffer is taken from the heap, so
// the heap must have room for one maximum-size encoded frame.
func (b Builder) Build(name string) *Adapter {
	b.parametersMustBeValid()

	frameLen := cobsMaxEncodedLen(headerSize + b.maxPayload + payloadCRCSize)

	rxFrame, ok := b.heap.Allocate(frameLen)
	if !ok {
		panic(fmt.Sprintf("serial adapter %q: heap cannot hold a %d-byte receive buffer", name, frameLen))
	}

	return &Adapter{
		name:       name,
		nodeID:     b.nodeID,
		maxPayload: b.maxPayload,
		rxBudget:   b.rxBudget,
		heap:       b.heap,
		clock:      b.clock,
		log:        b.log,
		port:       b.port,
		tx:         queueing.NewBuffer[txFrame](name+".TX", b.txCapacity),
		rxFrame:    rxFrame,
		pool:       cheap.NewPool[rxSession](b.rxSessions),
		sessions:   make(map[sessionKey]cheap.Handle),
		subs:       transport.NewSubscriptions(),
	}
}

func (b Builder) parametersMustBeValid() {
	if b.heap == nil || b.clock == nil || b.port == nil {
		panic("serial adapter requires a heap, a clock and a port")
	}

	if b.maxPayload <= 0 || b.txCapacity <= 0 || b.rxSessions <= 0 || b.rxBudget <= 0 {
		panic("serial adapter sizes must be positive")
	}
}
