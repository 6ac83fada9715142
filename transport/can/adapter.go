// Package can implements Cyphal/CAN: transfers are split into classic or FD
// frames with 29-bit identifiers, queued by priority, and reassembled on the
// receiving side.
package can

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	cheap "github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/hooking"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/logging"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport/crc"
)

var _ transport.Adapter = (*Adapter)(nil)

// Adapter drives one CAN peripheral.
type Adapter struct {
	hooking.HookableBase

	name     string
	nodeID   cyphal.NodeID
	mtu      int
	rxBudget int
	heap     *cheap.Heap
	clock    timing.TimeTeller
	log      logr.Logger
	driver   Driver

	tx   *txQueue
	rx   *reassembler
	subs *transport.Subscriptions
	diag transport.Diagnostics
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return a.name
}

// MTU returns the frame payload size, tail byte included.
func (a *Adapter) MTU() int {
	return a.mtu
}

// Push splits the transfer into frames and queues them.
func (a *Adapter) Push(t *cyphal.Transfer, timeout timing.Tick) error {
	id, err := a.frameID(t)
	if err != nil {
		return err
	}

	payload := t.Payload()
	lay := layout(len(payload), a.mtu)

	if lay.frames > a.tx.Room() {
		a.dropTx(t, transport.DropQueueFull)
		return fmt.Errorf("%s: %d frames: %w", a.name, lay.frames, transport.ErrQueueFull)
	}

	blocks := make([]cheap.Block, 0, lay.frames)
	for i := 0; i < lay.frames; i++ {
		b, ok := a.heap.Allocate(lay.frameLen(i))
		if !ok {
			for _, allocated := range blocks {
				allocated.Free()
			}

			a.diag.OOMCount++
			a.dropTx(t, transport.DropOutOfMemory)

			return fmt.Errorf("%s: %w", a.name, transport.ErrOutOfMemory)
		}

		blocks = append(blocks, b)
	}

	lay.fill(blocks, payload, byte(t.TransferID%transferIDModulo))

	deadline := a.clock.Now() + timeout
	for _, b := range blocks {
		a.tx.Push(id, deadline, b)
	}

	a.diag.TxTransfers++
	a.diag.TxQueueLen = a.tx.Len()

	return nil
}

func (a *Adapter) frameID(t *cyphal.Transfer) (uint32, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	anonymous := !a.nodeID.IsSet()

	switch t.Kind {
	case cyphal.KindMessage:
		if anonymous {
			if t.Len() > a.mtu-1 {
				return 0, fmt.Errorf("%s: multi-frame message: %w", a.name, transport.ErrAnonymous)
			}

			pseudo := cyphal.NodeID(crc.CCITT(t.Payload())) & cyphal.NodeID(nodeIDMask)

			return makeMessageID(t.Priority, t.Port, pseudo, true), nil
		}

		return makeMessageID(t.Priority, t.Port, a.nodeID, false), nil
	default:
		if anonymous {
			return 0, fmt.Errorf("%s: %s: %w", a.name, t.Kind, transport.ErrAnonymous)
		}

		if t.Destination > NodeIDMax {
			return 0, fmt.Errorf("%w: CAN destination %d", transport.ErrInvalidTransfer, t.Destination)
		}

		return makeServiceID(t.Priority, t.Kind == cyphal.KindRequest, t.Port, t.Destination, a.nodeID), nil
	}
}

// ProcessTxQueue hands queued frames to the peripheral in priority order
// until the queue is empty or the mailboxes are full. Frames past their
// deadline are dropped.
func (a *Adapter) ProcessTxQueue() error {
	now := a.clock.Now()
	defer func() { a.diag.TxQueueLen = a.tx.Len() }()

	for {
		item, ok := a.tx.Peek()
		if !ok {
			return nil
		}

		if now > item.deadline {
			a.tx.Pop()
			item.block.Free()
			a.diag.TxDropped++
			a.invoke(transport.HookPosTransferDropped, item.id, transport.DropExpired)

			continue
		}

		f := Frame{ID: item.id}
		f.Len = uint8(copy(f.Data[:], item.block.Bytes()))

		err := a.driver.AddTxMessage(f)
		if errors.Is(err, ErrTxBusy) {
			a.diag.TxBusy++
			return nil
		}

		if err != nil {
			a.diag.TxErrors++
			a.log.Error(err, "CAN transmit failed", "adapter", a.name, "id", item.id)

			return fmt.Errorf("%s: %w", a.name, err)
		}

		a.tx.Pop()
		item.block.Free()
		a.diag.TxFrames++
		a.invoke(transport.HookPosFrameSent, &f, nil)
	}
}

// Receive reads frames from the peripheral until one completes a transfer,
// the RX FIFO is empty, or the per-call frame budget is spent.
func (a *Adapter) Receive() (*cyphal.Transfer, bool) {
	for i := 0; i < a.rxBudget; i++ {
		f, ok := a.driver.GetRxMessage()
		if !ok {
			return nil, false
		}

		a.diag.RxFrames++
		a.invoke(transport.HookPosFrameReceived, &f, nil)

		if t, ok := a.accept(&f); ok {
			a.diag.RxTransfers++
			return t, true
		}
	}

	return nil, false
}

func (a *Adapter) accept(f *Frame) (*cyphal.Transfer, bool) {
	id, ok := parseID(f.ID)
	if !ok {
		a.diag.RxMalformed++
		return nil, false
	}

	if id.kind.IsService() && (!a.nodeID.IsSet() || id.destination != a.nodeID) {
		a.diag.RxIgnored++
		return nil, false
	}

	sub, ok := a.subs.Find(id.kind, id.port)
	if !ok {
		a.diag.RxIgnored++
		a.log.V(logging.TRACE).Info("CAN frame on unsubscribed port",
			"adapter", a.name, "kind", id.kind, "port", id.port)

		return nil, false
	}

	t, outcome := a.rx.accept(f, id, sub, a.clock.Now())

	switch outcome {
	case rxComplete:
		return t, true
	case rxMalformed:
		a.diag.RxMalformed++
		a.log.V(logging.DEBUG).Info("malformed CAN transfer discarded",
			"adapter", a.name, "port", id.port, "source", id.source)
		a.invoke(transport.HookPosTransferDropped, f, transport.DropMalformed)
	case rxDuplicate:
		a.diag.RxDropped++
	case rxOutOfMemory:
		a.diag.OOMCount++
		a.diag.RxDropped++
		a.invoke(transport.HookPosTransferDropped, f, transport.DropOutOfMemory)
	}

	return nil, false
}

// Subscribe accepts a port and reprograms the acceptance filters.
func (a *Adapter) Subscribe(
	kind cyphal.Kind,
	port cyphal.PortID,
	extent int,
	timeout timing.Tick,
) error {
	if kind.IsService() && !a.nodeID.IsSet() {
		return fmt.Errorf("%s: subscribe %s %d: %w", a.name, kind, port, transport.ErrAnonymous)
	}

	a.subs.Add(kind, port, extent, timeout)

	return a.configureFilters()
}

// Unsubscribe stops accepting a port and frees its reassembly sessions.
func (a *Adapter) Unsubscribe(kind cyphal.Kind, port cyphal.PortID) error {
	if !a.subs.Remove(kind, port) {
		return nil
	}

	a.rx.dropPort(kind, port)

	return a.configureFilters()
}

func (a *Adapter) configureFilters() error {
	filters := make([]Filter, 0, a.subs.Len())

	a.subs.Each(func(s transport.Session) {
		if s.Kind == cyphal.KindMessage {
			filters = append(filters, messageFilter(s.Port))
		} else {
			filters = append(filters, serviceFilter(s.Kind == cyphal.KindRequest, s.Port, a.nodeID))
		}
	})

	sort.Slice(filters, func(i, j int) bool {
		return filters[i].ID < filters[j].ID
	})

	if err := a.driver.ConfigureFilters(filters); err != nil {
		a.log.Error(err, "CAN filter configuration failed", "adapter", a.name)
		return fmt.Errorf("%s: %w", a.name, err)
	}

	return nil
}

// Sessions returns the number of live reassembly sessions.
func (a *Adapter) Sessions() int {
	return a.rx.sessionCount()
}

// Diagnostics returns the adapter counters.
func (a *Adapter) Diagnostics() transport.Diagnostics {
	d := a.diag
	d.TxQueueLen = a.tx.Len()

	return d
}

func (a *Adapter) dropTx(t *cyphal.Transfer, reason transport.DropReason) {
	a.diag.TxDropped++
	a.log.V(logging.DEBUG).Info("CAN transfer dropped",
		"adapter", a.name, "port", t.Port, "reason", reason)
	a.invoke(transport.HookPosTransferDropped, t, reason)
}

func (a *Adapter) invoke(pos *hooking.HookPos, item, detail any) {
	a.Emit(a, pos, item, detail)
}
