// Package loopback provides an adapter that delivers pushed transfers back to
// the same node without touching any hardware.
package loopback

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/hooking"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/logging"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/queueing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
)

var _ transport.Adapter = (*Adapter)(nil)

type pending struct {
	transfer *cyphal.Transfer
	deadline timing.Tick
}

// Adapter is the in-process transport. Push queues a copy of the transfer;
// ProcessTxQueue plays the role of the physical write and moves it to the
// receive side, where Receive hands it out if the port is subscribed.
type Adapter struct {
	hooking.HookableBase

	name   string
	nodeID cyphal.NodeID
	heap   *heap.Heap
	clock  timing.TimeTeller
	log    logr.Logger

	tx   *queueing.Buffer[pending]
	rx   *queueing.Buffer[*cyphal.Transfer]
	subs *transport.Subscriptions
	diag transport.Diagnostics
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return a.name
}

// Push validates the transfer and queues a heap-backed copy of it.
func (a *Adapter) Push(t *cyphal.Transfer, timeout timing.Tick) error {
	if err := t.Validate(); err != nil {
		return err
	}

	if !a.tx.CanPush() {
		a.drop(t, transport.DropQueueFull)
		return fmt.Errorf("%s: %w", a.name, transport.ErrQueueFull)
	}

	c, ok := t.Clone(a.heap)
	if !ok {
		a.diag.OOMCount++
		a.drop(t, transport.DropOutOfMemory)

		return fmt.Errorf("%s: %w", a.name, transport.ErrOutOfMemory)
	}

	a.tx.Push(pending{transfer: c, deadline: a.clock.Now() + timeout})
	a.diag.TxTransfers++

	return nil
}

// ProcessTxQueue moves queued transfers to the receive side until the
// receive queue is full. Expired transfers are dropped.
func (a *Adapter) ProcessTxQueue() error {
	now := a.clock.Now()

	for {
		p, ok := a.tx.Peek()
		if !ok {
			break
		}

		if now > p.deadline {
			a.tx.Pop()
			a.drop(p.transfer, transport.DropExpired)
			p.transfer.Release()

			continue
		}

		if !a.rx.CanPush() {
			a.diag.TxBusy++
			break
		}

		a.tx.Pop()
		p.transfer.Timestamp = now
		a.rx.Push(p.transfer)
		a.diag.TxFrames++

		a.invoke(transport.HookPosFrameSent, p.transfer, nil)
	}

	a.diag.TxQueueLen = a.tx.Size()

	return nil
}

// Receive returns the next looped-back transfer on a subscribed port.
func (a *Adapter) Receive() (*cyphal.Transfer, bool) {
	for {
		t, ok := a.rx.Pop()
		if !ok {
			return nil, false
		}

		a.diag.RxFrames++
		a.invoke(transport.HookPosFrameReceived, t, nil)

		s, wanted := a.subs.Find(t.Kind, t.Port)
		if !wanted || !a.addressedToUs(t) {
			a.diag.RxIgnored++
			a.log.V(logging.TRACE).Info("loopback transfer ignored",
				"adapter", a.name, "kind", t.Kind, "port", t.Port)
			t.Release()

			continue
		}

		t.Truncate(s.Extent)
		a.diag.RxTransfers++

		return t, true
	}
}

func (a *Adapter) addressedToUs(t *cyphal.Transfer) bool {
	if !t.Kind.IsService() || !a.nodeID.IsSet() {
		return true
	}

	return t.Destination == a.nodeID
}

// Subscribe accepts a port.
func (a *Adapter) Subscribe(
	kind cyphal.Kind,
	port cyphal.PortID,
	extent int,
	timeout timing.Tick,
) error {
	a.subs.Add(kind, port, extent, timeout)
	return nil
}

// Unsubscribe stops accepting a port.
func (a *Adapter) Unsubscribe(kind cyphal.Kind, port cyphal.PortID) error {
	a.subs.Remove(kind, port)
	return nil
}

// Diagnostics returns the adapter counters.
func (a *Adapter) Diagnostics() transport.Diagnostics {
	d := a.diag
	d.TxQueueLen = a.tx.Size()

	return d
}

func (a *Adapter) drop(t *cyphal.Transfer, reason transport.DropReason) {
	a.diag.TxDropped++
	a.log.V(logging.DEBUG).Info("loopback transfer dropped",
		"adapter", a.name, "port", t.Port, "reason", reason)
	a.invoke(transport.HookPosTransferDropped, t, reason)
}

func (a *Adapter) invoke(pos *hooking.HookPos, t *cyphal.Transfer, detail any) {
	a.Emit(a, pos, t, detail)
}
