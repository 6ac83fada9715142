// Package serial implements Cyphal/serial: each transfer travels as one
// frame made of a 24-byte header, the payload and a CRC-32C, COBS-encoded
// and delimited by zero bytes.
package serial

import (
	"encoding/binary"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	cheap "github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/hooking"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/logging"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/queueing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport/crc"
)

const frameDelimiter = 0x00

var _ transport.Adapter = (*Adapter)(nil)

type txFrame struct {
	block    cheap.Block
	written  int
	deadline timing.Tick
}

type sessionKey struct {
	kind   cyphal.Kind
	port   cyphal.PortID
	source cyphal.NodeID
}

type rxSession struct {
	lastTransferID cyphal.TransferID
	lastSeen       timing.Tick
	timeout        timing.Tick
}

// Adapter drives one serial port.
type Adapter struct {
	hooking.HookableBase

	name       string
	nodeID     cyphal.NodeID
	maxPayload int
	rxBudget   int
	heap       *cheap.Heap
	clock      timing.TimeTeller
	log        logr.Logger
	port       Port

	tx       *queueing.Buffer[txFrame]
	inflight txFrame
	sending  bool

	rxFrame    cheap.Block
	rxLen      int
	rxOverflow bool
	readBuf    [256]byte
	readOff    int
	readLen    int

	pool     *cheap.Pool[rxSession]
	sessions map[sessionKey]cheap.Handle

	subs *transport.Subscriptions
	diag transport.Diagnostics
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return a.name
}

// Push encodes the transfer into one delimited frame and queues it.
func (a *Adapter) Push(t *cyphal.Transfer, timeout timing.Tick) error {
	if err := t.Validate(); err != nil {
		return err
	}

	if t.Kind.IsService() && !a.nodeID.IsSet() {
		return fmt.Errorf("%s: %s: %w", a.name, t.Kind, transport.ErrAnonymous)
	}

	if t.Len() > a.maxPayload {
		return fmt.Errorf("%s: %d bytes: %w", a.name, t.Len(), transport.ErrPayloadTooLarge)
	}

	if !a.tx.CanPush() {
		a.dropTx(t, transport.DropQueueFull)
		return fmt.Errorf("%s: %w", a.name, transport.ErrQueueFull)
	}

	block, ok := a.encode(t)
	if !ok {
		a.diag.OOMCount++
		a.dropTx(t, transport.DropOutOfMemory)

		return fmt.Errorf("%s: %w", a.name, transport.ErrOutOfMemory)
	}

	a.tx.Push(txFrame{block: block, deadline: a.clock.Now() + timeout})
	a.diag.TxTransfers++

	return nil
}

func (a *Adapter) encode(t *cyphal.Transfer) (cheap.Block, bool) {
	rawLen := headerSize + t.Len() + payloadCRCSize

	raw, ok := a.heap.Allocate(rawLen)
	if !ok {
		return cheap.Block{}, false
	}
	defer raw.Free()

	out, ok := a.heap.Allocate(cobsMaxEncodedLen(rawLen) + 2)
	if !ok {
		return cheap.Block{}, false
	}

	src := raw.Bytes()
	header{
		priority:    t.Priority,
		source:      a.nodeID,
		destination: t.Destination,
		kind:        t.Kind,
		port:        t.Port,
		transferID:  t.TransferID,
	}.encode(src)
	copy(src[headerSize:], t.Payload())
	binary.LittleEndian.PutUint32(src[headerSize+t.Len():], crc.Castagnoli(t.Payload()))

	dst := out.Bytes()
	dst[0] = frameDelimiter
	n := cobsEncode(dst[1:], src)
	dst[n+1] = frameDelimiter

	return out.Truncate(n + 2), true
}

// ProcessTxQueue writes queued frames to the port. A frame the port only
// partly accepts is resumed on the next call.
func (a *Adapter) ProcessTxQueue() error {
	now := a.clock.Now()
	defer func() { a.diag.TxQueueLen = a.tx.Size() }()

	for {
		if !a.sending {
			f, ok := a.tx.Pop()
			if !ok {
				return nil
			}

			if now > f.deadline {
				f.block.Free()
				a.diag.TxDropped++
				a.invoke(transport.HookPosTransferDropped, nil, transport.DropExpired)

				continue
			}

			a.inflight = f
			a.sending = true
		}

		data := a.inflight.block.Bytes()[a.inflight.written:]

		n, err := a.port.Write(data)
		a.inflight.written += n

		if err != nil {
			a.diag.TxErrors++
			a.log.Error(err, "serial write failed", "adapter", a.name)

			return fmt.Errorf("%s: %w", a.name, err)
		}

		if n < len(data) {
			a.diag.TxBusy++
			return nil
		}

		a.inflight.block.Free()
		a.inflight = txFrame{}
		a.sending = false
		a.diag.TxFrames++
		a.invoke(transport.HookPosFrameSent, len(data), nil)
	}
}

// Receive reads from the port until a frame yields a transfer, the port has
// nothing more, or the per-call byte budget is spent.
func (a *Adapter) Receive() (*cyphal.Transfer, bool) {
	buf := a.rxFrame.Bytes()

	for budget := a.rxBudget; budget > 0; {
		if a.readOff == a.readLen {
			n, err := a.port.Read(a.readBuf[:])
			if err != nil {
				a.diag.RxErrors++
				a.log.Error(err, "serial read failed", "adapter", a.name)
				return nil, false
			}

			if n == 0 {
				return nil, false
			}

			a.readOff, a.readLen = 0, n
		}

		for a.readOff < a.readLen && budget > 0 {
			b := a.readBuf[a.readOff]
			a.readOff++
			budget--

			if b != frameDelimiter {
				if a.rxLen < len(buf) {
					buf[a.rxLen] = b
					a.rxLen++
				} else {
					a.rxOverflow = true
				}

				continue
			}

			t, ok := a.completeFrame(buf)
			if ok {
				a.diag.RxTransfers++
				return t, true
			}
		}
	}

	return nil, false
}

func (a *Adapter) completeFrame(buf []byte) (*cyphal.Transfer, bool) {
	length, overflow := a.rxLen, a.rxOverflow
	a.rxLen, a.rxOverflow = 0, false

	if length == 0 {
		return nil, false
	}

	a.diag.RxFrames++

	if overflow {
		a.malformed("frame too long")
		return nil, false
	}

	n, ok := cobsDecode(buf[:length])
	if !ok || n < headerSize+payloadCRCSize {
		a.malformed("bad encoding")
		return nil, false
	}

	frame := buf[:n]
	a.invoke(transport.HookPosFrameReceived, frame, nil)

	h, ok := decodeHeader(frame)
	if !ok {
		a.malformed("bad header")
		return nil, false
	}

	payload := frame[headerSize : n-payloadCRCSize]
	if crc.Castagnoli(payload) != binary.LittleEndian.Uint32(frame[n-payloadCRCSize:]) {
		a.malformed("bad payload CRC")
		return nil, false
	}

	return a.deliver(h, payload)
}

func (a *Adapter) deliver(h header, payload []byte) (*cyphal.Transfer, bool) {
	if h.kind.IsService() {
		if !a.nodeID.IsSet() || h.destination != a.nodeID || !h.source.IsSet() {
			a.diag.RxIgnored++
			return nil, false
		}
	} else if h.destination.IsSet() {
		a.malformed("addressed message")
		return nil, false
	}

	sub, ok := a.subs.Find(h.kind, h.port)
	if !ok {
		a.diag.RxIgnored++
		a.log.V(logging.TRACE).Info("serial frame on unsubscribed port",
			"adapter", a.name, "kind", h.kind, "port", h.port)

		return nil, false
	}

	now := a.clock.Now()
	if a.isDuplicate(h, sub, now) {
		a.diag.RxDropped++
		return nil, false
	}

	meta := cyphal.Metadata{
		Kind:        h.kind,
		Priority:    h.priority,
		Port:        h.port,
		Source:      h.source,
		Destination: h.destination,
		TransferID:  h.transferID,
	}

	t, ok := cyphal.AllocateTransfer(a.heap, meta, min(len(payload), sub.Extent))
	if !ok {
		a.diag.OOMCount++
		a.diag.RxDropped++
		a.invoke(transport.HookPosTransferDropped, nil, transport.DropOutOfMemory)

		return nil, false
	}

	copy(t.Payload(), payload)
	t.Timestamp = now

	return t, true
}

// isDuplicate remembers the last transfer ID per source and port. Anonymous
// transfers and sources without a free session record are not checked.
func (a *Adapter) isDuplicate(h header, sub transport.Session, now timing.Tick) bool {
	if !h.source.IsSet() {
		return false
	}

	key := sessionKey{kind: h.kind, port: h.port, source: h.source}

	if handle, ok := a.sessions[key]; ok {
		s, _ := a.pool.At(handle)
		if s.lastTransferID == h.transferID && now-s.lastSeen < s.timeout {
			return true
		}

		s.lastTransferID = h.transferID
		s.lastSeen = now
		s.timeout = sub.TransferIDTimeout

		return false
	}

	s, handle, ok := a.pool.Get()
	if !ok {
		a.evictIdle(now)

		if s, handle, ok = a.pool.Get(); !ok {
			return false
		}
	}

	*s = rxSession{lastTransferID: h.transferID, lastSeen: now, timeout: sub.TransferIDTimeout}
	a.sessions[key] = handle

	return false
}

func (a *Adapter) evictIdle(now timing.Tick) {
	for key, handle := range a.sessions {
		s, _ := a.pool.At(handle)
		if now-s.lastSeen >= s.timeout {
			a.pool.Put(handle)
			delete(a.sessions, key)
		}
	}
}

// Subscribe accepts a port.
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

	return nil
}

// Unsubscribe stops accepting a port and forgets its sessions.
func (a *Adapter) Unsubscribe(kind cyphal.Kind, port cyphal.PortID) error {
	if !a.subs.Remove(kind, port) {
		return nil
	}

	for key, handle := range a.sessions {
		if key.kind == kind && key.port == port {
			a.pool.Put(handle)
			delete(a.sessions, key)
		}
	}

	return nil
}

// Diagnostics returns the adapter counters.
func (a *Adapter) Diagnostics() transport.Diagnostics {
	d := a.diag
	d.TxQueueLen = a.tx.Size()

	if a.sending {
		d.TxQueueLen++
	}

	return d
}

func (a *Adapter) malformed(reason string) {
	a.diag.RxMalformed++
	a.log.V(logging.DEBUG).Info("serial frame discarded", "adapter", a.name, "reason", reason)
	a.invoke(transport.HookPosTransferDropped, nil, transport.DropMalformed)
}

func (a *Adapter) dropTx(t *cyphal.Transfer, reason transport.DropReason) {
	a.diag.TxDropped++
	a.log.V(logging.DEBUG).Info("serial transfer dropped",
		"adapter", a.name, "port", t.Port, "reason", reason)
	a.invoke(transport.HookPosTransferDropped, t, reason)
}

func (a *Adapter) invoke(pos *hooking.HookPos, item, detail any) {
	a.Emit(a, pos, item, detail)
}
