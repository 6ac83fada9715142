package can

import (
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	cheap "github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport/crc"
)

type rxOutcome int

const (
	rxPending rxOutcome = iota
	rxComplete
	rxMalformed
	rxDuplicate
	rxOutOfMemory
)

type sessionKey struct {
	kind   cyphal.Kind
	port   cyphal.PortID
	source cyphal.NodeID
}

// rxSession follows the transfers of one source on one port. It remembers
// the last transfer ID after completion so that duplicates arriving over a
// redundant path are recognized.
type rxSession struct {
	key     sessionKey
	timeout timing.Tick

	active   bool
	meta     cyphal.Metadata
	toggle   bool
	started  timing.Tick
	crc      uint16
	received int
	block    cheap.Block

	haveLast       bool
	lastTransferID cyphal.TransferID
	lastStarted    timing.Tick
}

func (s *rxSession) abort() {
	if s.block.Heap() != nil {
		s.block.Free()
	}

	s.block = cheap.Block{}
	s.active = false
}

func (s *rxSession) isDuplicate(tid cyphal.TransferID, now timing.Tick) bool {
	return s.haveLast && s.lastTransferID == tid && now-s.lastStarted < s.timeout
}

func (s *rxSession) idle(now timing.Tick) bool {
	return !s.active && now-s.lastStarted >= s.timeout
}

// reassembler turns frames into transfers. Session records come from a
// fixed pool and payload buffers from the heap.
type reassembler struct {
	heap     *cheap.Heap
	pool     *cheap.Pool[rxSession]
	sessions map[sessionKey]cheap.Handle
}

func newReassembler(h *cheap.Heap, sessions int) *reassembler {
	return &reassembler{
		heap:     h,
		pool:     cheap.NewPool[rxSession](sessions),
		sessions: make(map[sessionKey]cheap.Handle),
	}
}

func (r *reassembler) accept(
	f *Frame,
	id parsedID,
	sub transport.Session,
	now timing.Tick,
) (*cyphal.Transfer, rxOutcome) {
	data := f.Payload()
	if len(data) == 0 {
		return nil, rxMalformed
	}

	tail := data[len(data)-1]
	body := data[:len(data)-1]
	sot := tail&tailStartOfTransfer != 0
	eot := tail&tailEndOfTransfer != 0
	toggle := tail&tailToggle != 0

	meta := cyphal.Metadata{
		Kind:        id.kind,
		Priority:    id.priority,
		Port:        id.port,
		Source:      id.source,
		Destination: id.destination,
		TransferID:  cyphal.TransferID(tail & tailTransferIDMask),
	}

	if sot && !toggle {
		return nil, rxMalformed
	}

	if id.anonymous {
		if !sot || !eot {
			return nil, rxMalformed
		}

		return r.single(meta, body, sub.Extent, now)
	}

	key := sessionKey{kind: id.kind, port: id.port, source: id.source}

	if !sot {
		return r.continuation(key, meta.TransferID, toggle, eot, body, sub, now)
	}

	s := r.session(key, sub.TransferIDTimeout, now)
	if s == nil {
		if eot {
			return r.single(meta, body, sub.Extent, now)
		}

		return nil, rxOutOfMemory
	}

	if s.isDuplicate(meta.TransferID, now) {
		return nil, rxDuplicate
	}

	s.abort()
	s.haveLast = true
	s.lastTransferID = meta.TransferID
	s.lastStarted = now

	if eot {
		return r.single(meta, body, sub.Extent, now)
	}

	block, ok := r.heap.Allocate(sub.Extent + 2)
	if !ok {
		s.haveLast = false
		return nil, rxOutOfMemory
	}

	s.active = true
	s.meta = meta
	s.toggle = false
	s.started = now
	s.block = block
	s.crc = crc.CCITTInitial
	s.received = 0
	s.append(body)

	return nil, rxPending
}

func (r *reassembler) single(
	meta cyphal.Metadata,
	body []byte,
	extent int,
	now timing.Tick,
) (*cyphal.Transfer, rxOutcome) {
	n := min(len(body), extent)

	t, ok := cyphal.AllocateTransfer(r.heap, meta, n)
	if !ok {
		return nil, rxOutOfMemory
	}

	copy(t.Payload(), body)
	t.Timestamp = now

	return t, rxComplete
}

func (r *reassembler) continuation(
	key sessionKey,
	tid cyphal.TransferID,
	toggle, eot bool,
	body []byte,
	sub transport.Session,
	now timing.Tick,
) (*cyphal.Transfer, rxOutcome) {
	h, ok := r.sessions[key]
	if !ok {
		return nil, rxMalformed
	}

	s, _ := r.pool.At(h)
	if !s.active || s.meta.TransferID != tid {
		return nil, rxMalformed
	}

	if toggle != s.toggle {
		return nil, rxDuplicate
	}

	if now-s.started > sub.TransferIDTimeout {
		s.abort()
		return nil, rxMalformed
	}

	s.append(body)
	s.toggle = !s.toggle

	if !eot {
		return nil, rxPending
	}

	if s.received < 2 || s.crc != 0 {
		s.abort()
		return nil, rxMalformed
	}

	t := cyphal.AdoptTransfer(s.meta, s.block, min(s.received-2, sub.Extent))
	t.Timestamp = s.started

	s.block = cheap.Block{}
	s.active = false

	return t, rxComplete
}

func (s *rxSession) append(body []byte) {
	s.crc = crc.AddCCITT(s.crc, body)

	buf := s.block.Bytes()
	if s.received < len(buf) {
		copy(buf[s.received:], body)
	}

	s.received += len(body)
}

// session finds or creates the session for key. When the pool is exhausted
// an idle session is recycled; nil means none could be found.
func (r *reassembler) session(key sessionKey, timeout timing.Tick, now timing.Tick) *rxSession {
	if h, ok := r.sessions[key]; ok {
		s, _ := r.pool.At(h)
		s.timeout = timeout

		return s
	}

	s, h, ok := r.pool.Get()
	if !ok {
		r.evictIdle(now)

		s, h, ok = r.pool.Get()
		if !ok {
			return nil
		}
	}

	s.key = key
	s.timeout = timeout
	r.sessions[key] = h

	return s
}

func (r *reassembler) evictIdle(now timing.Tick) {
	for key, h := range r.sessions {
		s, _ := r.pool.At(h)
		if s.idle(now) {
			r.release(key, h)
		}
	}
}

func (r *reassembler) release(key sessionKey, h cheap.Handle) {
	if s, ok := r.pool.At(h); ok {
		s.abort()
	}

	r.pool.Put(h)
	delete(r.sessions, key)
}

// dropPort releases every session of a port.
func (r *reassembler) dropPort(kind cyphal.Kind, port cyphal.PortID) {
	for key, h := range r.sessions {
		if key.kind == kind && key.port == port {
			r.release(key, h)
		}
	}
}

func (r *reassembler) sessionCount() int {
	return len(r.sessions)
}
