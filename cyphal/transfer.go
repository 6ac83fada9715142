package cyphal

import (
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

// Transfer is one message, request or response together with its payload.
//
// The payload is either borrowed from the caller (NewTransfer) or owned in a
// heap block (AllocateTransfer, Clone). Owned payloads must be returned with
// Release once the transfer has been consumed.
type Transfer struct {
	Metadata

	// Timestamp is the tick at which the first frame arrived.
	Timestamp timing.Tick

	payload []byte
	block   heap.Block
}

// NewTransfer wraps a borrowed payload. Release is a no-op on the result.
func NewTransfer(meta Metadata, payload []byte) *Transfer {
	return &Transfer{Metadata: meta, payload: payload}
}

// AllocateTransfer creates a transfer whose payload of size bytes lives in
// h. It returns false when the heap cannot serve the request.
func AllocateTransfer(h *heap.Heap, meta Metadata, size int) (*Transfer, bool) {
	t := &Transfer{Metadata: meta}
	if size == 0 {
		return t, true
	}

	b, ok := h.Allocate(size)
	if !ok {
		return nil, false
	}

	t.block = b
	t.payload = b.Bytes()

	return t, true
}

// Payload returns the payload bytes. The slice is invalid after Release.
func (t *Transfer) Payload() []byte {
	return t.payload
}

// Len returns the payload length.
func (t *Transfer) Len() int {
	return len(t.payload)
}

// Truncate shortens the payload to n bytes.
func (t *Transfer) Truncate(n int) {
	if n < len(t.payload) {
		t.payload = t.payload[:n]
	}
}

// Owned reports whether the payload lives in a heap block.
func (t *Transfer) Owned() bool {
	return t.block.Valid()
}

// Release returns an owned payload to its heap. Releasing twice is harmless.
func (t *Transfer) Release() {
	if t.block.Heap() != nil {
		t.block.Free()
	}

	t.block = heap.Block{}
	t.payload = nil
}

// Clone copies the transfer and its payload into a new block from h.
func (t *Transfer) Clone(h *heap.Heap) (*Transfer, bool) {
	c, ok := AllocateTransfer(h, t.Metadata, len(t.payload))
	if !ok {
		return nil, false
	}

	copy(c.payload, t.payload)
	c.Timestamp = t.Timestamp

	return c, true
}

// AdoptTransfer wraps a block that already holds n payload bytes. The
// transfer takes ownership of the block.
func AdoptTransfer(meta Metadata, b heap.Block, n int) *Transfer {
	t := &Transfer{Metadata: meta, block: b}

	if p := b.Bytes(); p != nil {
		t.payload = p[:min(n, len(p))]
	}

	return t
}
