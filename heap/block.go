package heap

// Block is a handle to memory issued by a Heap.
type Block struct {
	heap  *Heap
	unit  int32
	order uint8
	gen   uint32
	size  int
}

// Valid reports whether the handle refers to a live allocation.
func (b Block) Valid() bool {
	if b.heap == nil || b.unit < 0 || int(b.unit) >= b.heap.units {
		return false
	}

	return b.heap.used[b.unit] &&
		b.heap.order[b.unit] == b.order &&
		b.heap.gen[b.unit] == b.gen
}

// Len returns the number of bytes that were requested.
func (b Block) Len() int {
	return b.size
}

// Cap returns the size of the fragment backing the block.
func (b Block) Cap() int {
	if b.heap == nil {
		return 0
	}

	return Alignment << b.order
}

// Bytes returns the requested bytes of the block. The slice must not be used
// after the block is freed.
func (b Block) Bytes() []byte {
	if !b.Valid() {
		return nil
	}

	off := int(b.unit) * Alignment

	return b.heap.region[off : off+b.size : off+b.size]
}

// Heap returns the heap that issued the block.
func (b Block) Heap() *Heap {
	return b.heap
}

// Free returns the block to its heap. It returns false if the handle is
// stale, already freed, or was never issued.
func (b Block) Free() bool {
	if b.heap == nil {
		return false
	}

	return b.heap.release(b)
}

// Truncate returns a handle to the same allocation whose Bytes view is
// limited to n bytes. The fragment itself is unchanged.
func (b Block) Truncate(n int) Block {
	if n >= 0 && n < b.size {
		b.size = n
	}

	return b
}
