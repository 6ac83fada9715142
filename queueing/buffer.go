// Package queueing provides the bounded FIFO used for adapter queues and
// buffered task backlogs.
package queueing

import (
	"fmt"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/hooking"
)

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &hooking.HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &hooking.HookPos{Name: "Buffer Pop"}

// HookPosBufOverwrite marks when a full buffer evicts its oldest element.
var HookPosBufOverwrite = &hooking.HookPos{Name: "Buffer Overwrite"}

// Buffer is a fixed-capacity ring. Its storage is allocated once.
type Buffer[T any] struct {
	hooking.HookableBase

	name        string
	elements    []T
	head        int
	size        int
	overwritten uint64
}

// NewBuffer creates a buffer that holds up to capacity elements.
func NewBuffer[T any](name string, capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("buffer %q: capacity must be positive, got %d", name, capacity))
	}

	return &Buffer[T]{
		name:     name,
		elements: make([]T, capacity),
	}
}

// Name returns the name of the buffer.
func (b *Buffer[T]) Name() string {
	return b.name
}

// CanPush reports whether Push would succeed.
func (b *Buffer[T]) CanPush() bool {
	return b.size < len(b.elements)
}

// Push appends e. It returns false when the buffer is full.
func (b *Buffer[T]) Push(e T) bool {
	if !b.CanPush() {
		return false
	}

	b.elements[(b.head+b.size)%len(b.elements)] = e
	b.size++

	b.invoke(HookPosBufPush, e)

	return true
}

// PushOverwrite appends e, evicting the oldest element when the buffer is
// full. The evicted element is returned so the caller can release it.
func (b *Buffer[T]) PushOverwrite(e T) (evicted T, didEvict bool) {
	if !b.CanPush() {
		evicted, _ = b.pop()
		didEvict = true
		b.overwritten++

		b.invoke(HookPosBufOverwrite, evicted)
	}

	b.Push(e)

	return evicted, didEvict
}

// Pop removes and returns the oldest element.
func (b *Buffer[T]) Pop() (T, bool) {
	e, ok := b.pop()
	if ok {
		b.invoke(HookPosBufPop, e)
	}

	return e, ok
}

func (b *Buffer[T]) pop() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}

	e := b.elements[b.head]
	b.elements[b.head] = zero
	b.head = (b.head + 1) % len(b.elements)
	b.size--

	return e, true
}

// Peek returns the oldest element without removing it.
func (b *Buffer[T]) Peek() (T, bool) {
	if b.size == 0 {
		var zero T
		return zero, false
	}

	return b.elements[b.head], true
}

// Capacity returns the maximum number of elements.
func (b *Buffer[T]) Capacity() int {
	return len(b.elements)
}

// Size returns the number of elements held.
func (b *Buffer[T]) Size() int {
	return b.size
}

// Overwritten returns how many elements PushOverwrite has evicted.
func (b *Buffer[T]) Overwritten() uint64 {
	return b.overwritten
}

// Clear removes all elements.
func (b *Buffer[T]) Clear() {
	clear(b.elements)
	b.head = 0
	b.size = 0
}

func (b *Buffer[T]) invoke(pos *hooking.HookPos, e T) {
	b.Emit(b, pos, e, nil)
}
