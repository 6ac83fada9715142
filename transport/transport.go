// Package transport defines the capability set shared by every bus adapter
// and the pieces the adapters have in common.
package transport

import (
	"errors"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/hooking"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

var (
	// ErrQueueFull is returned by Push when the outbound queue has no room.
	ErrQueueFull = errors.New("transport: queue full")

	// ErrOutOfMemory is returned when the heap cannot back a frame or
	// transfer.
	ErrOutOfMemory = errors.New("transport: out of memory")

	// ErrInvalidTransfer is returned by Push for a transfer that breaks the
	// addressing rules.
	ErrInvalidTransfer = cyphal.ErrInvalidTransfer

	// ErrPayloadTooLarge is returned when a payload exceeds what the
	// transport can carry.
	ErrPayloadTooLarge = errors.New("transport: payload too large")

	// ErrAnonymous is returned when an anonymous node tries to send what
	// only a named node may send.
	ErrAnonymous = errors.New("transport: anonymous node cannot send this transfer")
)

// HookPosFrameSent marks when a frame has been handed to the peripheral.
var HookPosFrameSent = &hooking.HookPos{Name: "Frame Sent"}

// HookPosFrameReceived marks when a frame has been read from the peripheral.
var HookPosFrameReceived = &hooking.HookPos{Name: "Frame Received"}

// HookPosTransferDropped marks when an adapter discards a transfer, inbound
// or outbound. The detail carries the reason.
var HookPosTransferDropped = &hooking.HookPos{Name: "Transfer Dropped"}

// Adapter is the push/receive/subscribe capability set of one transport.
//
// Nothing blocks: Push enqueues, ProcessTxQueue moves as much as the
// peripheral accepts, and Receive returns false when nothing is ready.
type Adapter interface {
	hooking.Hookable

	// Name identifies the adapter in logs and diagnostics.
	Name() string

	// Push serializes the transfer into outbound frames. The payload is
	// copied; the caller keeps ownership of t. Frames still queued after
	// timeout ticks are dropped.
	Push(t *cyphal.Transfer, timeout timing.Tick) error

	// ProcessTxQueue drains the outbound queue onto the peripheral until it
	// is empty or the peripheral pushes back.
	ProcessTxQueue() error

	// Receive returns the next fully reassembled inbound transfer. The
	// caller owns it and must Release it.
	Receive() (*cyphal.Transfer, bool)

	// Subscribe accepts inbound transfers of the given kind and port.
	// Payload beyond extent bytes is truncated.
	Subscribe(kind cyphal.Kind, port cyphal.PortID, extent int, timeout timing.Tick) error

	// Unsubscribe stops accepting the port. Unsubscribing a port that was
	// never subscribed is a no-op.
	Unsubscribe(kind cyphal.Kind, port cyphal.PortID) error

	// Diagnostics returns a snapshot of the adapter counters.
	Diagnostics() Diagnostics
}

// Diagnostics are the counters every adapter keeps.
type Diagnostics struct {
	TxTransfers uint64
	TxFrames    uint64
	TxDropped   uint64
	TxBusy      uint64
	TxErrors    uint64

	RxFrames    uint64
	RxTransfers uint64
	RxIgnored   uint64
	RxMalformed uint64
	RxDropped   uint64
	RxErrors    uint64

	OOMCount   uint64
	TxQueueLen int
}

// DropReason tells why a transfer was dropped.
type DropReason string

// Drop reasons reported with HookPosTransferDropped.
const (
	DropQueueFull   DropReason = "queue full"
	DropOutOfMemory DropReason = "out of memory"
	DropExpired     DropReason = "deadline expired"
	DropMalformed   DropReason = "malformed"
	DropNotWanted   DropReason = "not subscribed"
)
