// Package cyphal defines the transfer record exchanged between tasks and
// transports, and the static tables of the port IDs a node understands.
package cyphal

import (
	"errors"
	"fmt"
)

// Kind tells messages, requests and responses apart.
type Kind uint8

// The transfer kinds. The numbering follows the on-wire transfer kind.
const (
	KindMessage Kind = iota
	KindResponse
	KindRequest
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindResponse:
		return "response"
	case KindRequest:
		return "request"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// IsService reports whether the kind belongs to an RPC exchange.
func (k Kind) IsService() bool {
	return k == KindRequest || k == KindResponse
}

// Priority orders transfers on a shared bus. Lower values win arbitration.
type Priority uint8

// The eight priority levels.
const (
	PriorityExceptional Priority = iota
	PriorityImmediate
	PriorityFast
	PriorityHigh
	PriorityNominal
	PriorityLow
	PrioritySlow
	PriorityOptional
)

// NodeID identifies a node on the network.
type NodeID uint16

// NodeIDUnset marks an anonymous source or a broadcast destination.
const NodeIDUnset NodeID = 0xFFFF

// IsSet reports whether the node ID names a node.
func (n NodeID) IsSet() bool {
	return n != NodeIDUnset
}

// PortID is a subject ID for messages or a service ID for requests and
// responses.
type PortID uint16

// Port ID ranges.
const (
	SubjectIDMax PortID = 8191
	ServiceIDMax PortID = 511
)

// TransferID is a wrapping sequence number. Each transport applies its own
// modulus when it puts the value on the wire.
type TransferID uint64

// ErrInvalidTransfer is returned for a transfer whose metadata break the
// kind, port or addressing rules.
var ErrInvalidTransfer = errors.New("invalid transfer")

// Metadata is everything about a transfer except its payload.
type Metadata struct {
	Kind        Kind
	Priority    Priority
	Port        PortID
	Source      NodeID
	Destination NodeID
	TransferID  TransferID
}

// Validate checks the addressing rules: requests and responses name a
// destination, messages never do, and the port ID fits its kind.
func (m Metadata) Validate() error {
	switch m.Kind {
	case KindMessage:
		if m.Destination.IsSet() {
			return fmt.Errorf("%w: message to node %d", ErrInvalidTransfer, m.Destination)
		}

		if m.Port > SubjectIDMax {
			return fmt.Errorf("%w: subject ID %d", ErrInvalidTransfer, m.Port)
		}
	case KindRequest, KindResponse:
		if !m.Destination.IsSet() {
			return fmt.Errorf("%w: %s without destination", ErrInvalidTransfer, m.Kind)
		}

		if !m.Source.IsSet() {
			return fmt.Errorf("%w: anonymous %s", ErrInvalidTransfer, m.Kind)
		}

		if m.Port > ServiceIDMax {
			return fmt.Errorf("%w: service ID %d", ErrInvalidTransfer, m.Port)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidTransfer, m.Kind)
	}

	if m.Priority > PriorityOptional {
		return fmt.Errorf("%w: priority %d", ErrInvalidTransfer, m.Priority)
	}

	return nil
}
