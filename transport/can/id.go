package can

import (
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
)

// Cyphal/CAN identifier layout.
const (
	offsetPriority = 26
	offsetSubject  = 8
	offsetService  = 14
	offsetDst      = 7

	flagService    uint32 = 1 << 25
	flagRequest    uint32 = 1 << 24
	flagAnonymous  uint32 = 1 << 24
	flagReserved23 uint32 = 1 << 23
	flagReserved07 uint32 = 1 << 7

	// Bits 21 and 22 of a message ID are transmitted as ones and ignored on
	// reception.
	messageFixedBits uint32 = 3 << 21

	nodeIDMask   uint32 = 0x7F
	subjectMask  uint32 = 0x1FFF
	serviceMask  uint32 = 0x1FF
	priorityMask uint32 = 0x7

	// NodeIDMax is the largest node ID on a CAN bus.
	NodeIDMax cyphal.NodeID = 127
)

// Tail byte layout.
const (
	tailStartOfTransfer byte = 0x80
	tailEndOfTransfer   byte = 0x40
	tailToggle          byte = 0x20
	tailTransferIDMask  byte = 0x1F
)

// transferIDModulo is the wrap of the 5-bit CAN transfer ID.
const transferIDModulo = 32

func makeMessageID(priority cyphal.Priority, subject cyphal.PortID, source cyphal.NodeID, anonymous bool) uint32 {
	id := uint32(priority)<<offsetPriority |
		messageFixedBits |
		uint32(subject)&subjectMask<<offsetSubject |
		uint32(source)&nodeIDMask

	if anonymous {
		id |= flagAnonymous
	}

	return id
}

func makeServiceID(
	priority cyphal.Priority,
	request bool,
	service cyphal.PortID,
	destination, source cyphal.NodeID,
) uint32 {
	id := uint32(priority)<<offsetPriority |
		flagService |
		uint32(service)&serviceMask<<offsetService |
		uint32(destination)&nodeIDMask<<offsetDst |
		uint32(source)&nodeIDMask

	if request {
		id |= flagRequest
	}

	return id
}

type parsedID struct {
	kind        cyphal.Kind
	priority    cyphal.Priority
	port        cyphal.PortID
	source      cyphal.NodeID
	destination cyphal.NodeID
	anonymous   bool
}

// parseID decodes an identifier. It returns false for identifiers that no
// Cyphal node can have sent.
func parseID(id uint32) (parsedID, bool) {
	p := parsedID{
		priority:    cyphal.Priority(id >> offsetPriority & priorityMask),
		source:      cyphal.NodeID(id & nodeIDMask),
		destination: cyphal.NodeIDUnset,
	}

	if id&flagReserved23 != 0 {
		return parsedID{}, false
	}

	if id&flagService == 0 {
		if id&flagReserved07 != 0 {
			return parsedID{}, false
		}

		p.kind = cyphal.KindMessage
		p.port = cyphal.PortID(id >> offsetSubject & subjectMask)

		if id&flagAnonymous != 0 {
			p.anonymous = true
			p.source = cyphal.NodeIDUnset
		}

		return p, true
	}

	p.kind = cyphal.KindResponse
	if id&flagRequest != 0 {
		p.kind = cyphal.KindRequest
	}

	p.port = cyphal.PortID(id >> offsetService & serviceMask)
	p.destination = cyphal.NodeID(id >> offsetDst & nodeIDMask)

	if p.source == p.destination {
		return parsedID{}, false
	}

	return p, true
}

func messageFilter(subject cyphal.PortID) Filter {
	return Filter{
		ID:   uint32(subject) << offsetSubject,
		Mask: flagService | flagReserved23 | subjectMask<<offsetSubject,
	}
}

func serviceFilter(request bool, service cyphal.PortID, local cyphal.NodeID) Filter {
	f := Filter{
		ID:   flagService | uint32(service)<<offsetService | uint32(local)<<offsetDst,
		Mask: flagService | flagRequest | flagReserved23 | serviceMask<<offsetService | nodeIDMask<<offsetDst,
	}

	if request {
		f.ID |= flagRequest
	}

	return f
}
