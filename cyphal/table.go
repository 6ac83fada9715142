package cyphal

import (
	"fmt"
	"sort"
)

// Port IDs of the standard and mission data types this firmware speaks.
const (
	PortHeartbeat      PortID = 7509
	PortNodePortList   PortID = 7510
	PortGetInfo        PortID = 430
	PortExecuteCommand PortID = 435
	PortHeapStatus     PortID = 1200
	PortThermalFrame   PortID = 1210
)

// Subscription describes one known port: how big its payload may get and
// which kind of transfer travels on it.
type Subscription struct {
	Port   PortID
	Extent int
	Kind   Kind
	Name   string
}

// Table is an immutable set of subscriptions of one kind, sorted by port ID.
type Table struct {
	kind    Kind
	entries []Subscription
}

func newTable(kind Kind, entries ...Subscription) Table {
	sorted := make([]Subscription, len(entries))
	copy(sorted, entries)

	for i := range sorted {
		sorted[i].Kind = kind
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Port < sorted[j].Port
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Port == sorted[i-1].Port {
			panic(fmt.Sprintf("duplicate %s port %d", kind, sorted[i].Port))
		}
	}

	return Table{kind: kind, entries: sorted}
}

// Kind returns the transfer kind of every entry.
func (t Table) Kind() Kind {
	return t.kind
}

// Len returns the number of entries.
func (t Table) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the entries in port order.
func (t Table) Entries() []Subscription {
	out := make([]Subscription, len(t.entries))
	copy(out, t.entries)

	return out
}

// Find looks up a port ID.
func (t Table) Find(port PortID) (Subscription, bool) {
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Port >= port
	})

	if i < len(t.entries) && t.entries[i].Port == port {
		return t.entries[i], true
	}

	return Subscription{}, false
}

// Contains reports whether the port ID is in the table.
func (t Table) Contains(port PortID) bool {
	_, ok := t.Find(port)
	return ok
}

// The static port tables.
var (
	Messages = newTable(KindMessage,
		Subscription{Port: PortHeartbeat, Extent: 12, Name: "uavcan.node.Heartbeat.1.0"},
		Subscription{Port: PortNodePortList, Extent: 8466, Name: "uavcan.node.port.List.1.0"},
		Subscription{Port: PortHeapStatus, Extent: 64, Name: "csat.HeapStatus.1.0"},
		Subscription{Port: PortThermalFrame, Extent: 2048, Name: "csat.ThermalFrame.1.0"},
	)

	Requests = newTable(KindRequest,
		Subscription{Port: PortGetInfo, Extent: 0, Name: "uavcan.node.GetInfo.1.0"},
		Subscription{Port: PortExecuteCommand, Extent: 300, Name: "uavcan.node.ExecuteCommand.1.3"},
	)

	Responses = newTable(KindResponse,
		Subscription{Port: PortGetInfo, Extent: 448, Name: "uavcan.node.GetInfo.1.0"},
		Subscription{Port: PortExecuteCommand, Extent: 48, Name: "uavcan.node.ExecuteCommand.1.3"},
	)
)

// TableFor returns the static table that holds ports of the given kind.
func TableFor(kind Kind) (Table, bool) {
	switch kind {
	case KindMessage:
		return Messages, true
	case KindRequest:
		return Requests, true
	case KindResponse:
		return Responses, true
	default:
		return Table{}, false
	}
}

// Lookup finds a port in the table of the given kind. It is the runtime
// check for port IDs that arrive off the wire.
func Lookup(kind Kind, port PortID) (Subscription, bool) {
	t, ok := TableFor(kind)
	if !ok {
		return Subscription{}, false
	}

	return t.Find(port)
}

// MustFind looks up a port ID and panics if it is missing. Use it to bind
// package-level variables so that a typo in a port constant stops the
// program at start-up instead of being ignored at runtime.
func MustFind(t Table, port PortID) Subscription {
	s, ok := t.Find(port)
	if !ok {
		panic(fmt.Sprintf("%s port %d is not in the static tables", t.kind, port))
	}

	return s
}
