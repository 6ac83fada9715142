package node

import (
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/loop"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
)

// AdapterDiagnostics are the counters of one adapter.
type AdapterDiagnostics struct {
	Name string
	transport.Diagnostics
}

// Registrations are the sizes of the directory lists.
type Registrations struct {
	Subscriptions int
	Publications  int
	Servers       int
	Clients       int
	Handlers      int
	Ignored       uint64
}

// TaskStatus is the scheduling state of one task.
type TaskStatus struct {
	Name       string
	State      string
	Interval   timing.Tick
	LastTick   timing.Tick
	Runs       uint64
	SendErrors uint64
}

// Diagnostics is a snapshot of every counter of the node.
type Diagnostics struct {
	Name          string
	NodeID        uint16
	Steps         uint64
	Heap          heap.Diagnostics
	Adapters      []AdapterDiagnostics
	Loop          loop.Counters
	Registrations Registrations
	Subscriptions int
	Tasks         []TaskStatus
}

// Diagnostics collects the counters at time now.
func (n *Node) Diagnostics(now timing.Tick) Diagnostics {
	d := Diagnostics{
		Name:   n.name,
		NodeID: uint16(n.nodeID),
		Steps:  n.steps,
		Heap:   n.heap.Diagnostics(),
		Loop:   n.loop.Counters(),
		Registrations: Registrations{
			Subscriptions: len(n.reg.Subscriptions()),
			Publications:  len(n.reg.Publications()),
			Servers:       len(n.reg.Servers()),
			Clients:       len(n.reg.Clients()),
			Handlers:      len(n.reg.Handlers()),
			Ignored:       n.reg.Ignored(),
		},
		Subscriptions: n.subs.Active(),
	}

	for _, a := range n.adapters {
		d.Adapters = append(d.Adapters, AdapterDiagnostics{Name: a.Name(), Diagnostics: a.Diagnostics()})
	}

	for _, t := range n.tasks {
		b := t.TaskBase()
		d.Tasks = append(d.Tasks, TaskStatus{
			Name:       b.Name(),
			State:      b.State(now).String(),
			Interval:   b.Interval(),
			LastTick:   b.LastTick(),
			Runs:       b.Runs(),
			SendErrors: b.SendErrors(),
		})
	}

	return d
}
