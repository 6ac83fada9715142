package tasks

import (
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/dsdl"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/registry"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

var (
	portListExtent   = cyphal.MustFind(cyphal.Messages, cyphal.PortNodePortList).Extent
	heapStatusExtent = cyphal.MustFind(cyphal.Messages, cyphal.PortHeapStatus).Extent
)

// Directory is the part of the registry the port list is built from.
type Directory interface {
	Subscriptions() []registry.Entry
	Publications() []registry.Entry
	Servers() []registry.Entry
	Clients() []registry.Entry
}

// PortListPublisher announces which ports the node uses.
type PortListPublisher struct {
	task.Base
	task.Publisher

	dir Directory
	buf []byte
}

// NewPortListPublisher creates the publisher.
func NewPortListPublisher(pub task.Publisher, dir Directory, interval, shift timing.Tick) *PortListPublisher {
	return &PortListPublisher{
		Base:      task.NewBase("PortListPublisher", interval, shift),
		Publisher: pub,
		dir:       dir,
		buf:       make([]byte, portListExtent),
	}
}

// PortList builds the current list from the directory.
func (t *PortListPublisher) PortList() dsdl.PortList {
	return dsdl.PortList{
		Publishers:  dsdl.SubjectIDList{IDs: registry.Ports(t.dir.Publications())},
		Subscribers: dsdl.SubjectIDList{IDs: registry.Ports(t.dir.Subscriptions())},
		Clients:     registry.Ports(t.dir.Clients()),
		Servers:     registry.Ports(t.dir.Servers()),
	}
}

// Execute publishes the port list.
func (t *PortListPublisher) Execute(timing.Tick) {
	list := t.PortList()
	err := task.PublishValue(&t.Publisher, cyphal.PortNodePortList, t.buf, &list, dsdl.SerializePortList)
	t.SendFailed(t.Logger(), cyphal.PortNodePortList, err)
}

// RegisterTask registers the port list publication.
func (t *PortListPublisher) RegisterTask(r task.Registrar) {
	r.Publish(cyphal.PortNodePortList, t)
}

// UnregisterTask removes the port list publication.
func (t *PortListPublisher) UnregisterTask(r task.Registrar) {
	r.Unpublish(cyphal.PortNodePortList, t)
}

// HeapStatusPublisher reports the allocator diagnostics.
type HeapStatusPublisher struct {
	task.Base
	task.Publisher

	heap *heap.Heap
	buf  []byte
}

// NewHeapStatusPublisher creates the publisher for h.
func NewHeapStatusPublisher(pub task.Publisher, h *heap.Heap, interval, shift timing.Tick) *HeapStatusPublisher {
	return &HeapStatusPublisher{
		Base:      task.NewBase("HeapStatusPublisher", interval, shift),
		Publisher: pub,
		heap:      h,
		buf:       make([]byte, heapStatusExtent),
	}
}

// Execute publishes the heap status.
func (t *HeapStatusPublisher) Execute(timing.Tick) {
	d := t.heap.Diagnostics()
	status := dsdl.HeapStatus{
		Capacity:        uint32(d.Capacity),
		Allocated:       uint32(d.Allocated),
		PeakAllocated:   uint32(d.PeakAllocated),
		PeakRequestSize: uint32(d.PeakRequestSize),
		OOMCount:        d.OOMCount,
	}

	err := task.PublishValue(&t.Publisher, cyphal.PortHeapStatus, t.buf, &status, dsdl.SerializeHeapStatus)
	t.SendFailed(t.Logger(), cyphal.PortHeapStatus, err)
}

// RegisterTask registers the heap status publication.
func (t *HeapStatusPublisher) RegisterTask(r task.Registrar) {
	r.Publish(cyphal.PortHeapStatus, t)
}

// UnregisterTask removes the heap status publication.
func (t *HeapStatusPublisher) UnregisterTask(r task.Registrar) {
	r.Unpublish(cyphal.PortHeapStatus, t)
}
