// Package tasks holds the node's standard tasks: heartbeat, node info,
// command execution, port list and heap telemetry.
package tasks

import (
	"sort"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/dsdl"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

// Default periods.
const (
	HeartbeatInterval    = 1000 * timing.Millisecond
	PortListInterval     = 3000 * timing.Millisecond
	HeapStatusInterval   = 5000 * timing.Millisecond
	NodeOfflineTimeout   = 3 * HeartbeatInterval
	GetInfoRetryInterval = 2000 * timing.Millisecond
)

// HeartbeatSender publishes the node heartbeat.
type HeartbeatSender struct {
	task.Base
	task.Publisher

	health dsdl.Health
	mode   dsdl.Mode
	vendor uint8
	buf    [dsdl.HeartbeatSize]byte
}

// NewHeartbeatSender creates the sender.
func NewHeartbeatSender(pub task.Publisher, interval, shift timing.Tick) *HeartbeatSender {
	return &HeartbeatSender{
		Base:      task.NewBase("HeartbeatSender", interval, shift),
		Publisher: pub,
		mode:      dsdl.ModeInitialization,
	}
}

// SetHealth sets the health reported from the next heartbeat on.
func (t *HeartbeatSender) SetHealth(h dsdl.Health) {
	t.health = h
}

// SetMode sets the mode reported from the next heartbeat on.
func (t *HeartbeatSender) SetMode(m dsdl.Mode) {
	t.mode = m
}

// SetVendorStatus sets the vendor-specific status code.
func (t *HeartbeatSender) SetVendorStatus(code uint8) {
	t.vendor = code
}

// Execute publishes one heartbeat. Failures are counted by the publisher.
func (t *HeartbeatSender) Execute(now timing.Tick) {
	hb := dsdl.Heartbeat{
		Uptime:                   uint32(now / timing.Second),
		Health:                   t.health,
		Mode:                     t.mode,
		VendorSpecificStatusCode: t.vendor,
	}

	err := task.PublishValue(&t.Publisher, cyphal.PortHeartbeat, t.buf[:], &hb, dsdl.SerializeHeartbeat)
	t.SendFailed(t.Logger(), cyphal.PortHeartbeat, err)
}

// RegisterTask registers the heartbeat publication.
func (t *HeartbeatSender) RegisterTask(r task.Registrar) {
	r.Publish(cyphal.PortHeartbeat, t)
}

// UnregisterTask removes the heartbeat publication.
func (t *HeartbeatSender) UnregisterTask(r task.Registrar) {
	r.Unpublish(cyphal.PortHeartbeat, t)
}

// NodeStatus is what the processor knows about a peer.
type NodeStatus struct {
	ID        cyphal.NodeID
	Heartbeat dsdl.Heartbeat
	LastSeen  timing.Tick
}

// HeartbeatProcessor keeps a table of the nodes heard on the bus. Nodes
// that have been silent for longer than the offline timeout are dropped.
type HeartbeatProcessor struct {
	task.Base
	task.Buffered

	offlineAfter timing.Tick
	nodes        map[cyphal.NodeID]NodeStatus
	malformed    uint64
}

// NewHeartbeatProcessor creates the processor with a backlog of capacity
// heartbeats.
func NewHeartbeatProcessor(
	h *heap.Heap,
	capacity int,
	interval, offlineAfter timing.Tick,
) *HeartbeatProcessor {
	return &HeartbeatProcessor{
		Base:         task.NewBase("HeartbeatProcessor", interval, 0),
		Buffered:     task.NewBuffered("HeartbeatProcessor", h, capacity),
		offlineAfter: offlineAfter,
		nodes:        make(map[cyphal.NodeID]NodeStatus),
	}
}

// Execute folds the queued heartbeats into the node table.
func (t *HeartbeatProcessor) Execute(now timing.Tick) {
	t.Drain(func(tr *cyphal.Transfer) {
		if !tr.Source.IsSet() {
			return
		}

		hb, err := dsdl.DeserializeHeartbeat(tr.Payload())
		if err != nil {
			t.malformed++
			return
		}

		t.nodes[tr.Source] = NodeStatus{ID: tr.Source, Heartbeat: hb, LastSeen: now}
	})

	for id, s := range t.nodes {
		if now-s.LastSeen > t.offlineAfter {
			delete(t.nodes, id)
		}
	}
}

// Nodes returns the known nodes ordered by ID.
func (t *HeartbeatProcessor) Nodes() []NodeStatus {
	out := make([]NodeStatus, 0, len(t.nodes))
	for _, s := range t.nodes {
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// Node returns what is known about one node.
func (t *HeartbeatProcessor) Node(id cyphal.NodeID) (NodeStatus, bool) {
	s, ok := t.nodes[id]
	return s, ok
}

// Malformed returns how many heartbeats could not be decoded.
func (t *HeartbeatProcessor) Malformed() uint64 {
	return t.malformed
}

// RegisterTask subscribes to heartbeats.
func (t *HeartbeatProcessor) RegisterTask(r task.Registrar) {
	r.Subscribe(cyphal.PortHeartbeat, t)
}

// UnregisterTask unsubscribes from heartbeats.
func (t *HeartbeatProcessor) UnregisterTask(r task.Registrar) {
	r.Unsubscribe(cyphal.PortHeartbeat, t)
}
