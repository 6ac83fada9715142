package node

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/dsdl"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/loop"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/registry"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/service"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/subscription"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/tasks"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
)

// Compiled-in flight configuration.
const (
	DefaultNodeID          cyphal.NodeID = 10
	DefaultHeapSize                      = 64 * 1024
	DefaultTransferTimeout               = 1000 * timing.Millisecond
	DefaultBacklog                       = 8
	DefaultRxBudget                      = 16

	PortListShift   = 100 * timing.Millisecond
	HeapStatusShift = 200 * timing.Millisecond
)

// Builder can build nodes.
type Builder struct {
	nodeID            cyphal.NodeID
	heap              *heap.Heap
	adapters          []transport.Adapter
	tasks             []task.Task
	log               logr.Logger
	rxBudget          int
	transferIDTimeout timing.Tick
	info              *dsdl.GetInfoResponse
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		nodeID:            DefaultNodeID,
		log:               logr.Discard(),
		rxBudget:          DefaultRxBudget,
		transferIDTimeout: subscription.DefaultTransferIDTimeout,
	}
}

// WithNodeID sets the node ID.
func (b Builder) WithNodeID(id cyphal.NodeID) Builder {
	b.nodeID = id
	return b
}

// WithHeap sets the heap. The adapters must draw from the same heap.
func (b Builder) WithHeap(h *heap.Heap) Builder {
	b.heap = h
	return b
}

// WithAdapter adds transports.
func (b Builder) WithAdapter(a ...transport.Adapter) Builder {
	b.adapters = append(append([]transport.Adapter(nil), b.adapters...), a...)
	return b
}

// WithTask adds tasks.
func (b Builder) WithTask(t ...task.Task) Builder {
	b.tasks = append(append([]task.Task(nil), b.tasks...), t...)
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l logr.Logger) Builder {
	b.log = l
	return b
}

// WithRxBudget sets how many transfers are taken from each adapter per step.
func (b Builder) WithRxBudget(n int) Builder {
	b.rxBudget = n
	return b
}

// WithTransferIDTimeout sets the duplicate-detection window of the adapter
// subscriptions.
func (b Builder) WithTransferIDTimeout(d timing.Tick) Builder {
	b.transferIDTimeout = d
	return b
}

// WithStandardTasks adds the heartbeat sender and processor, the GetInfo
// server answering with info, the port list and the heap status publishers.
func (b Builder) WithStandardTasks(info dsdl.GetInfoResponse) Builder {
	b.info = &info
	return b
}

// Build creates the node.
func (b Builder) Build(name string) *Node {
	b.parametersMustBeValid()

	reg := registry.NewManager(b.log.WithName("registry"))
	services := service.New(reg, b.log.WithName("service"))

	n := &Node{
		name:     name,
		nodeID:   b.nodeID,
		heap:     b.heap,
		adapters: b.adapters,
		log:      b.log,
		reg:      reg,
		subs:     subscription.NewManager(b.log.WithName("subscription"), b.transferIDTimeout),
		services: services,
		loop: loop.MakeBuilder().
			WithRegistry(reg).
			WithServices(services).
			WithLogger(b.log.WithName("loop")).
			WithRxBudget(b.rxBudget).
			Build(name + ".Loop"),
	}

	if b.info != nil {
		n.addStandardTasks(*b.info)
	}

	n.tasks = append(n.tasks, b.tasks...)

	return n
}

func (n *Node) addStandardTasks(info dsdl.GetInfoResponse) {
	n.heartbeat = tasks.NewHeartbeatSender(n.Publisher(), tasks.HeartbeatInterval, 0)
	n.peers = tasks.NewHeartbeatProcessor(n.heap, DefaultBacklog, 0, tasks.NodeOfflineTimeout)

	n.tasks = append(n.tasks,
		n.heartbeat,
		n.peers,
		tasks.NewGetInfoServer(n.Publisher(), n.heap, DefaultBacklog, info),
		tasks.NewPortListPublisher(n.Publisher(), n.reg, tasks.PortListInterval, PortListShift),
		tasks.NewHeapStatusPublisher(n.Publisher(), n.heap, tasks.HeapStatusInterval, HeapStatusShift),
	)
}

func (b Builder) parametersMustBeValid() {
	if b.heap == nil {
		panic("node requires a heap")
	}

	if len(b.adapters) == 0 {
		panic("node requires at least one adapter")
	}

	if !b.nodeID.IsSet() && b.info != nil {
		panic("an anonymous node cannot run the standard tasks")
	}

	if b.nodeID.IsSet() && b.nodeID > 127 {
		panic(fmt.Sprintf("node ID %d out of range", b.nodeID))
	}

	if b.rxBudget <= 0 {
		panic("RX budget must be positive")
	}
}
