package cmd

import (
	"errors"

	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/dsdl"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/node"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/tasks"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/tasks/thermal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport/can"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport/serial"
)

// Simulation constants.
const (
	StepPeriod        = 10 * timing.Millisecond
	SerialLinkBuffer  = 16 * 1024
	SensorPeriod      = 100 * timing.Millisecond
	GetInfoTimeout    = 500 * timing.Millisecond
	PowerChannels     = 4
	CollectorBacklog  = 4
	DefaultEPSNodeID  = 30
	DefaultPayloadID  = 20
	DefaultSimulation = 10 * timing.Second
)

// NetworkConfig selects the node IDs of the simulated spacecraft.
type NetworkConfig struct {
	OBC      cyphal.NodeID
	EPS      cyphal.NodeID
	Payload  cyphal.NodeID
	HeapSize int
	Logger   logr.Logger
}

// Network is the simulated spacecraft. The OBC and the EPS share a CAN bus.
// The payload hangs off a serial link to the OBC and streams thermal frames.
type Network struct {
	Clock *timing.ManualClock
	Bus   *can.SimBus

	OBC     *node.Node
	EPS     *node.Node
	Payload *node.Node

	Thermal     *thermal.Task
	Collector   *thermal.Collector
	PayloadInfo *tasks.GetInfoClient
	EPSInfo     *tasks.GetInfoClient
	Power       *tasks.SimPowerSwitch
}

// BuildNetwork assembles the three nodes.
func BuildNetwork(cfg NetworkConfig) *Network {
	n := &Network{
		Clock: timing.NewManualClock(0),
		Bus:   can.NewSimBus(),
		Power: tasks.NewSimPowerSwitch(PowerChannels),
	}

	obcLink, payloadLink := serial.NewSimLink(SerialLinkBuffer)

	obcHeap := heap.New(cfg.HeapSize)
	n.OBC = node.MakeBuilder().
		WithNodeID(cfg.OBC).
		WithHeap(obcHeap).
		WithLogger(cfg.Logger.WithName("OBC")).
		WithAdapter(
			n.canAdapter("OBC", cfg.OBC, obcHeap, cfg.Logger),
			n.serialAdapter("OBC", cfg.OBC, obcHeap, obcLink, cfg.Logger),
		).
		WithStandardTasks(dsdl.GetInfoResponse{Name: "csat.obc"}).
		Build("OBC")

	n.Collector = thermal.NewCollector(obcHeap, CollectorBacklog, StepPeriod)
	n.PayloadInfo = tasks.NewGetInfoClient(n.OBC.Publisher(), cfg.Payload,
		tasks.GetInfoRetryInterval, GetInfoTimeout)
	n.EPSInfo = tasks.NewGetInfoClient(n.OBC.Publisher(), cfg.EPS,
		tasks.GetInfoRetryInterval, GetInfoTimeout)
	n.addTasks(n.OBC, n.Collector, n.PayloadInfo, n.EPSInfo)

	epsHeap := heap.New(cfg.HeapSize)
	n.EPS = node.MakeBuilder().
		WithNodeID(cfg.EPS).
		WithHeap(epsHeap).
		WithLogger(cfg.Logger.WithName("EPS")).
		WithAdapter(n.canAdapter("EPS", cfg.EPS, epsHeap, cfg.Logger)).
		WithStandardTasks(dsdl.GetInfoResponse{Name: "csat.eps"}).
		Build("EPS")
	n.addTasks(n.EPS, tasks.NewCommandServer(n.EPS.Publisher(), n.Power))

	payloadHeap := heap.New(cfg.HeapSize)
	n.Payload = node.MakeBuilder().
		WithNodeID(cfg.Payload).
		WithHeap(payloadHeap).
		WithLogger(cfg.Logger.WithName("Payload")).
		WithAdapter(n.serialAdapter("Payload", cfg.Payload, payloadHeap, payloadLink, cfg.Logger)).
		WithStandardTasks(dsdl.GetInfoResponse{Name: "csat.payload"}).
		Build("Payload")

	n.Thermal = thermal.MakeBuilder().
		WithPublisher(n.Payload.Publisher()).
		WithSensor(thermal.NewSimSensor(n.Clock, SensorPeriod)).
		WithInterval(StepPeriod, 0).
		WithLogger(cfg.Logger.WithName("Thermal")).
		Build("Thermal")
	n.addTasks(n.Payload, n.Thermal)

	return n
}

func (n *Network) canAdapter(
	name string,
	id cyphal.NodeID,
	h *heap.Heap,
	log logr.Logger,
) *can.Adapter {
	return can.MakeBuilder().
		WithHeap(h).
		WithClock(n.Clock).
		WithLogger(log.WithName(name + ".CAN")).
		WithDriver(n.Bus.Attach(name)).
		WithNodeID(id).
		Build(name + ".CAN")
}

func (n *Network) serialAdapter(
	name string,
	id cyphal.NodeID,
	h *heap.Heap,
	port serial.Port,
	log logr.Logger,
) *serial.Adapter {
	return serial.MakeBuilder().
		WithHeap(h).
		WithClock(n.Clock).
		WithLogger(log.WithName(name + ".Serial")).
		WithPort(port).
		WithNodeID(id).
		Build(name + ".Serial")
}

func (n *Network) addTasks(to *node.Node, ts ...task.Task) {
	for _, t := range ts {
		_ = to.AddTask(t, 0)
	}
}

// Nodes returns the nodes in stepping order.
func (n *Network) Nodes() []*node.Node {
	return []*node.Node{n.OBC, n.EPS, n.Payload}
}

// Start starts every node.
func (n *Network) Start() error {
	var errs []error

	for _, nd := range n.Nodes() {
		errs = append(errs, nd.Start(n.Clock.Now()))
	}

	return errors.Join(errs...)
}

// Step advances the clock to now, steps every node and carries the frames
// across the bus.
func (n *Network) Step(now timing.Tick) error {
	n.Clock.Set(now)

	var errs []error

	for _, nd := range n.Nodes() {
		errs = append(errs, nd.Step(now))
	}

	n.Bus.Flush()

	return errors.Join(errs...)
}
