// Package node assembles the heap, transports, managers and tasks of one
// flight computer and drives its run-loop.
package node

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/dsdl"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/logging"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/loop"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/registry"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/service"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/subscription"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/tasks"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
)

// ErrNotStarted is returned by Step before Start.
var ErrNotStarted = errors.New("node: not started")

// Node is one flight computer.
type Node struct {
	name     string
	nodeID   cyphal.NodeID
	heap     *heap.Heap
	adapters []transport.Adapter
	tasks    []task.Task
	log      logr.Logger

	reg      *registry.Manager
	subs     *subscription.Manager
	services *service.Manager
	loop     *loop.Manager

	heartbeat *tasks.HeartbeatSender
	peers     *tasks.HeartbeatProcessor

	started bool
	steps   uint64
}

// Name returns the node name.
func (n *Node) Name() string {
	return n.name
}

// NodeID returns the node ID.
func (n *Node) NodeID() cyphal.NodeID {
	return n.nodeID
}

// Heap returns the heap that backs every transfer of the node.
func (n *Node) Heap() *heap.Heap {
	return n.heap
}

// Adapters returns the transports of the node.
func (n *Node) Adapters() []transport.Adapter {
	return n.adapters
}

// Tasks returns the tasks of the node.
func (n *Node) Tasks() []task.Task {
	return n.tasks
}

// Registry returns the registration directory.
func (n *Node) Registry() *registry.Manager {
	return n.reg
}

// Loop returns the run-loop manager. Hooks attached to it see every inbound
// transfer.
func (n *Node) Loop() *loop.Manager {
	return n.loop
}

// Heartbeat returns the heartbeat sender, if the node has the standard
// tasks.
func (n *Node) Heartbeat() *tasks.HeartbeatSender {
	return n.heartbeat
}

// Peers returns the nodes heard on the bus, if the node has the standard
// tasks.
func (n *Node) Peers() []tasks.NodeStatus {
	if n.peers == nil {
		return nil
	}

	return n.peers.Nodes()
}

// Publisher creates a publisher that sends as this node over all of its
// adapters.
func (n *Node) Publisher() task.Publisher {
	p := task.NewPublisher(n.nodeID, DefaultTransferTimeout, n.adapters...)
	p.SetLogger(n.log)

	return p
}

// Start registers every task, subscribes the adapters to the registered
// ports and sets the baseline of every task. Subscription failures are
// returned but do not stop the node.
func (n *Node) Start(now timing.Tick) error {
	for _, t := range n.tasks {
		n.reg.Add(t)
		t.RegisterTask(n.reg)
	}

	err := n.subs.Sync(n.reg, n.adapters)

	n.services.Refresh()
	n.services.InitializeServices(now)

	if n.heartbeat != nil {
		n.heartbeat.SetMode(dsdl.ModeOperational)
	}

	n.started = true

	n.log.V(logging.DEFAULT).Info("node started",
		"node", n.name, "id", n.nodeID, "tasks", len(n.tasks), "adapters", len(n.adapters))

	return err
}

// AddTask adds a task to a running node: it is registered, the adapters are
// subscribed to its ports, and its baseline is set to now.
func (n *Node) AddTask(t task.Task, now timing.Tick) error {
	n.tasks = append(n.tasks, t)

	if !n.started {
		return nil
	}

	n.reg.Add(t)
	t.RegisterTask(n.reg)
	t.TaskBase().Initialize(now)
	n.services.Refresh()

	return n.subs.Sync(n.reg, n.adapters)
}

// RemoveTask unregisters a task and unsubscribes the ports nobody else
// needs.
func (n *Node) RemoveTask(t task.Task) error {
	for i, have := range n.tasks {
		if have == t {
			n.tasks = append(n.tasks[:i], n.tasks[i+1:]...)
			break
		}
	}

	t.UnregisterTask(n.reg)
	n.reg.Unregister(t)
	n.services.Refresh()

	return n.subs.Sync(n.reg, n.adapters)
}

// Step runs one iteration: transports first, then tasks.
func (n *Node) Step(now timing.Tick) error {
	if !n.started {
		return ErrNotStarted
	}

	n.steps++

	err := n.loop.ProcessTxRxOnce(n.adapters, now)
	n.services.HandleServices(now)

	return err
}

// Run steps the node every period until ctx is done. Step errors are logged
// and the loop goes on.
func (n *Node) Run(ctx context.Context, clock timing.TimeTeller, period time.Duration) error {
	if !n.started {
		if err := n.Start(clock.Now()); err != nil {
			n.log.Error(err, "start", "node", n.name)
		}
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := n.Step(clock.Now()); err != nil {
				n.log.Error(err, "step", "node", n.name)
			}
		}
	}
}
