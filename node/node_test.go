package node

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/dsdl"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/tasks"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport/can"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport/loopback"
)

type housekeepingTask struct {
	task.Base
}

func (t *housekeepingTask) Execute(timing.Tick)           {}
func (t *housekeepingTask) RegisterTask(task.Registrar)   {}
func (t *housekeepingTask) UnregisterTask(task.Registrar) {}

var _ = Describe("Node", func() {
	var (
		clock *timing.ManualClock
		bus   *can.SimBus
	)

	canNode := func(name string, id cyphal.NodeID) Builder {
		h := heap.New(DefaultHeapSize)
		adapter := can.MakeBuilder().
			WithHeap(h).
			WithClock(clock).
			WithDriver(bus.Attach(name)).
			WithNodeID(id).
			Build(name + ".CAN")

		return MakeBuilder().
			WithNodeID(id).
			WithHeap(h).
			WithAdapter(adapter).
			WithStandardTasks(dsdl.GetInfoResponse{Name: name})
	}

	run := func(until timing.Tick, nodes ...*Node) {
		for now := clock.Now(); now <= until; now += 10 {
			clock.Set(now)

			for _, n := range nodes {
				Expect(n.Step(now)).To(Succeed())
			}

			bus.Flush()
		}
	}

	BeforeEach(func() {
		clock = timing.NewManualClock(0)
		bus = can.NewSimBus()
	})

	It("should let two nodes find each other over CAN", func() {
		obcBuilder := canNode("obc", 10)
		obc := obcBuilder.Build("OBC")
		client := tasks.NewGetInfoClient(obc.Publisher(), 20, 1000, 500)
		Expect(obc.AddTask(client, 0)).To(Succeed())

		payload := canNode("payload", 20).Build("Payload")

		Expect(obc.Start(0)).To(Succeed())
		Expect(payload.Start(0)).To(Succeed())

		run(4000, obc, payload)

		Expect(obc.Peers()).To(HaveLen(1))
		Expect(obc.Peers()[0].ID).To(Equal(cyphal.NodeID(20)))
		Expect(obc.Peers()[0].Heartbeat.Mode).To(Equal(dsdl.ModeOperational))
		Expect(payload.Peers()[0].ID).To(Equal(cyphal.NodeID(10)))

		info, ok := client.Info()
		Expect(ok).To(BeTrue())
		Expect(info.Name).To(Equal("payload"))

		d := obc.Diagnostics(clock.Now())
		Expect(d.Loop.Dispatched).To(BeNumerically(">=", 5))
		Expect(d.Loop.Unroutable).To(BeZero())
		Expect(d.Heap.OOMCount).To(BeZero())
		Expect(d.Registrations.Ignored).To(BeZero())
		Expect(d.Registrations.Servers).To(Equal(1))
		Expect(d.Registrations.Clients).To(Equal(1))
		Expect(d.Adapters).To(HaveLen(1))
		Expect(d.Adapters[0].Name).To(Equal("obc.CAN"))
		Expect(d.Tasks).To(HaveLen(6))
		Expect(d.Tasks[0].Name).To(Equal("HeartbeatSender"))
		Expect(d.Tasks[0].Runs).To(Equal(uint64(4)))
		Expect(d.Tasks[0].SendErrors).To(BeZero())
	})

	It("should subscribe the ports of a task added while running", func() {
		n := canNode("obc", 10).Build("OBC")
		Expect(n.Start(0)).To(Succeed())
		before := n.Diagnostics(0).Subscriptions

		server := tasks.NewCommandServer(n.Publisher(), tasks.NewSimPowerSwitch(2))
		Expect(n.AddTask(server, 0)).To(Succeed())
		Expect(n.Diagnostics(0).Subscriptions).To(Equal(before + 1))

		Expect(n.RemoveTask(server)).To(Succeed())
		Expect(n.Diagnostics(0).Subscriptions).To(Equal(before))
		Expect(n.Tasks()).ToNot(ContainElement(server))
	})

	It("should poll a task that registers no ports", func() {
		h := heap.New(4096)
		lo := loopback.MakeBuilder().WithHeap(h).WithClock(clock).WithNodeID(10).Build("Loopback")
		n := MakeBuilder().WithHeap(h).WithAdapter(lo).Build("Solo")

		early := &housekeepingTask{Base: task.NewBase("Housekeeping", 10, 0)}
		Expect(n.AddTask(early, 0)).To(Succeed())
		Expect(n.Start(0)).To(Succeed())

		late := &housekeepingTask{Base: task.NewBase("Watchdog", 10, 0)}
		Expect(n.AddTask(late, 50)).To(Succeed())

		for now := timing.Tick(1); now <= 100; now++ {
			Expect(n.Step(now)).To(Succeed())
		}

		Expect(early.Runs()).To(Equal(uint64(10)))
		Expect(late.Runs()).To(Equal(uint64(5)))

		Expect(n.RemoveTask(early)).To(Succeed())

		for now := timing.Tick(101); now <= 200; now++ {
			Expect(n.Step(now)).To(Succeed())
		}

		Expect(early.Runs()).To(Equal(uint64(10)))
		Expect(late.Runs()).To(Equal(uint64(15)))
	})

	It("should refuse to step before start", func() {
		n := canNode("obc", 10).Build("OBC")
		Expect(n.Step(0)).To(MatchError(ErrNotStarted))
	})

	It("should run until the context ends", func() {
		h := heap.New(4096)
		lo := loopback.MakeBuilder().WithHeap(h).WithClock(clock).WithNodeID(10).Build("Loopback")
		n := MakeBuilder().WithHeap(h).WithAdapter(lo).Build("Solo")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		Expect(n.Run(ctx, clock, time.Millisecond)).To(MatchError(context.DeadlineExceeded))
		Expect(n.Diagnostics(0).Steps).To(BeNumerically(">", 0))
	})

	It("should refuse to build without an adapter", func() {
		Expect(func() { MakeBuilder().WithHeap(heap.New(1024)).Build("Bare") }).To(Panic())
	})
})
