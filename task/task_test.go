package task

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/logging"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

type countingTask struct {
	Base

	executed []timing.Tick
	states   []State
}

func newCountingTask(interval, shift timing.Tick) *countingTask {
	return &countingTask{Base: NewBase("Counter", interval, shift)}
}

func (t *countingTask) Execute(now timing.Tick) {
	t.executed = append(t.executed, now)
	t.states = append(t.states, t.State(now))
}

func (t *countingTask) RegisterTask(Registrar)   {}
func (t *countingTask) UnregisterTask(Registrar) {}

var _ = Describe("Base", func() {
	It("should count failed sends only", func() {
		t := newCountingTask(100, 0)

		Expect(t.SendFailed(logging.Discard(), cyphal.PortHeartbeat, nil)).To(BeFalse())
		Expect(t.SendFailed(logging.Discard(), cyphal.PortHeartbeat, errors.New("bus off"))).To(BeTrue())
		Expect(t.SendErrors()).To(Equal(uint64(1)))
	})

	It("should fire once a full interval has elapsed", func() {
		t := newCountingTask(100, 0)
		t.Initialize(1000)

		Expect(Handle(t, 1050)).To(BeFalse())
		Expect(t.State(1050)).To(Equal(StateIdle))
		Expect(t.State(1100)).To(Equal(StateDue))

		Expect(Handle(t, 1100)).To(BeTrue())
		Expect(t.LastTick()).To(Equal(timing.Tick(1100)))
		Expect(t.states).To(Equal([]State{StateRunning}))
		Expect(t.State(1100)).To(Equal(StateIdle))
	})

	It("should advance by the interval, not to now", func() {
		t := newCountingTask(100, 0)
		t.Initialize(0)

		Expect(Handle(t, 250)).To(BeTrue())
		Expect(t.LastTick()).To(Equal(timing.Tick(100)))

		Expect(Handle(t, 250)).To(BeTrue())
		Expect(t.LastTick()).To(Equal(timing.Tick(200)))

		Expect(Handle(t, 250)).To(BeFalse())
		Expect(t.Runs()).To(Equal(uint64(2)))
	})

	It("should delay the first run by the phase shift", func() {
		t := newCountingTask(100, 30)
		t.Initialize(0)

		Expect(Handle(t, 100)).To(BeFalse())
		Expect(Handle(t, 130)).To(BeTrue())
		Expect(t.executed).To(Equal([]timing.Tick{130}))
	})

	It("should run on every poll with a zero interval", func() {
		t := newCountingTask(0, 0)
		t.Initialize(5)

		for now := timing.Tick(5); now < 10; now++ {
			Expect(Handle(t, now)).To(BeTrue())
		}

		Expect(t.LastTick()).To(Equal(timing.Tick(5)))
		Expect(t.Runs()).To(Equal(uint64(5)))
	})

	It("should fire exactly when a full interval has elapsed for random polls", func() {
		r := rand.New(rand.NewSource(7))

		for round := 0; round < 50; round++ {
			interval := timing.Tick(r.Intn(50))
			t := newCountingTask(interval, timing.Tick(r.Intn(20)))
			t.Initialize(timing.Tick(r.Intn(100)))

			now := timing.Tick(0)
			for poll := 0; poll < 200; poll++ {
				now += timing.Tick(r.Intn(30))

				before := t.LastTick()
				due := now >= before+interval
				fired := Handle(t, now)

				Expect(fired).To(Equal(due))
				if fired {
					Expect(t.LastTick()).To(Equal(before + interval))
				} else {
					Expect(t.LastTick()).To(Equal(before))
				}
			}
		}
	})

	It("should report its parameters", func() {
		t := newCountingTask(250, 40)

		Expect(t.Name()).To(Equal("Counter"))
		Expect(t.Interval()).To(Equal(timing.Tick(250)))
		Expect(t.Shift()).To(Equal(timing.Tick(40)))
		Expect(t.TaskBase()).To(BeIdenticalTo(&t.Base))
		Expect(StateDue.String()).To(Equal("Due"))
	})
})
