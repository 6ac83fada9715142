// Package thermal implements burst acquisition from a two-subpage thermal
// imager. A frame is assembled from one read of each subpage; a burst is a
// fixed number of frames taken while the sensor is powered.
package thermal

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/dsdl"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/logging"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

// State is the acquisition state.
type State int

// The acquisition states, in cycle order.
const (
	StateOff State = iota
	StatePoweringOn
	StateWaitingSubpageA
	StateWaitingSubpageB
	StateFrameComplete
	StateSleeping
	StateWaiting
)

var stateNames = [...]string{
	"Off",
	"PoweringOn",
	"WaitingSubpageA",
	"WaitingSubpageB",
	"FrameComplete",
	"Sleeping",
	"Waiting",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}

	return stateNames[s]
}

// Subpage is one read of the sensor. In chess-pattern mode only the pixels
// whose row and column sum has the parity of ID are valid.
type Subpage struct {
	ID      int
	Pixels  []uint16
	Ambient int16
}

// Sensor is the imager driver.
type Sensor interface {
	WakeUp() error
	Sleep() error
	IsReady() bool
	ReadSubpage() (Subpage, error)
}

// Trigger decides whether a new burst should start.
type Trigger func(now timing.Tick) bool

// Always is a trigger that always fires.
func Always(timing.Tick) bool { return true }

// Counters are the acquisition totals.
type Counters struct {
	Reads           uint64
	Frames          uint64
	ParityRetries   uint64
	DiscardedFrames uint64
	Bursts          uint64
	SensorErrors    uint64
}

// Task runs the acquisition state machine, one transition per run.
type Task struct {
	task.Base
	task.Publisher

	sensor       Sensor
	trigger      Trigger
	burstCount   int
	powerUpDelay timing.Tick
	cooldown     timing.Tick
	maxRetries   int
	log          logr.Logger

	state      State
	enteredAt  timing.Tick
	framesDone int
	retries    int
	subpageA   Subpage
	subpageB   Subpage
	frame      dsdl.ThermalFrame
	buf        []byte
	counters   Counters
}

// AcquisitionState returns the current state.
func (t *Task) AcquisitionState() State {
	return t.state
}

// Counters returns a snapshot of the totals.
func (t *Task) Counters() Counters {
	return t.counters
}

// LastFrame returns the most recently completed frame.
func (t *Task) LastFrame() dsdl.ThermalFrame {
	return t.frame
}

// Execute performs one state transition.
func (t *Task) Execute(now timing.Tick) {
	switch t.state {
	case StateOff:
		t.off(now)
	case StatePoweringOn:
		t.poweringOn(now)
	case StateWaitingSubpageA:
		t.waitSubpage(now, &t.subpageA, StateWaitingSubpageB)
	case StateWaitingSubpageB:
		t.waitSubpage(now, &t.subpageB, StateFrameComplete)
	case StateFrameComplete:
		t.frameComplete(now)
	case StateSleeping:
		t.sleeping(now)
	case StateWaiting:
		if now-t.enteredAt >= t.cooldown {
			t.enter(StateOff, now)
		}
	}
}

func (t *Task) off(now timing.Tick) {
	if !t.trigger(now) {
		return
	}

	if err := t.sensor.WakeUp(); err != nil {
		t.sensorFailed("wake up", err)
		return
	}

	t.framesDone = 0
	t.enter(StatePoweringOn, now)
}

func (t *Task) poweringOn(now timing.Tick) {
	if now-t.enteredAt < t.powerUpDelay || !t.sensor.IsReady() {
		return
	}

	t.retries = 0
	t.enter(StateWaitingSubpageA, now)
}

func (t *Task) waitSubpage(now timing.Tick, into *Subpage, next State) {
	if !t.sensor.IsReady() {
		return
	}

	sp, err := t.sensor.ReadSubpage()
	t.counters.Reads++

	if err != nil {
		t.sensorFailed("read subpage", err)
		return
	}

	*into = sp
	t.enter(next, now)
}

func (t *Task) frameComplete(now timing.Tick) {
	if t.subpageA.ID == t.subpageB.ID {
		t.counters.ParityRetries++
		t.retries++

		if t.retries > t.maxRetries {
			t.counters.DiscardedFrames++
			t.log.V(logging.VERBOSE).Info("frame discarded after parity retries",
				"task", t.Name(), "retries", t.retries-1)
			t.finishFrame(now)

			return
		}

		t.enter(StateWaitingSubpageA, now)

		return
	}

	t.frame = assemble(t.subpageA, t.subpageB, uint32(t.counters.Frames), now)
	t.counters.Frames++

	err := task.PublishValue(&t.Publisher, cyphal.PortThermalFrame, t.buf, &t.frame,
		dsdl.SerializeThermalFrame)
	t.SendFailed(t.log, cyphal.PortThermalFrame, err)

	t.finishFrame(now)
}

func (t *Task) finishFrame(now timing.Tick) {
	t.framesDone++
	t.retries = 0

	if t.framesDone < t.burstCount {
		t.enter(StateWaitingSubpageA, now)
		return
	}

	t.counters.Bursts++
	t.enter(StateSleeping, now)
}

func (t *Task) sleeping(now timing.Tick) {
	if err := t.sensor.Sleep(); err != nil {
		t.sensorFailed("sleep", err)
	}

	t.enter(StateWaiting, now)
}

func (t *Task) enter(s State, now timing.Tick) {
	t.log.V(logging.TRACE).Info("thermal state", "task", t.Name(), "from", t.state, "to", s)
	t.state = s
	t.enteredAt = now
}

func (t *Task) sensorFailed(op string, err error) {
	t.counters.SensorErrors++
	t.log.Info("thermal sensor failure", "task", t.Name(), "op", op, "err", err)
}

// assemble merges two subpages in chess pattern: each pixel is taken from
// the subpage whose ID matches the parity of its row plus column.
func assemble(a, b Subpage, seq uint32, now timing.Tick) dsdl.ThermalFrame {
	frame := dsdl.ThermalFrame{
		Sequence:    seq,
		Timestamp:   uint64(now),
		AmbientTemp: int16((int(a.Ambient) + int(b.Ambient)) / 2),
		Pixels:      make([]uint16, dsdl.ThermalPixels),
	}

	for i := range frame.Pixels {
		row, col := i/dsdl.ThermalWidth, i%dsdl.ThermalWidth

		src := a
		if (row+col)%2 != a.ID%2 {
			src = b
		}

		if i < len(src.Pixels) {
			frame.Pixels[i] = src.Pixels[i]
		}
	}

	return frame
}

// RegisterTask registers the thermal frame publication.
func (t *Task) RegisterTask(r task.Registrar) {
	r.Publish(cyphal.PortThermalFrame, t)
}

// UnregisterTask removes the thermal frame publication.
func (t *Task) UnregisterTask(r task.Registrar) {
	r.Unpublish(cyphal.PortThermalFrame, t)
}
