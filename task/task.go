// Package task provides the scheduling primitives shared by every task: a
// polled periodic state machine, transfer publication and buffered
// reception.
package task

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/logging"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

// State is where a task is in its cycle.
type State int

// The task states.
const (
	StateIdle State = iota
	StateDue
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateDue:
		return "Due"
	case StateRunning:
		return "Running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Executor is the body of a task.
type Executor interface {
	Execute(now timing.Tick)
}

// Task is a schedulable unit. Concrete tasks embed a Base, implement
// Execute, and declare their ports in RegisterTask.
type Task interface {
	Executor

	// TaskBase returns the scheduling state of the task.
	TaskBase() *Base

	// RegisterTask records the ports of the task. Calling it twice must not
	// create duplicate entries.
	RegisterTask(r Registrar)

	// UnregisterTask removes the entries RegisterTask made.
	UnregisterTask(r Registrar)
}

// Handler is implemented by tasks that consume inbound transfers. The
// transfer is only valid during the call; a task that wants to keep it must
// copy it.
type Handler interface {
	HandleMessage(t *cyphal.Transfer)
}

// Matcher is implemented by RPC clients to claim the responses to their own
// requests.
type Matcher interface {
	Matches(t *cyphal.Transfer) bool
}

// Registrar is the directory tasks register their ports with.
type Registrar interface {
	Subscribe(port cyphal.PortID, t Task) bool
	Unsubscribe(port cyphal.PortID, t Task) bool
	Publish(port cyphal.PortID, t Task) bool
	Unpublish(port cyphal.PortID, t Task) bool
	AddServer(port cyphal.PortID, t Task) bool
	RemoveServer(port cyphal.PortID, t Task) bool
	AddClient(port cyphal.PortID, t Task) bool
	RemoveClient(port cyphal.PortID, t Task) bool
}

// Base holds the timing state of a task: its interval, the phase shift of
// its first run, and the tick its current period started at.
type Base struct {
	name     string
	interval timing.Tick
	shift    timing.Tick
	lastTick timing.Tick
	running  bool
	runs     uint64

	sendErrors uint64
}

// NewBase creates the timing state of a task. An interval of zero makes the
// task due on every poll.
func NewBase(name string, interval, shift timing.Tick) Base {
	return Base{name: name, interval: interval, shift: shift}
}

// TaskBase returns b, so that embedding a Base satisfies that part of Task.
func (b *Base) TaskBase() *Base {
	return b
}

// Name returns the task name.
func (b *Base) Name() string {
	return b.name
}

// Interval returns the period of the task.
func (b *Base) Interval() timing.Tick {
	return b.interval
}

// Shift returns the phase shift of the first run.
func (b *Base) Shift() timing.Tick {
	return b.shift
}

// LastTick returns the start of the current period.
func (b *Base) LastTick() timing.Tick {
	return b.lastTick
}

// Runs returns how many times the task body has run.
func (b *Base) Runs() uint64 {
	return b.runs
}

// SendErrors returns how many sends of the task failed.
func (b *Base) SendErrors() uint64 {
	return b.sendErrors
}

// SendFailed counts err against the task and logs it. A nil err is not
// counted. It reports whether err is non-nil.
func (b *Base) SendFailed(log logr.Logger, port cyphal.PortID, err error) bool {
	if err == nil {
		return false
	}

	b.sendErrors++
	log.V(logging.VERBOSE).Info("send failed", "task", b.name, "port", port, "err", err)

	return true
}

// Initialize sets the baseline from which the first period is counted.
func (b *Base) Initialize(now timing.Tick) {
	b.lastTick = now + b.shift
}

// Due reports whether a full interval has elapsed since the last tick.
func (b *Base) Due(now timing.Tick) bool {
	return now >= b.lastTick+b.interval
}

// State returns the state of the task at the given time.
func (b *Base) State(now timing.Tick) State {
	switch {
	case b.running:
		return StateRunning
	case b.Due(now):
		return StateDue
	default:
		return StateIdle
	}
}

// Handle polls a task: if it is due, its body runs once and the period start
// advances by exactly one interval. It reports whether the body ran.
func Handle(t Task, now timing.Tick) bool {
	b := t.TaskBase()
	if b.running || !b.Due(now) {
		return false
	}

	b.running = true
	t.Execute(now)
	b.running = false

	b.lastTick += b.interval
	b.runs++

	return true
}
