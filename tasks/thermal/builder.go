package thermal

import (
	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

var frameExtent = cyphal.MustFind(cyphal.Messages, cyphal.PortThermalFrame).Extent

// Builder can build thermal acquisition tasks.
type Builder struct {
	publisher    *task.Publisher
	sensor       Sensor
	trigger      Trigger
	log          logr.Logger
	interval     timing.Tick
	shift        timing.Tick
	burstCount   int
	powerUpDelay timing.Tick
	cooldown     timing.Tick
	maxRetries   int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		trigger:      Always,
		log:          logr.Discard(),
		interval:     timing.Millisecond,
		burstCount:   3,
		powerUpDelay: 80 * timing.Millisecond,
		cooldown:     60 * timing.Second,
		maxRetries:   2,
	}
}

// WithPublisher sets the publisher used for completed frames.
func (b Builder) WithPublisher(p task.Publisher) Builder {
	b.publisher = &p
	return b
}

// WithSensor sets the imager driver.
func (b Builder) WithSensor(s Sensor) Builder {
	b.sensor = s
	return b
}

// WithTrigger sets the function that starts a burst.
func (b Builder) WithTrigger(f Trigger) Builder {
	b.trigger = f
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l logr.Logger) Builder {
	b.log = l
	return b
}

// WithInterval sets how often the state machine advances.
func (b Builder) WithInterval(interval, shift timing.Tick) Builder {
	b.interval = interval
	b.shift = shift
	return b
}

// WithBurstCount sets the number of frames per burst.
func (b Builder) WithBurstCount(n int) Builder {
	b.burstCount = n
	return b
}

// WithPowerUpDelay sets the settling time after wake up.
func (b Builder) WithPowerUpDelay(d timing.Tick) Builder {
	b.powerUpDelay = d
	return b
}

// WithCooldown sets how long the task waits after a burst before it
// consults the trigger again.
func (b Builder) WithCooldown(d timing.Tick) Builder {
	b.cooldown = d
	return b
}

// WithMaxRetries sets how many times a frame with mismatched subpages is
// retried before it is discarded.
func (b Builder) WithMaxRetries(n int) Builder {
	b.maxRetries = n
	return b
}

// Build creates the task.
func (b Builder) Build(name string) *Task {
	b.parametersMustBeValid()

	return &Task{
		Base:         task.NewBase(name, b.interval, b.shift),
		Publisher:    *b.publisher,
		sensor:       b.sensor,
		trigger:      b.trigger,
		burstCount:   b.burstCount,
		powerUpDelay: b.powerUpDelay,
		cooldown:     b.cooldown,
		maxRetries:   b.maxRetries,
		log:          b.log,
		buf:          make([]byte, frameExtent),
	}
}

func (b Builder) parametersMustBeValid() {
	if b.publisher == nil {
		panic("thermal task requires a publisher")
	}

	if b.sensor == nil {
		panic("thermal task requires a sensor")
	}

	if b.trigger == nil {
		panic("thermal task requires a trigger")
	}

	if b.burstCount <= 0 {
		panic("burst count must be positive")
	}

	if b.maxRetries < 0 {
		panic("max retries cannot be negative")
	}
}
