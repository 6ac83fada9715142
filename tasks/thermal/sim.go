package thermal

import (
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/dsdl"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

// SimSensor is a host stand-in for the imager. Once awake it produces a
// subpage every period ticks, alternating between subpage 0 and 1.
type SimSensor struct {
	clock  timing.TimeTeller
	period timing.Tick

	awake     bool
	nextReady timing.Tick
	nextID    int
	reads     int
}

// NewSimSensor creates a sensor paced by clock.
func NewSimSensor(clock timing.TimeTeller, period timing.Tick) *SimSensor {
	return &SimSensor{clock: clock, period: period}
}

// WakeUp powers the sensor.
func (s *SimSensor) WakeUp() error {
	s.awake = true
	s.nextReady = s.clock.Now() + s.period

	return nil
}

// Sleep powers the sensor down.
func (s *SimSensor) Sleep() error {
	s.awake = false
	return nil
}

// IsReady reports whether a new subpage is available.
func (s *SimSensor) IsReady() bool {
	return s.awake && s.clock.Now() >= s.nextReady
}

// ReadSubpage returns the next subpage.
func (s *SimSensor) ReadSubpage() (Subpage, error) {
	sp := Subpage{
		ID:      s.nextID,
		Pixels:  make([]uint16, dsdl.ThermalPixels),
		Ambient: 2150,
	}

	for i := range sp.Pixels {
		sp.Pixels[i] = uint16(27000 + i%dsdl.ThermalWidth*8 + s.reads)
	}

	s.nextID ^= 1
	s.nextReady = s.clock.Now() + s.period
	s.reads++

	return sp, nil
}

// Reads returns how many subpages were read.
func (s *SimSensor) Reads() int {
	return s.reads
}
