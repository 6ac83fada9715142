package thermal

import (
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/dsdl"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

// Collector receives the frames published by the acquisition task on
// another node.
type Collector struct {
	task.Base
	task.Buffered

	frames    uint64
	malformed uint64
	last      dsdl.ThermalFrame
}

// NewCollector creates a collector with a backlog of capacity frames.
func NewCollector(h *heap.Heap, capacity int, interval timing.Tick) *Collector {
	return &Collector{
		Base:     task.NewBase("ThermalCollector", interval, 0),
		Buffered: task.NewBuffered("ThermalCollector", h, capacity),
	}
}

// Execute decodes the queued frames.
func (c *Collector) Execute(timing.Tick) {
	c.Drain(func(tr *cyphal.Transfer) {
		f, err := dsdl.DeserializeThermalFrame(tr.Payload())
		if err != nil {
			c.malformed++
			return
		}

		c.last = f
		c.frames++
	})
}

// Frames returns how many frames were decoded.
func (c *Collector) Frames() uint64 {
	return c.frames
}

// Malformed returns how many frames could not be decoded.
func (c *Collector) Malformed() uint64 {
	return c.malformed
}

// LastFrame returns the most recent frame.
func (c *Collector) LastFrame() dsdl.ThermalFrame {
	return c.last
}

// RegisterTask subscribes to thermal frames.
func (c *Collector) RegisterTask(r task.Registrar) {
	r.Subscribe(cyphal.PortThermalFrame, c)
}

// UnregisterTask unsubscribes from thermal frames.
func (c *Collector) UnregisterTask(r task.Registrar) {
	r.Unsubscribe(cyphal.PortThermalFrame, c)
}
