package can

import (
	"fmt"
	"sort"
	"sync"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/queueing"
)

// SimBus is a host-side CAN bus. Every attached SimDriver owns a few TX
// mailboxes; Flush arbitrates the pending frames by identifier and delivers
// them to every other driver whose filters accept them.
type SimBus struct {
	lock      sync.Mutex
	drivers   []*SimDriver
	delivered uint64
}

// NewSimBus creates an empty bus.
func NewSimBus() *SimBus {
	return &SimBus{}
}

// Attach connects a driver with three TX mailboxes and a 64-frame RX FIFO.
func (b *SimBus) Attach(name string) *SimDriver {
	return b.AttachWith(name, 3, 64)
}

// AttachWith connects a driver with the given mailbox count and RX FIFO
// depth.
func (b *SimBus) AttachWith(name string, mailboxes, rxDepth int) *SimDriver {
	if mailboxes <= 0 {
		panic(fmt.Sprintf("driver %q needs at least one mailbox", name))
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	d := &SimDriver{
		bus:        b,
		name:       name,
		mailboxes:  mailboxes,
		maxFilters: 28,
		rx:         queueing.NewBuffer[Frame](name+".RX", rxDepth),
	}
	b.drivers = append(b.drivers, d)

	return d
}

type pendingFrame struct {
	from  *SimDriver
	frame Frame
}

// Flush puts every frame waiting in a mailbox on the bus, lowest identifier
// first, and returns how many were transmitted.
func (b *SimBus) Flush() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	var pending []pendingFrame
	for _, d := range b.drivers {
		for _, f := range d.pending {
			pending = append(pending, pendingFrame{from: d, frame: f})
		}

		d.pending = d.pending[:0]
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].frame.ID < pending[j].frame.ID
	})

	for _, p := range pending {
		for _, d := range b.drivers {
			if d != p.from {
				d.deliver(p.frame)
			}
		}
	}

	b.delivered += uint64(len(pending))

	return len(pending)
}

// Delivered returns the number of frames that went over the bus.
func (b *SimBus) Delivered() uint64 {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.delivered
}

// SimDriver is the peripheral side of a SimBus attachment.
type SimDriver struct {
	bus        *SimBus
	name       string
	mailboxes  int
	maxFilters int
	pending    []Frame
	filters    []Filter
	rx         *queueing.Buffer[Frame]
	overruns   uint64
	filtered   uint64
}

var _ Driver = (*SimDriver)(nil)

// AddTxMessage places a frame in a free mailbox.
func (d *SimDriver) AddTxMessage(f Frame) error {
	d.bus.lock.Lock()
	defer d.bus.lock.Unlock()

	if len(d.pending) >= d.mailboxes {
		return ErrTxBusy
	}

	d.pending = append(d.pending, f)

	return nil
}

// GetRxMessage pops the RX FIFO.
func (d *SimDriver) GetRxMessage() (Frame, bool) {
	d.bus.lock.Lock()
	defer d.bus.lock.Unlock()

	return d.rx.Pop()
}

// ConfigureFilters replaces the acceptance filters. With no filters every
// frame is accepted.
func (d *SimDriver) ConfigureFilters(filters []Filter) error {
	d.bus.lock.Lock()
	defer d.bus.lock.Unlock()

	if len(filters) > d.maxFilters {
		return fmt.Errorf("can: %s supports %d filters, got %d", d.name, d.maxFilters, len(filters))
	}

	d.filters = append(d.filters[:0], filters...)

	return nil
}

func (d *SimDriver) deliver(f Frame) {
	if !d.accepts(f.ID) {
		d.filtered++
		return
	}

	if !d.rx.Push(f) {
		d.overruns++
	}
}

func (d *SimDriver) accepts(id uint32) bool {
	if len(d.filters) == 0 {
		return true
	}

	for _, f := range d.filters {
		if f.Accepts(id) {
			return true
		}
	}

	return false
}

// Overruns returns the number of frames lost to a full RX FIFO.
func (d *SimDriver) Overruns() uint64 {
	d.bus.lock.Lock()
	defer d.bus.lock.Unlock()

	return d.overruns
}

// Filtered returns the number of frames rejected by the acceptance filters.
func (d *SimDriver) Filtered() uint64 {
	d.bus.lock.Lock()
	defer d.bus.lock.Unlock()

	return d.filtered
}
