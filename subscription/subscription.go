// Package subscription turns the registration directory into low-level
// subscriptions on every transport adapter.
package subscription

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/logging"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/registry"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
)

// DefaultTransferIDTimeout is the window in which a repeated transfer ID is
// treated as a duplicate.
const DefaultTransferIDTimeout = 2 * timing.Second

type binding struct {
	kind    cyphal.Kind
	port    cyphal.PortID
	adapter transport.Adapter
}

// Manager tells every adapter about every port the node cares about. A
// failing adapter does not stop the others; its failures are joined into the
// returned error.
type Manager struct {
	log      logr.Logger
	timeout  timing.Tick
	active   map[binding]bool
	failures uint64
}

// NewManager creates a manager that subscribes with the given transfer-ID
// timeout.
func NewManager(log logr.Logger, timeout timing.Tick) *Manager {
	return &Manager{
		log:     log,
		timeout: timeout,
		active:  make(map[binding]bool),
	}
}

// Subscribe subscribes every adapter to every port. Ports missing from the
// static table of kind are skipped.
func (m *Manager) Subscribe(
	kind cyphal.Kind,
	ports []cyphal.PortID,
	adapters []transport.Adapter,
) error {
	var errs []error

	for _, port := range ports {
		s, ok := cyphal.Lookup(kind, port)
		if !ok {
			m.log.V(logging.DEBUG).Info("no extent for port, not subscribed",
				"kind", kind, "port", port)

			continue
		}

		for _, a := range adapters {
			if err := m.subscribe(s, a); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

// Unsubscribe removes the subscriptions of every adapter to every port.
func (m *Manager) Unsubscribe(
	kind cyphal.Kind,
	ports []cyphal.PortID,
	adapters []transport.Adapter,
) error {
	var errs []error

	for _, port := range ports {
		for _, a := range adapters {
			if err := m.unsubscribe(binding{kind: kind, port: port, adapter: a}); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

// SubscribeAll subscribes the adapters to the message subscriptions, served
// requests and called responses in the directory.
func (m *Manager) SubscribeAll(reg *registry.Manager, adapters []transport.Adapter) error {
	return errors.Join(
		m.Subscribe(cyphal.KindMessage, registry.Ports(reg.Subscriptions()), adapters),
		m.Subscribe(cyphal.KindRequest, registry.Ports(reg.Servers()), adapters),
		m.Subscribe(cyphal.KindResponse, registry.Ports(reg.Clients()), adapters),
	)
}

// Sync brings the adapters in line with the directory: ports that were
// registered since the last call are subscribed, ports that are gone are
// unsubscribed, and everything else is left alone.
func (m *Manager) Sync(reg *registry.Manager, adapters []transport.Adapter) error {
	wanted := make(map[binding]bool)

	for kind, entries := range map[cyphal.Kind][]registry.Entry{
		cyphal.KindMessage:  reg.Subscriptions(),
		cyphal.KindRequest:  reg.Servers(),
		cyphal.KindResponse: reg.Clients(),
	} {
		for _, port := range registry.Ports(entries) {
			for _, a := range adapters {
				wanted[binding{kind: kind, port: port, adapter: a}] = true
			}
		}
	}

	var errs []error

	for _, b := range sortedBindings(wanted) {
		if m.active[b] {
			continue
		}

		s, ok := cyphal.Lookup(b.kind, b.port)
		if !ok {
			continue
		}

		if err := m.subscribe(s, b.adapter); err != nil {
			errs = append(errs, err)
		}
	}

	for _, b := range sortedBindings(m.active) {
		if wanted[b] {
			continue
		}

		if err := m.unsubscribe(b); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Active returns the number of (kind, port, adapter) subscriptions in place.
func (m *Manager) Active() int {
	return len(m.active)
}

// IsActive reports whether adapter a is subscribed to the port.
func (m *Manager) IsActive(kind cyphal.Kind, port cyphal.PortID, a transport.Adapter) bool {
	return m.active[binding{kind: kind, port: port, adapter: a}]
}

// Failures returns how many adapter calls have failed.
func (m *Manager) Failures() uint64 {
	return m.failures
}

func (m *Manager) subscribe(s cyphal.Subscription, a transport.Adapter) error {
	err := a.Subscribe(s.Kind, s.Port, s.Extent, m.timeout)
	if err != nil {
		m.failures++
		m.log.Info("subscribe failed",
			"adapter", a.Name(), "kind", s.Kind, "port", s.Port, "err", err)

		return fmt.Errorf("subscribe %s %d on %s: %w", s.Kind, s.Port, a.Name(), err)
	}

	m.active[binding{kind: s.Kind, port: s.Port, adapter: a}] = true

	return nil
}

func (m *Manager) unsubscribe(b binding) error {
	err := b.adapter.Unsubscribe(b.kind, b.port)
	if err != nil {
		m.failures++
		m.log.Info("unsubscribe failed",
			"adapter", b.adapter.Name(), "kind", b.kind, "port", b.port, "err", err)

		return fmt.Errorf("unsubscribe %s %d on %s: %w", b.kind, b.port, b.adapter.Name(), err)
	}

	delete(m.active, b)

	return nil
}

func sortedBindings(set map[binding]bool) []binding {
	out := make([]binding, 0, len(set))
	for b := range set {
		out = append(out, b)
	}

	slices.SortFunc(out, func(x, y binding) int {
		return cmp.Or(
			cmp.Compare(x.kind, y.kind),
			cmp.Compare(x.port, y.port),
			cmp.Compare(x.adapter.Name(), y.adapter.Name()),
		)
	})

	return out
}
