// Package loop implements the run-loop iteration: drain every adapter's
// outbound queue, then route every inbound transfer to its tasks.
package loop

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/hooking"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/logging"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/registry"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/service"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
)

// HookPosTransferDispatched marks when an inbound transfer has been handed
// to at least one task. The detail is a Dispatch.
var HookPosTransferDispatched = &hooking.HookPos{Name: "Transfer Dispatched"}

// HookPosTransferUnroutable marks when an inbound transfer had no task to go
// to. The detail is a Dispatch.
var HookPosTransferUnroutable = &hooking.HookPos{Name: "Transfer Unroutable"}

// HookPosTxError marks when an adapter fails to drain its outbound queue.
// The item is the error.
var HookPosTxError = &hooking.HookPos{Name: "TX Error"}

// Dispatch describes where an inbound transfer went.
type Dispatch struct {
	Adapter   string
	Now       timing.Tick
	Receivers []string
}

// Counters are the run-loop totals.
type Counters struct {
	Iterations uint64
	Dispatched uint64
	Unroutable uint64
	TxErrors   uint64
}

// Manager runs one iteration of the loop at a time.
type Manager struct {
	hooking.HookableBase

	name     string
	reg      *registry.Manager
	services *service.Manager
	log      logr.Logger
	rxBudget int

	counters Counters
}

// Name returns the name of the manager.
func (m *Manager) Name() string {
	return m.name
}

// Counters returns a snapshot of the totals.
func (m *Manager) Counters() Counters {
	return m.counters
}

// ProcessTxRxOnce drains the outbound queue of every adapter, then receives
// up to the RX budget of transfers from every adapter and routes them. A
// failing adapter is reported in the returned error and does not stop the
// others.
func (m *Manager) ProcessTxRxOnce(adapters []transport.Adapter, now timing.Tick) error {
	m.counters.Iterations++

	var errs []error

	for _, a := range adapters {
		if err := a.ProcessTxQueue(); err != nil {
			m.counters.TxErrors++
			m.log.Error(err, "TX queue processing failed", "adapter", a.Name())
			m.invoke(HookPosTxError, err, a.Name())

			errs = append(errs, fmt.Errorf("process TX queue of %s: %w", a.Name(), err))
		}
	}

	for _, a := range adapters {
		for i := 0; i < m.rxBudget; i++ {
			t, ok := a.Receive()
			if !ok {
				break
			}

			m.dispatch(a.Name(), t, now)
			t.Release()
		}
	}

	return errors.Join(errs...)
}

func (m *Manager) dispatch(adapter string, t *cyphal.Transfer, now timing.Tick) {
	var receivers []string

	for _, h := range m.route(t) {
		h.HandleMessage(t)

		if named, ok := h.(task.Task); ok {
			receivers = append(receivers, named.TaskBase().Name())
		}
	}

	d := Dispatch{Adapter: adapter, Now: now, Receivers: receivers}

	if len(receivers) == 0 {
		m.counters.Unroutable++
		m.log.V(logging.DEBUG).Info("unroutable transfer dropped",
			"adapter", adapter, "kind", t.Kind, "port", t.Port, "source", t.Source)
		m.invoke(HookPosTransferUnroutable, t, d)

		return
	}

	m.counters.Dispatched++
	m.log.V(logging.TRACE).Info("transfer dispatched",
		"adapter", adapter, "kind", t.Kind, "port", t.Port, "receivers", receivers)
	m.invoke(HookPosTransferDispatched, t, d)
}

func (m *Manager) route(t *cyphal.Transfer) []task.Handler {
	switch t.Kind {
	case cyphal.KindMessage:
		var out []task.Handler

		for _, s := range m.reg.SubscribersOf(t.Port) {
			if h, ok := s.(task.Handler); ok {
				out = append(out, h)
			}
		}

		return out

	case cyphal.KindRequest:
		s, ok := m.services.Server(t.Port)
		if !ok {
			return nil
		}

		if h, ok := s.(task.Handler); ok {
			return []task.Handler{h}
		}

	case cyphal.KindResponse:
		for _, c := range m.reg.ClientsOf(t.Port) {
			matcher, isMatcher := c.(task.Matcher)
			h, isHandler := c.(task.Handler)

			if isMatcher && isHandler && matcher.Matches(t) {
				return []task.Handler{h}
			}
		}
	}

	return nil
}

func (m *Manager) invoke(pos *hooking.HookPos, item, detail any) {
	m.Emit(m, pos, item, detail)
}
