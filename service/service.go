// Package service drives the registered tasks and maps request ports to the
// task that serves them.
package service

import (
	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/logging"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/registry"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

// Manager polls every registered task and knows which task serves which
// request port. It takes a snapshot of the directory; call Refresh after the
// registrations change.
type Manager struct {
	reg *registry.Manager
	log logr.Logger

	handlers []task.Task
	servers  map[cyphal.PortID]task.Task
}

// New creates a manager over the directory.
func New(reg *registry.Manager, log logr.Logger) *Manager {
	m := &Manager{reg: reg, log: log}
	m.Refresh()

	return m
}

// Refresh reloads the handlers and servers from the directory.
func (m *Manager) Refresh() {
	m.handlers = m.reg.Handlers()
	m.servers = make(map[cyphal.PortID]task.Task)

	for _, e := range m.reg.Servers() {
		m.servers[e.Port] = e.Task
	}

	m.log.V(logging.VERBOSE).Info("services refreshed",
		"handlers", len(m.handlers), "servers", len(m.servers))
}

// InitializeServices sets the first-period baseline of every handler.
func (m *Manager) InitializeServices(now timing.Tick) {
	for _, t := range m.handlers {
		t.TaskBase().Initialize(now)
	}
}

// HandleServices polls every handler once and returns how many ran.
func (m *Manager) HandleServices(now timing.Tick) int {
	ran := 0

	for _, t := range m.handlers {
		if task.Handle(t, now) {
			ran++
		}
	}

	return ran
}

// Server returns the task that serves requests on port.
func (m *Manager) Server(port cyphal.PortID) (task.Task, bool) {
	t, ok := m.servers[port]
	return t, ok
}

// Handlers returns the polled tasks.
func (m *Manager) Handlers() []task.Task {
	return append([]task.Task(nil), m.handlers...)
}

// NumServers returns the number of served request ports.
func (m *Manager) NumServers() int {
	return len(m.servers)
}
