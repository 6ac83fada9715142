// Package registry keeps the directory of which task subscribes to, publishes
// on, serves, or calls which port.
package registry

import (
	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/logging"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
)

// Entry binds a port to the task that registered it.
type Entry struct {
	Port cyphal.PortID
	Task task.Task
}

// Manager is the registration directory. Ports that are not in the static
// tables are ignored, and every registration is idempotent.
type Manager struct {
	log logr.Logger

	subscriptions []Entry
	publications  []Entry
	servers       []Entry
	clients       []Entry
	handlers      []task.Task
	added         map[task.Task]bool

	ignored uint64
}

var _ task.Registrar = (*Manager)(nil)

// NewManager creates an empty directory.
func NewManager(log logr.Logger) *Manager {
	return &Manager{log: log, added: make(map[task.Task]bool)}
}

// Add makes t a handler whether or not it registers any port. Periodic tasks
// that neither send nor receive are polled this way. It reports whether t was
// not added before.
func (m *Manager) Add(t task.Task) bool {
	if m.added[t] {
		return false
	}

	m.added[t] = true
	m.addHandler(t)

	return true
}

// Subscribe registers t as a subscriber of a message port.
func (m *Manager) Subscribe(port cyphal.PortID, t task.Task) bool {
	return m.add(&m.subscriptions, cyphal.Messages, port, t)
}

// SubscribeAll subscribes t to every port in ports and returns how many
// entries were added.
func (m *Manager) SubscribeAll(ports []cyphal.PortID, t task.Task) int {
	n := 0

	for _, p := range ports {
		if m.Subscribe(p, t) {
			n++
		}
	}

	return n
}

// Unsubscribe removes the subscription of t to port.
func (m *Manager) Unsubscribe(port cyphal.PortID, t task.Task) bool {
	return m.remove(&m.subscriptions, port, t)
}

// Publish registers t as a publisher on a message port.
func (m *Manager) Publish(port cyphal.PortID, t task.Task) bool {
	return m.add(&m.publications, cyphal.Messages, port, t)
}

// Unpublish removes the publication of t on port.
func (m *Manager) Unpublish(port cyphal.PortID, t task.Task) bool {
	return m.remove(&m.publications, port, t)
}

// AddServer registers t as the handler of requests on port. A port can
// have only one server; a second one is rejected.
func (m *Manager) AddServer(port cyphal.PortID, t task.Task) bool {
	if owner, ok := m.ServerOf(port); ok && owner != t {
		m.log.Info("port already has a server",
			"port", port, "server", owner.TaskBase().Name(), "rejected", t.TaskBase().Name())

		return false
	}

	return m.add(&m.servers, cyphal.Requests, port, t)
}

// RemoveServer removes t as the server of port.
func (m *Manager) RemoveServer(port cyphal.PortID, t task.Task) bool {
	return m.remove(&m.servers, port, t)
}

// AddClient registers t as a client that receives responses on port.
func (m *Manager) AddClient(port cyphal.PortID, t task.Task) bool {
	return m.add(&m.clients, cyphal.Responses, port, t)
}

// RemoveClient removes t as a client of port.
func (m *Manager) RemoveClient(port cyphal.PortID, t task.Task) bool {
	return m.remove(&m.clients, port, t)
}

// Unregister removes every entry of t.
func (m *Manager) Unregister(t task.Task) {
	for _, list := range []*[]Entry{
		&m.subscriptions, &m.publications, &m.servers, &m.clients,
	} {
		*list = removeTask(*list, t)
	}

	delete(m.added, t)
	m.dropHandler(t)
}

// Subscriptions returns the message subscriptions in registration order.
func (m *Manager) Subscriptions() []Entry {
	return append([]Entry(nil), m.subscriptions...)
}

// Publications returns the message publications in registration order.
func (m *Manager) Publications() []Entry {
	return append([]Entry(nil), m.publications...)
}

// Servers returns the request servers in registration order.
func (m *Manager) Servers() []Entry {
	return append([]Entry(nil), m.servers...)
}

// Clients returns the response clients in registration order.
func (m *Manager) Clients() []Entry {
	return append([]Entry(nil), m.clients...)
}

// Handlers returns every added task and every task with at least one entry,
// in the order they first registered.
func (m *Manager) Handlers() []task.Task {
	return append([]task.Task(nil), m.handlers...)
}

// Ignored returns how many registrations named a port missing from the
// static tables.
func (m *Manager) Ignored() uint64 {
	return m.ignored
}

// SubscribersOf returns the tasks subscribed to a message port.
func (m *Manager) SubscribersOf(port cyphal.PortID) []task.Task {
	return tasksOn(m.subscriptions, port)
}

// ClientsOf returns the tasks that receive responses on port.
func (m *Manager) ClientsOf(port cyphal.PortID) []task.Task {
	return tasksOn(m.clients, port)
}

// ServerOf returns the task that serves requests on port.
func (m *Manager) ServerOf(port cyphal.PortID) (task.Task, bool) {
	for _, e := range m.servers {
		if e.Port == port {
			return e.Task, true
		}
	}

	return nil, false
}

// Ports returns the distinct ports of a list of entries, in the order they
// first appear.
func Ports(entries []Entry) []cyphal.PortID {
	var ports []cyphal.PortID

	seen := make(map[cyphal.PortID]bool, len(entries))
	for _, e := range entries {
		if !seen[e.Port] {
			seen[e.Port] = true
			ports = append(ports, e.Port)
		}
	}

	return ports
}

func (m *Manager) add(list *[]Entry, table cyphal.Table, port cyphal.PortID, t task.Task) bool {
	if !table.Contains(port) {
		m.ignored++
		m.log.V(logging.DEBUG).Info("port not in static table, ignored",
			"table", table.Kind(), "port", port, "task", t.TaskBase().Name())

		return false
	}

	for _, e := range *list {
		if e.Port == port && e.Task == t {
			return false
		}
	}

	*list = append(*list, Entry{Port: port, Task: t})
	m.addHandler(t)

	return true
}

func (m *Manager) remove(list *[]Entry, port cyphal.PortID, t task.Task) bool {
	for i, e := range *list {
		if e.Port == port && e.Task == t {
			*list = append((*list)[:i], (*list)[i+1:]...)
			if !m.added[t] && !m.hasEntries(t) {
				m.dropHandler(t)
			}

			return true
		}
	}

	return false
}

func (m *Manager) addHandler(t task.Task) {
	for _, h := range m.handlers {
		if h == t {
			return
		}
	}

	m.handlers = append(m.handlers, t)
}

func (m *Manager) dropHandler(t task.Task) {
	for i, h := range m.handlers {
		if h == t {
			m.handlers = append(m.handlers[:i], m.handlers[i+1:]...)
			return
		}
	}
}

func (m *Manager) hasEntries(t task.Task) bool {
	for _, list := range [][]Entry{m.subscriptions, m.publications, m.servers, m.clients} {
		for _, e := range list {
			if e.Task == t {
				return true
			}
		}
	}

	return false
}

func removeTask(list []Entry, t task.Task) []Entry {
	kept := list[:0]

	for _, e := range list {
		if e.Task != t {
			kept = append(kept, e)
		}
	}

	clear(list[len(kept):])

	return kept
}

func tasksOn(list []Entry, port cyphal.PortID) []task.Task {
	var out []task.Task

	for _, e := range list {
		if e.Port == port {
			out = append(out, e.Task)
		}
	}

	return out
}
