package transport

import (
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

// Key identifies a port of one kind.
type Key struct {
	Kind cyphal.Kind
	Port cyphal.PortID
}

// Session is the per-port acceptance record an adapter keeps.
type Session struct {
	Key
	Extent            int
	TransferIDTimeout timing.Tick
}

// Subscriptions is the set of ports an adapter accepts.
type Subscriptions struct {
	sessions map[Key]Session
}

// NewSubscriptions creates an empty set.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{sessions: make(map[Key]Session)}
}

// Add accepts a port. Adding it again updates its extent and timeout and
// reports false.
func (s *Subscriptions) Add(kind cyphal.Kind, port cyphal.PortID, extent int, timeout timing.Tick) bool {
	key := Key{Kind: kind, Port: port}
	_, existed := s.sessions[key]

	s.sessions[key] = Session{Key: key, Extent: extent, TransferIDTimeout: timeout}

	return !existed
}

// Remove stops accepting a port. It reports whether the port was present.
func (s *Subscriptions) Remove(kind cyphal.Kind, port cyphal.PortID) bool {
	key := Key{Kind: kind, Port: port}
	_, existed := s.sessions[key]

	delete(s.sessions, key)

	return existed
}

// Find returns the record of a port.
func (s *Subscriptions) Find(kind cyphal.Kind, port cyphal.PortID) (Session, bool) {
	ss, ok := s.sessions[Key{Kind: kind, Port: port}]
	return ss, ok
}

// Len returns the number of accepted ports.
func (s *Subscriptions) Len() int {
	return len(s.sessions)
}

// Each calls f for every accepted port in no particular order.
func (s *Subscriptions) Each(f func(Session)) {
	for _, ss := range s.sessions {
		f(ss)
	}
}
