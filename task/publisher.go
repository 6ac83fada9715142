package task

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/dsdl"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/logging"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
)

// transferIDMatchModulus is the smallest transfer-ID modulus of any
// transport. Responses are matched modulo it so that a request whose ID
// wrapped on CAN still finds its reply.
const transferIDMatchModulus = 32

type counterKey struct {
	kind        cyphal.Kind
	port        cyphal.PortID
	destination cyphal.NodeID
}

type pendingRequest struct {
	port        cyphal.PortID
	destination cyphal.NodeID
	transferID  cyphal.TransferID
	issued      timing.Tick
}

// Publisher sends transfers on behalf of a task over every adapter it was
// given. It keeps one transfer-ID counter per port and destination, and
// remembers the requests that still await a response.
type Publisher struct {
	nodeID   cyphal.NodeID
	priority cyphal.Priority
	timeout  timing.Tick
	adapters []transport.Adapter
	log      logr.Logger

	counters map[counterKey]cyphal.TransferID
	pending  []pendingRequest
	failures uint64
}

// NewPublisher creates a publisher that sends as nodeID. Transfers not sent
// within timeout ticks are dropped by the adapters.
func NewPublisher(
	nodeID cyphal.NodeID,
	timeout timing.Tick,
	adapters ...transport.Adapter,
) Publisher {
	return Publisher{
		nodeID:   nodeID,
		priority: cyphal.PriorityNominal,
		timeout:  timeout,
		adapters: adapters,
		log:      logr.Discard(),
		counters: make(map[counterKey]cyphal.TransferID),
	}
}

// SetPriority sets the priority of subsequent transfers.
func (p *Publisher) SetPriority(prio cyphal.Priority) {
	p.priority = prio
}

// SetLogger sets the logger.
func (p *Publisher) SetLogger(l logr.Logger) {
	p.log = l
}

// Logger returns the logger of the publisher.
func (p *Publisher) Logger() logr.Logger {
	return p.log
}

// NodeID returns the local node ID.
func (p *Publisher) NodeID() cyphal.NodeID {
	return p.nodeID
}

// Adapters returns the adapters the publisher sends over.
func (p *Publisher) Adapters() []transport.Adapter {
	return p.adapters
}

// Failures returns how many serializations and adapter pushes have failed.
func (p *Publisher) Failures() uint64 {
	return p.failures
}

// NextTransferID returns the transfer ID the next transfer of the given kind
// to the given port and destination would carry.
func (p *Publisher) NextTransferID(
	kind cyphal.Kind,
	port cyphal.PortID,
	destination cyphal.NodeID,
) cyphal.TransferID {
	return p.counters[counterKey{kind: kind, port: port, destination: destination}]
}

// Publish sends a message on port.
func (p *Publisher) Publish(port cyphal.PortID, payload []byte) error {
	meta := cyphal.Metadata{
		Kind:        cyphal.KindMessage,
		Priority:    p.priority,
		Port:        port,
		Source:      p.nodeID,
		Destination: cyphal.NodeIDUnset,
		TransferID:  p.advance(cyphal.KindMessage, port, cyphal.NodeIDUnset),
	}

	_, err := p.push(meta, payload)

	return err
}

// Request sends a service request to destination and records it as pending.
// It returns the transfer ID the response will carry.
func (p *Publisher) Request(
	port cyphal.PortID,
	destination cyphal.NodeID,
	payload []byte,
	now timing.Tick,
) (cyphal.TransferID, error) {
	meta := cyphal.Metadata{
		Kind:        cyphal.KindRequest,
		Priority:    p.priority,
		Port:        port,
		Source:      p.nodeID,
		Destination: destination,
		TransferID:  p.advance(cyphal.KindRequest, port, destination),
	}

	failed, err := p.push(meta, payload)
	if failed == len(p.adapters) {
		return meta.TransferID, err
	}

	p.pending = append(p.pending, pendingRequest{
		port:        port,
		destination: destination,
		transferID:  meta.TransferID,
		issued:      now,
	})

	return meta.TransferID, err
}

// Respond answers req. The response carries the transfer ID of the request.
func (p *Publisher) Respond(req *cyphal.Transfer, payload []byte) error {
	if req.Kind != cyphal.KindRequest {
		return fmt.Errorf("respond to %s on port %d: %w",
			req.Kind, req.Port, cyphal.ErrInvalidTransfer)
	}

	meta := cyphal.Metadata{
		Kind:        cyphal.KindResponse,
		Priority:    req.Priority,
		Port:        req.Port,
		Source:      p.nodeID,
		Destination: req.Source,
		TransferID:  req.TransferID,
	}

	_, err := p.push(meta, payload)

	return err
}

// Pending returns the number of requests awaiting a response.
func (p *Publisher) Pending() int {
	return len(p.pending)
}

// Matches reports whether t is the response to one of the pending requests.
func (p *Publisher) Matches(t *cyphal.Transfer) bool {
	return p.findPending(t) >= 0
}

// Resolve removes the pending request t answers. It reports whether there
// was one.
func (p *Publisher) Resolve(t *cyphal.Transfer) bool {
	i := p.findPending(t)
	if i < 0 {
		return false
	}

	p.pending = append(p.pending[:i], p.pending[i+1:]...)

	return true
}

// ExpirePending forgets requests issued more than timeout ticks before now
// and returns how many were dropped.
func (p *Publisher) ExpirePending(now, timeout timing.Tick) int {
	kept := p.pending[:0]

	for _, r := range p.pending {
		if now-r.issued <= timeout {
			kept = append(kept, r)
		}
	}

	expired := len(p.pending) - len(kept)
	p.pending = kept

	return expired
}

func (p *Publisher) findPending(t *cyphal.Transfer) int {
	if t.Kind != cyphal.KindResponse {
		return -1
	}

	for i, r := range p.pending {
		if r.port == t.Port &&
			r.destination == t.Source &&
			r.transferID%transferIDMatchModulus == t.TransferID%transferIDMatchModulus {
			return i
		}
	}

	return -1
}

func (p *Publisher) advance(
	kind cyphal.Kind,
	port cyphal.PortID,
	destination cyphal.NodeID,
) cyphal.TransferID {
	key := counterKey{kind: kind, port: port, destination: destination}
	id := p.counters[key]
	p.counters[key] = id + 1

	return id
}

type pushError struct {
	adapter string
	err     error
}

func (e *pushError) Error() string {
	return fmt.Sprintf("push to %s: %v", e.adapter, e.err)
}

func (e *pushError) Unwrap() error {
	return e.err
}

func (p *Publisher) push(meta cyphal.Metadata, payload []byte) (failed int, err error) {
	t := cyphal.NewTransfer(meta, payload)

	var errs []error

	for _, a := range p.adapters {
		err := a.Push(t, p.timeout)
		if err == nil {
			continue
		}

		p.failures++
		errs = append(errs, &pushError{adapter: a.Name(), err: err})

		p.log.V(logging.VERBOSE).Info("push failed",
			"adapter", a.Name(), "port", meta.Port, "kind", meta.Kind, "err", err)
	}

	return len(errs), errors.Join(errs...)
}

func (p *Publisher) serializeFailed(what string, port cyphal.PortID, err error) error {
	p.failures++
	p.log.V(logging.DEFAULT).Info("serialization failed", "kind", what, "port", port, "err", err)

	return fmt.Errorf("serialize %s for port %d: %w", what, port, err)
}

// PublishValue serializes v into buf and publishes it.
func PublishValue[T any](
	p *Publisher,
	port cyphal.PortID,
	buf []byte,
	v *T,
	serialize dsdl.Serializer[T],
) error {
	n, err := serialize(v, buf)
	if err != nil {
		return p.serializeFailed("message", port, err)
	}

	return p.Publish(port, buf[:n])
}

// RequestValue serializes v into buf and sends it as a request.
func RequestValue[T any](
	p *Publisher,
	port cyphal.PortID,
	destination cyphal.NodeID,
	buf []byte,
	v *T,
	serialize dsdl.Serializer[T],
	now timing.Tick,
) (cyphal.TransferID, error) {
	n, err := serialize(v, buf)
	if err != nil {
		return 0, p.serializeFailed("request", port, err)
	}

	return p.Request(port, destination, buf[:n], now)
}

// RespondValue serializes v into buf and sends it as the response to req.
func RespondValue[T any](
	p *Publisher,
	req *cyphal.Transfer,
	buf []byte,
	v *T,
	serialize dsdl.Serializer[T],
) error {
	n, err := serialize(v, buf)
	if err != nil {
		return p.serializeFailed("response", req.Port, err)
	}

	return p.Respond(req, buf[:n])
}
