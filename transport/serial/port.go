package serial

import (
	"sync"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/queueing"
)

// Port is a non-blocking UART. Write accepts as many bytes as fit in the
// transmit buffer and reports how many; Read returns whatever has arrived,
// possibly nothing.
type Port interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
}

// SimPort is one end of a SimLink.
type SimPort struct {
	lock *sync.Mutex
	in   *queueing.Buffer[byte]
	out  *queueing.Buffer[byte]
}

var _ Port = (*SimPort)(nil)

// NewSimLink creates two ports wired back to back. Each direction buffers up
// to capacity bytes; writes beyond that are partial.
func NewSimLink(capacity int) (*SimPort, *SimPort) {
	lock := &sync.Mutex{}
	ab := queueing.NewBuffer[byte]("SimLink.AB", capacity)
	ba := queueing.NewBuffer[byte]("SimLink.BA", capacity)

	return &SimPort{lock: lock, in: ba, out: ab},
		&SimPort{lock: lock, in: ab, out: ba}
}

// Write queues bytes toward the other end.
func (p *SimPort) Write(data []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	n := 0
	for _, b := range data {
		if !p.out.Push(b) {
			break
		}

		n++
	}

	return n, nil
}

// Read takes bytes sent by the other end.
func (p *SimPort) Read(data []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	n := 0
	for n < len(data) {
		b, ok := p.in.Pop()
		if !ok {
			break
		}

		data[n] = b
		n++
	}

	return n, nil
}

// Pending returns the number of bytes waiting to be read at this end.
func (p *SimPort) Pending() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.in.Size()
}
