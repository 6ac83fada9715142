package loopback

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
)

func message(port cyphal.PortID, payload ...byte) *cyphal.Transfer {
	return cyphal.NewTransfer(cyphal.Metadata{
		Kind:        cyphal.KindMessage,
		Priority:    cyphal.PriorityNominal,
		Port:        port,
		Source:      11,
		Destination: cyphal.NodeIDUnset,
	}, payload)
}

var _ = Describe("Adapter", func() {
	var (
		h     *heap.Heap
		clock *timing.ManualClock
		a     *Adapter
	)

	BeforeEach(func() {
		h = heap.New(4096)
		clock = timing.NewManualClock(0)
		a = MakeBuilder().
			WithHeap(h).
			WithClock(clock).
			WithNodeID(11).
			WithQueueCapacity(2).
			Build("Loopback")
	})

	It("should not deliver before the TX queue is processed", func() {
		Expect(a.Subscribe(cyphal.KindMessage, 7509, 12, timing.Second)).To(Succeed())
		Expect(a.Push(message(7509, 1, 2), timing.Second)).To(Succeed())

		_, ok := a.Receive()
		Expect(ok).To(BeFalse())

		Expect(a.ProcessTxQueue()).To(Succeed())

		t, ok := a.Receive()
		Expect(ok).To(BeTrue())
		Expect(t.Payload()).To(Equal([]byte{1, 2}))
		t.Release()
		Expect(h.Diagnostics().Allocated).To(BeZero())
	})

	It("should copy the payload on push", func() {
		a.Subscribe(cyphal.KindMessage, 7509, 12, timing.Second)
		src := message(7509, 5)

		a.Push(src, timing.Second)
		src.Payload()[0] = 6
		a.ProcessTxQueue()

		t, _ := a.Receive()
		Expect(t.Payload()).To(Equal([]byte{5}))
	})

	It("should drop transfers on unsubscribed ports", func() {
		a.Push(message(1200, 1), timing.Second)
		a.ProcessTxQueue()

		_, ok := a.Receive()
		Expect(ok).To(BeFalse())
		Expect(a.Diagnostics().RxIgnored).To(Equal(uint64(1)))
		Expect(h.Diagnostics().Allocated).To(BeZero())
	})

	It("should truncate to the extent", func() {
		a.Subscribe(cyphal.KindMessage, 7509, 2, timing.Second)
		a.Push(message(7509, 1, 2, 3, 4), timing.Second)
		a.ProcessTxQueue()

		t, _ := a.Receive()
		Expect(t.Payload()).To(Equal([]byte{1, 2}))
	})

	It("should report a full queue", func() {
		Expect(a.Push(message(7509), timing.Second)).To(Succeed())
		Expect(a.Push(message(7509), timing.Second)).To(Succeed())

		err := a.Push(message(7509), timing.Second)
		Expect(errors.Is(err, transport.ErrQueueFull)).To(BeTrue())
		Expect(a.Diagnostics().TxDropped).To(Equal(uint64(1)))
	})

	It("should report an exhausted heap", func() {
		small := MakeBuilder().WithHeap(heap.New(32)).WithClock(clock).Build("Small")

		err := small.Push(message(7509, make([]byte, 64)...), timing.Second)

		Expect(errors.Is(err, transport.ErrOutOfMemory)).To(BeTrue())
		Expect(small.Diagnostics().OOMCount).To(Equal(uint64(1)))
	})

	It("should reject invalid transfers", func() {
		bad := message(7509)
		bad.Destination = 3

		Expect(errors.Is(a.Push(bad, timing.Second), transport.ErrInvalidTransfer)).To(BeTrue())
	})

	It("should drop expired transfers", func() {
		a.Subscribe(cyphal.KindMessage, 7509, 12, timing.Second)
		a.Push(message(7509, 1), 10)
		clock.Advance(11)

		a.ProcessTxQueue()

		_, ok := a.Receive()
		Expect(ok).To(BeFalse())
		Expect(a.Diagnostics().TxDropped).To(Equal(uint64(1)))
		Expect(h.Diagnostics().Allocated).To(BeZero())
	})

	It("should stop moving when the receive side is full", func() {
		a.Subscribe(cyphal.KindMessage, 7509, 12, timing.Second)
		a.Push(message(7509, 1), timing.Second)
		a.Push(message(7509, 2), timing.Second)
		a.ProcessTxQueue()
		a.Push(message(7509, 3), timing.Second)
		a.ProcessTxQueue()

		Expect(a.Diagnostics().TxQueueLen).To(Equal(1))
		Expect(a.Diagnostics().TxBusy).To(Equal(uint64(1)))

		for _, want := range []byte{1, 2} {
			t, ok := a.Receive()
			Expect(ok).To(BeTrue())
			Expect(t.Payload()).To(Equal([]byte{want}))
		}

		a.ProcessTxQueue()
		t, _ := a.Receive()
		Expect(t.Payload()).To(Equal([]byte{3}))
	})

	It("should only loop back requests addressed to this node", func() {
		a.Subscribe(cyphal.KindRequest, 430, 0, timing.Second)
		meta := cyphal.Metadata{
			Kind:        cyphal.KindRequest,
			Port:        430,
			Source:      11,
			Destination: 12,
		}
		a.Push(cyphal.NewTransfer(meta, nil), timing.Second)
		meta.Destination = 11
		a.Push(cyphal.NewTransfer(meta, nil), timing.Second)
		a.ProcessTxQueue()

		t, ok := a.Receive()
		Expect(ok).To(BeTrue())
		Expect(t.Destination).To(Equal(cyphal.NodeID(11)))
		Expect(a.Diagnostics().RxIgnored).To(Equal(uint64(1)))
	})
})
