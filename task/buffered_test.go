package task

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
)

func heartbeat(payload ...byte) *cyphal.Transfer {
	return cyphal.NewTransfer(cyphal.Metadata{
		Kind:        cyphal.KindMessage,
		Port:        cyphal.PortHeartbeat,
		Source:      3,
		Destination: cyphal.NodeIDUnset,
	}, payload)
}

var _ = Describe("Buffered", func() {
	var (
		h *heap.Heap
		b Buffered
	)

	BeforeEach(func() {
		h = heap.New(1024)
		b = NewBuffered("Heartbeats", h, 3)
	})

	It("should pop in arrival order", func() {
		b.HandleMessage(heartbeat(1))
		b.HandleMessage(heartbeat(2))
		b.HandleMessage(heartbeat(3))

		for _, want := range []byte{1, 2, 3} {
			t, ok := b.Pop()
			Expect(ok).To(BeTrue())
			Expect(t.Payload()).To(Equal([]byte{want}))
			t.Release()
		}

		_, ok := b.Pop()
		Expect(ok).To(BeFalse())
		Expect(h.Diagnostics().Allocated).To(BeZero())
	})

	It("should own a copy of the transfer", func() {
		payload := []byte{7, 7}
		b.HandleMessage(heartbeat(payload...))
		payload[0] = 0

		t, _ := b.Pop()
		Expect(t.Owned()).To(BeTrue())
		Expect(t.Payload()).To(Equal([]byte{7, 7}))
		t.Release()
	})

	It("should overwrite the oldest transfer when full", func() {
		for i := byte(1); i <= 5; i++ {
			b.HandleMessage(heartbeat(i))
		}

		Expect(b.Len()).To(Equal(3))
		Expect(b.Overwritten()).To(Equal(uint64(2)))
		Expect(h.Diagnostics().Allocated).To(Equal(3 * heap.Alignment))

		var got []byte
		n := b.Drain(func(t *cyphal.Transfer) {
			got = append(got, t.Payload()[0])
		})

		Expect(n).To(Equal(3))
		Expect(got).To(Equal([]byte{3, 4, 5}))
		Expect(h.Diagnostics().Allocated).To(BeZero())
	})

	It("should count transfers it cannot copy", func() {
		small := NewBuffered("Small", heap.New(32), 4)

		small.HandleMessage(heartbeat(1))
		small.HandleMessage(heartbeat(2))

		Expect(small.Len()).To(Equal(1))
		Expect(small.Dropped()).To(Equal(uint64(1)))
	})
})
