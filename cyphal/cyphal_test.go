package cyphal

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
)

var _ = Describe("Metadata", func() {
	It("should accept a broadcast message", func() {
		m := Metadata{
			Kind:        KindMessage,
			Priority:    PriorityNominal,
			Port:        PortHeartbeat,
			Source:      12,
			Destination: NodeIDUnset,
		}

		Expect(m.Validate()).To(Succeed())
	})

	It("should reject a message with a destination", func() {
		m := Metadata{Kind: KindMessage, Port: PortHeartbeat, Source: 1, Destination: 2}

		err := m.Validate()
		Expect(errors.Is(err, ErrInvalidTransfer)).To(BeTrue())
	})

	It("should reject a request without a destination", func() {
		m := Metadata{Kind: KindRequest, Port: PortGetInfo, Source: 1, Destination: NodeIDUnset}

		Expect(errors.Is(m.Validate(), ErrInvalidTransfer)).To(BeTrue())
	})

	It("should reject out-of-range port IDs", func() {
		msg := Metadata{Kind: KindMessage, Port: 8192, Source: 1, Destination: NodeIDUnset}
		req := Metadata{Kind: KindRequest, Port: 512, Source: 1, Destination: 2}

		Expect(msg.Validate()).NotTo(Succeed())
		Expect(req.Validate()).NotTo(Succeed())
	})

	It("should accept a response", func() {
		m := Metadata{Kind: KindResponse, Port: PortGetInfo, Source: 2, Destination: 1}

		Expect(m.Validate()).To(Succeed())
	})
})

var _ = Describe("Transfer", func() {
	var h *heap.Heap

	BeforeEach(func() {
		h = heap.New(1024)
	})

	It("should own an allocated payload until released", func() {
		t, ok := AllocateTransfer(h, Metadata{Kind: KindMessage}, 10)
		Expect(ok).To(BeTrue())
		Expect(t.Owned()).To(BeTrue())
		Expect(t.Len()).To(Equal(10))
		Expect(h.Diagnostics().Allocated).To(Equal(32))

		t.Release()
		t.Release()

		Expect(t.Owned()).To(BeFalse())
		Expect(h.Diagnostics().Allocated).To(BeZero())
	})

	It("should clone into an independent block", func() {
		src := NewTransfer(Metadata{Kind: KindMessage, Port: 7}, []byte{1, 2, 3})
		src.Timestamp = 99

		c, ok := src.Clone(h)
		Expect(ok).To(BeTrue())
		Expect(c.Payload()).To(Equal([]byte{1, 2, 3}))
		Expect(c.Timestamp).To(Equal(src.Timestamp))

		src.Payload()[0] = 9
		Expect(c.Payload()[0]).To(Equal(byte(1)))
		Expect(src.Owned()).To(BeFalse())
	})

	It("should fail to allocate beyond the heap", func() {
		_, ok := AllocateTransfer(h, Metadata{}, 2048)

		Expect(ok).To(BeFalse())
		Expect(h.Diagnostics().OOMCount).To(Equal(uint64(1)))
	})

	It("should allow empty payloads without touching the heap", func() {
		t, ok := AllocateTransfer(h, Metadata{Kind: KindRequest}, 0)

		Expect(ok).To(BeTrue())
		Expect(t.Len()).To(BeZero())
		Expect(h.Diagnostics().Allocated).To(BeZero())
	})

	It("should truncate", func() {
		t := NewTransfer(Metadata{}, []byte{1, 2, 3, 4})
		t.Truncate(2)
		t.Truncate(5)

		Expect(t.Payload()).To(Equal([]byte{1, 2}))
	})
})

var _ = Describe("Tables", func() {
	It("should find known ports", func() {
		s, ok := Messages.Find(PortHeartbeat)

		Expect(ok).To(BeTrue())
		Expect(s.Extent).To(Equal(12))
		Expect(s.Kind).To(Equal(KindMessage))
	})

	It("should keep the request and response extents apart", func() {
		req, _ := Lookup(KindRequest, PortGetInfo)
		resp, _ := Lookup(KindResponse, PortGetInfo)

		Expect(req.Extent).To(Equal(0))
		Expect(resp.Extent).To(Equal(448))
	})

	It("should return false for unknown ports", func() {
		_, ok := Messages.Find(1234)
		Expect(ok).To(BeFalse())

		_, ok = Lookup(KindRequest, PortHeartbeat)
		Expect(ok).To(BeFalse())
	})

	It("should be sorted by port", func() {
		entries := Messages.Entries()
		for i := 1; i < len(entries); i++ {
			Expect(entries[i].Port).To(BeNumerically(">", entries[i-1].Port))
		}
	})

	It("should not leak its entries", func() {
		entries := Messages.Entries()
		entries[0].Extent = 1

		s, _ := Messages.Find(entries[0].Port)
		Expect(s.Extent).NotTo(Equal(1))
	})

	It("should panic on a missing constant port", func() {
		Expect(func() { MustFind(Requests, PortHeartbeat) }).To(Panic())
		Expect(MustFind(Responses, PortExecuteCommand).Extent).To(Equal(48))
	})

	It("should reject duplicate ports when building a table", func() {
		Expect(func() {
			newTable(KindMessage,
				Subscription{Port: 1}, Subscription{Port: 1})
		}).To(Panic())
	})
})
