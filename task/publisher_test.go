package task

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/dsdl"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport/loopback"
)

func receiveAll(a *loopback.Adapter) []*cyphal.Transfer {
	Expect(a.ProcessTxQueue()).To(Succeed())

	var out []*cyphal.Transfer
	for {
		t, ok := a.Receive()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}

var _ = Describe("Publisher", func() {
	var (
		h  *heap.Heap
		lo *loopback.Adapter
		p  Publisher
	)

	BeforeEach(func() {
		h = heap.New(8192)
		lo = loopback.MakeBuilder().
			WithHeap(h).
			WithClock(timing.NewManualClock(0)).
			WithNodeID(11).
			Build("Loopback")
		p = NewPublisher(11, timing.Second, lo)
	})

	It("should keep a transfer-ID counter per port", func() {
		lo.Subscribe(cyphal.KindMessage, cyphal.PortHeartbeat, 12, timing.Second)
		lo.Subscribe(cyphal.KindMessage, cyphal.PortHeapStatus, 64, timing.Second)

		Expect(p.Publish(cyphal.PortHeartbeat, []byte{1})).To(Succeed())
		Expect(p.Publish(cyphal.PortHeartbeat, []byte{2})).To(Succeed())
		Expect(p.Publish(cyphal.PortHeapStatus, []byte{3})).To(Succeed())

		got := receiveAll(lo)
		Expect(got).To(HaveLen(3))
		Expect(got[0].TransferID).To(Equal(cyphal.TransferID(0)))
		Expect(got[1].TransferID).To(Equal(cyphal.TransferID(1)))
		Expect(got[2].TransferID).To(Equal(cyphal.TransferID(0)))
		Expect(got[0].Source).To(Equal(cyphal.NodeID(11)))
		Expect(p.NextTransferID(cyphal.KindMessage, cyphal.PortHeartbeat, cyphal.NodeIDUnset)).
			To(Equal(cyphal.TransferID(2)))

		for _, t := range got {
			t.Release()
		}
	})

	It("should serialize values before publishing", func() {
		lo.Subscribe(cyphal.KindMessage, cyphal.PortHeartbeat, 12, timing.Second)

		buf := make([]byte, dsdl.HeartbeatSize)
		hb := dsdl.Heartbeat{Uptime: 42, Mode: dsdl.ModeMaintenance}
		Expect(PublishValue(&p, cyphal.PortHeartbeat, buf, &hb, dsdl.SerializeHeartbeat)).
			To(Succeed())

		got := receiveAll(lo)
		Expect(got).To(HaveLen(1))

		decoded, err := dsdl.DeserializeHeartbeat(got[0].Payload())
		Expect(err).ToNot(HaveOccurred())
		Expect(decoded).To(Equal(hb))
		got[0].Release()
	})

	It("should report serializer failures", func() {
		hb := dsdl.Heartbeat{}
		err := PublishValue(&p, cyphal.PortHeartbeat, make([]byte, 2), &hb, dsdl.SerializeHeartbeat)
		Expect(errors.Is(err, dsdl.ErrBufferTooSmall)).To(BeTrue())
	})

	It("should answer a request with its transfer ID", func() {
		lo.Subscribe(cyphal.KindResponse, cyphal.PortGetInfo, 448, timing.Second)

		req := cyphal.NewTransfer(cyphal.Metadata{
			Kind:        cyphal.KindRequest,
			Priority:    cyphal.PriorityHigh,
			Port:        cyphal.PortGetInfo,
			Source:      11,
			Destination: 11,
			TransferID:  17,
		}, nil)

		Expect(p.Respond(req, []byte{9})).To(Succeed())

		got := receiveAll(lo)
		Expect(got).To(HaveLen(1))
		Expect(got[0].Kind).To(Equal(cyphal.KindResponse))
		Expect(got[0].TransferID).To(Equal(cyphal.TransferID(17)))
		Expect(got[0].Destination).To(Equal(cyphal.NodeID(11)))
		Expect(got[0].Priority).To(Equal(cyphal.PriorityHigh))
		got[0].Release()
	})

	It("should refuse to respond to a message", func() {
		msg := cyphal.NewTransfer(cyphal.Metadata{
			Kind:        cyphal.KindMessage,
			Port:        cyphal.PortHeartbeat,
			Destination: cyphal.NodeIDUnset,
		}, nil)

		Expect(errors.Is(p.Respond(msg, nil), cyphal.ErrInvalidTransfer)).To(BeTrue())
	})

	Context("when requests are pending", func() {
		response := func(source cyphal.NodeID, id cyphal.TransferID) *cyphal.Transfer {
			return cyphal.NewTransfer(cyphal.Metadata{
				Kind:        cyphal.KindResponse,
				Port:        cyphal.PortGetInfo,
				Source:      source,
				Destination: 11,
				TransferID:  id,
			}, nil)
		}

		It("should match the response to the issuing request", func() {
			id, err := p.Request(cyphal.PortGetInfo, 42, nil, 100)
			Expect(err).ToNot(HaveOccurred())
			Expect(p.Pending()).To(Equal(1))

			Expect(p.Matches(response(42, id))).To(BeTrue())
			Expect(p.Matches(response(43, id))).To(BeFalse())
			Expect(p.Matches(response(42, id+1))).To(BeFalse())

			Expect(p.Resolve(response(42, id))).To(BeTrue())
			Expect(p.Pending()).To(BeZero())
			Expect(p.Resolve(response(42, id))).To(BeFalse())
		})

		It("should match a response whose transfer ID wrapped", func() {
			for i := 0; i < 33; i++ {
				p.Request(cyphal.PortGetInfo, 42, nil, 0)
				p.ExpirePending(1000, 10)
			}

			id, _ := p.Request(cyphal.PortGetInfo, 42, nil, 0)
			Expect(id).To(Equal(cyphal.TransferID(33)))
			Expect(p.Matches(response(42, 1))).To(BeTrue())
		})

		It("should expire old requests", func() {
			p.Request(cyphal.PortGetInfo, 42, nil, 100)
			p.Request(cyphal.PortGetInfo, 43, nil, 900)

			Expect(p.ExpirePending(1000, 500)).To(Equal(1))
			Expect(p.Pending()).To(Equal(1))
			Expect(p.Matches(response(43, 0))).To(BeTrue())
		})
	})

	Context("with several adapters", func() {
		var (
			ctrl *gomock.Controller
			a, b *MockAdapter
		)

		BeforeEach(func() {
			ctrl = gomock.NewController(GinkgoT())
			a = NewMockAdapter(ctrl)
			b = NewMockAdapter(ctrl)
			a.EXPECT().Name().Return("A").AnyTimes()
			b.EXPECT().Name().Return("B").AnyTimes()
			p = NewPublisher(11, timing.Second, a, b)
		})

		AfterEach(func() {
			ctrl.Finish()
		})

		It("should push to every adapter and join the failures", func() {
			a.EXPECT().Push(gomock.Any(), timing.Second).Return(nil)
			b.EXPECT().Push(gomock.Any(), timing.Second).Return(transport.ErrQueueFull)

			err := p.Publish(cyphal.PortHeartbeat, []byte{1})

			Expect(errors.Is(err, transport.ErrQueueFull)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("push to B"))
			Expect(p.Failures()).To(Equal(uint64(1)))
		})

		It("should still record a request that reached one adapter", func() {
			a.EXPECT().Push(gomock.Any(), gomock.Any()).Return(transport.ErrOutOfMemory)
			b.EXPECT().Push(gomock.Any(), gomock.Any()).Return(nil)

			_, err := p.Request(cyphal.PortGetInfo, 42, nil, 0)

			Expect(err).To(HaveOccurred())
			Expect(p.Pending()).To(Equal(1))
		})

		It("should not record a request no adapter accepted", func() {
			a.EXPECT().Push(gomock.Any(), gomock.Any()).Return(transport.ErrQueueFull)
			b.EXPECT().Push(gomock.Any(), gomock.Any()).Return(transport.ErrQueueFull)

			_, err := p.Request(cyphal.PortGetInfo, 42, nil, 0)

			Expect(err).To(HaveOccurred())
			Expect(p.Pending()).To(BeZero())
		})
	})
})
