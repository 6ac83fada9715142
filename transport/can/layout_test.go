package can

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
)

var _ = Describe("Framing", func() {
	It("should round frame lengths up to valid DLC values", func() {
		Expect(RoundUpFrameLength(8)).To(Equal(8))
		Expect(RoundUpFrameLength(9)).To(Equal(12))
		Expect(RoundUpFrameLength(33)).To(Equal(48))
		Expect(RoundUpFrameLength(64)).To(Equal(64))
	})

	It("should lay out classic multi-frame transfers", func() {
		l := layout(20, MTUClassic)

		Expect(l.frames).To(Equal(4))
		Expect(l.padding).To(BeZero())
		Expect(l.frameLen(0)).To(Equal(8))
		Expect(l.frameLen(3)).To(Equal(2))
	})

	It("should pad CAN FD transfers", func() {
		single := layout(10, MTUFD)
		Expect(single.frames).To(Equal(1))
		Expect(single.frameLen(0)).To(Equal(12))

		multi := layout(100, MTUFD)
		Expect(multi.frames).To(Equal(2))
		Expect(multi.padding).To(Equal(8))
		Expect(multi.frameLen(1)).To(Equal(48))
	})

	It("should encode and decode service identifiers", func() {
		id := makeServiceID(cyphal.PriorityFast, true, 430, 20, 10)
		p, ok := parseID(id)

		Expect(ok).To(BeTrue())
		Expect(p.kind).To(Equal(cyphal.KindRequest))
		Expect(p.priority).To(Equal(cyphal.PriorityFast))
		Expect(p.port).To(Equal(cyphal.PortID(430)))
		Expect(p.destination).To(Equal(cyphal.NodeID(20)))
		Expect(p.source).To(Equal(cyphal.NodeID(10)))
	})

	It("should reject a service frame sent to its own source", func() {
		_, ok := parseID(makeServiceID(cyphal.PriorityFast, false, 430, 10, 10))

		Expect(ok).To(BeFalse())
	})

	It("should match message filters", func() {
		f := messageFilter(7509)

		Expect(f.Accepts(makeMessageID(cyphal.PriorityLow, 7509, 3, false))).To(BeTrue())
		Expect(f.Accepts(makeMessageID(cyphal.PriorityLow, 7510, 3, false))).To(BeFalse())
		Expect(f.Accepts(makeServiceID(cyphal.PriorityLow, true, 7509&0x1FF, 1, 2))).To(BeFalse())
	})
})
