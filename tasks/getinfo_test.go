package tasks

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/dsdl"
)

var _ = Describe("GetInfo", func() {
	info := dsdl.GetInfoResponse{
		ProtocolVersion: dsdl.Version{Major: 1},
		SoftwareVersion: dsdl.Version{Major: 0, Minor: 3},
		UniqueID:        [16]byte{0xC5, 0xA7},
		Name:            "csat.obc",
	}

	It("should fetch the info of a peer", func() {
		x := newHarness()
		server := NewGetInfoServer(x.publisher(), x.heap, 2, info)
		client := NewGetInfoClient(x.publisher(), localNode, 500, 300)
		x.start(server, client)

		x.run(700, 100)

		got, ok := client.Info()
		Expect(ok).To(BeTrue())
		Expect(got.Name).To(Equal("csat.obc"))
		Expect(got.UniqueID).To(Equal(info.UniqueID))
		Expect(got.SoftwareVersion).To(Equal(info.SoftwareVersion))
		Expect(server.Answered()).To(Equal(uint64(1)))
		Expect(client.Pending()).To(BeZero())
		Expect(client.Timeouts()).To(BeZero())
	})

	It("should time out and ask again when nobody answers", func() {
		x := newHarness()
		client := NewGetInfoClient(x.publisher(), 42, 500, 300)
		x.start(client)

		x.run(500, 100)
		Expect(client.Pending()).To(Equal(1))

		x.run(1000, 100)
		Expect(client.Timeouts()).To(Equal(uint64(1)))
		Expect(client.Pending()).To(Equal(1))
		Expect(client.NextTransferID(cyphal.KindRequest, cyphal.PortGetInfo, 42)).
			To(Equal(cyphal.TransferID(2)))

		_, ok := client.Info()
		Expect(ok).To(BeFalse())
	})
})
