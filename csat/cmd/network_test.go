package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/datarecording"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/node"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

var _ = Describe("Network", func() {
	var net *Network

	run := func(until timing.Tick) {
		for now := StepPeriod; now <= until; now += StepPeriod {
			Expect(net.Step(now)).To(Succeed())
		}
	}

	BeforeEach(func() {
		net = BuildNetwork(NetworkConfig{
			OBC:      node.DefaultNodeID,
			EPS:      DefaultEPSNodeID,
			Payload:  DefaultPayloadID,
			HeapSize: node.DefaultHeapSize,
			Logger:   logr.Discard(),
		})
		Expect(net.Start()).To(Succeed())
	})

	peerIDs := func(n *node.Node) []cyphal.NodeID {
		var ids []cyphal.NodeID
		for _, p := range n.Peers() {
			ids = append(ids, p.ID)
		}

		return ids
	}

	It("should connect the nodes over CAN and serial", func() {
		run(5 * timing.Second)

		Expect(peerIDs(net.OBC)).To(Equal([]cyphal.NodeID{DefaultPayloadID, DefaultEPSNodeID}))
		Expect(peerIDs(net.EPS)).To(Equal([]cyphal.NodeID{node.DefaultNodeID}))
		Expect(peerIDs(net.Payload)).To(Equal([]cyphal.NodeID{node.DefaultNodeID}))

		info, ok := net.PayloadInfo.Info()
		Expect(ok).To(BeTrue())
		Expect(info.Name).To(Equal("csat.payload"))

		info, ok = net.EPSInfo.Info()
		Expect(ok).To(BeTrue())
		Expect(info.Name).To(Equal("csat.eps"))

		for _, n := range net.Nodes() {
			Expect(n.Diagnostics(net.Clock.Now()).Heap.OOMCount).To(BeZero())
		}
	})

	It("should stream thermal frames from the payload to the OBC", func() {
		run(5 * timing.Second)

		Expect(net.Thermal.Counters().Frames).To(BeNumerically(">", 0))
		Expect(net.Collector.Frames()).To(Equal(net.Thermal.Counters().Frames))
		Expect(net.Collector.Malformed()).To(BeZero())
	})

	It("should record and report the inbound transfers", func() {
		path := filepath.Join(GinkgoT().TempDir(), "run")
		recorder := datarecording.New(path)

		stop := recordTransfers(net, recorder)
		run(2 * timing.Second)
		stop()

		for _, n := range net.Nodes() {
			Expect(n.Loop().NumHooks()).To(BeZero())
		}

		Expect(recorder.Close()).To(Succeed())

		reader, err := datarecording.NewReader(path + ".sqlite3")
		Expect(err).ToNot(HaveOccurred())
		defer reader.Close()

		var out bytes.Buffer
		Expect(report(context.Background(), &out, reader,
			reportOptions{unroutable: true})).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Start Time"))
		Expect(out.String()).To(MatchRegexp(`OBC\s+message\s+7509`))
		Expect(out.String()).To(MatchRegexp(`\d+ unroutable transfers`))
	})
})

var _ = Describe("Settings", func() {
	var c *cobra.Command

	BeforeEach(func() {
		c = &cobra.Command{}
		c.Flags().Int("ticks", 5, "")
	})

	AfterEach(func() {
		os.Unsetenv("CSAT_TEST_TICKS")
	})

	It("should use the default without an environment variable", func() {
		Expect(intSetting(c, "ticks", "CSAT_TEST_TICKS")).To(Equal(5))
	})

	It("should let the environment override the default", func() {
		os.Setenv("CSAT_TEST_TICKS", "42")
		Expect(intSetting(c, "ticks", "CSAT_TEST_TICKS")).To(Equal(42))
	})

	It("should let an explicit flag win over the environment", func() {
		os.Setenv("CSAT_TEST_TICKS", "42")
		Expect(c.Flags().Set("ticks", "7")).To(Succeed())
		Expect(intSetting(c, "ticks", "CSAT_TEST_TICKS")).To(Equal(7))
	})

	It("should reject a malformed environment variable", func() {
		os.Setenv("CSAT_TEST_TICKS", "lots")
		_, err := intSetting(c, "ticks", "CSAT_TEST_TICKS")
		Expect(err).To(HaveOccurred())
	})

	It("should ignore a missing env file", func() {
		Expect(loadEnv(filepath.Join(GinkgoT().TempDir(), "absent.env"))).To(Succeed())
	})

	It("should load an env file", func() {
		file := filepath.Join(GinkgoT().TempDir(), "test.env")
		Expect(os.WriteFile(file, []byte("CSAT_TEST_TICKS=99\n"), 0o600)).To(Succeed())

		Expect(loadEnv(file)).To(Succeed())
		Expect(intSetting(c, "ticks", "CSAT_TEST_TICKS")).To(Equal(99))
	})
})
