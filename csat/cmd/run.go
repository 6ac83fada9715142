package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/datarecording"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/monitoring"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/node"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate the OBC, EPS and payload nodes.",
	Long: `Simulate the OBC, EPS and payload nodes. The OBC and the EPS share ` +
		`a CAN bus, the payload talks to the OBC over a serial link. ` +
		`Settings can be given as flags or as CSAT_* environment variables.`,
	RunE: runNetwork,
}

func init() {
	runCmd.Flags().Int("ticks", int(DefaultSimulation),
		"Simulated milliseconds to run (CSAT_TICKS).")
	runCmd.Flags().Int("node-id", int(node.DefaultNodeID),
		"Node ID of the OBC (CSAT_NODE_ID).")
	runCmd.Flags().Int("heap", node.DefaultHeapSize,
		"Heap size of every node in bytes (CSAT_HEAP_SIZE).")
	runCmd.Flags().Duration("period", 0,
		"Wall-clock time per step. Zero runs as fast as possible.")
	runCmd.Flags().Bool("monitor", false, "Serve the monitor while running.")
	runCmd.Flags().Int("monitor-port", 0,
		"Port of the monitor (CSAT_MONITOR_PORT). Zero picks a free port.")
	runCmd.Flags().Bool("open", false, "Open the monitor in a browser.")
	runCmd.Flags().Bool("hold", false,
		"Keep the monitor serving after the run until interrupted.")
	runCmd.Flags().Bool("record", false, "Record every inbound transfer.")
	runCmd.Flags().String("record-path", "",
		"Recording file without extension. Empty picks a unique name.")

	rootCmd.AddCommand(runCmd)
}

type runConfig struct {
	ticks       timing.Tick
	obc         cyphal.NodeID
	heapSize    int
	period      time.Duration
	monitor     bool
	monitorPort int
	open        bool
	hold        bool
	record      bool
	recordPath  string
}

func loadRunConfig(cmd *cobra.Command) (runConfig, error) {
	var (
		c   runConfig
		err error
	)

	ticks, err := intSetting(cmd, "ticks", "CSAT_TICKS")
	if err != nil {
		return c, err
	}

	id, err := intSetting(cmd, "node-id", "CSAT_NODE_ID")
	if err != nil {
		return c, err
	}

	c.heapSize, err = intSetting(cmd, "heap", "CSAT_HEAP_SIZE")
	if err != nil {
		return c, err
	}

	c.monitorPort, err = intSetting(cmd, "monitor-port", "CSAT_MONITOR_PORT")
	if err != nil {
		return c, err
	}

	if ticks <= 0 {
		return c, fmt.Errorf("ticks must be positive, got %d", ticks)
	}

	if id < 0 || id > 127 || id == DefaultEPSNodeID || id == DefaultPayloadID {
		return c, fmt.Errorf("node ID %d is out of range or taken", id)
	}

	c.ticks = timing.Tick(ticks)
	c.obc = cyphal.NodeID(id)

	flags := cmd.Flags()
	c.period, _ = flags.GetDuration("period")
	c.monitor, _ = flags.GetBool("monitor")
	c.open, _ = flags.GetBool("open")
	c.hold, _ = flags.GetBool("hold")
	c.record, _ = flags.GetBool("record")
	c.recordPath, _ = flags.GetString("record-path")

	return c, nil
}

func runNetwork(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	log := newLogger()
	runID := xid.New().String()

	net := BuildNetwork(NetworkConfig{
		OBC:      cfg.obc,
		EPS:      DefaultEPSNodeID,
		Payload:  DefaultPayloadID,
		HeapSize: cfg.heapSize,
		Logger:   log,
	})

	var stopRecording func()

	if cfg.record {
		recorder := datarecording.New(cfg.recordPath)
		defer recorder.Close()

		stopRecording = recordTransfers(net, recorder)
	}

	var (
		mon *monitoring.Monitor
		bar *monitoring.ProgressBar
	)

	if cfg.monitor || cfg.open {
		mon = monitoring.NewMonitor().WithPortNumber(cfg.monitorPort).WithClock(net.Clock)
		for _, n := range net.Nodes() {
			mon.RegisterNode(n)
		}

		port := mon.StartServer()
		bar = mon.CreateProgressBar("run "+runID, uint64(cfg.ticks))

		if cfg.open {
			if err := browser.OpenURL(fmt.Sprintf("http://localhost:%d", port)); err != nil {
				log.Error(err, "open browser")
			}
		}
	}

	log.Info("simulation started", "run", runID, "ticks", cfg.ticks, "obc", cfg.obc)

	if err := net.Start(); err != nil {
		log.Error(err, "start")
	}

	simulate(net, mon, bar, cfg)

	if stopRecording != nil {
		stopRecording()
	}

	if bar != nil {
		mon.CompleteProgressBar(bar)
	}

	printDiagnostics(cmd.OutOrStdout(), net)

	if mon != nil && cfg.hold {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Fprintln(cmd.ErrOrStderr(), "Run finished. Press Ctrl-C to stop the monitor.")
		<-ctx.Done()
	}

	return nil
}

// recordTransfers attaches a transfer recorder to the loop of every node.
// The returned function detaches them again.
func recordTransfers(net *Network, recorder datarecording.DataRecorder) func() {
	type attached struct {
		node     *node.Node
		recorder *datarecording.TransferRecorder
	}

	var hooks []attached

	for _, n := range net.Nodes() {
		r := datarecording.NewTransferRecorder(n.Name(), recorder)
		n.Loop().AcceptHook(r)
		hooks = append(hooks, attached{node: n, recorder: r})
	}

	return func() {
		for _, h := range hooks {
			h.node.Loop().DetachHook(h.recorder)
		}
	}
}

func simulate(net *Network, mon *monitoring.Monitor, bar *monitoring.ProgressBar, cfg runConfig) {
	var ticker *time.Ticker
	if cfg.period > 0 {
		ticker = time.NewTicker(cfg.period)
		defer ticker.Stop()
	}

	for now := StepPeriod; now <= cfg.ticks; now += StepPeriod {
		step := func() { _ = net.Step(now) }

		if mon != nil {
			mon.Do(step)
			bar.IncrementFinished(uint64(StepPeriod))
		} else {
			step()
		}

		if ticker != nil {
			<-ticker.C
		}
	}
}

func printDiagnostics(out io.Writer, net *Network) {
	now := net.Clock.Now()

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tID\tSTEPS\tDISPATCHED\tUNROUTABLE\tHEAP PEAK\tOOM\tPEERS")

	for _, n := range net.Nodes() {
		d := n.Diagnostics(now)
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			d.Name, d.NodeID, d.Steps, d.Loop.Dispatched, d.Loop.Unroutable,
			d.Heap.PeakAllocated, d.Heap.OOMCount, len(n.Peers()))
	}

	_ = w.Flush()

	fmt.Fprintf(out, "\nthermal frames: %d published, %d received\n",
		net.Thermal.Counters().Frames, net.Collector.Frames())

	if info, ok := net.PayloadInfo.Info(); ok {
		fmt.Fprintf(out, "payload: %s\n", info.Name)
	}

	if info, ok := net.EPSInfo.Info(); ok {
		fmt.Fprintf(out, "eps: %s\n", info.Name)
	}
}
