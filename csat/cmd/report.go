package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/datarecording"
)

var reportCmd = &cobra.Command{
	Use:   "report FILE.sqlite3",
	Short: "Summarize a transfer recording.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := datarecording.NewReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		var opts reportOptions
		opts.node, _ = cmd.Flags().GetString("node")
		opts.unroutable, _ = cmd.Flags().GetBool("unroutable")

		return report(cmd.Context(), cmd.OutOrStdout(), reader, opts)
	},
}

func init() {
	reportCmd.Flags().String("node", "",
		"Only list the unroutable transfers of this node.")
	reportCmd.Flags().Bool("unroutable", false,
		"List every transfer no task received.")

	rootCmd.AddCommand(reportCmd)
}

type reportOptions struct {
	node       string
	unroutable bool
}

func report(
	ctx context.Context,
	out io.Writer,
	reader datarecording.DataReader,
	opts reportOptions,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	execs, err := reader.ExecInfo(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", datarecording.ExecInfoTable, err)
	}

	for _, info := range execs {
		fmt.Fprintf(out, "%s: %s\n", info.Property, info.Value)
	}

	total, err := reader.CountTransfers(ctx, datarecording.TransferFilter{})
	if err != nil {
		return fmt.Errorf("read %s: %w", datarecording.TransferTable, err)
	}

	flows, err := reader.Flows(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", datarecording.TransferTable, err)
	}

	fmt.Fprintf(out, "\n%d transfers\n\n", total)

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tKIND\tPORT\tROUTED\tUNROUTABLE\tBYTES")

	for _, f := range flows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
			f.Node, f.Kind, f.Port, f.Routed, f.Unroutable, f.Bytes)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	if !opts.unroutable {
		return nil
	}

	return listUnroutable(ctx, out, reader, opts.node)
}

func listUnroutable(
	ctx context.Context,
	out io.Writer,
	reader datarecording.DataReader,
	node string,
) error {
	entries, err := reader.Transfers(ctx, datarecording.TransferFilter{
		Node:           node,
		UnroutableOnly: true,
	})
	if err != nil {
		return fmt.Errorf("read %s: %w", datarecording.TransferTable, err)
	}

	fmt.Fprintf(out, "\n%d unroutable transfers\n\n", len(entries))

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tNODE\tADAPTER\tKIND\tPORT\tSOURCE\tBYTES")

	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\n",
			e.Time, e.Node, e.Adapter, e.Kind, e.Port, e.Source, e.Size)
	}

	return w.Flush()
}
