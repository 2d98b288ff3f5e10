package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/tsinspect/internal/scan"
	"github.com/zsiec/tsinspect/internal/stats"
	"github.com/zsiec/tsinspect/mpegts"
)

func statsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats [flags] input...",
		Short: "Summarise packets, PCRs and DTSs per PID",
		Long: `Decode every input concurrently into one set of counters and print a
per-PID summary. Clock values are shown in seconds of the 27 MHz clock.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := stats.New()
			if err != nil {
				return err
			}
			o, err := newOpener(cmd.Context(), args...)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			for _, uri := range args {
				uri := uri
				g.Go(func() error {
					st, err := decode(ctx, o, uri, func(p *mpegts.Packet) error {
						tr.Observe(p)
						return nil
					}, scan.ScannerOptOnResync(tr.ObserveResync))
					if err != nil {
						tr.ObserveError(err)
						return err
					}
					slog.Debug("input done", "input", uri, "packets", st.Packets,
						"resyncs", st.Resyncs, "skipped_bytes", st.SkippedBytes, "trailing_bytes", st.TrailingBytes)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tr.Snapshot())
			}
			return printSnapshot(cmd.OutOrStdout(), tr.Snapshot())
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")

	return cmd
}

func printSnapshot(w io.Writer, s stats.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PID\tPACKETS\tPCRS\tLAST PCR\tDTSS\tLAST DTS\tDISC\tSCRAMBLED\t")
	for _, p := range s.PIDs {
		fmt.Fprintf(tw, "0x%04X\t%d\t%d\t%s\t%d\t%s\t%d\t%t\t\n",
			p.PID, p.Packets, p.PCRs, clockSeconds(p.PCRs, p.LastPCR),
			p.DTSs, clockSeconds(p.DTSs, p.LastDTS), p.Discontinuities, p.Scrambled)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d packets, %d PCRs, %d DTSs, %d errors, %d PIDs evicted\n%d resyncs, %d bytes skipped\n",
		s.Packets, s.PCRs, s.DTSs, s.Errors, s.Evicted, s.Resyncs, s.SkippedBytes)
	return err
}

func clockSeconds(count int64, v uint64) string {
	if count == 0 {
		return "-"
	}
	return fmt.Sprintf("%.6f", float64(v)/27_000_000)
}
