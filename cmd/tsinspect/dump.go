package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/tsinspect/mpegts"
)

func dumpCmd() *cobra.Command {
	var (
		pid   int
		limit int
	)

	cmd := &cobra.Command{
		Use:   "dump [flags] input...",
		Short: "Print one line per packet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pid > mpegts.MaxPID {
				return fmt.Errorf("--pid %d out of range (max %d)", pid, mpegts.MaxPID)
			}
			o, err := newOpener(cmd.Context(), args...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var mu sync.Mutex

			g, ctx := errgroup.WithContext(cmd.Context())
			for _, uri := range args {
				uri := uri
				g.Go(func() error {
					prefix := ""
					if len(args) > 1 {
						prefix = uri + " "
					}
					n := 0
					_, err := decode(ctx, o, uri, func(p *mpegts.Packet) error {
						if pid >= 0 && int(p.Header.PID) != pid {
							return nil
						}
						if limit > 0 && n >= limit {
							return errStop
						}
						n++
						mu.Lock()
						defer mu.Unlock()
						_, err := fmt.Fprintf(out, "%s%s\n", prefix, formatPacket(p))
						return err
					})
					return err
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().IntVar(&pid, "pid", -1, "only print packets on this PID")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many packets per input (0 for no limit)")

	return cmd
}

func formatPacket(p *mpegts.Packet) string {
	var b strings.Builder
	h := p.Header
	fmt.Fprintf(&b, "pid=0x%04X cc=%-2d %s", h.PID, h.ContinuityCounter, p.Layout().Kind)
	if h.PayloadUnitStart {
		b.WriteString(" pusi")
	}
	if h.TransportError {
		b.WriteString(" tei")
	}
	if h.ScramblingControl != 0 {
		fmt.Fprintf(&b, " scrambled=%d", h.ScramblingControl)
	}
	if p.Discontinuity() {
		b.WriteString(" discontinuity")
	}
	if p.RandomAccess() {
		b.WriteString(" rai")
	}
	if p.HasPCR() {
		fmt.Fprintf(&b, " pcr=%d", p.PCR())
	}
	if p.HasDTS() {
		fmt.Fprintf(&b, " dts=%d", p.DTS())
	}
	return b.String()
}
