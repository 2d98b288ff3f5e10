package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zsiec/tsinspect/internal/restamp"
)

func restampCmd() *cobra.Command {
	var offset int64

	cmd := &cobra.Command{
		Use:   "restamp --offset ticks input output",
		Short: "Shift PCRs and PES timestamps by a fixed offset",
		Long: `Copy input to output, adding offset (27 MHz ticks, may be negative) to
every program clock reference and offset/300 to the PTS and DTS of audio
and video PES headers. The first PCR packet of each PID is marked
discontinuous. Use - for standard input or output.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := newOpener(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			in, err := o.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			out := cmd.OutOrStdout()
			if args[1] != "-" {
				f, err := os.Create(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			res, err := restamp.Rewrite(cmd.Context(), in, out, offset, slog.Default())
			if err != nil {
				return err
			}
			if f, ok := out.(*os.File); ok && f != os.Stdout {
				if err := f.Sync(); err != nil {
					return fmt.Errorf("sync %s: %w", args[1], err)
				}
			}
			slog.Info("restamp done", "packets", res.Packets, "modified", res.Modified,
				"skipped_bytes", res.Scan.SkippedBytes)
			return nil
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "PCR offset in 27 MHz ticks")
	_ = cmd.MarkFlagRequired("offset")

	return cmd
}
