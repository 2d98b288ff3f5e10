package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zsiec/tsinspect/internal/scan"
	"github.com/zsiec/tsinspect/internal/source"
	"github.com/zsiec/tsinspect/mpegts"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

// errStop ends a decode loop early without reporting a failure.
var errStop = errors.New("stop")

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tsinspect: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:   "tsinspect",
		Short: "Inspect and rewrite MPEG transport streams",
		Long: `tsinspect decodes MPEG transport streams from files, standard input,
packet captures, UDP, SRT or S3 and reports per-PID packet, PCR and DTS
statistics.

Inputs are given as paths or URIs:

  path, file:///path, -
  pcap://capture.pcapng?port=5000
  udp://239.0.0.1:5000
  srt://host:6000?streamid=live
  s3://bucket/key`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), debug)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", os.Getenv("DEBUG") != "", "enable debug logging")

	root.AddCommand(
		dumpCmd(),
		statsCmd(),
		serveCmd(),
		restampCmd(),
		versionCmd(),
	)
	return root
}

func setupLogging(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// newOpener builds the input opener. The AWS configuration chain is only
// loaded when one of uris names an S3 object.
func newOpener(ctx context.Context, uris ...string) (*source.Opener, error) {
	opts := []source.Option{source.WithLogger(slog.Default())}
	for _, uri := range uris {
		if !strings.HasPrefix(uri, "s3://") {
			continue
		}
		c, err := source.NewS3Client(ctx, source.S3Config{
			Region:    envOr("AWS_REGION", "us-east-1"),
			Endpoint:  envOr("TSINSPECT_S3_ENDPOINT", ""),
			Anonymous: envOr("TSINSPECT_S3_ANONYMOUS", "") != "",
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, source.WithS3Client(c))
		break
	}
	return source.NewOpener(opts...), nil
}

// decode opens uri and calls fn for every packet until the input ends,
// ctx is cancelled or fn returns an error. errStop from fn is not an
// error.
func decode(ctx context.Context, o *source.Opener, uri string, fn func(*mpegts.Packet) error, opts ...func(*scan.Scanner)) (scan.Stats, error) {
	rc, err := o.Open(ctx, uri)
	if err != nil {
		return scan.Stats{}, err
	}
	defer rc.Close()

	opts = append([]func(*scan.Scanner){scan.ScannerOptLogger(slog.Default().With("input", uri))}, opts...)
	s := scan.NewScanner(ctx, rc, opts...)
	for {
		p, err := s.NextPacket()
		if errors.Is(err, io.EOF) {
			return s.Stats(), nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return s.Stats(), nil
			}
			return s.Stats(), fmt.Errorf("%s: %w", uri, err)
		}
		if err := fn(p); err != nil {
			if errors.Is(err, errStop) {
				return s.Stats(), nil
			}
			return s.Stats(), err
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
