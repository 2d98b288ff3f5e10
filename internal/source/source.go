// Package source opens the byte streams that feed the packet scanner:
// local files, standard input, packet captures, UDP sockets, SRT callers
// and S3 objects.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
)

var (
	ErrUnsupportedScheme = errors.New("source: unsupported scheme")
	ErrNoS3Client        = errors.New("source: no S3 client configured")
)

// Opener resolves input URIs to readers.
type Opener struct {
	log   *slog.Logger
	s3    ObjectGetter
	stdin io.Reader
}

// Option configures an Opener.
type Option func(*Opener)

// WithLogger sets the logger. If l is nil, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *Opener) {
		if l != nil {
			o.log = l
		}
	}
}

// WithS3Client enables s3:// inputs.
func WithS3Client(c ObjectGetter) Option {
	return func(o *Opener) {
		o.s3 = c
	}
}

// WithStdin replaces os.Stdin as the reader behind "-".
func WithStdin(r io.Reader) Option {
	return func(o *Opener) {
		o.stdin = r
	}
}

// NewOpener creates an Opener.
func NewOpener(opts ...Option) *Opener {
	o := &Opener{
		log:   slog.Default(),
		stdin: os.Stdin,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With("component", "source")
	return o
}

// Open returns a reader for uri. Supported forms:
//
//	path, file:///path       local file
//	-                        standard input
//	pcap://path[?port=N]     UDP payloads from a pcap or pcapng capture
//	udp://host:port          UDP listener, multicast groups are joined
//	srt://host:port[?streamid=ID]
//	s3://bucket/key
//
// Datagram sources accept raw TS datagrams and TS carried in RTP.
// Listening and dialing sources are closed when ctx is cancelled.
func (o *Opener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if uri == "-" {
		return io.NopCloser(o.stdin), nil
	}

	u, err := url.Parse(uri)
	if err != nil || len(u.Scheme) <= 1 {
		// Plain paths, including Windows drive letters.
		return openFile(uri)
	}

	switch u.Scheme {
	case "file":
		return openFile(u.Path)
	case "pcap":
		port, err := queryPort(u)
		if err != nil {
			return nil, err
		}
		return openPCAP(u.Host+u.Path, port, o.log)
	case "udp":
		return listenUDP(ctx, u.Host, o.log)
	case "srt":
		return dialSRT(ctx, u.Host, u.Query().Get("streamid"), o.log)
	case "s3":
		if o.s3 == nil {
			return nil, ErrNoS3Client
		}
		return openS3(ctx, o.s3, u)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	return f, nil
}

func queryPort(u *url.URL) (uint16, error) {
	v := u.Query().Get("port")
	if v == "" {
		return 0, nil
	}
	port, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("source: invalid port %q: %w", v, err)
	}
	return uint16(port), nil
}
