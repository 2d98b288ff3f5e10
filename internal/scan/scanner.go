// Package scan splits a byte stream into transport stream packets,
// resynchronising on the sync byte after garbage or packet loss.
package scan

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/zsiec/tsinspect/mpegts"
)

// readBufferSize holds 64 packets, enough lookahead to confirm a sync
// byte candidate without refilling.
const readBufferSize = 64 * mpegts.PacketSize

// Stats counts what a Scanner has seen so far.
type Stats struct {
	Packets       int64
	Resyncs       int64
	SkippedBytes  int64
	TrailingBytes int64
}

// Scanner reads transport stream packets from an io.Reader.
type Scanner struct {
	ctx    context.Context
	r      *bufio.Reader
	log    *slog.Logger
	buf    [mpegts.PacketSize]byte
	offset int64
	locked bool
	stats  Stats

	onResync func(skipped int64)
}

// NewScanner creates a scanner reading from r.
func NewScanner(ctx context.Context, r io.Reader, opts ...func(*Scanner)) *Scanner {
	s := &Scanner{
		ctx: ctx,
		r:   bufio.NewReaderSize(r, readBufferSize),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "scanner")
	return s
}

// ScannerOptLogger sets the logger used for resync diagnostics.
func ScannerOptLogger(l *slog.Logger) func(*Scanner) {
	return func(s *Scanner) {
		if l != nil {
			s.log = l
		}
	}
}

// ScannerOptOnResync registers fn to be called after every resync with
// the number of bytes skipped.
func ScannerOptOnResync(fn func(skipped int64)) func(*Scanner) {
	return func(s *Scanner) {
		s.onResync = fn
	}
}

// Stats returns a snapshot of the scanner counters.
func (s *Scanner) Stats() Stats {
	return s.stats
}

// NextPacket returns the next packet. It returns io.EOF once the input is
// exhausted; a trailing partial packet is dropped.
func (s *Scanner) NextPacket() (*mpegts.Packet, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.sync(); err != nil {
		return nil, err
	}

	n, err := io.ReadFull(s.r, s.buf[:])
	s.offset += int64(n)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			s.stats.TrailingBytes += int64(n)
			s.log.Debug("dropping trailing partial packet", "bytes", n, "offset", s.offset-int64(n))
			return nil, io.EOF
		}
		return nil, err
	}

	p, err := mpegts.Parse(s.buf[:])
	if err != nil {
		return nil, err
	}
	s.stats.Packets++
	return p, nil
}

// sync positions the reader on a sync byte. Once lock has been lost, a
// candidate is only accepted if another sync byte follows one packet
// later or the stream ends before that point.
func (s *Scanner) sync() error {
	var skipped int64
	defer func() {
		if skipped == 0 {
			return
		}
		s.stats.Resyncs++
		s.stats.SkippedBytes += skipped
		s.log.Debug("resynchronised", "skipped", skipped, "offset", s.offset)
		if s.onResync != nil {
			s.onResync(skipped)
		}
	}()

	for {
		b, err := s.r.Peek(1)
		if err != nil {
			return err
		}
		if b[0] == mpegts.SyncByte {
			if s.locked && skipped == 0 {
				return nil
			}
			ahead, err := s.r.Peek(mpegts.PacketSize + 1)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			if len(ahead) <= mpegts.PacketSize || ahead[mpegts.PacketSize] == mpegts.SyncByte {
				s.locked = true
				return nil
			}
		}
		s.locked = false
		if _, err := s.r.Discard(1); err != nil {
			return err
		}
		s.offset++
		skipped++
	}
}
