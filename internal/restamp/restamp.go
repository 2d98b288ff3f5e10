// Package restamp shifts the clock of a transport stream by a fixed
// offset. PCRs and the PTS/DTS of audio and video PES headers move
// together, and the jump is signalled with the discontinuity indicator so
// receivers re-lock their clocks.
package restamp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zsiec/tsinspect/internal/scan"
	"github.com/zsiec/tsinspect/mpegts"
)

// TimestampWrap is the modulus of 33-bit 90 kHz PES timestamps.
const TimestampWrap = 1 << 33

// Restamper rewrites clock values packet by packet. It is not safe for
// concurrent use.
type Restamper struct {
	offset int64
	seen   map[uint16]bool
}

// New returns a Restamper adding offset (27 MHz ticks, may be negative)
// to every PCR. PES timestamps move by offset/300 in 90 kHz units.
func New(offset int64) *Restamper {
	return &Restamper{
		offset: offset,
		seen:   make(map[uint16]bool),
	}
}

// Apply shifts the PCR of p and the PTS/DTS of a PES header starting in p,
// and marks the first PCR packet of each PID as discontinuous. It reports
// whether p was modified.
func (r *Restamper) Apply(p *mpegts.Packet) bool {
	modified := false
	if p.HasPCR() {
		p.WritePCR(Shift(p.PCR(), r.offset))
		if !r.seen[p.Header.PID] {
			r.seen[p.Header.PID] = true
			p.SetDiscontinuity()
		}
		modified = true
	}
	if pts, dts := p.TimestampFields(); pts != nil {
		delta := r.offset / mpegts.PCRScale
		shiftField(pts, delta)
		if dts != nil {
			shiftField(dts, delta)
		}
		modified = true
	}
	return modified
}

func shiftField(b []byte, delta int64) {
	mpegts.EncodeTimestamp(b, ShiftTimestamp(mpegts.DecodeTimestamp(b), delta))
}

// Shift adds delta to a 27 MHz clock value, wrapping at mpegts.PCRWrap.
func Shift(v uint64, delta int64) uint64 {
	return wrapAdd(v, delta, mpegts.PCRWrap)
}

// ShiftTimestamp adds delta to a 90 kHz PES timestamp, wrapping at
// TimestampWrap.
func ShiftTimestamp(v uint64, delta int64) uint64 {
	return wrapAdd(v, delta, TimestampWrap)
}

func wrapAdd(v uint64, delta int64, wrap uint64) uint64 {
	d := delta % int64(wrap)
	if d < 0 {
		d += int64(wrap)
	}
	return (v%wrap + uint64(d)) % wrap
}

// Result summarises a Rewrite.
type Result struct {
	Packets  int64
	Modified int64
	Scan     scan.Stats
}

// Rewrite copies the packets read from r to w, shifting PCRs by offset.
// Bytes the scanner skips while resynchronising are not copied.
func Rewrite(ctx context.Context, r io.Reader, w io.Writer, offset int64, log *slog.Logger) (Result, error) {
	if log == nil {
		log = slog.Default()
	}
	s := scan.NewScanner(ctx, r, scan.ScannerOptLogger(log))
	rs := New(offset)
	bw := bufio.NewWriterSize(w, 64*mpegts.PacketSize)
	buf := make([]byte, 0, mpegts.PacketSize)

	var res Result
	for {
		p, err := s.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Scan = s.Stats()
			return res, fmt.Errorf("restamp: read packet %d: %w", res.Packets, err)
		}
		if rs.Apply(p) {
			res.Modified++
		}
		res.Packets++
		if _, err := bw.Write(p.AppendBytes(buf[:0])); err != nil {
			res.Scan = s.Stats()
			return res, fmt.Errorf("restamp: write: %w", err)
		}
	}
	res.Scan = s.Stats()
	if err := bw.Flush(); err != nil {
		return res, fmt.Errorf("restamp: flush: %w", err)
	}
	log.Debug("restamp complete", "packets", res.Packets, "modified", res.Modified,
		"resyncs", res.Scan.Resyncs, "skipped_bytes", res.Scan.SkippedBytes)
	return res, nil
}
