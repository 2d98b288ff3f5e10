package source

import (
	"log/slog"

	"github.com/pion/rtp"

	"github.com/zsiec/tsinspect/mpegts"
)

// unwrapDatagram returns the TS bytes carried by a datagram: either the
// datagram itself or the payload of an RTP packet (RFC 2250).
func unwrapDatagram(d []byte) ([]byte, bool) {
	if len(d) == 0 {
		return nil, false
	}
	if d[0] == mpegts.SyncByte {
		return d, true
	}
	var pkt rtp.Packet
	if err := pkt.Unmarshal(d); err != nil {
		return nil, false
	}
	if pkt.Version != 2 || len(pkt.Payload) == 0 || pkt.Payload[0] != mpegts.SyncByte {
		return nil, false
	}
	return pkt.Payload, true
}

// datagramReader turns a sequence of datagrams into a byte stream. next
// may reuse its buffer between calls.
type datagramReader struct {
	next    func() ([]byte, error)
	close   func() error
	log     *slog.Logger
	pending []byte
	dropped int64
}

func (r *datagramReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		d, err := r.next()
		if err != nil {
			return 0, err
		}
		ts, ok := unwrapDatagram(d)
		if !ok {
			r.dropped++
			r.log.Debug("dropping non-TS datagram", "bytes", len(d), "dropped", r.dropped)
			continue
		}
		r.pending = ts
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *datagramReader) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}
