package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	srtgo "github.com/zsiec/srtgo"
)

// srtLatencyNs is the SRT latency setting in nanoseconds (120ms).
const srtLatencyNs = 120_000_000

const srtDialTimeout = 10 * time.Second

type srtReader struct {
	conn *srtgo.Conn
	stop func() bool
}

func (r *srtReader) Read(p []byte) (int, error) {
	return r.conn.Read(p)
}

func (r *srtReader) Close() error {
	if !r.stop() {
		return nil
	}
	return r.conn.Close()
}

// dialSRT connects to an SRT listener in caller mode and returns the
// connection's byte stream.
func dialSRT(ctx context.Context, addr, streamID string, log *slog.Logger) (io.ReadCloser, error) {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs
	if streamID != "" {
		cfg.StreamID = streamID
	}

	log.Info("dialing", "address", addr, "stream_id", streamID)

	type dialResult struct {
		conn *srtgo.Conn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := srtgo.Dial(addr, cfg)
		ch <- dialResult{conn, err}
	}()

	timer := time.NewTimer(srtDialTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("source: SRT dial %s: %w", addr, res.err)
		}
		log.Info("connected", "address", addr, "remote", res.conn.RemoteAddr())
		stop := context.AfterFunc(ctx, func() {
			res.conn.Close()
		})
		return &srtReader{conn: res.conn, stop: stop}, nil
	case <-timer.C:
		// Drain the dial result in the background and close any leaked connection.
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, fmt.Errorf("source: SRT dial %s timed out after %s", addr, srtDialTimeout)
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
