package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
)

// udpReadBufferSize fits the largest UDP datagram.
const udpReadBufferSize = 65535

func listenUDP(ctx context.Context, addr string, log *slog.Logger) (io.ReadCloser, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("source: resolve %s: %w", addr, err)
	}

	var conn *net.UDPConn
	if udpAddr.IP != nil && udpAddr.IP.IsMulticast() {
		conn, err = net.ListenMulticastUDP("udp", nil, udpAddr)
	} else {
		conn, err = net.ListenUDP("udp", udpAddr)
	}
	if err != nil {
		return nil, fmt.Errorf("source: UDP listen on %s: %w", addr, err)
	}
	log.Info("listening", "addr", conn.LocalAddr().String(), "multicast", udpAddr.IP.IsMulticast())
	return newUDPReader(ctx, conn, log), nil
}

// newUDPReader reads datagrams from conn until ctx is cancelled, at which
// point Read reports io.EOF.
func newUDPReader(ctx context.Context, conn net.PacketConn, log *slog.Logger) io.ReadCloser {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})

	buf := make([]byte, udpReadBufferSize)
	next := func() ([]byte, error) {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil, io.EOF
			}
			return nil, err
		}
		return buf[:n], nil
	}
	closeFn := func() error {
		if !stop() {
			// The context already closed the socket.
			return nil
		}
		return conn.Close()
	}
	return &datagramReader{next: next, close: closeFn, log: log}
}
