package source

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// packetDataSource is implemented by both pcapgo.Reader and pcapgo.NgReader.
type packetDataSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// openPCAP replays the UDP payloads of a capture file. A non-zero port
// keeps only datagrams sent to that destination port.
func openPCAP(path string, port uint16, log *slog.Logger) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}

	var src packetDataSource
	if strings.HasSuffix(path, ".pcapng") {
		src, err = pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	} else {
		src, err = pcapgo.NewReader(f)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("source: open capture %s: %w", path, err)
	}

	linkType := src.LinkType()
	log.Debug("opened capture", "path", path, "link_type", linkType, "port", port)

	next := func() ([]byte, error) {
		for {
			data, _, err := src.ReadPacketData()
			if err != nil {
				return nil, err
			}
			pkt := gopacket.NewPacket(data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
			udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
			if !ok {
				continue
			}
			if port != 0 && uint16(udp.DstPort) != port {
				continue
			}
			return udp.Payload, nil
		}
	}

	return &datagramReader{next: next, close: f.Close, log: log}, nil
}
