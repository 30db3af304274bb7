//go:build pcap

package scan

import (
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// GopacketReaderFactory creates PCAPReaders backed by gopacket/pcap. It
// requires libpcap and is only compiled in with -tags=pcap.
type GopacketReaderFactory struct{}

func (GopacketReaderFactory) NewReader() PCAPReader {
	return &gopacketReader{}
}

type gopacketReader struct {
	handle *pcap.Handle
	source *gopacket.PacketSource
}

func (r *gopacketReader) Open(filename string) error {
	handle, err := pcap.OpenOffline(filename)
	if err != nil {
		return err
	}
	r.handle = handle
	r.source = gopacket.NewPacketSource(handle, handle.LinkType())
	return nil
}

func (r *gopacketReader) SetBPFFilter(filter string) error {
	return r.handle.SetBPFFilter(filter)
}

// NextPacket advances past non-UDP or empty-payload packets, returning
// the next one that carries a LiDAR frame.
func (r *gopacketReader) NextPacket() (*PCAPPacket, error) {
	for {
		packet, ok := <-r.source.Packets()
		if !ok || packet == nil {
			return nil, io.EOF
		}

		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}

		return &PCAPPacket{
			Data:      udp.Payload,
			Timestamp: packet.Metadata().Timestamp,
		}, nil
	}
}

func (r *gopacketReader) Close() {
	if r.handle != nil {
		r.handle.Close()
	}
}
