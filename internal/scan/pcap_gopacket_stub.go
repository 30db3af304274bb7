//go:build !pcap

package scan

import "fmt"

// GopacketReaderFactory is a stub used when PCAP support is disabled.
// Rebuild with -tags=pcap to enable real capture replay.
type GopacketReaderFactory struct{}

func (GopacketReaderFactory) NewReader() PCAPReader {
	return stubPCAPReader{}
}

type stubPCAPReader struct{}

func (stubPCAPReader) Open(string) error {
	return fmt.Errorf("pcap support not enabled: rebuild with -tags=pcap to replay captures")
}

func (stubPCAPReader) SetBPFFilter(string) error { return nil }

func (stubPCAPReader) NextPacket() (*PCAPPacket, error) {
	return nil, fmt.Errorf("pcap support not enabled: rebuild with -tags=pcap to replay captures")
}

func (stubPCAPReader) Close() {}
