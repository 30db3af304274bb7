package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// PCAPPacket is one packet read back from a capture.
type PCAPPacket struct {
	Data      []byte
	Timestamp time.Time
}

// PCAPReader abstracts reading packets from a capture file, so
// PCAPScanner can be exercised in tests without linking libpcap. The
// real implementation, built with -tags=pcap, wraps gopacket/pcap.
type PCAPReader interface {
	// Open opens filename for reading.
	Open(filename string) error

	// SetBPFFilter restricts NextPacket to matching packets, e.g.
	// "udp port 5000".
	SetBPFFilter(filter string) error

	// NextPacket returns the next matching packet, or io.EOF when the
	// capture is exhausted.
	NextPacket() (*PCAPPacket, error)

	// Close releases the underlying capture handle.
	Close()
}

// PCAPReaderFactory creates PCAPReaders, so PCAPScanner doesn't need to
// know whether it's getting a real gopacket reader or a test double.
type PCAPReaderFactory interface {
	NewReader() PCAPReader
}

// PCAPScanner replays a recorded capture of a sensor's UDP scan packets
// at (approximately) the pace they were originally sent, scaled by
// SpeedMultiplier. This is the offline-analysis counterpart to a live
// SerialScanner or network-backed source: a sensor configured for pcap
// replay drives the same pipeline against a capture instead of hardware.
type PCAPScanner struct {
	sensorID        string
	path            string
	udpPort         int
	speedMultiplier float64
	factory         PCAPReaderFactory

	reader    PCAPReader
	lastCapAt time.Time
	started   bool
}

// NewPCAPScanner creates a PCAPScanner for sensorID that will replay the
// UDP traffic on udpPort found in the capture at path, at speedMultiplier
// times real time (1.0 = real time, 0 or negative = as fast as possible).
func NewPCAPScanner(sensorID, path string, udpPort int, speedMultiplier float64, factory PCAPReaderFactory) *PCAPScanner {
	return &PCAPScanner{
		sensorID:        sensorID,
		path:            path,
		udpPort:         udpPort,
		speedMultiplier: speedMultiplier,
		factory:         factory,
	}
}

func (p *PCAPScanner) Open(ctx context.Context) error {
	p.reader = p.factory.NewReader()
	if err := p.reader.Open(p.path); err != nil {
		return fmt.Errorf("open capture %q: %w", p.path, err)
	}
	if err := p.reader.SetBPFFilter(fmt.Sprintf("udp port %d", p.udpPort)); err != nil {
		return fmt.Errorf("set capture filter: %w", err)
	}
	return nil
}

func (p *PCAPScanner) NextScan(ctx context.Context) (Scan, error) {
	pkt, err := p.reader.NextPacket()
	if err != nil {
		if err == io.EOF {
			return Scan{}, ErrScanTimeout
		}
		return Scan{}, fmt.Errorf("pcap scanner %q: %w", p.sensorID, err)
	}

	if err := p.pace(ctx, pkt.Timestamp); err != nil {
		return Scan{}, err
	}

	var payload struct {
		Ranges []float64 `json:"ranges"`
	}
	if err := json.Unmarshal(pkt.Data, &payload); err != nil {
		return Scan{}, fmt.Errorf("pcap scanner %q: decode packet payload: %w", p.sensorID, err)
	}

	return Scan{SensorID: p.sensorID, Timestamp: pkt.Timestamp, Ranges: payload.Ranges}, nil
}

// pace sleeps long enough to reproduce the inter-packet gap observed in
// the capture, scaled by SpeedMultiplier. A non-positive SpeedMultiplier
// disables pacing entirely, for replaying a capture as fast as possible.
func (p *PCAPScanner) pace(ctx context.Context, capturedAt time.Time) error {
	if !p.started {
		p.started = true
		p.lastCapAt = capturedAt
		return nil
	}
	if p.speedMultiplier <= 0 {
		p.lastCapAt = capturedAt
		return nil
	}

	gap := capturedAt.Sub(p.lastCapAt)
	p.lastCapAt = capturedAt
	if gap <= 0 {
		return nil
	}
	scaled := time.Duration(float64(gap) / p.speedMultiplier)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(scaled):
		return nil
	}
}

func (p *PCAPScanner) Close() error {
	if p.reader != nil {
		p.reader.Close()
	}
	return nil
}
