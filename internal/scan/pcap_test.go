package scan

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

type fakePCAPReader struct {
	packets       []PCAPPacket
	idx           int
	openedFile    string
	appliedFilter string
	closed        bool
}

func (f *fakePCAPReader) Open(filename string) error {
	f.openedFile = filename
	return nil
}

func (f *fakePCAPReader) SetBPFFilter(filter string) error {
	f.appliedFilter = filter
	return nil
}

func (f *fakePCAPReader) NextPacket() (*PCAPPacket, error) {
	if f.idx >= len(f.packets) {
		return nil, io.EOF
	}
	pkt := f.packets[f.idx]
	f.idx++
	return &pkt, nil
}

func (f *fakePCAPReader) Close() { f.closed = true }

type fakePCAPReaderFactory struct {
	reader *fakePCAPReader
}

func (f *fakePCAPReaderFactory) NewReader() PCAPReader { return f.reader }

func TestPCAPScannerOpenSetsFilterOnUDPPort(t *testing.T) {
	reader := &fakePCAPReader{}
	factory := &fakePCAPReaderFactory{reader: reader}
	p := NewPCAPScanner("sensor-a", "capture.pcap", 5000, 0, factory)

	if err := p.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if reader.openedFile != "capture.pcap" {
		t.Errorf("openedFile = %q, want capture.pcap", reader.openedFile)
	}
	if reader.appliedFilter != "udp port 5000" {
		t.Errorf("appliedFilter = %q, want \"udp port 5000\"", reader.appliedFilter)
	}
}

func TestPCAPScannerDecodesPacketPayload(t *testing.T) {
	base := time.Now()
	reader := &fakePCAPReader{packets: []PCAPPacket{
		{Data: []byte(`{"ranges":[1.0,2.0]}`), Timestamp: base},
		{Data: []byte(`{"ranges":[1.5,2.5]}`), Timestamp: base.Add(10 * time.Millisecond)},
	}}
	factory := &fakePCAPReaderFactory{reader: reader}
	// speedMultiplier <= 0 disables pacing, so the test doesn't sleep.
	p := NewPCAPScanner("sensor-a", "capture.pcap", 5000, 0, factory)
	if err := p.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	first, err := p.NextScan(context.Background())
	if err != nil {
		t.Fatalf("NextScan() #1 error = %v", err)
	}
	if first.Ranges[0] != 1.0 {
		t.Fatalf("NextScan() #1 = %+v, want first range 1.0", first)
	}

	second, err := p.NextScan(context.Background())
	if err != nil {
		t.Fatalf("NextScan() #2 error = %v", err)
	}
	if second.Ranges[1] != 2.5 {
		t.Fatalf("NextScan() #2 = %+v, want second range 2.5", second)
	}
}

func TestPCAPScannerExhaustedReturnsTimeout(t *testing.T) {
	reader := &fakePCAPReader{}
	factory := &fakePCAPReaderFactory{reader: reader}
	p := NewPCAPScanner("sensor-a", "capture.pcap", 5000, 0, factory)
	if err := p.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := p.NextScan(context.Background()); !errors.Is(err, ErrScanTimeout) {
		t.Fatalf("NextScan() on empty capture error = %v, want ErrScanTimeout", err)
	}
}

func TestPCAPScannerClosePropagatesToReader(t *testing.T) {
	reader := &fakePCAPReader{}
	factory := &fakePCAPReaderFactory{reader: reader}
	p := NewPCAPScanner("sensor-a", "capture.pcap", 5000, 0, factory)
	if err := p.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !reader.closed {
		t.Error("Close() did not close the underlying reader")
	}
}

func TestPCAPScannerPacesBySpeedMultiplier(t *testing.T) {
	base := time.Now()
	reader := &fakePCAPReader{packets: []PCAPPacket{
		{Data: []byte(`{"ranges":[1.0]}`), Timestamp: base},
		{Data: []byte(`{"ranges":[2.0]}`), Timestamp: base.Add(20 * time.Millisecond)},
	}}
	factory := &fakePCAPReaderFactory{reader: reader}
	// Replay at 10x speed: a 20ms gap becomes ~2ms, well under the 200ms budget.
	p := NewPCAPScanner("sensor-a", "capture.pcap", 5000, 10, factory)
	if err := p.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := p.NextScan(context.Background()); err != nil {
		t.Fatalf("NextScan() #1 error = %v", err)
	}

	start := time.Now()
	if _, err := p.NextScan(context.Background()); err != nil {
		t.Fatalf("NextScan() #2 error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("NextScan() #2 took %v, want well under 200ms at 10x speed", elapsed)
	}
}
