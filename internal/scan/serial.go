package scan

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// serialPort is the subset of go.bug.st/serial.Port that SerialScanner
// needs, narrowed down so fake ports can stand in for tests the same
// way the teacher's RadarPort embeds serial.Port directly.
type serialPort interface {
	io.Reader
	io.Closer
}

// SerialScanner reads newline-delimited JSON scan lines off a serial
// port, the wire format a LiDAR's companion firmware emits. It mirrors
// the teacher's RadarPort/SerialMux.Monitor split: a single goroutine
// owns the blocking bufio.Scanner read loop and feeds lines to NextScan
// over a channel, so a context cancellation can interrupt a caller
// without also killing the read loop mid-line.
type SerialScanner struct {
	sensorID string
	portName string
	baudRate int

	port serialPort

	lines   chan []byte
	readErr chan error
	cancel  context.CancelFunc
}

// NewSerialScanner creates a SerialScanner that will open portName at
// baudRate when Open is called.
func NewSerialScanner(sensorID, portName string, baudRate int) *SerialScanner {
	return &SerialScanner{sensorID: sensorID, portName: portName, baudRate: baudRate}
}

// newSerialScannerWithPort is used by tests to inject a fake port,
// skipping the real go.bug.st/serial.Open call.
func newSerialScannerWithPort(sensorID string, port serialPort) *SerialScanner {
	return &SerialScanner{sensorID: sensorID, port: port}
}

func (s *SerialScanner) Open(ctx context.Context) error {
	if s.port == nil {
		mode := &serial.Mode{
			BaudRate: s.baudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: 1,
		}
		port, err := serial.Open(s.portName, mode)
		if err != nil {
			return fmt.Errorf("open serial port %q: %w", s.portName, err)
		}
		s.port = port
	}

	readCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.lines = make(chan []byte)
	s.readErr = make(chan error, 1)
	go s.readLoop(readCtx)
	return nil
}

func (s *SerialScanner) readLoop(ctx context.Context) {
	defer close(s.lines)

	scanner := bufio.NewScanner(s.port)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		select {
		case s.lines <- line:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case s.readErr <- err:
		case <-ctx.Done():
		}
	}
}

func (s *SerialScanner) NextScan(ctx context.Context) (Scan, error) {
	select {
	case <-ctx.Done():
		return Scan{}, ctx.Err()

	case err := <-s.readErr:
		return Scan{}, err

	case line, ok := <-s.lines:
		if !ok {
			return Scan{}, ErrScanTimeout
		}
		var payload struct {
			Ranges    []float64 `json:"ranges"`
			Timestamp int64     `json:"timestamp_unix_nano"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			return Scan{}, fmt.Errorf("serial scanner %q: parse scan line: %w", s.sensorID, err)
		}
		return scanFromLine(s.sensorID, payload.Timestamp, payload.Ranges), nil
	}
}

func (s *SerialScanner) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}
