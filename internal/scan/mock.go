package scan

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// MockScanner replays a scripted sequence of scans from a line-oriented
// source — one JSON object per line with a ranges array and an optional
// timestamp_unix_nano — the same way the
// teacher's MockRadarPort replays recorded device output over
// bufio.Scanner. It is used by tests and by touchreplay's offline
// analysis mode, where there is no physical sensor to open.
//
// Pausing a MockScanner (Pause) makes NextScan return ErrScanTimeout
// until Resume is called, exercising the same timeout path a stalled
// hardware scanner would hit.
type MockScanner struct {
	sensorID string
	src      io.Reader

	mu      sync.Mutex
	scanner *bufio.Scanner
	paused  bool
	opened  bool
}

// NewMockScanner creates a MockScanner for sensorID that replays scripted
// scan lines read from src.
func NewMockScanner(sensorID string, src io.Reader) *MockScanner {
	return &MockScanner{sensorID: sensorID, src: src}
}

func (m *MockScanner) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := bufio.NewScanner(m.src)
	s.Buffer(make([]byte, 0, 64*1024), 1<<20)
	m.scanner = s
	m.opened = true
	return nil
}

func (m *MockScanner) Pause() {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
}

func (m *MockScanner) Resume() {
	m.mu.Lock()
	m.paused = false
	m.mu.Unlock()
}

func (m *MockScanner) NextScan(ctx context.Context) (Scan, error) {
	select {
	case <-ctx.Done():
		return Scan{}, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opened {
		return Scan{}, fmt.Errorf("mock scanner %q: NextScan called before Open", m.sensorID)
	}
	if m.paused {
		return Scan{}, ErrScanTimeout
	}
	if !m.scanner.Scan() {
		if err := m.scanner.Err(); err != nil {
			return Scan{}, err
		}
		return Scan{}, ErrScanTimeout
	}

	var line struct {
		Ranges    []float64 `json:"ranges"`
		Timestamp int64     `json:"timestamp_unix_nano"`
	}
	if err := json.Unmarshal(m.scanner.Bytes(), &line); err != nil {
		return Scan{}, fmt.Errorf("mock scanner %q: parse scripted scan: %w", m.sensorID, err)
	}

	return scanFromLine(m.sensorID, line.Timestamp, line.Ranges), nil
}

func (m *MockScanner) Close() error {
	return nil
}
