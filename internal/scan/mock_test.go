package scan

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMockScannerReplaysScriptedLines(t *testing.T) {
	script := strings.Join([]string{
		`{"ranges":[1.0,2.0,3.0]}`,
		`{"ranges":[1.1,2.1,3.1]}`,
	}, "\n")
	m := NewMockScanner("sensor-a", strings.NewReader(script))
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer m.Close()

	first, err := m.NextScan(context.Background())
	if err != nil {
		t.Fatalf("NextScan() #1 error = %v", err)
	}
	if len(first.Ranges) != 3 || first.Ranges[1] != 2.0 {
		t.Fatalf("NextScan() #1 = %+v, want ranges [1 2 3]", first)
	}

	second, err := m.NextScan(context.Background())
	if err != nil {
		t.Fatalf("NextScan() #2 error = %v", err)
	}
	if second.Ranges[0] != 1.1 {
		t.Fatalf("NextScan() #2 = %+v, want first range 1.1", second)
	}
}

func TestMockScannerExhaustedReturnsTimeout(t *testing.T) {
	m := NewMockScanner("sensor-a", strings.NewReader(`{"ranges":[1.0]}`))
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := m.NextScan(context.Background()); err != nil {
		t.Fatalf("NextScan() #1 error = %v", err)
	}
	if _, err := m.NextScan(context.Background()); !errors.Is(err, ErrScanTimeout) {
		t.Fatalf("NextScan() after exhaustion error = %v, want ErrScanTimeout", err)
	}
}

func TestMockScannerPauseAndResume(t *testing.T) {
	script := strings.Join([]string{`{"ranges":[1.0]}`, `{"ranges":[2.0]}`}, "\n")
	m := NewMockScanner("sensor-a", strings.NewReader(script))
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	m.Pause()
	if _, err := m.NextScan(context.Background()); !errors.Is(err, ErrScanTimeout) {
		t.Fatalf("NextScan() while paused error = %v, want ErrScanTimeout", err)
	}

	m.Resume()
	sc, err := m.NextScan(context.Background())
	if err != nil {
		t.Fatalf("NextScan() after resume error = %v", err)
	}
	if sc.Ranges[0] != 1.0 {
		t.Fatalf("NextScan() after resume = %+v, want first scripted scan", sc)
	}
}

func TestMockScannerNextScanBeforeOpen(t *testing.T) {
	m := NewMockScanner("sensor-a", strings.NewReader(`{"ranges":[1.0]}`))
	if _, err := m.NextScan(context.Background()); err == nil {
		t.Fatal("NextScan() before Open() = nil error, want error")
	}
}
