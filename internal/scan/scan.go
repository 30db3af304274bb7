// Package scan abstracts the hardware or mock source of polar LiDAR
// scans (spec §4.1). Everything downstream — background subtraction,
// geometry, clustering — consumes the Scanner interface and never cares
// whether a scan came off a serial port, a recorded capture, or a script.
package scan

import (
	"context"
	"errors"
	"time"
)

// ErrScanTimeout is returned by NextScan when the source is exhausted, and
// by MockScanner whenever it is paused. A done context yields ctx.Err().
var ErrScanTimeout = errors.New("scan: timed out waiting for next scan")

// ErrSampleCountChanged is returned when a scan's sample count differs
// from the count established by the scanner's first scan, violating the
// constant-N guarantee every Scanner implementation must uphold.
var ErrSampleCountChanged = errors.New("scan: sample count changed mid-stream")

// ErrNonMonotonicScan is returned when a scan's timestamp precedes the
// previous scan's, violating the monotonic-timestamp guarantee.
var ErrNonMonotonicScan = errors.New("scan: timestamp moved backwards")

// Scan is one sweep of range samples from a sensor, in meters. A sample
// of 0 marks an invalid or out-of-range return (spec §3).
type Scan struct {
	SensorID  string
	Timestamp time.Time
	Ranges    []float64
}

// Scanner yields a stream of Scans for one sensor. Implementations must
// guarantee non-decreasing timestamps and a sample count fixed for the
// life of the Scanner; Guard wraps any Scanner to enforce both.
type Scanner interface {
	// Open prepares the scanner; NextScan must not be called before Open
	// returns successfully.
	Open(ctx context.Context) error

	// NextScan blocks until a scan is available, ctx is done, or the
	// source is exhausted, in which case it returns ErrScanTimeout.
	NextScan(ctx context.Context) (Scan, error)

	// Close releases the scanner's underlying resources. NextScan must
	// not be called after Close.
	Close() error
}
