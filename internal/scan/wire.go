package scan

import "time"

// scanFromLine builds a Scan from a sensor id, a Unix-nanosecond
// timestamp, and a ranges slice — the common tail end of mock and serial
// decoding. A zero timestamp is replaced with the
// current wall-clock time, since scripted fixtures often omit it.
func scanFromLine(sensorID string, unixNano int64, ranges []float64) Scan {
	ts := time.Unix(0, unixNano)
	if unixNano == 0 {
		ts = time.Now()
	}
	return Scan{SensorID: sensorID, Timestamp: ts, Ranges: ranges}
}
