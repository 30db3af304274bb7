// Package monitoring provides the pipeline's diagnostic logging sink.
//
// The real-time stages (scan, background, cluster, track, tuio) must never
// block or fail on a logging call, so this package is just a swappable
// package-level function var rather than a logger object threaded through
// every constructor.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Infof logs routine, expected pipeline events: scan timeouts that have not
// yet crossed the stale threshold, dropped frames on a full queue, UDP sends
// retried this frame.
func Infof(format string, v ...interface{}) {
	Logf("INFO "+format, v...)
}

// Warnf logs conditions worth a human's attention but that the pipeline
// recovers from unattended: a sensor going stale, an endpoint that keeps
// failing, a queue overflow.
func Warnf(format string, v ...interface{}) {
	Logf("WARN "+format, v...)
}

// Errorf logs failures that stop a sensor or the whole pipeline from
// producing output: InsufficientBackground, ConfigInvalid.
func Errorf(format string, v ...interface{}) {
	Logf("ERROR "+format, v...)
}
