package scan

import "context"

// Guard wraps a Scanner and enforces the invariants every Scanner
// implementation is supposed to uphold on its own: non-decreasing
// timestamps and a sample count fixed after the first scan. Wrapping the
// hardware and pcap-replay variants in Guard catches a misbehaving
// source (a serial port glitch, a corrupt capture) instead of letting bad
// timestamps or a changed N propagate into background subtraction.
type Guard struct {
	Scanner

	n        int
	haveN    bool
	lastTime int64 // UnixNano of the last timestamp seen, 0 until first scan
}

// NewGuard wraps s.
func NewGuard(s Scanner) *Guard {
	return &Guard{Scanner: s}
}

func (g *Guard) NextScan(ctx context.Context) (Scan, error) {
	sc, err := g.Scanner.NextScan(ctx)
	if err != nil {
		return Scan{}, err
	}

	if !g.haveN {
		g.n = len(sc.Ranges)
		g.haveN = true
	} else if len(sc.Ranges) != g.n {
		return Scan{}, ErrSampleCountChanged
	}

	nano := sc.Timestamp.UnixNano()
	if g.lastTime != 0 && nano < g.lastTime {
		return Scan{}, ErrNonMonotonicScan
	}
	g.lastTime = nano

	return sc, nil
}
