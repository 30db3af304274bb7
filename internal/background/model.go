// Package background learns a per-angle minimum-range floor for one
// sensor over a fixed warm-up window and classifies later scans against
// it, flagging samples closer than the floor as foreground (spec §4.2).
package background

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientBackground is returned by Classify until Learn has been
// called enough times to fill the learning window.
var ErrInsufficientBackground = errors.New("insufficient background: learning window not yet complete")

// Model tracks the minimum observed range per angular sample over a fixed
// number of learning frames, then classifies subsequent scans against that
// floor. Unlike an EMA background model, the floor never re-rises once an
// object temporarily occupies a cell during learning — this favors a
// static indoor touch rig, where the true background never gets any
// farther away than its closest observed return.
type Model struct {
	learnFrames int
	threshold   float64

	minRange   []float64
	framesSeen int
	learned    bool
}

// NewModel creates a Model for a sensor with angleCount samples per scan,
// a learning window of learnFrames frames, and a foreground threshold in
// meters (spec §3: learn_frames, fg_threshold).
func NewModel(angleCount, learnFrames int, threshold float64) *Model {
	m := &Model{
		learnFrames: learnFrames,
		threshold:   threshold,
		minRange:    make([]float64, angleCount),
	}
	for i := range m.minRange {
		m.minRange[i] = math.Inf(1)
	}
	return m
}

// Learn folds one scan's ranges into the per-angle minimum. It is a no-op
// once the learning window has filled; call Learned to check.
func (m *Model) Learn(ranges []float64) {
	if m.learned {
		return
	}
	n := len(ranges)
	if n > len(m.minRange) {
		n = len(m.minRange)
	}
	for i := 0; i < n; i++ {
		if ranges[i] <= 0 {
			continue // 0 marks an invalid sample (spec §3); skip it rather than sinking the floor
		}
		if ranges[i] < m.minRange[i] {
			m.minRange[i] = ranges[i]
		}
	}
	m.framesSeen++
	if m.framesSeen >= m.learnFrames {
		m.learned = true
	}
}

// Learned reports whether the learning window has filled.
func (m *Model) Learned() bool {
	return m.learned
}

// FramesSeen returns the number of frames folded into the model so far.
func (m *Model) FramesSeen() int {
	return m.framesSeen
}

// Classify returns, for each sample in ranges, whether it is foreground:
// valid (non-zero) and at or below the learned floor minus the
// foreground threshold. A sample exactly at the boundary (range ==
// floor - threshold) counts as foreground. Returns
// ErrInsufficientBackground until the model has learned.
func (m *Model) Classify(ranges []float64) ([]bool, error) {
	if !m.learned {
		return nil, fmt.Errorf("%w", ErrInsufficientBackground)
	}
	fg := make([]bool, len(ranges))
	n := len(ranges)
	if n > len(m.minRange) {
		n = len(m.minRange)
	}
	for i := 0; i < n; i++ {
		fg[i] = ranges[i] != 0 && ranges[i] <= m.minRange[i]-m.threshold
	}
	return fg, nil
}

// Floor returns a copy of the learned per-angle minimum range, or nil if
// the model has not learned yet.
func (m *Model) Floor() []float64 {
	if !m.learned {
		return nil
	}
	out := make([]float64, len(m.minRange))
	copy(out, m.minRange)
	return out
}
