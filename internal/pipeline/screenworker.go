package pipeline

import (
	"context"
	"time"

	"github.com/jithumediapro/lidar-touch/internal/fusion"
	"github.com/jithumediapro/lidar-touch/internal/monitoring"
	"github.com/jithumediapro/lidar-touch/internal/screen"
	"github.com/jithumediapro/lidar-touch/internal/store"
	"github.com/jithumediapro/lidar-touch/internal/timeutil"
	"github.com/jithumediapro/lidar-touch/internal/track"
	"github.com/jithumediapro/lidar-touch/internal/tuio"
)

// framePeriod is the target cadence a screen worker assembles frames at,
// matched to the ~40Hz scan rate named in spec §5.
const framePeriod = 25 * time.Millisecond

// frameWindow is how far past a frame's target start the worker will
// wait for a straggling sensor before assembling the frame anyway
// (spec §5, "a deadline of 10 ms past target elapses").
const frameWindow = 10 * time.Millisecond

// windowPoll is the polling granularity used to detect that every
// contributing sensor's queue has gone Ready before frameWindow elapses.
const windowPoll = time.Millisecond

// screenWorker owns one screen's fusion, tracking, and emission: it
// drains every contributing sensor's queue once per frame, merges
// duplicate candidates, feeds the tracker, and hands the resulting
// events to the TUIO emitter (spec §4.6, §4.7, §4.8).
type screenWorker struct {
	screenID int
	rMerge   float64

	inputs   []*dropOldestQueue[screen.MappedCandidate]
	tracker  *track.Tracker
	emitter  *tuio.Emitter
	recorder *store.Recorder // nil when recording is disabled
	clock    timeutil.Clock

	lastFrame time.Time
}

func newScreenWorker(screenID int, rMerge float64, inputs []*dropOldestQueue[screen.MappedCandidate], params track.Params, emitter *tuio.Emitter, recorder *store.Recorder) *screenWorker {
	return &screenWorker{
		screenID: screenID,
		rMerge:   rMerge,
		inputs:   inputs,
		tracker:  track.NewTracker(params),
		emitter:  emitter,
		recorder: recorder,
		clock:    timeutil.RealClock{},
	}
}

// Run assembles and emits frames for this screen every framePeriod
// until ctx is done.
func (w *screenWorker) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(framePeriod)
	defer ticker.Stop()

	w.lastFrame = w.clock.Now()

	for {
		select {
		case <-ctx.Done():
			w.drainFinal()
			return
		case target := <-ticker.C():
			w.assembleFrame(ctx, target)
		}
	}
}

// assembleFrame waits for every contributing sensor to go Ready (or
// frameWindow to elapse), then merges, tracks, and emits.
func (w *screenWorker) assembleFrame(ctx context.Context, target time.Time) {
	deadline := target.Add(frameWindow)

	for w.clock.Now().Before(deadline) && !w.allReady(target) {
		select {
		case <-ctx.Done():
			return
		case <-w.clock.After(windowPoll):
		}
	}

	now := w.clock.Now()
	candidates := w.drainAll()
	merged := fusion.Merge(candidates, w.rMerge)

	observations := make([]track.Observation, len(merged))
	for i, mc := range merged {
		observations[i] = track.Observation{X: mc.U, Y: mc.V}
	}

	dt := now.Sub(w.lastFrame).Seconds()
	w.lastFrame = now

	events := w.tracker.Update(observations, now, dt)
	if len(events) > 0 {
		if w.recorder != nil {
			w.recorder.Record(events, now)
		}
		if err := w.emitter.Emit(w.screenID, events, now); err != nil {
			monitoring.Warnf("screen %d: emit: %v", w.screenID, err)
		}
		return
	}
	if err := w.emitter.Tick(w.screenID, now); err != nil {
		monitoring.Warnf("screen %d: heartbeat: %v", w.screenID, err)
	}
}

func (w *screenWorker) allReady(target time.Time) bool {
	for _, q := range w.inputs {
		if !q.ReadyAt(target, mappedCandidateTimestamp) {
			return false
		}
	}
	return len(w.inputs) > 0
}

func mappedCandidateTimestamp(mc screen.MappedCandidate) time.Time {
	return mc.Timestamp
}

func (w *screenWorker) drainAll() []screen.MappedCandidate {
	var out []screen.MappedCandidate
	for _, q := range w.inputs {
		out = append(out, q.DrainAll()...)
	}
	return out
}

// drainFinal drains every input once more, discards it (no new tracks
// are born on the way out), and emits a final bundle with an empty
// alive set for every track still live, per spec §5's cancellation
// rule.
func (w *screenWorker) drainFinal() {
	w.drainAll()

	now := w.clock.Now()
	var events []track.Event
	for _, tr := range w.tracker.ActiveTracks() {
		events = append(events, track.Event{Kind: track.EventRemove, TrackID: tr.ID, X: tr.X, Y: tr.Y})
	}
	if err := w.emitter.Emit(w.screenID, events, now); err != nil {
		monitoring.Warnf("screen %d: final emit: %v", w.screenID, err)
	}
}
