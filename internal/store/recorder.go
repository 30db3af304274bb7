package store

import (
	"context"
	"time"

	"github.com/jithumediapro/lidar-touch/internal/monitoring"
	"github.com/jithumediapro/lidar-touch/internal/track"
)

// recorderQueueDepth bounds how many events the recorder will buffer
// before dropping the oldest — recording is best-effort and must never
// push back on the screen worker that produced the event.
const recorderQueueDepth = 256

// Recorder asynchronously persists a screen's track events to a Store,
// off the real-time emit path.
type Recorder struct {
	store     *Store
	sessionID string
	events    chan RecordedEvent
	dropped   int
}

// NewRecorder opens a session for screenID and returns a Recorder ready
// to accept events via Record.
func NewRecorder(s *Store, screenID int, now time.Time) (*Recorder, error) {
	id, err := s.StartSession(screenID, now)
	if err != nil {
		return nil, err
	}
	return &Recorder{store: s, sessionID: id, events: make(chan RecordedEvent, recorderQueueDepth)}, nil
}

// Run drains queued events into the store until ctx is done, then ends
// the session.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if err := r.store.EndSession(r.sessionID, time.Now()); err != nil {
				monitoring.Warnf("store: end session %q: %v", r.sessionID, err)
			}
			return
		case ev := <-r.events:
			if err := r.store.RecordEvent(ev); err != nil {
				monitoring.Warnf("store: record event: %v", err)
			}
		}
	}
}

// Record queues a batch of track events produced by one Emit call,
// dropping the oldest buffered event on overflow rather than blocking
// the screen worker.
func (r *Recorder) Record(events []track.Event, now time.Time) {
	for _, ev := range events {
		rec := RecordedEvent{
			SessionID:  r.sessionID,
			TrackID:    ev.TrackID,
			Kind:       string(ev.Kind),
			U:          ev.X,
			V:          ev.Y,
			VU:         ev.VX,
			VV:         ev.VY,
			ObservedAt: now,
		}
		select {
		case r.events <- rec:
		default:
			select {
			case <-r.events:
				r.dropped++
			default:
			}
			select {
			case r.events <- rec:
			default:
				r.dropped++
			}
		}
	}
}

// Dropped returns the number of events dropped due to a full buffer.
func (r *Recorder) Dropped() int {
	return r.dropped
}
