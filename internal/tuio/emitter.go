package tuio

import (
	"context"
	"time"

	"github.com/jithumediapro/lidar-touch/internal/monitoring"
	"github.com/jithumediapro/lidar-touch/internal/track"
)

// heartbeatInterval is the maximum silence the protocol tolerates
// before a liveness bundle must be sent regardless of whether anything
// changed (spec §4.8).
const heartbeatInterval = time.Second

// endpoint pairs a Forwarder with the screen it is subscribed to.
type endpoint struct {
	screenID  int
	forwarder *Forwarder
}

// Emitter owns one Builder and fseq counter per screen and fans frames
// out to every endpoint subscribed to that screen. It is the component
// that turns track.Events into wire bundles (spec §4.8).
type Emitter struct {
	appName string
	host    string

	endpoints []endpoint

	screens map[int]*screenState
}

type screenState struct {
	builder    *Builder
	seq        int32
	alive      map[int32]track.Track
	lastSentAt time.Time
}

// NewEmitter creates an Emitter that identifies itself as
// "<appName>@<host>" in TUIO source messages.
func NewEmitter(appName, host string) *Emitter {
	return &Emitter{appName: appName, host: host, screens: make(map[int]*screenState)}
}

// AddEndpoint subscribes a forwarder to a screen's bundles. Ownership of
// starting/stopping the forwarder belongs to the caller.
func (e *Emitter) AddEndpoint(screenID int, f *Forwarder) {
	e.endpoints = append(e.endpoints, endpoint{screenID: screenID, forwarder: f})
}

func (e *Emitter) stateFor(screenID int) *screenState {
	s, ok := e.screens[screenID]
	if !ok {
		s = &screenState{builder: NewBuilder(), alive: make(map[int32]track.Track)}
		e.screens[screenID] = s
	}
	return s
}

// source returns this emitter's TUIO source identity string.
func (e *Emitter) source() string {
	return e.appName + "@" + e.host
}

// Emit applies a batch of track events for one screen (all events from
// a single Tracker.Update call) and sends the resulting bundle to every
// endpoint subscribed to that screen.
func (e *Emitter) Emit(screenID int, events []track.Event, now time.Time) error {
	s := e.stateFor(screenID)

	for _, ev := range events {
		switch ev.Kind {
		case track.EventAdd, track.EventUpdate:
			s.alive[int32(ev.TrackID)] = track.Track{ID: ev.TrackID, X: ev.X, Y: ev.Y, VX: ev.VX, VY: ev.VY}
		case track.EventRemove:
			delete(s.alive, int32(ev.TrackID))
		}
	}

	return e.send(screenID, s, now)
}

// Tick is called once per frame period even when no events occurred, so
// the heartbeat rule (at least one bundle per second) is honored.
func (e *Emitter) Tick(screenID int, now time.Time) error {
	s := e.stateFor(screenID)
	if now.Sub(s.lastSentAt) < heartbeatInterval {
		return nil
	}
	return e.send(screenID, s, now)
}

func (e *Emitter) send(screenID int, s *screenState, now time.Time) error {
	frame := Frame{
		Source:    e.source(),
		Alive:     aliveIDs(s.alive),
		Cursors:   cursorsFromAlive(s.alive),
		SeqNumber: s.seq,
	}
	frame.SourceChanged = !s.builder.haveSource
	s.seq++ // wraps naturally on int32 overflow, as spec.md §4.8 requires

	bundles, err := s.builder.Build(frame)
	if err != nil {
		return err
	}
	s.lastSentAt = now

	for _, b := range bundles {
		e.fanOut(screenID, b)
	}
	return nil
}

func (e *Emitter) fanOut(screenID int, bundle []byte) {
	for _, ep := range e.endpoints {
		if ep.screenID != screenID {
			continue
		}
		ep.forwarder.SendAsync(bundle)
	}
}

func aliveIDs(alive map[int32]track.Track) []int32 {
	ids := make([]int32, 0, len(alive))
	for id := range alive {
		ids = append(ids, id)
	}
	return ids
}

func cursorsFromAlive(alive map[int32]track.Track) []Cursor {
	cursors := make([]Cursor, 0, len(alive))
	for id, tr := range alive {
		cursors = append(cursors, Cursor{
			SessionID: id,
			U:         float32(tr.X),
			V:         float32(tr.Y),
			DU:        float32(tr.VX),
			DV:        float32(tr.VY),
		})
	}
	return cursors
}

// Run drives periodic heartbeat ticks for every screen with at least
// one endpoint, until ctx is done.
func (e *Emitter) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	screenIDs := make(map[int]bool)
	for _, ep := range e.endpoints {
		screenIDs[ep.screenID] = true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for id := range screenIDs {
				if err := e.Tick(id, now); err != nil {
					monitoring.Warnf("tuio: heartbeat for screen %d failed: %v", id, err)
				}
			}
		}
	}
}
