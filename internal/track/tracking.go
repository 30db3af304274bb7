// Package track assigns fused touch candidates to persistent tracks,
// ages them through birth, confirmation, and death, and reports the
// resulting ADD/UPDATE/REMOVE events (spec §4.7).
package track

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// maxSpeedHistory bounds the per-track speed sample buffer used for
// percentile diagnostics.
const maxSpeedHistory = 100

// State is a track's lifecycle state.
type State string

const (
	StateUnconfirmed State = "unconfirmed"
	StateConfirmed   State = "confirmed"
)

// EventKind identifies what happened to a track on a given frame.
type EventKind string

const (
	EventAdd    EventKind = "add"
	EventUpdate EventKind = "update"
	EventRemove EventKind = "remove"
)

// Observation is one fused touch candidate delivered to the tracker for a
// single screen, in normalized screen coordinates ([0,1]x[0,1]).
type Observation struct {
	X, Y float64
}

// Track is one tracked touch point.
type Track struct {
	ID     int64
	State  State
	X, Y   float64 // smoothed position
	VX, VY float64 // smoothed velocity, units/sec

	age        int // consecutive matched frames since birth
	missStreak int
	lastSeen   time.Time

	speedHistory []float64 // recent |velocity| samples, for SpeedPercentile
}

// Params holds the tuning values the tracker applies to every frame.
type Params struct {
	Beta           float64 // position EMA factor
	Gamma          float64 // velocity EMA factor
	RGate          float64 // gating distance, normalized units
	DeathThreshold int     // consecutive misses before a confirmed track dies
	BirthGrace     int     // consecutive matched frames before confirmation
}

// Event is an ADD/UPDATE/REMOVE notification emitted by Update.
type Event struct {
	Kind    EventKind
	TrackID int64
	X, Y    float64
	VX, VY  float64
}

// Tracker assigns observations to tracks by gated minimum-cost matching,
// applies EMA smoothing to matched tracks, and ages tracks through their
// lifecycle. A Tracker is not safe for concurrent use: the pipeline runs
// exactly one fusion/tracker/emitter goroutine per screen, so no locking
// is needed here.
type Tracker struct {
	params Params
	tracks map[int64]*Track
	nextID int64
}

// NewTracker creates a Tracker for one screen with the given parameters.
func NewTracker(params Params) *Tracker {
	return &Tracker{
		params: params,
		tracks: make(map[int64]*Track),
		nextID: 1,
	}
}

// Update advances the tracker by one frame. dt is the elapsed time in
// seconds since the previous call, used to predict existing tracks forward
// before gating and to compute instantaneous velocity on a match.
func (t *Tracker) Update(observations []Observation, now time.Time, dt float64) []Event {
	var events []Event

	ids := t.sortedTrackIDs()

	predicted := make([]Observation, len(ids))
	for i, id := range ids {
		tr := t.tracks[id]
		predicted[i] = Observation{X: tr.X + tr.VX*dt, Y: tr.Y + tr.VY*dt}
	}

	obsToTrack := t.assign(observations, predicted)

	matched := make(map[int64]bool, len(ids))
	for obsIdx, trackIdx := range obsToTrack {
		obs := observations[obsIdx]

		if trackIdx < 0 {
			tr := t.birth(obs, now)
			if ev := t.maybeConfirm(tr); ev != nil {
				events = append(events, *ev)
			}
			continue
		}

		id := ids[trackIdx]
		tr := t.tracks[id]
		matched[id] = true
		t.applyObservation(tr, obs, dt, now)
		tr.missStreak = 0

		if tr.State == StateUnconfirmed {
			tr.age++
			if ev := t.maybeConfirm(tr); ev != nil {
				events = append(events, *ev)
			}
		} else {
			events = append(events, t.event(EventUpdate, tr))
		}
	}

	for _, id := range ids {
		if matched[id] {
			continue
		}
		tr := t.tracks[id]
		tr.missStreak++

		if tr.State == StateUnconfirmed {
			// No grace for unconfirmed tracks: the first miss kills them
			// silently, since they were never announced with an ADD.
			delete(t.tracks, id)
			continue
		}

		if tr.missStreak >= t.params.DeathThreshold {
			events = append(events, t.event(EventRemove, tr))
			delete(t.tracks, id)
		}
	}

	return events
}

// maybeConfirm promotes tr to confirmed and returns the ADD event once its
// age has reached the birth grace period. It returns nil otherwise.
func (t *Tracker) maybeConfirm(tr *Track) *Event {
	if tr.State != StateUnconfirmed || tr.age < t.params.BirthGrace {
		return nil
	}
	tr.State = StateConfirmed
	ev := t.event(EventAdd, tr)
	return &ev
}

func (t *Tracker) birth(obs Observation, now time.Time) *Track {
	tr := &Track{
		ID:       t.nextID,
		State:    StateUnconfirmed,
		X:        obs.X,
		Y:        obs.Y,
		lastSeen: now,
	}
	t.nextID++
	t.tracks[tr.ID] = tr
	return tr
}

// applyObservation folds a matched observation into a track's smoothed
// position and velocity using exponential moving averages (spec §4.7).
func (t *Tracker) applyObservation(tr *Track, obs Observation, dt float64, now time.Time) {
	predX := tr.X + tr.VX*dt
	predY := tr.Y + tr.VY*dt

	newVX, newVY := tr.VX, tr.VY
	if dt > 0 {
		instVX := (obs.X - tr.X) / dt
		instVY := (obs.Y - tr.Y) / dt
		newVX = t.params.Gamma*instVX + (1-t.params.Gamma)*tr.VX
		newVY = t.params.Gamma*instVY + (1-t.params.Gamma)*tr.VY
	}

	tr.X = t.params.Beta*obs.X + (1-t.params.Beta)*predX
	tr.Y = t.params.Beta*obs.Y + (1-t.params.Beta)*predY
	tr.VX = newVX
	tr.VY = newVY
	tr.lastSeen = now

	tr.speedHistory = append(tr.speedHistory, math.Hypot(tr.VX, tr.VY))
	if len(tr.speedHistory) > maxSpeedHistory {
		tr.speedHistory = tr.speedHistory[1:]
	}
}

// SpeedPercentile returns the p-th percentile (0-1) of the track's recent
// speed samples, or 0 if none have been recorded yet. Used for diagnostics
// (e.g. flagging a track whose p95 speed suggests sensor noise rather than
// a real touch).
func (tr *Track) SpeedPercentile(p float64) float64 {
	if len(tr.speedHistory) == 0 {
		return 0
	}
	sorted := make([]float64, len(tr.speedHistory))
	copy(sorted, tr.speedHistory)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

func (t *Tracker) event(kind EventKind, tr *Track) Event {
	return Event{Kind: kind, TrackID: tr.ID, X: tr.X, Y: tr.Y, VX: tr.VX, VY: tr.VY}
}

func (t *Tracker) sortedTrackIDs() []int64 {
	ids := make([]int64, 0, len(t.tracks))
	for id := range t.tracks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// assign matches observations to predicted track positions by minimum-cost
// bipartite matching, gated at RGate, using the optimal Hungarian solver
// at every matrix size. Returns assignment[i] = track index in
// predicted, or -1 if observation i starts a new track.
func (t *Tracker) assign(observations, predicted []Observation) []int {
	nObs := len(observations)
	if nObs == 0 {
		return nil
	}
	nTracks := len(predicted)
	if nTracks == 0 {
		assignment := make([]int, nObs)
		for i := range assignment {
			assignment[i] = -1
		}
		return assignment
	}

	cost := make([][]float32, nObs)
	for i, o := range observations {
		cost[i] = make([]float32, nTracks)
		for j, p := range predicted {
			d := math.Hypot(o.X-p.X, o.Y-p.Y)
			if d > t.params.RGate {
				cost[i][j] = float32(hungarianlnf)
			} else {
				cost[i][j] = float32(d)
			}
		}
	}

	return HungarianAssign(cost)
}

// greedyAssign assigns the globally cheapest available (observation,
// track) pair first, then the next cheapest among what remains, until no
// pair within the gate remains. It is not guaranteed optimal but runs in
// O(n*m*log(n*m)); assign does not call it.
func greedyAssign(cost [][]float32) []int {
	nObs := len(cost)
	nTracks := len(cost[0])

	assignment := make([]int, nObs)
	for i := range assignment {
		assignment[i] = -1
	}

	type pair struct {
		obs, track int
		cost       float32
	}
	var pairs []pair
	for i := 0; i < nObs; i++ {
		for j := 0; j < nTracks; j++ {
			if cost[i][j] < float32(hungarianlnf) {
				pairs = append(pairs, pair{i, j, cost[i][j]})
			}
		}
	}
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].cost < pairs[b].cost })

	usedObs := make([]bool, nObs)
	usedTrack := make([]bool, nTracks)
	for _, p := range pairs {
		if usedObs[p.obs] || usedTrack[p.track] {
			continue
		}
		assignment[p.obs] = p.track
		usedObs[p.obs] = true
		usedTrack[p.track] = true
	}
	return assignment
}

// ActiveTracks returns all tracks currently known to the tracker,
// confirmed or not, sorted by ID.
func (t *Tracker) ActiveTracks() []*Track {
	ids := t.sortedTrackIDs()
	out := make([]*Track, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.tracks[id])
	}
	return out
}

// ConfirmedTrackCount returns the number of confirmed tracks.
func (t *Tracker) ConfirmedTrackCount() int {
	n := 0
	for _, tr := range t.tracks {
		if tr.State == StateConfirmed {
			n++
		}
	}
	return n
}
