package track

import (
	"testing"
	"time"
)

func testParams() Params {
	return Params{
		Beta:           0.5,
		Gamma:          0.3,
		RGate:          0.1,
		DeathThreshold: 2,
		BirthGrace:     1,
	}
}

func TestUpdateBirthsUnconfirmedTrackWithoutEvent(t *testing.T) {
	tr := NewTracker(Params{Beta: 0.5, Gamma: 0.3, RGate: 0.1, DeathThreshold: 2, BirthGrace: 2})
	events := tr.Update([]Observation{{X: 0.5, Y: 0.5}}, time.Now(), 0.1)
	if len(events) != 0 {
		t.Fatalf("Update() on first frame = %v, want no events (birth grace not yet met)", events)
	}
	if len(tr.ActiveTracks()) != 1 {
		t.Fatalf("expected 1 unconfirmed track, got %d", len(tr.ActiveTracks()))
	}
}

func TestUpdateConfirmsAfterBirthGraceAndEmitsAdd(t *testing.T) {
	tr := NewTracker(testParams()) // BirthGrace: 1
	now := time.Now()

	events := tr.Update([]Observation{{X: 0.5, Y: 0.5}}, now, 0.1) // birth, age 0
	if len(events) != 0 {
		t.Fatalf("Update() on birth frame = %v, want no events (age 0 < birth grace 1)", events)
	}
	events = tr.Update([]Observation{{X: 0.5, Y: 0.5}}, now.Add(100*time.Millisecond), 0.1)
	if len(events) != 1 || events[0].Kind != EventAdd {
		t.Fatalf("Update() = %v, want single ADD (birth grace is 1)", events)
	}
}

func TestUpdateEmitsUpdateForConfirmedTrack(t *testing.T) {
	tr := NewTracker(testParams())
	now := time.Now()

	tr.Update([]Observation{{X: 0.5, Y: 0.5}}, now, 0.1)                          // birth
	tr.Update([]Observation{{X: 0.5, Y: 0.5}}, now.Add(50*time.Millisecond), 0.1) // confirms, ADD
	events := tr.Update([]Observation{{X: 0.51, Y: 0.5}}, now.Add(100*time.Millisecond), 0.1)
	if len(events) != 1 || events[0].Kind != EventUpdate {
		t.Fatalf("Update() = %v, want single UPDATE", events)
	}
}

func TestUpdateUnconfirmedTrackDiesImmediatelyOnMiss(t *testing.T) {
	tr := NewTracker(Params{Beta: 0.5, Gamma: 0.3, RGate: 0.1, DeathThreshold: 2, BirthGrace: 3})
	now := time.Now()

	tr.Update([]Observation{{X: 0.5, Y: 0.5}}, now, 0.1) // unconfirmed, age 0
	events := tr.Update(nil, now.Add(100*time.Millisecond), 0.1)
	if len(events) != 0 {
		t.Fatalf("Update() on miss = %v, want no events for unconfirmed track death", events)
	}
	if len(tr.ActiveTracks()) != 0 {
		t.Fatalf("expected unconfirmed track to be gone after a single miss, got %d", len(tr.ActiveTracks()))
	}
}

func TestUpdateConfirmedTrackSurvivesMissesUntilThreshold(t *testing.T) {
	tr := NewTracker(testParams()) // DeathThreshold: 2
	now := time.Now()

	tr.Update([]Observation{{X: 0.5, Y: 0.5}}, now, 0.1)                          // birth
	tr.Update([]Observation{{X: 0.5, Y: 0.5}}, now.Add(50*time.Millisecond), 0.1) // confirmed

	events := tr.Update(nil, now.Add(100*time.Millisecond), 0.1) // miss 1
	if len(events) != 0 {
		t.Fatalf("Update() on first miss = %v, want no events yet", events)
	}
	if len(tr.ActiveTracks()) != 1 {
		t.Fatal("track should still exist after one miss")
	}

	events = tr.Update(nil, now.Add(200*time.Millisecond), 0.1) // miss 2 -> death
	if len(events) != 1 || events[0].Kind != EventRemove {
		t.Fatalf("Update() on second miss = %v, want single REMOVE", events)
	}
	if len(tr.ActiveTracks()) != 0 {
		t.Fatal("track should be gone after reaching death threshold")
	}
}

func TestUpdateGatesDistantObservationsAsNewTracks(t *testing.T) {
	tr := NewTracker(testParams())
	now := time.Now()

	tr.Update([]Observation{{X: 0.1, Y: 0.1}}, now, 0.1)                          // birth
	tr.Update([]Observation{{X: 0.1, Y: 0.1}}, now.Add(50*time.Millisecond), 0.1) // confirmed
	events := tr.Update([]Observation{{X: 0.9, Y: 0.9}}, now.Add(100*time.Millisecond), 0.1)

	// The far observation is outside RGate of the existing track, so it
	// should birth a second track rather than update the first.
	if len(tr.ActiveTracks()) != 2 {
		t.Fatalf("expected 2 tracks (gated apart), got %d", len(tr.ActiveTracks()))
	}
	for _, ev := range events {
		if ev.Kind == EventUpdate {
			t.Errorf("did not expect an UPDATE event for a gated-out observation: %v", ev)
		}
	}
}

func TestGreedyAssignMatchesCheapestPairsFirst(t *testing.T) {
	cost := [][]float32{
		{1, 10},
		{10, 1},
	}
	assignment := greedyAssign(cost)
	if assignment[0] != 0 || assignment[1] != 1 {
		t.Errorf("greedyAssign() = %v, want [0 1]", assignment)
	}
}

func TestSpeedPercentileOfFreshTrackIsZero(t *testing.T) {
	tr := &Track{}
	if got := tr.SpeedPercentile(0.95); got != 0 {
		t.Errorf("SpeedPercentile() on fresh track = %f, want 0", got)
	}
}

func TestSpeedPercentileReflectsRecentSamples(t *testing.T) {
	tracker := NewTracker(testParams())
	now := time.Now()

	tracker.Update([]Observation{{X: 0.1, Y: 0.1}}, now, 0.1)
	tracker.Update([]Observation{{X: 0.15, Y: 0.1}}, now.Add(100*time.Millisecond), 0.1)
	tracker.Update([]Observation{{X: 0.2, Y: 0.1}}, now.Add(200*time.Millisecond), 0.1)

	tracks := tracker.ActiveTracks()
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	if got := tracks[0].SpeedPercentile(0.5); got <= 0 {
		t.Errorf("SpeedPercentile(0.5) = %f, want > 0 after moving observations", got)
	}
}

func TestGreedyAssignRespectsGate(t *testing.T) {
	cost := [][]float32{
		{float32(hungarianlnf), float32(hungarianlnf)},
	}
	assignment := greedyAssign(cost)
	if assignment[0] != -1 {
		t.Errorf("greedyAssign() = %v, want [-1] (all forbidden)", assignment)
	}
}
