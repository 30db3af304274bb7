package fusion

import (
	"math"
	"testing"
	"time"

	"github.com/jithumediapro/lidar-touch/internal/screen"
)

func TestMergeCombinesCloseCandidatesFromDifferentSensors(t *testing.T) {
	candidates := []screen.MappedCandidate{
		{ScreenID: 1, U: 0.50, V: 0.50, Count: 4, SensorID: "a"},
		{ScreenID: 1, U: 0.51, V: 0.50, Count: 2, SensorID: "b"},
	}
	merged := Merge(candidates, 0.02)
	if len(merged) != 1 {
		t.Fatalf("Merge() returned %d candidates, want 1", len(merged))
	}
	if merged[0].Count != 6 {
		t.Errorf("Count = %d, want 6", merged[0].Count)
	}
	// Weighted centroid: (0.50*4 + 0.51*2) / 6
	want := (0.50*4 + 0.51*2) / 6
	if math.Abs(merged[0].U-want) > 1e-9 {
		t.Errorf("U = %v, want %v", merged[0].U, want)
	}
}

func TestMergeLeavesDistantCandidatesSeparate(t *testing.T) {
	candidates := []screen.MappedCandidate{
		{ScreenID: 1, U: 0.1, V: 0.1, Count: 1, SensorID: "a"},
		{ScreenID: 1, U: 0.9, V: 0.9, Count: 1, SensorID: "b"},
	}
	merged := Merge(candidates, 0.02)
	if len(merged) != 2 {
		t.Fatalf("Merge() returned %d candidates, want 2 (outside r_merge)", len(merged))
	}
}

func TestMergeDoesNotCombineSameSensorCandidates(t *testing.T) {
	candidates := []screen.MappedCandidate{
		{ScreenID: 1, U: 0.50, V: 0.50, Count: 1, SensorID: "a"},
		{ScreenID: 1, U: 0.505, V: 0.50, Count: 1, SensorID: "a"},
	}
	merged := Merge(candidates, 0.02)
	if len(merged) != 2 {
		t.Fatalf("Merge() combined two candidates from the same sensor, want them left separate")
	}
}

func TestMergeIsIterativeToFixedPoint(t *testing.T) {
	// Three candidates in a chain: a-b within r_merge, b-c within r_merge,
	// but a-c just outside it. A single non-iterative pass could merge a+b
	// then fail to also catch the result against c; iterating to a fixed
	// point must still merge everything into one.
	candidates := []screen.MappedCandidate{
		{ScreenID: 1, U: 0.00, V: 0.0, Count: 1, SensorID: "a"},
		{ScreenID: 1, U: 0.02, V: 0.0, Count: 10, SensorID: "b"},
		{ScreenID: 1, U: 0.04, V: 0.0, Count: 1, SensorID: "c"},
	}
	merged := Merge(candidates, 0.025)
	if len(merged) != 1 {
		t.Fatalf("Merge() returned %d candidates, want 1 after chaining to a fixed point", len(merged))
	}
}

func TestMergeKeepsLaterTimestampAndWeightsRadius(t *testing.T) {
	now := time.Now()
	candidates := []screen.MappedCandidate{
		{ScreenID: 1, U: 0.50, V: 0.50, Radius: 0.01, Count: 1, SensorID: "a", Timestamp: now},
		{ScreenID: 1, U: 0.51, V: 0.50, Radius: 0.03, Count: 1, SensorID: "b", Timestamp: now.Add(time.Millisecond)},
	}
	merged := Merge(candidates, 0.02)
	if len(merged) != 1 {
		t.Fatalf("Merge() returned %d candidates, want 1", len(merged))
	}
	if want := 0.02; math.Abs(merged[0].Radius-want) > 1e-9 {
		t.Errorf("Radius = %v, want %v (weighted average of 0.01 and 0.03)", merged[0].Radius, want)
	}
	if !merged[0].Timestamp.Equal(now.Add(time.Millisecond)) {
		t.Errorf("Timestamp = %v, want the later of the two merged candidates", merged[0].Timestamp)
	}
}

func TestMergeEmptyInput(t *testing.T) {
	merged := Merge(nil, 0.02)
	if len(merged) != 0 {
		t.Fatalf("Merge(nil) returned %d candidates, want 0", len(merged))
	}
}
