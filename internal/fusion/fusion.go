// Package fusion merges MappedCandidates from multiple sensors covering
// the same screen into a single deduplicated set, so a hand seen by two
// overlapping scanners becomes one touch instead of two (spec §4.6).
package fusion

import (
	"math"

	"github.com/jithumediapro/lidar-touch/internal/screen"
)

// Merge collapses candidates whose (u, v) distance is below rMerge into
// a single weighted centroid (weight = point count), applied
// iteratively until no further pair is within rMerge of each other.
// Candidates contributed by the same sensor are never merged with each
// other, since a single sensor's Cluster Engine has already
// deduplicated its own frame.
func Merge(candidates []screen.MappedCandidate, rMerge float64) []screen.MappedCandidate {
	merged := append([]screen.MappedCandidate(nil), candidates...)

	for {
		i, j := closestMergeablePair(merged, rMerge)
		if i < 0 {
			return merged
		}
		merged[i] = weightedCentroid(merged[i], merged[j])
		merged = append(merged[:j], merged[j+1:]...)
	}
}

// closestMergeablePair returns the indices of the closest pair of
// candidates within rMerge of each other and from different sensors, or
// (-1, -1) if no such pair exists. Scanning for the closest pair (rather
// than the first) keeps the fixed point independent of input order.
func closestMergeablePair(candidates []screen.MappedCandidate, rMerge float64) (int, int) {
	bestI, bestJ := -1, -1
	bestDist := math.Inf(1)

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[i].SensorID == candidates[j].SensorID {
				continue
			}
			d := distance(candidates[i], candidates[j])
			if d <= rMerge && d < bestDist {
				bestDist = d
				bestI, bestJ = i, j
			}
		}
	}
	return bestI, bestJ
}

func distance(a, b screen.MappedCandidate) float64 {
	return math.Hypot(a.U-b.U, a.V-b.V)
}

// weightedCentroid combines two candidates into one, weighting each by
// its point count. The merged candidate keeps a's screen id (both share
// it by construction) and the summed count; its sensor id is left as
// a's, since downstream consumers only use sensor id for per-sensor
// dedup within a single sensor's own frame, not after fusion. Radius is
// weighted the same way as the centroid; Timestamp keeps the later of
// the two scans, since that is the most recent evidence the merged
// touch actually reflects.
func weightedCentroid(a, b screen.MappedCandidate) screen.MappedCandidate {
	wa, wb := float64(a.Count), float64(b.Count)
	if wa == 0 && wb == 0 {
		wa, wb = 1, 1
	}
	total := wa + wb

	ts := a.Timestamp
	if b.Timestamp.After(ts) {
		ts = b.Timestamp
	}

	return screen.MappedCandidate{
		ScreenID:  a.ScreenID,
		U:         (a.U*wa + b.U*wb) / total,
		V:         (a.V*wa + b.V*wb) / total,
		Radius:    (a.Radius*wa + b.Radius*wb) / total,
		Count:     a.Count + b.Count,
		SensorID:  a.SensorID,
		Timestamp: ts,
	}
}
