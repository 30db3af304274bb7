package cluster

import (
	"sort"
	"time"
)

// Clusterer runs DBSCAN against one sensor's foreground points with a fixed
// (eps, minPts) pair, and returns deterministically ordered candidates so
// that replaying the same scan always yields the same candidate order.
type Clusterer struct {
	Eps    float64
	MinPts int
}

// NewClusterer creates a Clusterer with the given neighborhood radius and
// minimum point count (spec §3, per-sensor cluster_eps/cluster_min).
func NewClusterer(eps float64, minPts int) *Clusterer {
	return &Clusterer{Eps: eps, MinPts: minPts}
}

// Cluster runs DBSCAN over points and sorts the resulting candidates by
// centroid (X, then Y) for reproducible output. timestamp is the scan the
// points were classified from, and is stamped onto every Candidate (spec
// §3, "timestamp = the scan timestamp").
func (c *Clusterer) Cluster(points []FgPoint, sensorID string, timestamp time.Time) []Candidate {
	if len(points) == 0 {
		return nil
	}

	candidates := DBSCAN(points, c.Eps, c.MinPts, timestamp)

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CentroidX != candidates[j].CentroidX {
			return candidates[i].CentroidX < candidates[j].CentroidX
		}
		return candidates[i].CentroidY < candidates[j].CentroidY
	})

	for i := range candidates {
		candidates[i].SensorID = sensorID
	}

	return candidates
}
