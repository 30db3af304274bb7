// Package screen tests cluster candidates against configured screen
// rectangles and normalizes the survivors to [0,1]² screen coordinates
// (spec §4.5).
package screen

import (
	"math"
	"sort"
	"time"

	"github.com/jithumediapro/lidar-touch/internal/cluster"
)

// Rect is the geometric and access-control shape a screen needs from
// config.ScreenRect, narrowed to what this package consumes so it does
// not import internal/config.
type Rect struct {
	ID      int
	X, Y    float64
	W, H    float64
	Phi     float64
	Allowed func(sensorID string) bool
}

// MappedCandidate is a Candidate that has landed inside a screen's
// bounds, with its centroid normalized to that screen's [0,1]x[0,1]
// frame (spec §3).
type MappedCandidate struct {
	ScreenID  int
	U, V      float64
	Radius    float64 // world-frame bounding radius, carried from Candidate
	Count     int
	SensorID  string
	Timestamp time.Time // the scan this candidate was clustered from
}

// Mapper tests candidates against a fixed set of screens, in ascending
// ID order so that an overlap between two screens is resolved in favor
// of the smaller id (spec §4.5).
type Mapper struct {
	screens []Rect
}

// NewMapper creates a Mapper over screens, sorted by ID so overlap
// resolution is deterministic regardless of input order.
func NewMapper(screens []Rect) *Mapper {
	sorted := make([]Rect, len(screens))
	copy(sorted, screens)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &Mapper{screens: sorted}
}

// Map tests one candidate against every screen that allows its sensor,
// in ID order, and returns the first (smallest-id) screen it falls
// inside, or false if it falls inside none.
func (m *Mapper) Map(c cluster.Candidate) (MappedCandidate, bool) {
	for _, s := range m.screens {
		if s.Allowed != nil && !s.Allowed(c.SensorID) {
			continue
		}
		if mc, ok := mapOntoRect(c, s); ok {
			return mc, true
		}
	}
	return MappedCandidate{}, false
}

// MapAll maps every candidate, discarding the ones that fall outside
// all allowed screens.
func (m *Mapper) MapAll(candidates []cluster.Candidate) []MappedCandidate {
	out := make([]MappedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if mc, ok := m.Map(c); ok {
			out = append(out, mc)
		}
	}
	return out
}

// mapOntoRect transforms a candidate's world-frame centroid into one
// screen's local frame (translate by -origin, rotate by -phi) and
// normalizes it if it falls within [0, w] x [0, h].
func mapOntoRect(c cluster.Candidate, s Rect) (MappedCandidate, bool) {
	dx := c.CentroidX - s.X
	dy := c.CentroidY - s.Y

	sinPhi, cosPhi := math.Sincos(-s.Phi)
	localX := cosPhi*dx - sinPhi*dy
	localY := sinPhi*dx + cosPhi*dy

	if localX < 0 || localX > s.W || localY < 0 || localY > s.H {
		return MappedCandidate{}, false
	}

	u, v := 0.0, 0.0
	if s.W > 0 {
		u = localX / s.W
	}
	if s.H > 0 {
		v = localY / s.H
	}

	return MappedCandidate{
		ScreenID:  s.ID,
		U:         u,
		V:         v,
		Radius:    c.Radius,
		Count:     c.PointsCount,
		SensorID:  c.SensorID,
		Timestamp: c.Timestamp,
	}, true
}

// Diagonal returns the world-frame diagonal length of a screen, the
// unit the Fusion and Tracker components scale r_merge/r_gate by.
func Diagonal(s Rect) float64 {
	return math.Hypot(s.W, s.H)
}
