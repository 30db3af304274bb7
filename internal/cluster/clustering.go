// Package cluster groups a sensor's foreground points into touch
// candidates using a density-based (DBSCAN) algorithm over a 2D spatial
// grid (spec §4.4).
package cluster

import (
	"math"
	"time"
)

// EstimatedPointsPerCell sizes the initial spatial index map.
const EstimatedPointsPerCell = 4

// FgPoint is one foreground point in the world frame, as classified by the
// background model for a single sensor.
type FgPoint struct {
	X, Y     float64
	SensorID string
}

// Candidate is one cluster of foreground points: a touch candidate in the
// world frame, before screen containment and fusion.
type Candidate struct {
	CentroidX, CentroidY float64
	Radius               float64 // max distance from centroid to a member point
	PointsCount          int
	SensorID             string
	Timestamp            time.Time // the scan this candidate was clustered from
}

// SpatialIndex provides efficient neighbor queries over a regular grid.
// Cell size should match the DBSCAN eps parameter.
type SpatialIndex struct {
	CellSize float64
	Grid     map[int64][]int // cell ID -> point indices
}

// NewSpatialIndex creates a spatial index with the given cell size.
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	return &SpatialIndex{
		CellSize: cellSize,
		Grid:     make(map[int64][]int),
	}
}

// Build populates the spatial index from a set of foreground points.
func (si *SpatialIndex) Build(points []FgPoint) {
	si.Grid = make(map[int64][]int, len(points)/EstimatedPointsPerCell+1)
	for i, p := range points {
		cellID := si.cellID(si.cellCoord(p.X), si.cellCoord(p.Y))
		si.Grid[cellID] = append(si.Grid[cellID], i)
	}
}

func (si *SpatialIndex) cellCoord(v float64) int64 {
	return int64(math.Floor(v / si.CellSize))
}

// cellID maps a signed (cellX, cellY) pair to a single non-negative key
// using zigzag encoding followed by Szudzik's pairing function.
func (si *SpatialIndex) cellID(cellX, cellY int64) int64 {
	var a, b int64
	if cellX >= 0 {
		a = 2 * cellX
	} else {
		a = -2*cellX - 1
	}
	if cellY >= 0 {
		b = 2 * cellY
	} else {
		b = -2*cellY - 1
	}
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// RegionQuery returns indices of all points within eps of points[idx],
// searching the 3x3 neighborhood of grid cells around it.
func (si *SpatialIndex) RegionQuery(points []FgPoint, idx int, eps float64) []int {
	p := points[idx]
	eps2 := eps * eps
	cellX := si.cellCoord(p.X)
	cellY := si.cellCoord(p.Y)

	var neighbors []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			cellID := si.cellID(cellX+dx, cellY+dy)
			for _, candidateIdx := range si.Grid[cellID] {
				c := points[candidateIdx]
				ddx := c.X - p.X
				ddy := c.Y - p.Y
				if ddx*ddx+ddy*ddy <= eps2 {
					neighbors = append(neighbors, candidateIdx)
				}
			}
		}
	}
	return neighbors
}

// DBSCAN performs density-based clustering over 2D foreground points.
// Non-core points within eps of more than one cluster attach to whichever
// cluster discovers them first (the lower-numbered cluster), since a point
// already labeled is never relabeled.
func DBSCAN(points []FgPoint, eps float64, minPts int, timestamp time.Time) []Candidate {
	if len(points) == 0 {
		return nil
	}

	n := len(points)
	labels := make([]int, n) // 0=unvisited, -1=noise, >0=clusterID
	clusterID := 0

	si := NewSpatialIndex(eps)
	si.Build(points)

	for i := 0; i < n; i++ {
		if labels[i] != 0 {
			continue
		}

		neighbors := si.RegionQuery(points, i, eps)
		if len(neighbors) < minPts {
			labels[i] = -1
			continue
		}

		clusterID++
		expandCluster(points, si, labels, neighbors, clusterID, eps, minPts)
		labels[i] = clusterID
	}

	return buildCandidates(points, labels, clusterID, timestamp)
}

func expandCluster(points []FgPoint, si *SpatialIndex, labels []int, neighbors []int, clusterID int, eps float64, minPts int) {
	for j := 0; j < len(neighbors); j++ {
		idx := neighbors[j]
		if labels[idx] == -1 {
			labels[idx] = clusterID // noise becomes a border point
			continue
		}
		if labels[idx] != 0 {
			continue // already claimed by an earlier cluster
		}

		labels[idx] = clusterID
		newNeighbors := si.RegionQuery(points, idx, eps)
		if len(newNeighbors) >= minPts {
			neighbors = append(neighbors, newNeighbors...)
		}
	}
}

func buildCandidates(points []FgPoint, labels []int, maxClusterID int, timestamp time.Time) []Candidate {
	candidates := make([]Candidate, 0, maxClusterID)
	for cid := 1; cid <= maxClusterID; cid++ {
		var sumX, sumY float64
		count := 0
		sensorID := ""
		for i, label := range labels {
			if label != cid {
				continue
			}
			sumX += points[i].X
			sumY += points[i].Y
			sensorID = points[i].SensorID
			count++
		}
		if count == 0 {
			continue
		}
		centroidX := sumX / float64(count)
		centroidY := sumY / float64(count)

		var radius float64
		for i, label := range labels {
			if label != cid {
				continue
			}
			dx := points[i].X - centroidX
			dy := points[i].Y - centroidY
			if d := math.Hypot(dx, dy); d > radius {
				radius = d
			}
		}

		candidates = append(candidates, Candidate{
			CentroidX:   centroidX,
			CentroidY:   centroidY,
			Radius:      radius,
			PointsCount: count,
			SensorID:    sensorID,
			Timestamp:   timestamp,
		})
	}
	return candidates
}
