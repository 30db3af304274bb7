// Package geometry projects polar range samples from a sensor's local frame
// into the shared world frame used by clustering, screen mapping, and
// fusion (spec §4.3).
package geometry

import "math"

// Point is a 2D point in meters, in the world frame.
type Point struct {
	X, Y float64
}

// LocalAngle returns the sensor-local angle of the i'th sample in a scan,
// given the sensor's mounting offset alpha and the angular step between
// samples.
func LocalAngle(mountOffset, angleStep float64, sampleIndex int) float64 {
	return mountOffset + float64(sampleIndex)*angleStep
}

// LocalPoint converts a polar return (angle, range) into the sensor's local
// Cartesian frame.
func LocalPoint(angle, rangeMeters float64) Point {
	return Point{
		X: rangeMeters * math.Cos(angle),
		Y: rangeMeters * math.Sin(angle),
	}
}

// ToWorld rotates a local-frame point by theta and translates it by the
// sensor's world position (x0, y0).
func ToWorld(x0, y0, theta float64, local Point) Point {
	sinT, cosT := math.Sin(theta), math.Cos(theta)
	return Point{
		X: x0 + cosT*local.X - sinT*local.Y,
		Y: y0 + sinT*local.X + cosT*local.Y,
	}
}

// Project converts one polar sample directly into a world-frame point:
// local angle = mountOffset + sampleIndex*angleStep, then rotate/translate
// by the sensor pose.
func Project(x0, y0, theta, mountOffset, angleStep float64, sampleIndex int, rangeMeters float64) Point {
	angle := LocalAngle(mountOffset, angleStep, sampleIndex)
	local := LocalPoint(angle, rangeMeters)
	return ToWorld(x0, y0, theta, local)
}

// Distance returns the Euclidean distance between two world-frame points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
