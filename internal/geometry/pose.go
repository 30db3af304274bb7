package geometry

// Pose is the sensor's position and heading in the world frame, plus its
// mounting angular offset (spec §3, §4.3). It mirrors config.Pose so this
// package does not need to import the config package.
type Pose struct {
	X         float64
	Y         float64
	Theta     float64
	MountOff  float64
	AngleStep float64
}

// ProjectScan converts a full scan's ranges into world-frame points,
// skipping samples outside [minRange, maxRange]. The returned slice is
// indexed densely (gaps are dropped, not nil-padded), since downstream
// clustering only cares about points that exist.
func ProjectScan(pose Pose, ranges []float64, minRange, maxRange float64) []Point {
	out := make([]Point, 0, len(ranges))
	for i, r := range ranges {
		if r < minRange || r > maxRange {
			continue
		}
		out = append(out, Project(pose.X, pose.Y, pose.Theta, pose.MountOff, pose.AngleStep, i, r))
	}
	return out
}
