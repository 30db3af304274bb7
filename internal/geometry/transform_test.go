package geometry

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLocalAngleAccumulatesStep(t *testing.T) {
	got := LocalAngle(0.1, 0.01, 5)
	want := 0.1 + 5*0.01
	if !almostEqual(got, want) {
		t.Errorf("LocalAngle() = %f, want %f", got, want)
	}
}

func TestLocalPointAtZeroAngle(t *testing.T) {
	p := LocalPoint(0, 2.0)
	if !almostEqual(p.X, 2.0) || !almostEqual(p.Y, 0) {
		t.Errorf("LocalPoint(0, 2.0) = %+v, want {2, 0}", p)
	}
}

func TestToWorldTranslatesOrigin(t *testing.T) {
	got := ToWorld(3, 4, 0, Point{X: 1, Y: 0})
	if !almostEqual(got.X, 4) || !almostEqual(got.Y, 4) {
		t.Errorf("ToWorld() = %+v, want {4, 4}", got)
	}
}

func TestToWorldRotatesNinetyDegrees(t *testing.T) {
	got := ToWorld(0, 0, math.Pi/2, Point{X: 1, Y: 0})
	if !almostEqual(got.X, 0) || !almostEqual(got.Y, 1) {
		t.Errorf("ToWorld() with theta=pi/2 = %+v, want {0, 1}", got)
	}
}

func TestProjectCombinesMountOffsetAndPose(t *testing.T) {
	got := Project(1, 1, 0, math.Pi/2, 0, 0, 1.0)
	if !almostEqual(got.X, 1) || !almostEqual(got.Y, 2) {
		t.Errorf("Project() = %+v, want {1, 2}", got)
	}
}

func TestDistance(t *testing.T) {
	d := Distance(Point{X: 0, Y: 0}, Point{X: 3, Y: 4})
	if !almostEqual(d, 5) {
		t.Errorf("Distance() = %f, want 5", d)
	}
}

func TestProjectScanSkipsOutOfRangeSamples(t *testing.T) {
	pose := Pose{X: 0, Y: 0, Theta: 0, MountOff: 0, AngleStep: math.Pi / 2}
	ranges := []float64{0.01, 1.0, 100.0, 2.0}
	pts := ProjectScan(pose, ranges, 0.05, 10.0)
	if len(pts) != 2 {
		t.Fatalf("ProjectScan() returned %d points, want 2", len(pts))
	}
}
