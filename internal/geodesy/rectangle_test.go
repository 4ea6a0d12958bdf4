package geodesy

import (
	"math"
	"testing"
)

func TestRectangleWidth(t *testing.T) {
	cases := []struct {
		name                     string
		west, south, east, north float64 // degrees
		wantWidthDeg             float64
	}{
		{"simple", 10, 0, 30, 10, 20},
		{"antimeridian crossing", 170, -10, -170, 10, 20},
		{"full span", -180, -90, 180, 90, 360},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := RectangleFromDegrees(tc.west, tc.south, tc.east, tc.north)
			got := r.Width() / degToRad
			if math.Abs(got-tc.wantWidthDeg) > 1e-9 {
				t.Errorf("Width = %v deg, want %v deg", got, tc.wantWidthDeg)
			}
		})
	}
}

func TestRectangleContains(t *testing.T) {
	cases := []struct {
		name                     string
		west, south, east, north float64 // degrees
		lon, lat                 float64 // degrees
		want                     bool
	}{
		{"inside", 10, 0, 30, 10, 20, 5, true},
		{"west of", 10, 0, 30, 10, 5, 5, false},
		{"north of", 10, 0, 30, 10, 20, 15, false},
		{"on west edge", 10, 0, 30, 10, 10, 5, true},
		{"antimeridian inside east", 170, -10, -170, 10, -175, 0, true},
		{"antimeridian inside west", 170, -10, -170, 10, 175, 0, true},
		{"antimeridian outside", 170, -10, -170, 10, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := RectangleFromDegrees(tc.west, tc.south, tc.east, tc.north)
			if got := r.Contains(FromDegrees(tc.lon, tc.lat, 0)); got != tc.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tc.lon, tc.lat, got, tc.want)
			}
		})
	}
}

func TestSubsample_SampleCounts(t *testing.T) {
	// Four corners plus seven interior samples, plus two equator-edge samples
	// only when the rectangle spans the equator.
	cases := []struct {
		name                     string
		west, south, east, north float64 // degrees
		want                     int
	}{
		{"northern hemisphere", -10, 20, 10, 40, 11},
		{"southern hemisphere", -10, -40, 10, -20, 11},
		{"spans equator", -10, -10, 10, 10, 13},
		{"touches equator from north", -10, 0, 10, 20, 13},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := RectangleFromDegrees(tc.west, tc.south, tc.east, tc.north)
			got := len(r.Subsample(WGS84, 0))
			if got != tc.want {
				t.Errorf("Subsample returned %d positions, want %d", got, tc.want)
			}
		})
	}
}

func TestSubsample_PositionsOnSurface(t *testing.T) {
	// Height 0 samples must lie on the ellipsoid, including for rectangles
	// crossing the antimeridian.
	rects := []Rectangle{
		RectangleFromDegrees(-105, 35, -100, 40),
		RectangleFromDegrees(170, -20, -170, 20),
	}
	for _, r := range rects {
		for i, p := range r.Subsample(WGS84, 0) {
			mag := WGS84.TransformPositionToScaledSpace(p).Norm()
			if math.IsNaN(mag) || math.Abs(mag-1.0) > 1e-12 {
				t.Errorf("sample %d scaled magnitude = %v, want 1", i, mag)
			}
		}
	}
}

func TestSubsample_HeightLiftsSamples(t *testing.T) {
	r := RectangleFromDegrees(-105, 35, -100, 40)
	for i, p := range r.Subsample(WGS84, 5000) {
		mag := WGS84.TransformPositionToScaledSpace(p).Norm()
		if mag <= 1.0 {
			t.Errorf("sample %d at 5000 m has scaled magnitude %v, want > 1", i, mag)
		}
	}
}

func TestSubsample_EquatorEdgeSamplesHaveZeroZ(t *testing.T) {
	r := RectangleFromDegrees(-10, -10, 10, 10)
	positions := r.Subsample(WGS84, 0)
	// The final two samples are the west and east edges at the equator.
	for _, p := range positions[len(positions)-2:] {
		if math.Abs(p.Z) > 1e-9 {
			t.Errorf("equator edge sample Z = %v, want 0", p.Z)
		}
	}
}
