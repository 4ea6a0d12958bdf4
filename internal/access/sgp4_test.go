package access

import (
	"math"
	"testing"
	"time"
)

// Real ISS TLE (epoch Feb 2025).
var issTLE = TLE{
	NORADID: 25544,
	Name:    "ISS (ZARYA)",
	Line1:   "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9993",
	Line2:   "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495058",
	Epoch:   time.Date(2025, 2, 14, 4, 19, 40, 0, time.UTC),
}

func TestValidateTLELines(t *testing.T) {
	tests := []struct {
		name    string
		line1   string
		line2   string
		wantErr bool
	}{
		{
			name:  "valid ISS TLE",
			line1: issTLE.Line1,
			line2: issTLE.Line2,
		},
		{
			name:    "line1 too short",
			line1:   "1 25544U",
			line2:   issTLE.Line2,
			wantErr: true,
		},
		{
			name:    "line2 too short",
			line1:   issTLE.Line1,
			line2:   "2 25544",
			wantErr: true,
		},
		{
			name:    "line1 wrong prefix",
			line1:   "2" + issTLE.Line1[1:],
			line2:   issTLE.Line2,
			wantErr: true,
		},
		{
			name:    "line2 wrong prefix",
			line1:   issTLE.Line1,
			line2:   "1" + issTLE.Line2[1:],
			wantErr: true,
		},
		{
			name:    "empty lines",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTLELines(tt.line1, tt.line2)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateTLELines() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewSGP4PropagatorRejectsGarbage(t *testing.T) {
	if _, err := newSGP4Propagator("garbage", "garbage", 1); err == nil {
		t.Error("expected error for garbage TLE lines")
	}
}

// TestPositionECEF propagates the ISS to its TLE epoch and checks the output
// is a physically plausible LEO position.
func TestPositionECEF(t *testing.T) {
	prop, err := newSGP4Propagator(issTLE.Line1, issTLE.Line2, issTLE.NORADID)
	if err != nil {
		t.Fatalf("newSGP4Propagator: %v", err)
	}

	pos, err := prop.PositionECEF(issTLE.Epoch)
	if err != nil {
		t.Fatalf("PositionECEF: %v", err)
	}

	for _, c := range []float64{pos.X, pos.Y, pos.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			t.Fatalf("non-finite component in %v", pos)
		}
	}

	// ISS orbits at ~420km altitude: geocentric distance ~6790km.
	magKm := pos.Norm() / 1000.0
	if magKm < 6500 || magKm > 7100 {
		t.Errorf("position magnitude %.1f km outside ISS orbit range", magKm)
	}
}

// TestPositionECEFRotatesWithEarth checks the ECEF frame is Earth-fixed: two
// propagations half a sidereal day apart land near the same orbital radius
// but the frame rotation keeps the output bounded, never NaN.
func TestPositionECEFAcrossOrbit(t *testing.T) {
	prop, err := newSGP4Propagator(issTLE.Line1, issTLE.Line2, issTLE.NORADID)
	if err != nil {
		t.Fatalf("newSGP4Propagator: %v", err)
	}

	for i := 0; i < 24; i++ {
		at := issTLE.Epoch.Add(time.Duration(i) * time.Hour)
		pos, err := prop.PositionECEF(at)
		if err != nil {
			t.Fatalf("PositionECEF at +%dh: %v", i, err)
		}
		magKm := pos.Norm() / 1000.0
		if magKm < 6500 || magKm > 7100 {
			t.Errorf("at +%dh: magnitude %.1f km outside ISS orbit range", i, magKm)
		}
	}
}
