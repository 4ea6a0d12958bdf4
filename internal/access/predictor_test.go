package access

import (
	"context"
	"testing"
	"time"

	"github.com/krenshaw2018/cesium/internal/geodesy"
	"github.com/krenshaw2018/cesium/internal/horizon"
)

// NYC viewer at street level.
func nycViewer() geodesy.Cartographic {
	return geodesy.FromDegrees(-74.006, 40.7128, 10)
}

func TestPredictISSWindows(t *testing.T) {
	p := NewPredictor(Config{Workers: 2}, testLogger())

	req := Request{
		Viewer:       geodesy.WGS84.CartographicToCartesian(nycViewer()),
		Satellites:   []TLE{issTLE},
		Start:        time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC),
		HorizonHours: 24,
		MaxWindows:   50,
	}

	results, err := p.Predict(context.Background(), req)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 satellite result, got %d", len(results))
	}

	sat := results[0]
	if sat.NORADID != 25544 {
		t.Errorf("NORAD ID = %d, want 25544", sat.NORADID)
	}
	if sat.Error != "" {
		t.Fatalf("unexpected error: %s", sat.Error)
	}

	// The ISS crosses the horizon of any mid-latitude viewer several times
	// a day.
	if len(sat.Windows) == 0 {
		t.Fatal("expected at least 1 ISS window over NYC in 24h")
	}

	end := req.Start.Add(24 * time.Hour)
	for i, w := range sat.Windows {
		if !w.StartTime.Before(w.EndTime) {
			t.Errorf("window %d: start %v not before end %v", i, w.StartTime, w.EndTime)
		}
		if w.StartTime.Before(req.Start) || w.EndTime.After(end.Add(time.Minute)) {
			t.Errorf("window %d: [%v, %v] outside the requested range", i, w.StartTime, w.EndTime)
		}
		if got := w.EndTime.Sub(w.StartTime).Seconds(); got != w.DurationSeconds {
			t.Errorf("window %d: DurationSeconds = %g, want %g", i, w.DurationSeconds, got)
		}
		if w.DurationSeconds < 10 {
			t.Errorf("window %d: duration %.1fs below the minimum window", i, w.DurationSeconds)
		}
		// Geometric-horizon slant range to the ISS tops out near 2300km.
		if w.MinRangeKm < 300 || w.MinRangeKm > 3000 {
			t.Errorf("window %d: min range %.1f km implausible for the ISS", i, w.MinRangeKm)
		}
		if i > 0 && !sat.Windows[i-1].EndTime.Before(w.StartTime) {
			t.Errorf("window %d starts before window %d ends", i, i-1)
		}
	}
}

// TestPredictPreservesOrder verifies per-satellite errors land in their input
// slots, with surrounding satellites unaffected.
func TestPredictPreservesOrder(t *testing.T) {
	p := NewPredictor(Config{Workers: 4}, testLogger())

	bad := TLE{NORADID: 99999, Line1: "garbage", Line2: "garbage"}
	req := Request{
		Viewer:       geodesy.WGS84.CartographicToCartesian(nycViewer()),
		Satellites:   []TLE{issTLE, bad, issTLE},
		Start:        time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC),
		HorizonHours: 1,
		MaxWindows:   5,
	}

	results, err := p.Predict(context.Background(), req)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if results[0].NORADID != 25544 || results[0].Error != "" {
		t.Errorf("result 0 = %+v, want clean ISS result", results[0])
	}
	if results[1].NORADID != 99999 || results[1].Error == "" {
		t.Errorf("result 1 = %+v, want error for the garbage TLE", results[1])
	}
	if results[2].NORADID != 25544 || results[2].Error != "" {
		t.Errorf("result 2 = %+v, want clean ISS result", results[2])
	}
}

func TestPredictEmptyRequest(t *testing.T) {
	p := NewPredictor(Config{Workers: 2}, testLogger())

	results, err := p.Predict(context.Background(), Request{
		Viewer: geodesy.WGS84.CartographicToCartesian(nycViewer()),
		Start:  time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for no satellites, got %d", len(results))
	}
}

func TestPredictCancelled(t *testing.T) {
	p := NewPredictor(Config{Workers: 2}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := p.Predict(ctx, Request{
		Viewer:       geodesy.WGS84.CartographicToCartesian(nycViewer()),
		Satellites:   []TLE{issTLE, issTLE},
		Start:        time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC),
		HorizonHours: 24,
	})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	// A cancelled scan yields no windows, whether the slot was drained by a
	// worker or never scheduled.
	for i, sat := range results {
		if len(sat.Windows) != 0 {
			t.Errorf("result %d has %d windows under a cancelled context", i, len(sat.Windows))
		}
	}
}

// TestWindowsMatchDirectVisibility cross-checks the scan against the horizon
// test it is built on: instants strictly inside a reported window must test
// visible, instants between windows must not.
func TestWindowsMatchDirectVisibility(t *testing.T) {
	viewer := geodesy.WGS84.CartographicToCartesian(nycViewer())
	p := NewPredictor(Config{Workers: 1}, testLogger())

	req := Request{
		Viewer:       viewer,
		Satellites:   []TLE{issTLE},
		Start:        time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC),
		HorizonHours: 12,
		MaxWindows:   20,
	}
	results, err := p.Predict(context.Background(), req)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	windows := results[0].Windows
	if len(windows) < 2 {
		t.Skipf("need at least 2 windows for a gap check, got %d", len(windows))
	}

	prop, err := newSGP4Propagator(issTLE.Line1, issTLE.Line2, issTLE.NORADID)
	if err != nil {
		t.Fatalf("newSGP4Propagator: %v", err)
	}
	occ, err := horizon.NewOccluderForCamera(geodesy.WGS84, viewer)
	if err != nil {
		t.Fatalf("occluder: %v", err)
	}

	for i, w := range windows {
		mid := w.StartTime.Add(w.EndTime.Sub(w.StartTime) / 2)
		pos, err := prop.PositionECEF(mid)
		if err != nil {
			t.Fatalf("PositionECEF: %v", err)
		}
		if !occ.IsPointVisible(pos) {
			t.Errorf("window %d midpoint %v tests occluded", i, mid)
		}
	}

	gap := windows[0].EndTime.Add(windows[1].StartTime.Sub(windows[0].EndTime) / 2)
	pos, err := prop.PositionECEF(gap)
	if err != nil {
		t.Fatalf("PositionECEF: %v", err)
	}
	if occ.IsPointVisible(pos) {
		t.Errorf("gap midpoint %v tests visible", gap)
	}
}
