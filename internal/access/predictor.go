package access

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/krenshaw2018/cesium/internal/geodesy"
	"github.com/krenshaw2018/cesium/internal/horizon"
	"github.com/krenshaw2018/cesium/internal/metrics"
)

// Predictor computes line-of-sight windows against the WGS-84 ellipsoid.
type Predictor struct {
	config Config
	pool   *workerPool
}

// NewPredictor creates a Predictor, filling in defaults for unset config
// fields.
func NewPredictor(config Config, logger *slog.Logger) *Predictor {
	if config.Workers < 1 {
		config.Workers = runtime.NumCPU()
	}
	if config.CoarseStep <= 0 {
		config.CoarseStep = 30 * time.Second
	}
	if config.FineStep <= 0 {
		config.FineStep = time.Second
	}
	if config.MinWindow <= 0 {
		config.MinWindow = 10 * time.Second
	}
	return &Predictor{config: config, pool: newWorkerPool(config.Workers, logger)}
}

// Predict computes windows for every satellite in the request, preserving
// input order. Per-satellite failures are reported in the result's Error
// field; the whole call fails only on an unusable viewer.
func (p *Predictor) Predict(ctx context.Context, req Request) ([]SatelliteWindows, error) {
	occ, err := horizon.NewOccluderForCamera(geodesy.WGS84, req.Viewer)
	if err != nil {
		return nil, fmt.Errorf("viewer occluder: %w", err)
	}

	start := time.Now()
	results := p.pool.scanBatch(ctx, p, occ, req)
	metrics.ObservePredictionDuration(time.Since(start))
	return results, nil
}

// scanSatellite finds all windows for a single satellite. The occluder is
// read-only here, so concurrent scans may share it.
func (p *Predictor) scanSatellite(ctx context.Context, occ *horizon.Occluder, req Request, sat TLE) ([]Window, error) {
	prop, err := newSGP4Propagator(sat.Line1, sat.Line2, sat.NORADID)
	if err != nil {
		return nil, fmt.Errorf("sgp4 init: %w", err)
	}

	maxWindows := req.MaxWindows
	if maxWindows < 1 {
		maxWindows = 100
	}
	end := req.Start.Add(time.Duration(req.HorizonHours * float64(time.Hour)))
	var windows []Window

	// Coarse scan: step through the range looking for the satellite above
	// the viewer's horizon, then refine each hit.
	t := req.Start
	for t.Before(end) && len(windows) < maxWindows {
		if ctx.Err() != nil {
			return windows, nil
		}

		visible, _, err := p.visibleAt(prop, occ, t)
		if err != nil {
			t = t.Add(p.config.CoarseStep)
			continue
		}

		if visible {
			w, windowEnd := p.refineWindow(ctx, prop, occ, t, req.Start, end)
			if w != nil && w.EndTime.Sub(w.StartTime) >= p.config.MinWindow {
				windows = append(windows, *w)
			}
			// Jump past the end of this window.
			t = windowEnd.Add(p.config.CoarseStep)
		} else {
			t = t.Add(p.config.CoarseStep)
		}
	}

	return windows, nil
}

// refineWindow does a fine-grained scan around a coarse-detected hit. It
// backs up one coarse step to catch the actual rise, then scans forward to
// the set. Returns the window and the time the scan stopped.
func (p *Predictor) refineWindow(ctx context.Context, prop *sgp4Propagator, occ *horizon.Occluder, coarseHit, windowStart, windowEnd time.Time) (*Window, time.Time) {
	searchStart := coarseHit.Add(-p.config.CoarseStep)
	if searchStart.Before(windowStart) {
		searchStart = windowStart
	}

	var (
		riseTime   time.Time
		setTime    time.Time
		minRangeKm float64
		wasAbove   bool
		foundRise  bool
	)

	t := searchStart
	for t.Before(windowEnd) {
		if ctx.Err() != nil {
			break
		}

		visible, rangeKm, err := p.visibleAt(prop, occ, t)
		if err != nil {
			t = t.Add(p.config.FineStep)
			continue
		}

		if visible && !wasAbove {
			// Rising.
			riseTime = t
			foundRise = true
			minRangeKm = rangeKm
		}

		if visible && foundRise && rangeKm < minRangeKm {
			minRangeKm = rangeKm
		}

		if !visible && wasAbove && foundRise {
			// Setting.
			setTime = t
			break
		}

		wasAbove = visible
		t = t.Add(p.config.FineStep)
	}

	// Still above the horizon at the end of the range: close the window there.
	if foundRise && setTime.IsZero() && wasAbove {
		setTime = t
	}

	if !foundRise || setTime.IsZero() {
		return nil, t
	}

	return &Window{
		StartTime:       riseTime,
		EndTime:         setTime,
		DurationSeconds: setTime.Sub(riseTime).Seconds(),
		MinRangeKm:      minRangeKm,
	}, setTime
}

// visibleAt propagates the satellite to t and runs the horizon test from the
// viewer. Also returns the slant range in km.
func (p *Predictor) visibleAt(prop *sgp4Propagator, occ *horizon.Occluder, t time.Time) (bool, float64, error) {
	pos, err := prop.PositionECEF(t)
	if err != nil {
		return false, 0, err
	}
	rangeKm := pos.Sub(occ.CameraPosition()).Norm() / 1000.0
	return occ.IsPointVisible(pos), rangeKm, nil
}
