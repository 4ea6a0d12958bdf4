package access

import (
	"context"
	"log/slog"
	"sync"

	"github.com/krenshaw2018/cesium/internal/horizon"
)

// scanJob is a unit of work for the worker pool: one satellite's full window
// scan. The index pins the result back to its slot in the request order.
type scanJob struct {
	index int
	sat   TLE
}

// scanResult is the output of a single satellite's window scan.
type scanResult struct {
	index   int
	windows []Window
	err     error
	noradID int
}

// workerPool manages a fixed number of goroutines for parallel window scans.
type workerPool struct {
	workers int
	logger  *slog.Logger
}

func newWorkerPool(workers int, logger *slog.Logger) *workerPool {
	return &workerPool{workers: workers, logger: logger}
}

// scanBatch fans the request's satellites out across the pool and collects
// one SatelliteWindows per input, in input order. Failed satellites carry
// their error string; the batch never fails as a whole.
func (wp *workerPool) scanBatch(ctx context.Context, p *Predictor, occ *horizon.Occluder, req Request) []SatelliteWindows {
	if len(req.Satellites) == 0 {
		return nil
	}

	jobs := make(chan scanJob, wp.workers*2)
	results := make(chan scanResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				windows, err := p.scanSatellite(ctx, occ, req, job.sat)
				result := scanResult{index: job.index, windows: windows, err: err, noradID: job.sat.NORADID}
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, sat := range req.Satellites {
			select {
			case jobs <- scanJob{index: i, sat: sat}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]SatelliteWindows, len(req.Satellites))
	for i, sat := range req.Satellites {
		// Cancelled jobs never produce a result; pre-mark every slot.
		out[i] = SatelliteWindows{NORADID: sat.NORADID, Error: "cancelled"}
	}

	for result := range results {
		if result.err != nil {
			wp.logger.Warn("window scan failed",
				"norad_id", result.noradID,
				"error", result.err,
			)
			out[result.index] = SatelliteWindows{NORADID: result.noradID, Error: result.err.Error()}
			continue
		}
		out[result.index] = SatelliteWindows{NORADID: result.noradID, Windows: result.windows}
	}

	return out
}
