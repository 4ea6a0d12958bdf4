// Package access computes satellite line-of-sight windows: the time ranges
// during which a viewer can see a satellite over the limb of the Earth. The
// visibility verdict at each instant comes from the ellipsoidal horizon test
// in internal/horizon, so windows open exactly when the satellite clears the
// viewer's geometric horizon rather than a fixed elevation mask.
package access

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang/geo/r3"
)

// TLE is a single satellite's two-line element set.
type TLE struct {
	NORADID int       `json:"norad_id"`
	Name    string    `json:"name,omitempty"`
	Epoch   time.Time `json:"epoch,omitempty"`
	Line1   string    `json:"line1"`
	Line2   string    `json:"line2"`
}

// Window is one contiguous interval during which a satellite is above the
// viewer's horizon.
type Window struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	MinRangeKm      float64   `json:"min_range_km"`
}

// SatelliteWindows holds the computed windows for one satellite. Error is set
// when the satellite's TLE could not be used; Windows is nil in that case.
type SatelliteWindows struct {
	NORADID int      `json:"norad_id"`
	Windows []Window `json:"windows"`
	Error   string   `json:"error,omitempty"`
}

// Request holds the parameters for a window computation.
type Request struct {
	Viewer       r3.Vector // ECEF meters
	Satellites   []TLE
	Start        time.Time
	HorizonHours float64
	MaxWindows   int // per satellite
}

// CacheKey returns a digest of everything the computation depends on, so
// identical requests share a cache entry. Start is truncated to the second:
// sub-second offsets cannot move a window boundary past the fine scan step.
func (r Request) CacheKey() string {
	h := sha256.New()
	fmt.Fprintf(h, "%.3f,%.3f,%.3f|%d|%g|%d",
		r.Viewer.X, r.Viewer.Y, r.Viewer.Z,
		r.Start.UTC().Unix(), r.HorizonHours, r.MaxWindows)
	for _, sat := range r.Satellites {
		fmt.Fprintf(h, "|%d|%s|%s", sat.NORADID, sat.Line1, sat.Line2)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Config holds window-scan configuration loaded from environment variables.
type Config struct {
	Workers    int           // Worker pool size (default: runtime.NumCPU())
	CoarseStep time.Duration // Coarse scan step (default: 30s)
	FineStep   time.Duration // Fine scan step (default: 1s)
	MinWindow  time.Duration // Discard windows shorter than this (default: 10s)
}
