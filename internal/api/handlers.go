package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang/geo/r3"

	"github.com/krenshaw2018/cesium/internal/access"
	"github.com/krenshaw2018/cesium/internal/cache"
	"github.com/krenshaw2018/cesium/internal/geodesy"
	"github.com/krenshaw2018/cesium/internal/horizon"
	"github.com/krenshaw2018/cesium/internal/metrics"
)

// handlers holds the request handlers and their dependencies.
type handlers struct {
	logger    *slog.Logger
	cfg       Config
	predictor *access.Predictor
	results   *cache.ResultCache
}

// Wire format: vectors are [x, y, z] triplets.
func vec(a [3]float64) r3.Vector { return r3.Vector{X: a[0], Y: a[1], Z: a[2]} }
func arr(v r3.Vector) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// ellipsoidFor builds the request's ellipsoid; a nil radii field means WGS-84.
func ellipsoidFor(radii *[3]float64) (*geodesy.Ellipsoid, error) {
	if radii == nil {
		return geodesy.WGS84, nil
	}
	return geodesy.New(radii[0], radii[1], radii[2])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads the request body (bounded) into v.
func (h *handlers) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

type visibilityRequest struct {
	Camera        [3]float64   `json:"camera"`
	Points        [][3]float64 `json:"points"`
	Radii         *[3]float64  `json:"radii,omitempty"`
	ScaledSpace   bool         `json:"scaled_space,omitempty"`
	MinimumHeight *float64     `json:"minimum_height,omitempty"`
}

type visibilityResponse struct {
	Visible []bool `json:"visible"`
}

// visibilityPoints answers one horizon test per point against a camera. The
// camera is always in the ellipsoid's frame; scaled_space marks the points as
// already transformed, letting clients amortize the transform. minimum_height
// only applies to scaled-space points produced by the matching culling-point
// computation.
func (h *handlers) visibilityPoints(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Points == nil {
		writeError(w, http.StatusBadRequest, "points is required")
		return
	}
	if req.MinimumHeight != nil && !req.ScaledSpace {
		writeError(w, http.StatusBadRequest, "minimum_height requires scaled_space points")
		return
	}

	ellipsoid, err := ellipsoidFor(req.Radii)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	occ, err := horizon.NewOccluderForCamera(ellipsoid, vec(req.Camera))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	verdicts := make([]bool, len(req.Points))
	visible := 0
	for i, p := range req.Points {
		switch {
		case req.MinimumHeight != nil:
			verdicts[i] = occ.IsScaledSpacePointVisiblePossiblyUnderEllipsoid(vec(p), *req.MinimumHeight)
		case req.ScaledSpace:
			verdicts[i] = occ.IsScaledSpacePointVisible(vec(p))
		default:
			verdicts[i] = occ.IsPointVisible(vec(p))
		}
		if verdicts[i] {
			visible++
		}
	}
	metrics.IncVisibilityVerdicts(visible, len(req.Points)-visible)

	writeJSON(w, http.StatusOK, visibilityResponse{Visible: verdicts})
}

type cullingPointRequest struct {
	Direction     [3]float64   `json:"direction"`
	Positions     [][3]float64 `json:"positions"`
	Radii         *[3]float64  `json:"radii,omitempty"`
	MinimumHeight *float64     `json:"minimum_height,omitempty"`
}

type cullingPointResponse struct {
	Point [3]float64 `json:"point"` // scaled space
}

// writeCullingResult maps culling-point errors onto statuses: degenerate
// geometry is 422 (the request was well-formed, the geometry admits no
// point), everything else invalid input.
func writeCullingResult(w http.ResponseWriter, point r3.Vector, err error) {
	switch {
	case err == nil:
		metrics.IncCullingPoint("ok")
		writeJSON(w, http.StatusOK, cullingPointResponse{Point: arr(point)})
	case errors.Is(err, horizon.ErrNoCullingPoint):
		metrics.IncCullingPoint("degenerate")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		metrics.IncCullingPoint("invalid")
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (h *handlers) cullingPoint(w http.ResponseWriter, r *http.Request) {
	var req cullingPointRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Positions == nil {
		metrics.IncCullingPoint("invalid")
		writeError(w, http.StatusBadRequest, "positions is required")
		return
	}

	ellipsoid, err := ellipsoidFor(req.Radii)
	if err != nil {
		metrics.IncCullingPoint("invalid")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	occ, err := horizon.NewOccluder(ellipsoid)
	if err != nil {
		metrics.IncCullingPoint("invalid")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	positions := make([]r3.Vector, len(req.Positions))
	for i, p := range req.Positions {
		positions[i] = vec(p)
	}

	var point r3.Vector
	if req.MinimumHeight != nil {
		point, err = occ.ComputeHorizonCullingPointPossiblyUnderEllipsoid(vec(req.Direction), positions, *req.MinimumHeight)
	} else {
		point, err = occ.ComputeHorizonCullingPoint(vec(req.Direction), positions)
	}
	writeCullingResult(w, point, err)
}

type cullingVerticesRequest struct {
	Direction     [3]float64  `json:"direction"`
	Vertices      []float64   `json:"vertices"`
	Stride        int         `json:"stride"`
	Center        [3]float64  `json:"center"`
	Radii         *[3]float64 `json:"radii,omitempty"`
	MinimumHeight *float64    `json:"minimum_height,omitempty"`
}

func (h *handlers) cullingPointVertices(w http.ResponseWriter, r *http.Request) {
	var req cullingVerticesRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Vertices == nil {
		metrics.IncCullingPoint("invalid")
		writeError(w, http.StatusBadRequest, "vertices is required")
		return
	}

	ellipsoid, err := ellipsoidFor(req.Radii)
	if err != nil {
		metrics.IncCullingPoint("invalid")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	occ, err := horizon.NewOccluder(ellipsoid)
	if err != nil {
		metrics.IncCullingPoint("invalid")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var point r3.Vector
	if req.MinimumHeight != nil {
		point, err = occ.ComputeHorizonCullingPointFromVerticesPossiblyUnderEllipsoid(vec(req.Direction), req.Vertices, req.Stride, vec(req.Center), *req.MinimumHeight)
	} else {
		point, err = occ.ComputeHorizonCullingPointFromVertices(vec(req.Direction), req.Vertices, req.Stride, vec(req.Center))
	}
	writeCullingResult(w, point, err)
}

type cullingRectangleRequest struct {
	WestDeg  float64     `json:"west_deg"`
	SouthDeg float64     `json:"south_deg"`
	EastDeg  float64     `json:"east_deg"`
	NorthDeg float64     `json:"north_deg"`
	Radii    *[3]float64 `json:"radii,omitempty"`
}

func (h *handlers) cullingPointRectangle(w http.ResponseWriter, r *http.Request) {
	var req cullingRectangleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.WestDeg < -180 || req.WestDeg > 180 || req.EastDeg < -180 || req.EastDeg > 180 ||
		req.SouthDeg < -90 || req.SouthDeg > 90 || req.NorthDeg < -90 || req.NorthDeg > 90 ||
		req.SouthDeg > req.NorthDeg {
		metrics.IncCullingPoint("invalid")
		writeError(w, http.StatusBadRequest, "rectangle bounds out of range")
		return
	}

	ellipsoid, err := ellipsoidFor(req.Radii)
	if err != nil {
		metrics.IncCullingPoint("invalid")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	occ, err := horizon.NewOccluder(ellipsoid)
	if err != nil {
		metrics.IncCullingPoint("invalid")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rect := geodesy.RectangleFromDegrees(req.WestDeg, req.SouthDeg, req.EastDeg, req.NorthDeg)
	point, err := occ.ComputeHorizonCullingPointFromRectangle(rect)
	writeCullingResult(w, point, err)
}

type accessRequest struct {
	Viewer struct {
		LatDeg float64 `json:"lat_deg"`
		LonDeg float64 `json:"lon_deg"`
		AltM   float64 `json:"alt_m"`
	} `json:"viewer"`
	Satellites   []access.TLE `json:"satellites"`
	Start        *time.Time   `json:"start,omitempty"`
	HorizonHours float64      `json:"horizon_hours,omitempty"`
	MaxWindows   int          `json:"max_windows,omitempty"`
}

type accessResponse struct {
	Windows []access.SatelliteWindows `json:"windows"`
	Cached  bool                      `json:"cached"`
}

// accessWindowCoarseStep mirrors the predictor's coarse scan step for the
// budget estimate.
const accessWindowCoarseStep = 30.0

// accessWindows computes line-of-sight windows for a ground viewer. Requests
// whose scan sample count exceeds the configured budget are rejected with 400
// before any propagation runs.
func (h *handlers) accessWindows(w http.ResponseWriter, r *http.Request) {
	var req accessRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Satellites) == 0 {
		writeError(w, http.StatusBadRequest, "satellites is required")
		return
	}
	if req.Viewer.LatDeg < -90 || req.Viewer.LatDeg > 90 || req.Viewer.LonDeg < -180 || req.Viewer.LonDeg > 180 {
		writeError(w, http.StatusBadRequest, "viewer coordinates out of range")
		return
	}

	if req.HorizonHours <= 0 {
		req.HorizonHours = 24
	}
	if req.HorizonHours > 72 {
		writeError(w, http.StatusBadRequest, "horizon_hours must be at most 72")
		return
	}
	if req.MaxWindows <= 0 {
		req.MaxWindows = 20
	}
	if req.MaxWindows > 100 {
		req.MaxWindows = 100
	}
	start := time.Now().UTC()
	if req.Start != nil {
		start = req.Start.UTC()
	}

	// CPU budget guard: coarse samples across all satellites.
	samples := int(req.HorizonHours*3600/accessWindowCoarseStep) * len(req.Satellites)
	if samples > h.cfg.MaxSamples {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":       "request exceeds compute budget; reduce horizon_hours or satellite count",
			"samples":     samples,
			"max_samples": h.cfg.MaxSamples,
		})
		return
	}

	viewer := geodesy.WGS84.CartographicToCartesian(
		geodesy.FromDegrees(req.Viewer.LonDeg, req.Viewer.LatDeg, req.Viewer.AltM))

	predictReq := access.Request{
		Viewer:       viewer,
		Satellites:   req.Satellites,
		Start:        start,
		HorizonHours: req.HorizonHours,
		MaxWindows:   req.MaxWindows,
	}

	key := predictReq.CacheKey()
	if windows := h.results.Get(key); windows != nil {
		writeJSON(w, http.StatusOK, accessResponse{Windows: windows, Cached: true})
		return
	}

	windows, err := h.predictor.Predict(r.Context(), predictReq)
	if err != nil {
		h.logger.Error("window prediction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "window prediction failed")
		return
	}

	h.results.Put(key, windows)
	writeJSON(w, http.StatusOK, accessResponse{Windows: windows, Cached: false})
}

func (h *handlers) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.results.Snapshot())
}
