package horizon

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/krenshaw2018/cesium/internal/geodesy"
)

// ErrZeroDirection reports a zero directionToPoint vector where a direction
// is required.
var ErrZeroDirection = errors.New("horizon: direction must be non-zero")

// ErrNoCullingPoint reports that no single point can stand in for the given
// geometry: some position lies on the far side of the direction's horizon
// plane, or the accumulated magnitude is not finite.
var ErrNoCullingPoint = errors.New("horizon: no culling point")

// ComputeHorizonCullingPoint computes a scaled-space point that is occluded
// only when every one of positions is occluded, so one visibility test can
// cull the whole cluster. directionToPoint aims from the ellipsoid center
// roughly through the cluster (a bounding-volume center is the usual choice);
// positions are in the ellipsoid's frame. The result lies along the
// normalized scaled-space direction at the smallest magnitude whose horizon
// cone grazes every position.
//
// An empty or nil positions slice yields the zero vector, the sentinel no
// camera ever culls. Errors are ErrZeroDirection and wrapped
// ErrNoCullingPoint values.
func (o *Occluder) ComputeHorizonCullingPoint(directionToPoint r3.Vector, positions []r3.Vector) (r3.Vector, error) {
	return computeCullingPoint(o.ellipsoid, directionToPoint, positions)
}

// ComputeHorizonCullingPointPossiblyUnderEllipsoid is
// ComputeHorizonCullingPoint for geometry that may extend below the ellipsoid
// surface, down to minimumHeight meters. The computation runs against an
// ellipsoid shrunk so the lowest geometry stays on or above it; test the
// result with IsScaledSpacePointVisiblePossiblyUnderEllipsoid using the same
// minimumHeight.
func (o *Occluder) ComputeHorizonCullingPointPossiblyUnderEllipsoid(directionToPoint r3.Vector, positions []r3.Vector, minimumHeight float64) (r3.Vector, error) {
	return computeCullingPoint(shrunkEllipsoid(o.ellipsoid, minimumHeight), directionToPoint, positions)
}

// ComputeHorizonCullingPointFromVertices is ComputeHorizonCullingPoint over a
// packed vertex buffer: consecutive X, Y, Z components read at the given
// stride, offset by center. stride must be at least 3 and divide
// len(vertices) evenly.
func (o *Occluder) ComputeHorizonCullingPointFromVertices(directionToPoint r3.Vector, vertices []float64, stride int, center r3.Vector) (r3.Vector, error) {
	return computeCullingPointFromVertices(o.ellipsoid, directionToPoint, vertices, stride, center)
}

// ComputeHorizonCullingPointFromVerticesPossiblyUnderEllipsoid combines
// ComputeHorizonCullingPointFromVertices with the shrunk-ellipsoid handling
// of ComputeHorizonCullingPointPossiblyUnderEllipsoid.
func (o *Occluder) ComputeHorizonCullingPointFromVerticesPossiblyUnderEllipsoid(directionToPoint r3.Vector, vertices []float64, stride int, center r3.Vector, minimumHeight float64) (r3.Vector, error) {
	return computeCullingPointFromVertices(shrunkEllipsoid(o.ellipsoid, minimumHeight), directionToPoint, vertices, stride, center)
}

// ComputeHorizonCullingPointFromRectangle computes a culling point covering
// everything on the ellipsoid surface within the geographic rectangle, using
// the rectangle's boundary samples as the position cluster. Rectangles so
// large that their samples surround the ellipsoid center admit no culling
// point.
func (o *Occluder) ComputeHorizonCullingPointFromRectangle(rect geodesy.Rectangle) (r3.Vector, error) {
	positions := rect.Subsample(o.ellipsoid, 0)
	center := boundingCenter(positions)
	if center.Norm() < 0.1*o.ellipsoid.MinimumRadius() {
		return r3.Vector{}, fmt.Errorf("%w: rectangle surrounds the ellipsoid center", ErrNoCullingPoint)
	}
	return computeCullingPoint(o.ellipsoid, center, positions)
}

func computeCullingPoint(e *geodesy.Ellipsoid, directionToPoint r3.Vector, positions []r3.Vector) (r3.Vector, error) {
	u, err := scaledSpaceDirection(e, directionToPoint)
	if err != nil {
		return r3.Vector{}, err
	}
	if len(positions) == 0 {
		return r3.Vector{}, nil
	}
	resultMagnitude := 0.0
	for i, p := range positions {
		m := candidateMagnitude(e, p, u)
		if m < 0 {
			return r3.Vector{}, fmt.Errorf("%w: position %d is beyond the direction's horizon plane", ErrNoCullingPoint, i)
		}
		resultMagnitude = math.Max(resultMagnitude, m)
	}
	return pointAlongDirection(u, resultMagnitude)
}

func computeCullingPointFromVertices(e *geodesy.Ellipsoid, directionToPoint r3.Vector, vertices []float64, stride int, center r3.Vector) (r3.Vector, error) {
	if stride < 3 {
		return r3.Vector{}, fmt.Errorf("horizon: vertex stride must be at least 3, got %d", stride)
	}
	if len(vertices)%stride != 0 {
		return r3.Vector{}, fmt.Errorf("horizon: vertex array length %d is not a multiple of stride %d", len(vertices), stride)
	}
	u, err := scaledSpaceDirection(e, directionToPoint)
	if err != nil {
		return r3.Vector{}, err
	}
	if len(vertices) == 0 {
		return r3.Vector{}, nil
	}
	resultMagnitude := 0.0
	for i := 0; i < len(vertices); i += stride {
		position := r3.Vector{
			X: vertices[i] + center.X,
			Y: vertices[i+1] + center.Y,
			Z: vertices[i+2] + center.Z,
		}
		m := candidateMagnitude(e, position, u)
		if m < 0 {
			return r3.Vector{}, fmt.Errorf("%w: vertex %d is beyond the direction's horizon plane", ErrNoCullingPoint, i/stride)
		}
		resultMagnitude = math.Max(resultMagnitude, m)
	}
	return pointAlongDirection(u, resultMagnitude)
}

// candidateMagnitude computes 1/cos(α+β) for one position: α is the angle at
// the center between the position and the scaled direction, β the half-angle
// of the position's horizon cone (cosβ = 1/mag for a unit sphere). The
// expansion of cos(α+β) uses one dot and one cross product. Positions below
// the ellipsoid surface are treated as lying on it; without the clamp,
// surface positions would take the square root of negative rounding noise.
func candidateMagnitude(e *geodesy.Ellipsoid, position r3.Vector, scaledDirection r3.Vector) float64 {
	sp := e.TransformPositionToScaledSpace(position)
	magnitudeSq := sp.Norm2()
	magnitude := math.Sqrt(magnitudeSq)
	direction := sp.Mul(1 / magnitude)

	magnitudeSq = math.Max(1, magnitudeSq)
	magnitude = math.Max(1, magnitude)

	cosAlpha := direction.Dot(scaledDirection)
	sinAlpha := direction.Cross(scaledDirection).Norm()
	cosBeta := 1 / magnitude
	sinBeta := math.Sqrt(magnitudeSq-1) * cosBeta

	return 1 / (cosAlpha*cosBeta - sinAlpha*sinBeta)
}

// scaledSpaceDirection transforms a direction into scaled space and
// normalizes it. Only the direction matters; any non-zero vector aimed from
// the ellipsoid center toward the geometry works.
func scaledSpaceDirection(e *geodesy.Ellipsoid, directionToPoint r3.Vector) (r3.Vector, error) {
	if directionToPoint == (r3.Vector{}) {
		return r3.Vector{}, ErrZeroDirection
	}
	u := e.TransformPositionToScaledSpace(directionToPoint).Normalize()
	if u == (r3.Vector{}) {
		return r3.Vector{}, ErrZeroDirection
	}
	return u, nil
}

// pointAlongDirection scales the unit direction by the accumulated magnitude.
// A non-positive or non-finite magnitude means some position admits no
// grazing cone along the direction.
func pointAlongDirection(u r3.Vector, magnitude float64) (r3.Vector, error) {
	if magnitude <= 0 || math.IsInf(magnitude, 0) || math.IsNaN(magnitude) {
		return r3.Vector{}, fmt.Errorf("%w: accumulated magnitude %g", ErrNoCullingPoint, magnitude)
	}
	return u.Mul(magnitude), nil
}

// shrunkEllipsoid reduces every radius by |minimumHeight| so geometry that
// dips below the surface stays on or above the ellipsoid used for the
// culling computation. Non-negative heights, or heights deeper than the
// smallest radius, leave the ellipsoid unchanged.
func shrunkEllipsoid(e *geodesy.Ellipsoid, minimumHeight float64) *geodesy.Ellipsoid {
	if minimumHeight >= 0 || e.MinimumRadius() <= -minimumHeight {
		return e
	}
	r := e.Radii()
	shrunk, err := geodesy.New(r.X+minimumHeight, r.Y+minimumHeight, r.Z+minimumHeight)
	if err != nil {
		return e
	}
	return shrunk
}

// boundingCenter returns the center of the axis-aligned box around the
// positions, a cheap stand-in for a bounding-sphere center.
func boundingCenter(positions []r3.Vector) r3.Vector {
	if len(positions) == 0 {
		return r3.Vector{}
	}
	lo, hi := positions[0], positions[0]
	for _, p := range positions[1:] {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		lo.Z = math.Min(lo.Z, p.Z)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
		hi.Z = math.Max(hi.Z, p.Z)
	}
	return lo.Add(hi).Mul(0.5)
}
