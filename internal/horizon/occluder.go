// Package horizon implements ellipsoidal horizon culling: deciding whether
// points are hidden behind an ellipsoid as seen from a camera, and deriving a
// single conservative proxy point that stands in for a whole cluster of
// positions (a terrain tile, a bounding volume) in that same test.
//
// All math runs in the ellipsoid's scaled space, where the ellipsoid is the
// unit sphere. The camera's scaled position defines a horizon cone; a point
// is occluded when it lies inside the cone beyond the horizon plane. Reducing
// the ellipsoid problem to a sphere problem keeps the per-point test to two
// dot products.
//
// References:
//
//	https://cesium.com/blog/2013/04/25/horizon-culling/
//	https://cesium.com/blog/2013/05/09/computing-the-horizon-occlusion-point/
package horizon

import (
	"errors"

	"github.com/golang/geo/r3"

	"github.com/krenshaw2018/cesium/internal/geodesy"
)

// Occluder answers horizon-culling queries against an ellipsoid from a camera
// position. The camera's scaled-space position and squared horizon distance
// are cached when the camera is set, keeping the per-point test free of
// transforms and square roots.
//
// Setting the camera concurrently with queries is undefined; share an
// Occluder read-only across goroutines, or keep one per goroutine. Until a
// camera is set, every point tests visible.
type Occluder struct {
	ellipsoid            *geodesy.Ellipsoid
	cameraPosition       r3.Vector
	cameraPositionScaled r3.Vector
	distanceToLimbSq     float64
}

// NewOccluder creates an Occluder against the given ellipsoid with no camera
// set.
func NewOccluder(ellipsoid *geodesy.Ellipsoid) (*Occluder, error) {
	if ellipsoid == nil {
		return nil, errors.New("horizon: ellipsoid is required")
	}
	o := &Occluder{ellipsoid: ellipsoid}
	o.SetCameraPosition(r3.Vector{})
	return o, nil
}

// NewOccluderForCamera creates an Occluder with the camera position already
// set.
func NewOccluderForCamera(ellipsoid *geodesy.Ellipsoid, camera r3.Vector) (*Occluder, error) {
	o, err := NewOccluder(ellipsoid)
	if err != nil {
		return nil, err
	}
	o.SetCameraPosition(camera)
	return o, nil
}

// Ellipsoid returns the ellipsoid the occluder tests against.
func (o *Occluder) Ellipsoid() *geodesy.Ellipsoid { return o.ellipsoid }

// CameraPosition returns the camera position last set, in the ellipsoid's
// frame.
func (o *Occluder) CameraPosition() r3.Vector { return o.cameraPosition }

// SetCameraPosition moves the camera and recomputes the cached scaled-space
// position cv and squared horizon distance |cv|²−1 (the squared length of a
// tangent from the camera to the unit sphere). The camera is expected to be
// strictly outside the ellipsoid; a camera at or below the surface has no
// horizon, and the test degrades to a plane test through the camera.
func (o *Occluder) SetCameraPosition(camera r3.Vector) {
	cv := o.ellipsoid.TransformPositionToScaledSpace(camera)
	o.cameraPosition = camera
	o.cameraPositionScaled = cv
	o.distanceToLimbSq = cv.Norm2() - 1.0
}

// IsPointVisible reports whether a point in the ellipsoid's frame is on the
// camera's side of the horizon.
func (o *Occluder) IsPointVisible(point r3.Vector) bool {
	return isVisible(o.ellipsoid.TransformPositionToScaledSpace(point), o.cameraPositionScaled, o.distanceToLimbSq)
}

// IsScaledSpacePointVisible is IsPointVisible for a point already transformed
// into scaled space, letting callers amortize the transform across repeated
// queries.
func (o *Occluder) IsScaledSpacePointVisible(scaledPoint r3.Vector) bool {
	return isVisible(scaledPoint, o.cameraPositionScaled, o.distanceToLimbSq)
}

// IsScaledSpacePointVisiblePossiblyUnderEllipsoid tests a scaled-space point
// that was computed against the ellipsoid shrunk by |minimumHeight| (see
// ComputeHorizonCullingPointPossiblyUnderEllipsoid). The camera is rescaled
// against the shrunk radii, so the cached camera values cannot be used.
func (o *Occluder) IsScaledSpacePointVisiblePossiblyUnderEllipsoid(scaledPoint r3.Vector, minimumHeight float64) bool {
	e := o.ellipsoid
	if minimumHeight < 0 && e.MinimumRadius() > -minimumHeight {
		r := e.Radii()
		cv := r3.Vector{
			X: o.cameraPosition.X / (r.X + minimumHeight),
			Y: o.cameraPosition.Y / (r.Y + minimumHeight),
			Z: o.cameraPosition.Z / (r.Z + minimumHeight),
		}
		return isVisible(scaledPoint, cv, cv.Norm2()-1.0)
	}
	return isVisible(scaledPoint, o.cameraPositionScaled, o.distanceToLimbSq)
}

// isVisible runs the horizon test in scaled space. The camera cv sees the
// unit sphere's horizon at squared distance vhSq = |cv|²−1; a point is
// occluded when its offset vt from the camera projects far enough onto the
// camera→center direction (beyond the horizon plane) while staying inside
// the horizon cone:
//
//	vtDotVc > vhSq  AND  vtDotVc²/|vt|² > vhSq
//
// A camera at or under the surface (vhSq < 0) has no horizon; everything
// beyond the plane through the camera is treated as occluded. A point
// coinciding with the camera is visible: the conjunction short-circuits
// before the division, so no NaN arises.
func isVisible(scaledPoint, cv r3.Vector, vhSq float64) bool {
	// The scaled-space origin is the no-culling-point sentinel; it always
	// tests visible so geometry without a culling point is never culled.
	if scaledPoint == (r3.Vector{}) {
		return true
	}
	vt := scaledPoint.Sub(cv)
	vtDotVc := -vt.Dot(cv)
	if vhSq < 0 {
		return vtDotVc <= 0
	}
	occluded := vtDotVc > vhSq && vtDotVc*vtDotVc/vt.Norm2() > vhSq
	return !occluded
}
