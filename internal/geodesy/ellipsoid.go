// Package geodesy models reference ellipsoids and geodetic positions for
// Earth-centered rendering math.
//
// The central type is Ellipsoid, a quadric surface defined by three semi-axis
// radii aligned with the coordinate axes. The transform to "scaled space"
// divides each Cartesian component by the matching radius, mapping the
// ellipsoid surface onto the unit sphere; horizon and occlusion tests become
// sphere tests in that frame. Derived quantities (squared radii, reciprocals,
// extreme radii) are precomputed at construction so the transform paths stay
// divide-free.
package geodesy

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// WGS-84 semi-axes in meters.
const (
	wgs84SemiMajor = 6378137.0
	wgs84SemiMinor = 6356752.3142451793
)

// WGS84 is the standard Earth reference ellipsoid.
var WGS84 = mustNew(wgs84SemiMajor, wgs84SemiMajor, wgs84SemiMinor)

// UnitSphere is the ellipsoid with all three radii equal to one. In its
// scaled space, positions are unchanged.
var UnitSphere = mustNew(1, 1, 1)

// Ellipsoid is the quadric surface x²/a² + y²/b² + z²/c² = 1 centered at the
// origin. An Ellipsoid is immutable and safe for concurrent use.
type Ellipsoid struct {
	radii               r3.Vector
	radiiSquared        r3.Vector
	oneOverRadii        r3.Vector
	oneOverRadiiSquared r3.Vector
	minimumRadius       float64
	maximumRadius       float64
}

// New creates an Ellipsoid from its semi-axis radii in meters. All three
// radii must be positive and finite: the scaled-space transforms divide by
// them.
func New(x, y, z float64) (*Ellipsoid, error) {
	for _, r := range [3]float64{x, y, z} {
		if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
			return nil, fmt.Errorf("ellipsoid radii must be positive and finite, got (%g, %g, %g)", x, y, z)
		}
	}
	return &Ellipsoid{
		radii:               r3.Vector{X: x, Y: y, Z: z},
		radiiSquared:        r3.Vector{X: x * x, Y: y * y, Z: z * z},
		oneOverRadii:        r3.Vector{X: 1 / x, Y: 1 / y, Z: 1 / z},
		oneOverRadiiSquared: r3.Vector{X: 1 / (x * x), Y: 1 / (y * y), Z: 1 / (z * z)},
		minimumRadius:       math.Min(x, math.Min(y, z)),
		maximumRadius:       math.Max(x, math.Max(y, z)),
	}, nil
}

func mustNew(x, y, z float64) *Ellipsoid {
	e, err := New(x, y, z)
	if err != nil {
		panic(err)
	}
	return e
}

// Radii returns the semi-axis radii in meters.
func (e *Ellipsoid) Radii() r3.Vector { return e.radii }

// MinimumRadius returns the smallest semi-axis radius.
func (e *Ellipsoid) MinimumRadius() float64 { return e.minimumRadius }

// MaximumRadius returns the largest semi-axis radius.
func (e *Ellipsoid) MaximumRadius() float64 { return e.maximumRadius }

// TransformPositionToScaledSpace divides a position componentwise by the
// radii. Points on the ellipsoid surface land on the unit sphere.
func (e *Ellipsoid) TransformPositionToScaledSpace(p r3.Vector) r3.Vector {
	return r3.Vector{
		X: p.X * e.oneOverRadii.X,
		Y: p.Y * e.oneOverRadii.Y,
		Z: p.Z * e.oneOverRadii.Z,
	}
}

// TransformPositionFromScaledSpace multiplies a scaled-space position
// componentwise by the radii, returning it to the unscaled frame.
func (e *Ellipsoid) TransformPositionFromScaledSpace(p r3.Vector) r3.Vector {
	return r3.Vector{
		X: p.X * e.radii.X,
		Y: p.Y * e.radii.Y,
		Z: p.Z * e.radii.Z,
	}
}

// GeodeticSurfaceNormal returns the outward unit normal of the ellipsoid at
// the given Cartesian position. The gradient of the quadric is proportional
// to the position componentwise-scaled by 1/radii²; the zero vector maps to
// the zero vector.
func (e *Ellipsoid) GeodeticSurfaceNormal(p r3.Vector) r3.Vector {
	n := r3.Vector{
		X: p.X * e.oneOverRadiiSquared.X,
		Y: p.Y * e.oneOverRadiiSquared.Y,
		Z: p.Z * e.oneOverRadiiSquared.Z,
	}
	return n.Normalize()
}

// GeodeticSurfaceNormalCartographic returns the outward unit normal at a
// geodetic longitude/latitude.
func (e *Ellipsoid) GeodeticSurfaceNormalCartographic(c Cartographic) r3.Vector {
	cosLat := math.Cos(c.Latitude)
	return r3.Vector{
		X: cosLat * math.Cos(c.Longitude),
		Y: cosLat * math.Sin(c.Longitude),
		Z: math.Sin(c.Latitude),
	}
}

// CartographicToCartesian converts a geodetic position to Cartesian meters in
// the ellipsoid-centered frame. The surface point is the radii²-scaled normal
// projected back onto the ellipsoid; height is applied along the normal.
func (e *Ellipsoid) CartographicToCartesian(c Cartographic) r3.Vector {
	n := e.GeodeticSurfaceNormalCartographic(c)
	k := r3.Vector{
		X: e.radiiSquared.X * n.X,
		Y: e.radiiSquared.Y * n.Y,
		Z: e.radiiSquared.Z * n.Z,
	}
	gamma := math.Sqrt(n.Dot(k))
	return k.Mul(1 / gamma).Add(n.Mul(c.Height))
}
