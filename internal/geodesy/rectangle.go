package geodesy

import (
	"math"

	"github.com/golang/geo/r3"
)

const degToRad = math.Pi / 180.0

// Cartographic is a geodetic position: longitude and latitude in radians,
// height in meters above the ellipsoid surface.
type Cartographic struct {
	Longitude float64
	Latitude  float64
	Height    float64
}

// FromDegrees builds a Cartographic from longitude and latitude in degrees
// and height in meters.
func FromDegrees(lonDeg, latDeg, height float64) Cartographic {
	return Cartographic{
		Longitude: lonDeg * degToRad,
		Latitude:  latDeg * degToRad,
		Height:    height,
	}
}

// Rectangle is a geographic bounding rectangle with bounds in radians.
// West may be greater than East for rectangles crossing the antimeridian.
type Rectangle struct {
	West  float64
	South float64
	East  float64
	North float64
}

// RectangleFromDegrees builds a Rectangle from bounds given in degrees.
func RectangleFromDegrees(west, south, east, north float64) Rectangle {
	return Rectangle{
		West:  west * degToRad,
		South: south * degToRad,
		East:  east * degToRad,
		North: north * degToRad,
	}
}

// Width returns the longitudinal extent in radians, accounting for
// antimeridian crossings.
func (r Rectangle) Width() float64 {
	if r.East < r.West {
		return r.East + 2*math.Pi - r.West
	}
	return r.East - r.West
}

// Height returns the latitudinal extent in radians.
func (r Rectangle) Height() float64 {
	return r.North - r.South
}

// Contains reports whether the cartographic position lies within the
// rectangle, accounting for antimeridian crossings.
func (r Rectangle) Contains(c Cartographic) bool {
	if c.Latitude < r.South || c.Latitude > r.North {
		return false
	}
	lon := c.Longitude
	if r.East < r.West {
		return lon >= r.West || lon <= r.East
	}
	return lon >= r.West && lon <= r.East
}

// Subsample returns Cartesian positions outlining the rectangle on the given
// ellipsoid at the given height above the surface: the four corners, interior
// samples along the latitude nearest the equator (where the boundary bulges
// farthest from the ellipsoid center), and, when the rectangle spans the
// equator, the equator crossings of the west and east edges. The result is
// suitable as a bounding proxy for everything the rectangle covers.
func (r Rectangle) Subsample(e *Ellipsoid, surfaceHeight float64) []r3.Vector {
	positions := make([]r3.Vector, 0, 13)
	lla := Cartographic{Height: surfaceHeight}

	lla.Longitude = r.West
	lla.Latitude = r.North
	positions = append(positions, e.CartographicToCartesian(lla))

	lla.Longitude = r.East
	positions = append(positions, e.CartographicToCartesian(lla))

	lla.Latitude = r.South
	positions = append(positions, e.CartographicToCartesian(lla))

	lla.Longitude = r.West
	positions = append(positions, e.CartographicToCartesian(lla))

	switch {
	case r.North < 0:
		lla.Latitude = r.North
	case r.South > 0:
		lla.Latitude = r.South
	default:
		lla.Latitude = 0
	}

	width := r.Width()
	for i := 1; i < 8; i++ {
		lla.Longitude = r.West + float64(i)/8.0*width
		positions = append(positions, e.CartographicToCartesian(lla))
	}

	if lla.Latitude == 0 {
		lla.Longitude = r.West
		positions = append(positions, e.CartographicToCartesian(lla))
		lla.Longitude = r.East
		positions = append(positions, e.CartographicToCartesian(lla))
	}

	return positions
}
