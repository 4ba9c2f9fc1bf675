// Package geo provides the coordinate window used to look for nearby reports.
//
// The window is a fixed number of degrees wide on both axes. It is not a
// geodesic radius: 0.00045 degrees is roughly 50 m of latitude everywhere,
// but the longitude extent shrinks with cos(latitude), so the box narrows
// toward the poles.
package geo

import "fmt"

// DefaultWindowDegrees is about 50 m of latitude.
const DefaultWindowDegrees = 0.00045

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Validate rejects coordinates outside the valid ranges.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Lon)
	}
	return nil
}

// BoundingBox is an inclusive latitude/longitude rectangle.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Window returns the box extending delta degrees from p on each axis.
func Window(p Point, delta float64) BoundingBox {
	if delta <= 0 {
		delta = DefaultWindowDegrees
	}
	return BoundingBox{
		MinLat: p.Lat - delta,
		MaxLat: p.Lat + delta,
		MinLon: p.Lon - delta,
		MaxLon: p.Lon + delta,
	}
}

// Contains reports whether q lies in the box, edges included.
func (b BoundingBox) Contains(q Point) bool {
	return q.Lat >= b.MinLat && q.Lat <= b.MaxLat &&
		q.Lon >= b.MinLon && q.Lon <= b.MaxLon
}
