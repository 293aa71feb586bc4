package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const degenerateSegmentEps = 1e-12

// Corridor is the buffered strip of half-width (degrees) around a polyline, in lon/lat plane coordinates.
// It is the union of one square-capped rectangle per polyline segment.
type Corridor struct {
	quads     orb.MultiPolygon
	bound     orb.Bound
	halfWidth float64
}

func NewCorridor(line []Coordinate, halfWidth float64) *Corridor {
	c := &Corridor{
		quads:     make(orb.MultiPolygon, 0, len(line)),
		halfWidth: halfWidth,
	}
	if halfWidth <= 0 {
		return c
	}
	for i := 1; i < len(line); i++ {
		quad, ok := segmentQuad(line[i-1], line[i], halfWidth)
		if !ok {
			continue
		}
		c.quads = append(c.quads, quad)
	}
	if len(c.quads) > 0 {
		c.bound = c.quads.Bound()
	}
	return c
}

func segmentQuad(a, b Coordinate, halfWidth float64) (orb.Polygon, bool) {
	dx := b.Lon - a.Lon
	dy := b.Lat - a.Lat
	norm := math.Hypot(dx, dy)
	if norm < degenerateSegmentEps {
		return nil, false
	}
	// unit direction and left normal
	ux, uy := dx/norm, dy/norm
	nx, ny := -uy, ux

	sx, sy := a.Lon-ux*halfWidth, a.Lat-uy*halfWidth
	ex, ey := b.Lon+ux*halfWidth, b.Lat+uy*halfWidth

	ring := orb.Ring{
		{sx + nx*halfWidth, sy + ny*halfWidth},
		{ex + nx*halfWidth, ey + ny*halfWidth},
		{ex - nx*halfWidth, ey - ny*halfWidth},
		{sx - nx*halfWidth, sy - ny*halfWidth},
		{sx + nx*halfWidth, sy + ny*halfWidth},
	}
	return orb.Polygon{ring}, true
}

// IsDegenerate is true when the corridor has no area (fewer than two distinct vertices or a non-positive width).
func (c *Corridor) IsDegenerate() bool {
	return len(c.quads) == 0
}

// Contains. point-in-corridor test; always false for a degenerate corridor.
func (c *Corridor) Contains(lat, lon float64) bool {
	if c.IsDegenerate() {
		return false
	}
	p := orb.Point{lon, lat}
	if !c.bound.Contains(p) {
		return false
	}
	for _, quad := range c.quads {
		if planar.PolygonContains(quad, p) {
			return true
		}
	}
	return false
}

func (c *Corridor) GetHalfWidth() float64 {
	return c.halfWidth
}
