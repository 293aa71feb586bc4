package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

func toS2Point(c Coordinate) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon))
}

// ProjectPointToLineCoord. closest point to snap on the geodesic segment (pointA, pointB)
func ProjectPointToLineCoord(pointA Coordinate, pointB Coordinate,
	snap Coordinate) Coordinate {
	if pointA == pointB {
		return pointA
	}
	projection := s2.Project(toS2Point(snap), toS2Point(pointA), toS2Point(pointB))
	projectLatLng := s2.LatLngFromPoint(projection)
	return NewCoordinate(projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees())
}

// return in meter
func PointLinePerpendicularDistance(pointA Coordinate, pointB Coordinate,
	snap Coordinate) float64 {
	projectionPoint := ProjectPointToLineCoord(pointA, pointB, snap)

	dist := CalculateHaversineDistance(snap.GetLat(), snap.GetLon(), projectionPoint.GetLat(), projectionPoint.GetLon())

	return dist * 1000
}

// PointPolylineDistance. minimum perpendicular distance (meter) from snap to any segment of line.
// ok is false for an empty line.
func PointPolylineDistance(line []Coordinate, snap Coordinate) (float64, bool) {
	switch len(line) {
	case 0:
		return 0, false
	case 1:
		return DistanceMeters(line[0], snap), true
	}
	best := math.Inf(1)
	for i := 1; i < len(line); i++ {
		d := PointLinePerpendicularDistance(line[i-1], line[i], snap)
		if d < best {
			best = d
		}
	}
	return best, true
}
