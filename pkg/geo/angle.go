package geo

import (
	"math"

	"github.com/lintang-b-s/roadtrace/pkg/util"
)

/*
BearingTo. menghitung sudut initial bearing untuk edge (p1,p2).
https://www.movable-type.co.uk/scripts/latlong.html
*/
func BearingTo(p1Lat, p1Lon, p2Lat, p2Lon float64) float64 {

	dLon := util.DegreeToRadians(p2Lon - p1Lon)

	lat1 := util.DegreeToRadians(p1Lat)
	lat2 := util.DegreeToRadians(p2Lat)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	brng := math.Mod(util.RadiansToDegree(math.Atan2(y, x))+360, 360.0)

	return brng
}

// InitialBearing of a polyline, from its first to its second vertex. ok is false for fewer than 2 vertices.
func InitialBearing(line []Coordinate) (float64, bool) {
	for i := 1; i < len(line); i++ {
		if line[i] != line[0] {
			return BearingTo(line[0].Lat, line[0].Lon, line[i].Lat, line[i].Lon), true
		}
	}
	return 0, false
}

// OverallBearing of a polyline, from its first to its last vertex.
func OverallBearing(line []Coordinate) (float64, bool) {
	if len(line) < 2 || line[0] == line[len(line)-1] {
		return InitialBearing(line)
	}
	first, last := line[0], line[len(line)-1]
	return BearingTo(first.Lat, first.Lon, last.Lat, last.Lon), true
}

// AngularDifference returns the smallest angle between two bearings, in [0,180].
func AngularDifference(a, b float64) float64 {
	d := math.Mod(a-b, 360.0)
	if d < 0 {
		d += 360
	}
	if d > 180 {
		d = 360 - d
	}
	return d
}

// NormalizeBearing maps any angle in degrees to [0,360).
func NormalizeBearing(b float64) float64 {
	b = math.Mod(b, 360.0)
	if b < 0 {
		b += 360
	}
	if b >= 360 {
		b = 0
	}
	return b
}

// CircularMean is the weighted mean direction of bearings (degrees). With zero resultant it returns the first bearing.
func CircularMean(bearings, weights []float64) float64 {
	var sx, sy float64
	for i, b := range bearings {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		rad := util.DegreeToRadians(b)
		sx += w * math.Cos(rad)
		sy += w * math.Sin(rad)
	}
	if math.Abs(sx) < 1e-12 && math.Abs(sy) < 1e-12 {
		if len(bearings) == 0 {
			return 0
		}
		return NormalizeBearing(bearings[0])
	}
	return NormalizeBearing(util.RadiansToDegree(math.Atan2(sy, sx)))
}
