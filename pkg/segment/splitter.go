package segment

import (
	"math"

	"github.com/lintang-b-s/roadtrace/pkg/geo"
)

const cutEps = 1e-9

// Subsegment a length-bounded slice of an edge polyline.
type Subsegment struct {
	Index    int
	Geometry []geo.Coordinate
	Length   float64 // meter
}

// Split divides an edge polyline into floor(length/maxLength)+1 pieces of equal target length.
// Edges not longer than maxLength, and degenerate polylines, stay a single piece.
// Consecutive pieces share their cut vertex.
func Split(geometry []geo.Coordinate, length, maxLength float64) []Subsegment {
	if length <= maxLength || maxLength <= 0 || len(geometry) < 2 {
		return []Subsegment{{Index: 0, Geometry: geometry, Length: length}}
	}

	cum := geo.CumulativeDistances(geometry)
	total := cum[len(cum)-1]
	if total <= 0 {
		return []Subsegment{{Index: 0, Geometry: geometry, Length: length}}
	}

	k := int(math.Floor(length / maxLength))
	target := total / float64(k+1)

	pieces := make([]Subsegment, 0, k+1)
	current := []geo.Coordinate{geometry[0]}
	pos := 1
	for i := 1; i < len(geometry); i++ {
		for pos <= k && cum[i] >= target*float64(pos)-cutEps {
			boundary := target * float64(pos)
			var cut geo.Coordinate
			if math.Abs(cum[i]-boundary) <= cutEps {
				cut = geometry[i]
			} else {
				segLen := cum[i] - cum[i-1]
				cut = geo.Interpolate(geometry[i-1], geometry[i], (boundary-cum[i-1])/segLen)
			}
			current = append(current, cut)
			pieces = append(pieces, Subsegment{Index: len(pieces), Geometry: current, Length: target})
			current = []geo.Coordinate{cut}
			pos++
		}
		if current[len(current)-1] != geometry[i] {
			current = append(current, geometry[i])
		}
	}
	pieces = append(pieces, Subsegment{Index: len(pieces), Geometry: current, Length: target})
	return pieces
}

// Locate returns the index of the first piece whose corridor contains the point, else the piece
// with the nearest endpoint. Never undetermined: 0 for an empty list.
func Locate(pieces []Subsegment, lat, lon, halfWidth float64) int {
	for _, p := range pieces {
		if geo.NewCorridor(p.Geometry, halfWidth).Contains(lat, lon) {
			return p.Index
		}
	}

	q := geo.NewCoordinate(lat, lon)
	best, bestDist := 0, math.Inf(1)
	for _, p := range pieces {
		if len(p.Geometry) == 0 {
			continue
		}
		d := math.Min(geo.DistanceMeters(q, p.Geometry[0]), geo.DistanceMeters(q, p.Geometry[len(p.Geometry)-1]))
		if d < bestDist {
			best, bestDist = p.Index, d
		}
	}
	return best
}
