package tile

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
)

const metersPerDegreeLat = 111320.0

// CellID. deterministic partition of the earth into S2 cells of a fixed level
func CellID(lat, lon float64, level int) s2.CellID {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon)).Parent(level)
}

// TileFileName. file name of the tile covering cell
func TileFileName(cell s2.CellID) string {
	return "seg" + cell.ToToken() + ".tile"
}

// CellBoundingBox lat/lon bounding box of the cell grown by marginM meters on every side.
func CellBoundingBox(cell s2.CellID, marginM float64) *datastructure.BoundingBox {
	rect := s2.CellFromCellID(cell).RectBound()
	if marginM > 0 {
		rect = expandRect(rect, marginM)
	}
	return datastructure.NewBoundingBox(rect.Lo().Lat.Degrees(), rect.Lo().Lng.Degrees(),
		rect.Hi().Lat.Degrees(), rect.Hi().Lng.Degrees())
}

// CellsCovering returns the cells of the given level touched by the bounding box grown by marginM meters.
func CellsCovering(bbox *datastructure.BoundingBox, level int, marginM float64) []s2.CellID {
	rect := s2.RectFromLatLng(s2.LatLngFromDegrees(bbox.GetMinLat(), bbox.GetMinLon()))
	rect = rect.AddPoint(s2.LatLngFromDegrees(bbox.GetMaxLat(), bbox.GetMaxLon()))
	if marginM > 0 {
		rect = expandRect(rect, marginM)
	}
	coverer := &s2.RegionCoverer{MinLevel: level, MaxLevel: level, MaxCells: 64}
	return coverer.Covering(rect)
}

// expandRect grows rect by marginM meters on every side, latitude clamped to the poles.
func expandRect(rect s2.Rect, marginM float64) s2.Rect {
	m := marginLatLng(rect.Center().Lat.Degrees(), marginM)
	return s2.Rect{
		Lat: rect.Lat.Expanded(m.Lat.Radians()).Intersection(s2.FullRect().Lat),
		Lng: rect.Lng.Expanded(m.Lng.Radians()),
	}
}

func marginLatLng(lat, marginM float64) s2.LatLng {
	dLat := marginM / metersPerDegreeLat
	cos := math.Cos(lat * math.Pi / 180)
	if cos < 1e-6 {
		cos = 1e-6
	}
	dLon := marginM / (metersPerDegreeLat * cos)
	return s2.LatLngFromDegrees(dLat, dLon)
}
