package geo

import (
	"github.com/twpayne/go-polyline"
)

// EncodePolyline encodes the coordinates with the Google polyline algorithm (precision 5).
func EncodePolyline(line []Coordinate) string {
	coords := make([][]float64, 0, len(line))
	for _, c := range line {
		coords = append(coords, []float64{c.Lat, c.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}

func DecodePolyline(encoded string) ([]Coordinate, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	line := make([]Coordinate, 0, len(coords))
	for _, c := range coords {
		line = append(line, NewCoordinate(c[0], c[1]))
	}
	return line, nil
}
