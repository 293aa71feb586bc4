package output

import (
	"fmt"
	"io"

	"github.com/lintang-b-s/roadtrace/pkg"
	"github.com/twpayne/go-kml"
)

// WriteKML one LineString placemark per segment.
func WriteKML(w io.Writer, doc Document) error {
	placemarks := make([]kml.Element, 0, len(doc.Segments)+1)
	placemarks = append(placemarks, kml.Name(doc.File))
	for _, seg := range doc.Segments {
		coords := make([]kml.Coordinate, len(seg.Geometry))
		for i, p := range seg.Geometry {
			coords[i] = kml.Coordinate{Lon: p.Lon, Lat: p.Lat}
		}
		name := seg.Name
		if name == "" {
			name = pkg.UNDEFINED_STREET_NAME
		}
		placemarks = append(placemarks, kml.Placemark(
			kml.Name(fmt.Sprintf("%d %s", seg.Number, name)),
			kml.Description(fmt.Sprintf("%s, samples %d-%d, %s", seg.Highway, seg.StartSample, seg.EndSample,
				seg.Timestamp)),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coords...),
			),
		))
	}
	return kml.KML(kml.Document(placemarks...)).WriteIndent(w, "", "  ")
}
