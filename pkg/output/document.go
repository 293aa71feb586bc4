package output

import (
	"time"

	"github.com/lintang-b-s/roadtrace/pkg"
	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/geo"
	"github.com/lintang-b-s/roadtrace/pkg/pipeline"
	"github.com/lintang-b-s/roadtrace/pkg/util"
)

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type GeometryPoint struct {
	Order int     `json:"order"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

type Segment struct {
	Number      int                   `json:"number"`
	ID          uint64                `json:"id,string"`
	Edge        datastructure.EdgeKey `json:"edge"`
	Subsegment  int                   `json:"subsegment"`
	Name        string                `json:"name"`
	Length      float64               `json:"length"`
	Highway     string                `json:"highway"`
	Origin      Point                 `json:"origin"`
	Destination Point                 `json:"destination"`
	Geometry    []GeometryPoint       `json:"geometry"`
	Polyline    string                `json:"polyline"`
	StartSample int                   `json:"start_sample"`
	EndSample   int                   `json:"end_sample"`
	Timestamp   string                `json:"timestamp"`
	Metrics     map[string]float64    `json:"metrics,omitempty"`
}

type Document struct {
	File        string            `json:"file"`
	RunID       string            `json:"run_id"`
	ProcessedAt string            `json:"processed_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Stats       pipeline.Stats    `json:"stats"`
	Segments    []Segment         `json:"segments"`
}

// NewDocument renders a pipeline result; every annotator contributes to each segment's metrics.
func NewDocument(res *pipeline.Result, processedAt time.Time, annotators ...Annotator) Document {
	doc := Document{
		File:        res.Source,
		RunID:       res.RunID.String(),
		ProcessedAt: processedAt.UTC().Format(time.RFC3339),
		Metadata:    res.Metadata,
		Stats:       res.Stats,
		Segments:    make([]Segment, 0, len(res.Runs)),
	}

	for i, run := range res.Runs {
		seg := Segment{
			Number:      i + 1,
			ID:          run.ID,
			Edge:        run.Edge,
			Subsegment:  run.SubsegmentIndex,
			Name:        run.Name,
			Length:      util.RoundFloat(run.Length, 2),
			Highway:     run.HighwayClass,
			Geometry:    make([]GeometryPoint, len(run.Geometry)),
			Polyline:    geo.EncodePolyline(run.Geometry),
			StartSample: run.StartSampleIndex,
			EndSample:   run.EndSampleIndex,
			Timestamp:   time.UnixMilli(run.StartTimestamp).UTC().Format(time.RFC3339),
		}
		if seg.Name == "" {
			seg.Name = pkg.UNDEFINED_STREET_NAME
		}
		for j, c := range run.Geometry {
			seg.Geometry[j] = GeometryPoint{Order: j, Lat: c.Lat, Lon: c.Lon}
		}
		if n := len(run.Geometry); n > 0 {
			seg.Origin = Point{Lat: run.Geometry[0].Lat, Lon: run.Geometry[0].Lon}
			seg.Destination = Point{Lat: run.Geometry[n-1].Lat, Lon: run.Geometry[n-1].Lon}
		}

		for _, a := range annotators {
			for k, v := range a.Annotate(run, res.Samples) {
				if seg.Metrics == nil {
					seg.Metrics = make(map[string]float64)
				}
				seg.Metrics[k] = v
			}
		}
		doc.Segments = append(doc.Segments, seg)
	}
	return doc
}
