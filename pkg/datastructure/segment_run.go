package datastructure

import "github.com/lintang-b-s/roadtrace/pkg/geo"

// SegmentRun contiguous span of samples matched to one (edge, subsegment) key.
type SegmentRun struct {
	ID               uint64           `json:"id,string"`
	Edge             EdgeKey          `json:"edge"`
	SubsegmentIndex  int              `json:"subsegment_index"`
	Geometry         []geo.Coordinate `json:"geometry"`
	Length           float64          `json:"length"`
	HighwayClass     string           `json:"highway_class"`
	Name             string           `json:"name"`
	StartSampleIndex int              `json:"start_sample_index"`
	EndSampleIndex   int              `json:"end_sample_index"`
	StartTimestamp   int64            `json:"start_timestamp"`
	EndTimestamp     int64            `json:"end_timestamp"`
}

func (r *SegmentRun) NumSamples() int {
	return r.EndSampleIndex - r.StartSampleIndex + 1
}
