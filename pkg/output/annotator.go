package output

import (
	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
)

// Annotator computes per-run metrics from the samples the run covers.
// The samples slice is the full preprocessed trace; runs index into it.
type Annotator interface {
	Annotate(run datastructure.SegmentRun, samples []datastructure.Sample) map[string]float64
}

// SpeedAnnotator sample count, mean and max speed, and duration of a run.
type SpeedAnnotator struct{}

func NewSpeedAnnotator() SpeedAnnotator {
	return SpeedAnnotator{}
}

func (SpeedAnnotator) Annotate(run datastructure.SegmentRun, samples []datastructure.Sample) map[string]float64 {
	if run.StartSampleIndex < 0 || run.EndSampleIndex >= len(samples) || run.StartSampleIndex > run.EndSampleIndex {
		return nil
	}
	covered := samples[run.StartSampleIndex : run.EndSampleIndex+1]

	sum, max := 0.0, 0.0
	for _, s := range covered {
		sum += s.Speed
		if s.Speed > max {
			max = s.Speed
		}
	}
	return map[string]float64{
		"sample_count": float64(len(covered)),
		"mean_speed":   sum / float64(len(covered)),
		"max_speed":    max,
		"duration_s":   float64(run.EndTimestamp-run.StartTimestamp) / 1000,
	}
}
