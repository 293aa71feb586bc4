package trace

import (
	"sort"

	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/geo"
	"github.com/lintang-b-s/roadtrace/pkg/util"
)

type PreprocessorConfig struct {
	MinSpeed            float64
	HeadingWindow       int
	HeadingCourseWeight float64
	MinBearingDistance  float64 // meter
}

func NewPreprocessorConfig(cfg util.PreprocessConfig) PreprocessorConfig {
	return PreprocessorConfig{
		MinSpeed:            cfg.MinSpeed,
		HeadingWindow:       cfg.HeadingWindow,
		HeadingCourseWeight: cfg.HeadingCourseWeight,
		MinBearingDistance:  cfg.MinBearingDistance,
	}
}

type Stats struct {
	Raw          int `json:"raw"`
	Deduplicated int `json:"deduplicated"`
	SlowDropped  int `json:"slow_dropped"`
	Output       int `json:"output"`
}

type Preprocessor struct {
	cfg PreprocessorConfig
}

func NewPreprocessor(cfg PreprocessorConfig) *Preprocessor {
	if cfg.HeadingWindow < 1 {
		cfg.HeadingWindow = 1
	}
	return &Preprocessor{cfg: cfg}
}

// Process sorts, deduplicates, re-derives heading and drops slow samples.
func (p *Preprocessor) Process(raw []RawSample) ([]datastructure.Sample, Stats) {
	stats := Stats{Raw: len(raw)}

	sorted := make([]RawSample, len(raw))
	copy(sorted, raw)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	samples := deduplicate(sorted)
	stats.Deduplicated = len(samples)

	p.adjustHeading(samples)

	filtered := samples[:0]
	for _, s := range samples {
		if s.Speed < p.cfg.MinSpeed {
			continue
		}
		filtered = append(filtered, s)
	}
	stats.SlowDropped = stats.Deduplicated - len(filtered)
	stats.Output = len(filtered)
	return filtered, stats
}

// deduplicate collapses consecutive rows carrying the same GPS fix. The first timestamp is kept,
// speed, heading and sensor values come from the last row of the run.
func deduplicate(raw []RawSample) []datastructure.Sample {
	samples := make([]datastructure.Sample, 0, len(raw))
	for i, r := range raw {
		if n := len(samples); n > 0 && samples[n-1].Lat == r.Lat && samples[n-1].Lon == r.Lon {
			last := &samples[n-1]
			last.Speed = r.Speed
			last.Heading = r.Heading
			last.RawLast = i
			for k, v := range r.Sensors {
				if last.Sensors == nil {
					last.Sensors = make(map[string]float64, len(r.Sensors))
				}
				last.Sensors[k] = v
			}
			continue
		}
		var sensors map[string]float64
		if len(r.Sensors) > 0 {
			sensors = make(map[string]float64, len(r.Sensors))
			for k, v := range r.Sensors {
				sensors[k] = v
			}
		}
		samples = append(samples, datastructure.Sample{
			Timestamp: r.Timestamp,
			Lat:       r.Lat,
			Lon:       r.Lon,
			Speed:     r.Speed,
			Heading:   geo.NormalizeBearing(r.Heading),
			Sensors:   sensors,
			RawFirst:  i,
			RawLast:   i,
		})
	}
	return samples
}

// adjustHeading fuses the reported heading with the course over ground between consecutive fixes,
// then applies a centered circular moving average.
func (p *Preprocessor) adjustHeading(samples []datastructure.Sample) {
	n := len(samples)
	if n == 0 {
		return
	}

	fused := make([]float64, n)
	for i := range samples {
		fused[i] = geo.NormalizeBearing(samples[i].Heading)
		if n < 2 {
			continue
		}
		a, b := i, i+1
		if i == n-1 {
			a, b = i-1, i
		}
		from := geo.NewCoordinate(samples[a].Lat, samples[a].Lon)
		to := geo.NewCoordinate(samples[b].Lat, samples[b].Lon)
		if geo.DistanceMeters(from, to) < p.cfg.MinBearingDistance {
			continue
		}
		course := geo.BearingTo(from.Lat, from.Lon, to.Lat, to.Lon)
		w := p.cfg.HeadingCourseWeight
		fused[i] = geo.CircularMean([]float64{fused[i], course}, []float64{1 - w, w})
	}

	half := p.cfg.HeadingWindow / 2
	for i := range samples {
		lo, hi := max(0, i-half), min(n-1, i+half)
		samples[i].Heading = geo.CircularMean(fused[lo:hi+1], nil)
	}
}
