package controllers

import (
	"github.com/lintang-b-s/roadtrace/pkg/trace"
)

type sampleRequest struct {
	Timestamp int64              `json:"timestamp" validate:"gt=0"`
	Lat       float64            `json:"lat" validate:"min=-90,max=90"`
	Lon       float64            `json:"lon" validate:"min=-180,max=180"`
	Speed     float64            `json:"speed" validate:"min=0"`
	Heading   float64            `json:"heading" validate:"min=0,max=360"`
	Sensors   map[string]float64 `json:"sensors,omitempty"`
}

type matchRequest struct {
	Name     string            `json:"name" validate:"max=255"`
	Metadata map[string]string `json:"metadata"`
	Samples  []sampleRequest   `json:"samples" validate:"required,min=1,max=100000,dive"`
}

func (r matchRequest) toRawTrace() *trace.RawTrace {
	raw := &trace.RawTrace{
		Metadata: r.Metadata,
		Samples:  make([]trace.RawSample, len(r.Samples)),
	}
	if raw.Metadata == nil {
		raw.Metadata = make(map[string]string)
	}
	if r.Name != "" {
		raw.Metadata["name"] = r.Name
	}
	for i, s := range r.Samples {
		raw.Samples[i] = trace.RawSample{
			Timestamp: s.Timestamp,
			Lat:       s.Lat,
			Lon:       s.Lon,
			Speed:     s.Speed,
			Heading:   s.Heading,
			Sensors:   s.Sensors,
			Row:       i + 1,
		}
	}
	return raw
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
