package datastructure

// Sample one preprocessed observation of a trace.
type Sample struct {
	Timestamp int64              `json:"timestamp"` // ms since epoch
	Lat       float64            `json:"lat"`
	Lon       float64            `json:"lon"`
	Speed     float64            `json:"speed"`
	Heading   float64            `json:"heading"`
	Sensors   map[string]float64 `json:"sensors,omitempty"`
	// raw rows [RawFirst, RawLast] collapsed into this sample
	RawFirst int `json:"raw_first"`
	RawLast  int `json:"raw_last"`
}
