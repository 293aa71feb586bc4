package main

import (
	"math"

	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/geo"
	"github.com/lintang-b-s/roadtrace/pkg/trace"
	"golang.org/x/exp/rand"
)

type walkConfig struct {
	Samples      int
	IntervalMs   int64
	StartMs      int64
	Speed        float64 // m/s
	NoiseM       float64
	HeadingNoise float64 // degrees
	DupRate      float64
	StopRate     float64
	StopLength   int
}

type walker struct {
	g   *datastructure.TileGraph
	cfg walkConfig
	rd  *rand.Rand

	edge   datastructure.Index
	cum    []float64
	offset float64
}

func newWalker(g *datastructure.TileGraph, cfg walkConfig, rd *rand.Rand) *walker {
	w := &walker{g: g, cfg: cfg, rd: rd}
	w.enter(datastructure.Index(rd.Intn(g.NumberOfEdges())))
	return w
}

func (w *walker) enter(e datastructure.Index) {
	w.edge = e
	w.cum = geo.CumulativeDistances(w.g.GetEdge(e).GetGeometry())
	w.offset = 0
}

// advance moves dist meters along the road, picking a random successor at each edge end.
// Dead ends turn the walk around.
func (w *walker) advance(dist float64) {
	w.offset += dist
	for hops := 0; w.offset >= w.cum[len(w.cum)-1]; hops++ {
		rest := w.offset - w.cum[len(w.cum)-1]
		cur := w.g.GetEdge(w.edge)
		next := w.successors(cur)
		if len(next) == 0 || hops > w.g.NumberOfEdges() {
			w.offset = w.cum[len(w.cum)-1]
			return
		}
		w.enter(next[w.rd.Intn(len(next))])
		w.offset = rest
	}
}

func (w *walker) successors(cur *datastructure.RoadEdge) []datastructure.Index {
	out := w.g.GetOutEdges(cur.GetTo())
	next := make([]datastructure.Index, 0, len(out))
	for _, e := range out {
		if w.g.GetEdge(e).GetTo() == cur.GetFrom() && len(out) > 1 {
			continue
		}
		next = append(next, e)
	}
	return next
}

// position returns the point at the current offset and the bearing of the segment it lies on.
func (w *walker) position() (geo.Coordinate, float64) {
	line := w.g.GetEdge(w.edge).GetGeometry()
	for i := 1; i < len(line); i++ {
		if w.offset > w.cum[i] && i < len(line)-1 {
			continue
		}
		segLen := w.cum[i] - w.cum[i-1]
		t := 0.0
		if segLen > 0 {
			t = math.Min(1, (w.offset-w.cum[i-1])/segLen)
		}
		bearing := geo.BearingTo(line[i-1].GetLat(), line[i-1].GetLon(), line[i].GetLat(), line[i].GetLon())
		return geo.Interpolate(line[i-1], line[i], t), bearing
	}
	return line[0], 0
}

func (w *walker) noisy(c geo.Coordinate) geo.Coordinate {
	if w.cfg.NoiseM <= 0 {
		return c
	}
	d := math.Abs(w.rd.NormFloat64() * w.cfg.NoiseM)
	lat, lon := geo.GetDestinationPoint(c.GetLat(), c.GetLon(), w.rd.Float64()*360, d/1000)
	return geo.NewCoordinate(lat, lon)
}

func (w *walker) sample(ts int64, speed float64) trace.RawSample {
	pos, bearing := w.position()
	pos = w.noisy(pos)
	heading := geo.NormalizeBearing(bearing + w.rd.NormFloat64()*w.cfg.HeadingNoise)
	return trace.RawSample{
		Timestamp: ts,
		Lat:       pos.GetLat(),
		Lon:       pos.GetLon(),
		Speed:     math.Max(0, speed),
		Heading:   heading,
		Sensors: map[string]float64{
			"acc_x": w.rd.NormFloat64() * 0.2,
			"acc_z": 9.81 + w.rd.NormFloat64()*0.1,
		},
	}
}

// generate emits a device trace: a random walk at roughly cfg.Speed with duplicated rows
// and stationary stretches sprinkled in.
func generate(g *datastructure.TileGraph, cfg walkConfig, rd *rand.Rand) *trace.RawTrace {
	w := newWalker(g, cfg, rd)
	raw := &trace.RawTrace{Metadata: map[string]string{
		"device": "tracegen",
		"cell":   g.GetCell(),
	}}

	ts := cfg.StartMs
	stopLeft := 0
	for len(raw.Samples) < cfg.Samples {
		speed := 0.0
		if stopLeft > 0 {
			stopLeft--
			speed = math.Abs(rd.NormFloat64() * 0.3)
		} else {
			speed = cfg.Speed + rd.NormFloat64()*cfg.Speed*0.1
			w.advance(math.Max(0, speed) * float64(cfg.IntervalMs) / 1000)
			if rd.Float64() < cfg.StopRate {
				stopLeft = cfg.StopLength
			}
		}

		s := w.sample(ts, speed)
		raw.Samples = append(raw.Samples, s)
		if rd.Float64() < cfg.DupRate && len(raw.Samples) < cfg.Samples {
			raw.Samples = append(raw.Samples, s)
		}
		ts += cfg.IntervalMs
	}
	return raw
}
