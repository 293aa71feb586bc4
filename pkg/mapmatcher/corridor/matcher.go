package corridor

import (
	"math"

	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/geo"
	"github.com/lintang-b-s/roadtrace/pkg/segment"
	"github.com/lintang-b-s/roadtrace/pkg/tile"
	"github.com/lintang-b-s/roadtrace/pkg/util"
	"go.uber.org/zap"
)

type Weights struct {
	Direction   float64
	Containment float64
	Hop         float64
	Distance    float64
}

type Config struct {
	CorridorHalfWidth   float64 // degree
	HopSearchRadius     float64 // meter
	MaxSubsegmentLength float64 // meter
	Weights             Weights
}

func NewConfig(cfg *util.Config) Config {
	return Config{
		CorridorHalfWidth:   cfg.Matcher.CorridorHalfWidth,
		HopSearchRadius:     cfg.Matcher.HopSearchRadius,
		MaxSubsegmentLength: cfg.Segment.MaxLength,
		Weights: Weights{
			Direction:   cfg.Matcher.Weights.Direction,
			Containment: cfg.Matcher.Weights.Containment,
			Hop:         cfg.Matcher.Weights.Hop,
			Distance:    cfg.Matcher.Weights.Distance,
		},
	}
}

type Decision uint8

const (
	// first fix, or the current edge was lost on a tile swap
	INITIALIZED Decision = iota
	STAYED
	REASSIGNED
	// no candidate scored above the threshold, global nearest edge taken
	FALLBACK
)

func (d Decision) String() string {
	switch d {
	case INITIALIZED:
		return "initialized"
	case STAYED:
		return "stayed"
	case REASSIGNED:
		return "reassigned"
	default:
		return "fallback"
	}
}

type Result struct {
	Edge            *datastructure.RoadEdge
	SubsegmentIndex int
	Subsegment      segment.Subsegment
	Changed         bool // edge or subsegment differs from the previous sample's
	Decision        Decision
	Candidates      int
}

// Matcher corridor map matcher. Stateless: all per-trace state lives in MatchState,
// so one Matcher serves any number of concurrent runs.
type Matcher struct {
	cfg Config
	log *zap.Logger
}

func NewMatcher(cfg Config, log *zap.Logger) *Matcher {
	return &Matcher{cfg: cfg, log: log}
}

func (m *Matcher) GetConfig() Config {
	return m.cfg
}

// Match advances state by one sample on tile t. The only error is a tile without any usable edge.
func (m *Matcher) Match(state *MatchState, t *tile.Tile, s datastructure.Sample) (Result, error) {
	state.bindTile(t)

	var (
		decision   Decision
		candidates int
	)
	switch {
	case state.currentEdge == nil:
		idx, err := m.nearest(t, s)
		if err != nil {
			return Result{}, err
		}
		state.setEdge(idx, m.cfg.CorridorHalfWidth, m.cfg.MaxSubsegmentLength)
		decision = INITIALIZED

	case state.corridor.Contains(s.Lat, s.Lon):
		decision = STAYED

	default:
		cands := m.Candidates(t.GetGraph(), state.currentIdx, s)
		candidates = len(cands)
		if best, ok := SelectBest(cands); ok {
			state.setEdge(best.EdgeId(), m.cfg.CorridorHalfWidth, m.cfg.MaxSubsegmentLength)
			decision = REASSIGNED
		} else {
			idx, err := m.nearest(t, s)
			if err != nil {
				return Result{}, err
			}
			state.setEdge(idx, m.cfg.CorridorHalfWidth, m.cfg.MaxSubsegmentLength)
			decision = FALLBACK
		}
	}

	state.locate(s.Lat, s.Lon, m.cfg.CorridorHalfWidth)

	return Result{
		Edge:            state.currentEdge,
		SubsegmentIndex: state.currentSubsegmentIndex,
		Subsegment:      state.CurrentSubsegment(),
		Changed:         state.ConsumeChanged(),
		Decision:        decision,
		Candidates:      candidates,
	}, nil
}

func (m *Matcher) nearest(t *tile.Tile, s datastructure.Sample) (datastructure.Index, error) {
	idx, _, ok := t.NearestEdge(s.Lat, s.Lon)
	if !ok {
		return 0, util.WrapErrorf(nil, tile.ErrNoGraphData, "tile %s has no edge with geometry",
			t.GetCell().ToToken())
	}
	return idx, nil
}

// Candidates scores every valid edge within the hop search radius of the current edge.
func (m *Matcher) Candidates(g *datastructure.TileGraph, current datastructure.Index,
	s datastructure.Sample) []Candidate {
	currentBearing, hasBearing := geo.OverallBearing(g.GetEdge(current).GetGeometry())
	if !hasBearing {
		currentBearing = s.Heading
	}

	p := geo.NewCoordinate(s.Lat, s.Lon)
	nbs := neighbors(g, current, m.cfg.HopSearchRadius)
	cands := make([]Candidate, 0, len(nbs))
	for _, nb := range nbs {
		c, ok := m.evaluate(g, nb, p, s.Heading, currentBearing)
		if !ok {
			continue
		}
		cands = append(cands, c)
	}
	return cands
}

// evaluate scores one neighbor; ok is false for an edge whose geometry cannot be scored.
func (m *Matcher) evaluate(g *datastructure.TileGraph, nb neighbor, p geo.Coordinate,
	heading, currentBearing float64) (Candidate, bool) {
	geometry := g.GetEdge(nb.edge).GetGeometry()
	if len(geometry) < 2 || nb.hop < 1 {
		return Candidate{}, false
	}
	bearing, ok := geo.InitialBearing(geometry)
	if !ok {
		return Candidate{}, false
	}
	dist, ok := geo.PointPolylineDistance(geometry, p)
	if !ok || math.IsNaN(dist) {
		return Candidate{}, false
	}
	inCorridor := geo.NewCorridor(geometry, m.cfg.CorridorHalfWidth).Contains(p.Lat, p.Lon)

	angle := geo.AngularDifference(bearing, heading)
	continuity := geo.AngularDifference(bearing, currentBearing)

	direction := DIRECTION_HEADING_SHARE*(1-angle/180) + (1-DIRECTION_HEADING_SHARE)*(1-continuity/180)
	containment := 0.0
	if inCorridor {
		containment = 1
	}
	hop := 1 / float64(nb.hop)
	distance := math.Max(0, 1-dist/DISTANCE_NORMALIZATION_M)

	w := m.cfg.Weights
	score := w.Direction*direction + w.Containment*containment + w.Hop*hop + w.Distance*distance
	return NewCandidate(nb.edge, score, dist, angle, nb.hop, inCorridor), true
}
