package corridor

import "github.com/lintang-b-s/roadtrace/pkg/datastructure"

// Candidate an edge considered when the point leaves the corridor of the current edge.
type Candidate struct {
	edge       datastructure.Index
	score      float64
	distance   float64 // meter
	angle      float64 // degree between candidate bearing and sample heading
	hopLevel   int
	inCorridor bool
}

func NewCandidate(edge datastructure.Index, score, distance, angle float64, hopLevel int, inCorridor bool) Candidate {
	return Candidate{
		edge:       edge,
		score:      score,
		distance:   distance,
		angle:      angle,
		hopLevel:   hopLevel,
		inCorridor: inCorridor,
	}
}

func (c Candidate) EdgeId() datastructure.Index {
	return c.edge
}

func (c Candidate) Score() float64 {
	return c.score
}

func (c Candidate) Distance() float64 {
	return c.distance
}

func (c Candidate) Angle() float64 {
	return c.angle
}

func (c Candidate) HopLevel() int {
	return c.hopLevel
}

func (c Candidate) InCorridor() bool {
	return c.inCorridor
}

// Better reports whether a ranks before b: higher score, then smaller hop level,
// then smaller distance, then lower edge id.
func Better(a, b Candidate) bool {
	if d := a.score - b.score; d > SCORE_EPS || d < -SCORE_EPS {
		return a.score > b.score
	}
	if a.hopLevel != b.hopLevel {
		return a.hopLevel < b.hopLevel
	}
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	return a.edge < b.edge
}

// SelectBest returns the best candidate scoring above MIN_CANDIDATE_SCORE.
func SelectBest(cands []Candidate) (Candidate, bool) {
	var (
		best  Candidate
		found bool
	)
	for _, c := range cands {
		if c.score <= MIN_CANDIDATE_SCORE {
			continue
		}
		if !found || Better(c, best) {
			best, found = c, true
		}
	}
	return best, found
}
