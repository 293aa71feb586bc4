package corridor

import (
	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/geo"
	"github.com/lintang-b-s/roadtrace/pkg/segment"
	"github.com/lintang-b-s/roadtrace/pkg/tile"
)

// MatchState per-trace matching state. Owned by a single run, never shared.
type MatchState struct {
	tile        *tile.Tile
	currentEdge *datastructure.RoadEdge
	currentIdx  datastructure.Index
	corridor    *geo.Corridor
	hasFirstFix bool

	subsegments            []segment.Subsegment
	currentSubsegmentIndex int
	subsegmentChanged      bool

	lastKey datastructure.EdgeKey
	lastSub int
	hasLast bool
}

func NewMatchState() *MatchState {
	return &MatchState{}
}

func (s *MatchState) HasFirstFix() bool {
	return s.hasFirstFix
}

// CurrentEdge is nil until the first fix, and again after a tile swap that lost the edge.
func (s *MatchState) CurrentEdge() *datastructure.RoadEdge {
	return s.currentEdge
}

func (s *MatchState) CurrentTile() *tile.Tile {
	return s.tile
}

func (s *MatchState) CurrentSubsegmentIndex() int {
	return s.currentSubsegmentIndex
}

func (s *MatchState) CurrentSubsegment() segment.Subsegment {
	if s.currentSubsegmentIndex < len(s.subsegments) {
		return s.subsegments[s.currentSubsegmentIndex]
	}
	return segment.Subsegment{}
}

// ConsumeChanged returns the subsegment-changed flag and clears it.
func (s *MatchState) ConsumeChanged() bool {
	changed := s.subsegmentChanged
	s.subsegmentChanged = false
	return changed
}

// bindTile carries the current edge over to t by its key; without a counterpart the state
// falls back to uninitialized.
func (s *MatchState) bindTile(t *tile.Tile) {
	if s.tile == t {
		return
	}
	s.tile = t
	if s.currentEdge == nil {
		return
	}
	idx, ok := t.GetGraph().EdgeByKey(s.currentEdge.GetKey())
	if !ok {
		s.currentEdge = nil
		s.corridor = nil
		s.subsegments = nil
		return
	}
	s.currentIdx = idx
	s.currentEdge = t.GetGraph().GetEdge(idx)
}

func (s *MatchState) setEdge(idx datastructure.Index, halfWidth, maxLength float64) {
	edge := s.tile.GetGraph().GetEdge(idx)
	if s.currentEdge != nil && s.currentEdge.GetKey() == edge.GetKey() && s.subsegments != nil {
		s.currentIdx = idx
		s.currentEdge = edge
		return
	}
	s.currentIdx = idx
	s.currentEdge = edge
	s.corridor = geo.NewCorridor(edge.GetGeometry(), halfWidth)
	s.subsegments = segment.Split(edge.GetGeometry(), edge.GetLength(), maxLength)
}

// locate picks the subsegment holding the point and raises the changed flag when the
// (edge, subsegment) key differs from the previous sample's.
func (s *MatchState) locate(lat, lon, halfWidth float64) {
	s.currentSubsegmentIndex = segment.Locate(s.subsegments, lat, lon, halfWidth)
	key := s.currentEdge.GetKey()
	if !s.hasLast || key != s.lastKey || s.currentSubsegmentIndex != s.lastSub {
		s.subsegmentChanged = true
	}
	s.lastKey, s.lastSub, s.hasLast = key, s.currentSubsegmentIndex, true
	s.hasFirstFix = true
}
