package runbuilder

import (
	"encoding/binary"

	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/segment"
	"github.com/zeebo/xxh3"
)

// Observation one matched sample.
type Observation struct {
	SampleIndex     int
	Timestamp       int64
	Edge            *datastructure.RoadEdge
	SubsegmentIndex int
	Subsegment      segment.Subsegment
	Changed         bool
}

// Builder groups consecutive matched samples into segment runs.
type Builder struct {
	runs []datastructure.SegmentRun
	open *datastructure.SegmentRun

	lastIndex     int
	lastTimestamp int64
}

func NewBuilder() *Builder {
	return &Builder{lastIndex: -1}
}

// Observe appends obs to the open run, or opens a new run when obs.Changed is set
// or no run is open (first sample, or first sample after a gap).
func (b *Builder) Observe(obs Observation) {
	if obs.Changed || b.open == nil {
		b.close()
		key := obs.Edge.GetKey()
		b.open = &datastructure.SegmentRun{
			ID:               RunID(key.NodeA, key.NodeB, obs.SubsegmentIndex, key.Parallel),
			Edge:             key,
			SubsegmentIndex:  obs.SubsegmentIndex,
			Geometry:         obs.Subsegment.Geometry,
			Length:           obs.Subsegment.Length,
			HighwayClass:     obs.Edge.GetHighway().String(),
			Name:             obs.Edge.GetName(),
			StartSampleIndex: obs.SampleIndex,
			StartTimestamp:   obs.Timestamp,
		}
	}
	b.lastIndex = obs.SampleIndex
	b.lastTimestamp = obs.Timestamp
}

// Gap marks a sample without graph data: the open run ends at the previous sample.
func (b *Builder) Gap(sampleIndex int) {
	b.close()
}

// Finish closes the open run and returns every run in chronological order.
func (b *Builder) Finish() []datastructure.SegmentRun {
	b.close()
	runs := b.runs
	b.runs = nil
	return runs
}

func (b *Builder) NumRuns() int {
	n := len(b.runs)
	if b.open != nil {
		n++
	}
	return n
}

func (b *Builder) close() {
	if b.open == nil {
		return
	}
	b.open.EndSampleIndex = b.lastIndex
	b.open.EndTimestamp = b.lastTimestamp
	b.runs = append(b.runs, *b.open)
	b.open = nil
}

// RunID stable 64-bit id of a (edge, subsegment) pair: xxh3 over the little-endian bytes of
// nodeA, nodeB and subIdx*1000+parallel.
func RunID(nodeA, nodeB int64, subIdx int, parallel uint16) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(nodeA))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(nodeB))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(int64(subIdx)*1000+int64(parallel)))
	return xxh3.Hash(buf[:])
}
