package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lintang-b-s/roadtrace/pkg/concurrent"
	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/mapmatcher/corridor"
	"github.com/lintang-b-s/roadtrace/pkg/runbuilder"
	"github.com/lintang-b-s/roadtrace/pkg/tile"
	"github.com/lintang-b-s/roadtrace/pkg/trace"
	"github.com/lintang-b-s/roadtrace/pkg/util"
	"go.uber.org/zap"
)

var ErrUngraphedTrace = errors.New("trace starts outside the road graph")

const ctxCheckInterval = 256

type Stats struct {
	Raw           int `json:"raw"`
	Rejected      int `json:"rejected"`
	Deduplicated  int `json:"deduplicated"`
	SpeedFiltered int `json:"speed_filtered"`
	Matched       int `json:"matched"`
	Skipped       int `json:"skipped"`
	TileSwaps     int `json:"tile_swaps"`
	Fallbacks     int `json:"fallbacks"`
}

type Result struct {
	RunID    uuid.UUID
	Source   string
	Metadata map[string]string
	Samples  []datastructure.Sample
	Runs     []datastructure.SegmentRun
	Stats    Stats
	Elapsed  time.Duration
}

// Pipeline preprocess -> match -> split -> group, one trace at a time.
// Safe for concurrent use: every call gets its own match state and tile cursor,
// the tile source is the only shared object.
type Pipeline struct {
	preprocessor *trace.Preprocessor
	matcher      *corridor.Matcher
	source       tile.Source
	log          *zap.Logger
}

func NewPipeline(cfg *util.Config, source tile.Source, log *zap.Logger) *Pipeline {
	return &Pipeline{
		preprocessor: trace.NewPreprocessor(trace.NewPreprocessorConfig(cfg.Preprocess)),
		matcher:      corridor.NewMatcher(corridor.NewConfig(cfg), log),
		source:       source,
		log:          log,
	}
}

func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Result, error) {
	raw, err := trace.ReadCSVFile(path)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "read %s", path)
	}
	res, err := p.ProcessTrace(ctx, raw)
	if err != nil {
		return nil, util.WrapErrorf(err, codeOf(err), "process %s", path)
	}
	res.Source = path
	return res, nil
}

// ProcessTrace matches one trace. Samples without graph data end the open run and are skipped;
// a trace whose first sample has no graph data fails with ErrUngraphedTrace.
func (p *Pipeline) ProcessTrace(ctx context.Context, raw *trace.RawTrace) (*Result, error) {
	start := time.Now()
	res := &Result{
		RunID:    uuid.New(),
		Metadata: raw.Metadata,
	}
	log := p.log.With(zap.String("run_id", res.RunID.String()))

	for _, rej := range raw.Rejected {
		log.Debug("input row rejected", zap.Int("row", rej.Row), zap.Error(rej.Err))
	}

	samples, ps := p.preprocessor.Process(raw.Samples)
	res.Samples = samples
	res.Stats = Stats{
		Raw:           ps.Raw + len(raw.Rejected),
		Rejected:      len(raw.Rejected),
		Deduplicated:  ps.Deduplicated,
		SpeedFiltered: ps.SlowDropped,
	}
	if len(samples) < 2 {
		log.Info("trace too short after preprocessing", zap.Int("samples", len(samples)))
		res.Elapsed = time.Since(start)
		return res, nil
	}

	cursor := tile.NewCursor(p.source)
	state := corridor.NewMatchState()
	builder := runbuilder.NewBuilder()

	for i, s := range samples {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		t, _, err := cursor.Locate(ctx, s.Lat, s.Lon)
		var m corridor.Result
		if err == nil {
			m, err = p.matcher.Match(state, t, s)
		}
		if err != nil {
			if !tile.IsGraphUnavailable(err) {
				return nil, err
			}
			if i == 0 {
				return nil, util.WrapErrorf(err, ErrUngraphedTrace, "first sample (%f, %f)", s.Lat, s.Lon)
			}
			log.Debug("no graph data for sample", zap.Int("sample", i), zap.Float64("lat", s.Lat),
				zap.Float64("lon", s.Lon), zap.Error(err))
			builder.Gap(i)
			res.Stats.Skipped++
			continue
		}

		if m.Decision == corridor.FALLBACK {
			res.Stats.Fallbacks++
		}
		builder.Observe(runbuilder.Observation{
			SampleIndex:     i,
			Timestamp:       s.Timestamp,
			Edge:            m.Edge,
			SubsegmentIndex: m.SubsegmentIndex,
			Subsegment:      m.Subsegment,
			Changed:         m.Changed,
		})
		res.Stats.Matched++
	}

	res.Runs = builder.Finish()
	res.Stats.TileSwaps = cursor.Swaps()
	res.Elapsed = time.Since(start)

	log.Info("trace matched", zap.Int("samples", len(samples)), zap.Int("runs", len(res.Runs)),
		zap.Int("skipped", res.Stats.Skipped), zap.Int("fallbacks", res.Stats.Fallbacks),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

type FileResult struct {
	Path   string
	Result *Result
	Err    error
}

// ProcessFiles runs ProcessFile over paths with the given number of workers. Results keep path order.
func (p *Pipeline) ProcessFiles(ctx context.Context, paths []string, workers int) []FileResult {
	return concurrent.Run(ctx, workers, paths, func(ctx context.Context, path string) FileResult {
		if err := ctx.Err(); err != nil {
			return FileResult{Path: path, Err: err}
		}
		res, err := p.ProcessFile(ctx, path)
		if err != nil {
			p.log.Error("trace failed", zap.String("path", path), zap.Error(err))
		}
		return FileResult{Path: path, Result: res, Err: err}
	})
}

func codeOf(err error) error {
	var uerr *util.Error
	if errors.As(err, &uerr) && uerr.Code() != nil {
		return uerr.Code()
	}
	return util.ErrInternalServerError
}
