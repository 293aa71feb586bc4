package usecases

import (
	"context"

	"github.com/lintang-b-s/roadtrace/pkg/output"
	"github.com/lintang-b-s/roadtrace/pkg/trace"
	"go.uber.org/zap"
)

type MatchService struct {
	log      *zap.Logger
	pipeline TracePipeline
	renderer DocumentRenderer
}

func NewMatchService(log *zap.Logger, pipeline TracePipeline, renderer DocumentRenderer) *MatchService {
	return &MatchService{
		log:      log,
		pipeline: pipeline,
		renderer: renderer,
	}
}

// MatchTrace matches an uploaded trace synchronously; nothing is written to the output directory.
func (ms *MatchService) MatchTrace(ctx context.Context, raw *trace.RawTrace) (output.Document, error) {
	res, err := ms.pipeline.ProcessTrace(ctx, raw)
	if err != nil {
		return output.Document{}, err
	}
	if name := raw.Metadata["name"]; name != "" {
		res.Source = name
	}
	return ms.renderer.Document(res), nil
}
