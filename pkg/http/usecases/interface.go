package usecases

import (
	"context"

	"github.com/lintang-b-s/roadtrace/pkg/output"
	"github.com/lintang-b-s/roadtrace/pkg/pipeline"
	"github.com/lintang-b-s/roadtrace/pkg/trace"
)

type TracePipeline interface {
	ProcessTrace(ctx context.Context, raw *trace.RawTrace) (*pipeline.Result, error)
}

type DocumentRenderer interface {
	Document(res *pipeline.Result) output.Document
}
