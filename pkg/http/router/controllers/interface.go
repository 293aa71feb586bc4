package controllers

import (
	"context"

	"github.com/lintang-b-s/roadtrace/pkg/output"
	"github.com/lintang-b-s/roadtrace/pkg/trace"
	"github.com/lintang-b-s/roadtrace/pkg/watcher"
)

type MatchService interface {
	MatchTrace(ctx context.Context, raw *trace.RawTrace) (output.Document, error)
}

type WatcherService interface {
	Status() watcher.Status
	TriggerScan()
}
