package concurrent

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunKeepsJobOrder(t *testing.T) {
	jobs := []int{5, 1, 4, 2, 3, 9, 7}
	var calls atomic.Int32
	got := Run(context.Background(), 3, jobs, func(ctx context.Context, j int) int {
		calls.Add(1)
		return j * j
	})
	assert.Equal(t, []int{25, 1, 16, 4, 9, 81, 49}, got)
	assert.Equal(t, int32(len(jobs)), calls.Load())
}

func TestRunNoJobs(t *testing.T) {
	got := Run(context.Background(), 4, []string{}, func(ctx context.Context, s string) int {
		return len(s)
	})
	assert.Empty(t, got)
}

func TestTryAddJobCancelled(t *testing.T) {
	wp := NewWorkerPool[int, int](1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// no worker started and no buffer, only the cancelled context can fire
	assert.False(t, wp.TryAddJob(ctx, 1))
	wp.Close()
	wp.Close()
}
