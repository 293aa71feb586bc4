package concurrent

import (
	"context"
	"sync"
)

type JobFunc[T any, G any] func(ctx context.Context, job T) G

// WorkerPool fixed number of workers draining a bounded job queue.
// Usage: Start, AddJob/TryAddJob..., Close, then read CollectResults until Wait closes it.
type WorkerPool[T any, G any] struct {
	numWorkers int
	jobQueue   chan T
	results    chan G
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

func NewWorkerPool[T any, G any](numWorkers, jobQueueSize int) *WorkerPool[T, G] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobQueue:   make(chan T, jobQueueSize),
		results:    make(chan G, jobQueueSize),
	}
}

func (wp *WorkerPool[T, G]) NumWorkers() int {
	return wp.numWorkers
}

func (wp *WorkerPool[T, G]) worker(ctx context.Context, jobFunc JobFunc[T, G]) {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		wp.results <- jobFunc(ctx, job)
	}
}

func (wp *WorkerPool[T, G]) Start(ctx context.Context, jobFunc JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, jobFunc)
	}
}

// Wait blocks until every worker has exited, then closes the results channel.
func (wp *WorkerPool[T, G]) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) AddJob(job T) {
	wp.jobQueue <- job
}

// TryAddJob enqueues job unless ctx is cancelled first.
func (wp *WorkerPool[T, G]) TryAddJob(ctx context.Context, job T) bool {
	select {
	case wp.jobQueue <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

func (wp *WorkerPool[T, G]) CollectResults() chan G {
	return wp.results
}

func (wp *WorkerPool[T, G]) Close() {
	wp.closeOnce.Do(func() {
		close(wp.jobQueue)
	})
}

// Run processes jobs with numWorkers workers and returns the results in job order.
func Run[T any, G any](ctx context.Context, numWorkers int, jobs []T, jobFunc JobFunc[T, G]) []G {
	type indexed struct {
		i   int
		res G
	}
	wp := NewWorkerPool[int, indexed](numWorkers, len(jobs))
	wp.Start(ctx, func(ctx context.Context, i int) indexed {
		return indexed{i: i, res: jobFunc(ctx, jobs[i])}
	})
	for i := range jobs {
		wp.AddJob(i)
	}
	wp.Close()
	go wp.Wait()

	out := make([]G, len(jobs))
	for r := range wp.CollectResults() {
		out[r.i] = r.res
	}
	return out
}
