package pipeline

import (
	"context"
	"sync"
)

// Runner accepts a job and returns once it is scheduled, not when it is done.
type Runner interface {
	Submit(ctx context.Context, job Job) error
}

// LocalRunner runs each job on its own goroutine inside the API process.
type LocalRunner struct {
	base     context.Context
	pipeline *Pipeline
	wg       sync.WaitGroup
}

// NewLocalRunner ties job lifetimes to base rather than to the submitting
// request.
func NewLocalRunner(base context.Context, p *Pipeline) *LocalRunner {
	return &LocalRunner{base: base, pipeline: p}
}

func (r *LocalRunner) Submit(_ context.Context, job Job) error {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.pipeline.Run(r.base, job)
	}()
	return nil
}

// Wait blocks until every submitted job has finished.
func (r *LocalRunner) Wait() {
	r.wg.Wait()
}
