package agent

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Job is one unit of background work, typically a research or enrichment
// task the caller does not want to block on.
type Job struct {
	// Name identifies the job in logs and results.
	Name string

	// Run does the work. It must honor context cancellation.
	Run func(ctx context.Context, a *Agent) error
}

// JobResult reports one finished job.
type JobResult struct {
	Name string
	Err  error
}

// JobRunner executes jobs against an agent with bounded concurrency. Each
// completion lands on the Results channel; Wait blocks until every submitted
// job finishes and closes the channel.
type JobRunner struct {
	agent   *Agent
	logger  *zap.Logger
	sem     chan struct{}
	results chan JobResult

	wg      sync.WaitGroup
	done    atomic.Int64
	total   atomic.Int64
	closing sync.Once
}

// NewJobRunner creates a runner with the given worker bound.
func NewJobRunner(a *Agent, workers int, logger *zap.Logger) *JobRunner {
	if workers <= 0 {
		workers = 2
	}
	return &JobRunner{
		agent:   a,
		logger:  logger,
		sem:     make(chan struct{}, workers),
		results: make(chan JobResult, workers*4),
	}
}

// Results is the completion channel. It closes after Wait.
func (r *JobRunner) Results() <-chan JobResult {
	return r.results
}

// Progress returns completed and submitted job counts.
func (r *JobRunner) Progress() (done, total int) {
	return int(r.done.Load()), int(r.total.Load())
}

// Submit schedules a job. It blocks while all workers are busy, and drops
// the job with a logged warning once ctx is cancelled.
func (r *JobRunner) Submit(ctx context.Context, job Job) {
	r.total.Add(1)

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		r.logger.Warn("job dropped, context cancelled", zap.String("job", job.Name))
		r.done.Add(1)
		r.deliver(JobResult{Name: job.Name, Err: ctx.Err()})
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() { <-r.sem }()

		err := job.Run(ctx, r.agent)
		if err != nil {
			r.logger.Warn("background job failed",
				zap.String("job", job.Name),
				zap.Error(err),
			)
		}
		r.done.Add(1)
		r.deliver(JobResult{Name: job.Name, Err: err})
	}()
}

// deliver pushes a result without blocking forever on an abandoned channel.
func (r *JobRunner) deliver(res JobResult) {
	select {
	case r.results <- res:
	default:
		r.logger.Debug("job result dropped, channel full", zap.String("job", res.Name))
	}
}

// Wait blocks until all submitted jobs complete, then closes Results.
func (r *JobRunner) Wait() {
	r.wg.Wait()
	r.closing.Do(func() { close(r.results) })
}
