package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const jobTimeout = 2 * time.Minute

type job struct {
	name string
	fn   func(context.Context) error
}

// Pool runs deferred work on a fixed set of workers. Submitted jobs outlive
// the request that queued them; a job failure is logged and dropped.
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup
	log  zerolog.Logger

	closeOnce sync.Once
}

func NewPool(workers, depth int, logger zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if depth < 1 {
		depth = 1
	}
	p := &Pool{
		jobs: make(chan job, depth),
		log:  logger.With().Str("component", "tasks").Logger(),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues fn for execution. Blocks when the queue is full so bursts
// apply backpressure instead of growing without bound.
func (p *Pool) Submit(name string, fn func(context.Context) error) {
	p.jobs <- job{name: name, fn: fn}
}

// Shutdown stops accepting work and waits for in-flight jobs until ctx
// expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() { close(p.jobs) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Str("job", j.name).Interface("panic", r).Msg("background job panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := j.fn(ctx); err != nil {
		p.log.Error().Err(err).Str("job", j.name).Dur("elapsed", time.Since(start)).Msg("background job failed")
		return
	}
	p.log.Debug().Str("job", j.name).Dur("elapsed", time.Since(start)).Msg("background job done")
}
