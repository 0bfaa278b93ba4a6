package jobs

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"geomodel/internal/tasks"
)

// Scheduler enqueues periodic maintenance tasks onto the redis stream the
// worker consumes.
type Scheduler struct {
	cron   *cron.Cron
	queue  *redis.Client
	stream string
	log    zerolog.Logger
}

func NewScheduler(queue *redis.Client, stream string, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:   c,
		queue:  queue,
		stream: stream,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc("0 0 */1 * * *", s.enqueueStatsRepair); err != nil { // hourly
		return err
	}
	if _, err := s.cron.AddFunc("0 30 3 * * *", s.enqueueOrphanSweep); err != nil { // nightly
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop; running entries finish in the background.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) enqueueStatsRepair() {
	if err := s.enqueueTask(map[string]any{
		"type": tasks.TaskStatsRepair,
	}); err != nil {
		s.log.Error().Err(err).Msg("enqueue stats repair failed")
	}
}

func (s *Scheduler) enqueueOrphanSweep() {
	if err := s.enqueueTask(map[string]any{
		"type": tasks.TaskOrphanSweep,
	}); err != nil {
		s.log.Error().Err(err).Msg("enqueue orphan sweep failed")
	}
}

func (s *Scheduler) enqueueTask(payload map[string]any) error {
	if s.queue == nil {
		return nil
	}
	_, err := s.queue.XAdd(context.Background(), &redis.XAddArgs{
		Stream: s.stream,
		Values: payload,
	}).Result()
	return err
}
