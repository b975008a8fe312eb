package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"campaignstudio/internal/queue"
)

const (
	publishDueSpec = "0 * * * * *"
	cleanupSpec    = "0 30 3 * * *"
	enqueueTimeout = 5 * time.Second
)

type Enqueuer interface {
	Enqueue(ctx context.Context, task queue.Task) error
}

// Scheduler turns cron ticks into queue tasks; the worker does the actual
// work so that several schedulers never publish the same post twice.
type Scheduler struct {
	cron  *cron.Cron
	queue Enqueuer
	log   zerolog.Logger
}

func NewScheduler(q Enqueuer, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:  c,
		queue: q,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(publishDueSpec, s.enqueue(queue.TaskPublishDue)); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(cleanupSpec, s.enqueue(queue.TaskCleanup)); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish, up to five seconds.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) enqueue(taskType queue.TaskType) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
		defer cancel()
		if err := s.queue.Enqueue(ctx, queue.Task{Type: taskType}); err != nil {
			s.log.Error().Err(err).Str("task", string(taskType)).Msg("enqueue failed")
		}
	}
}
