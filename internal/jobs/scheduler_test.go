package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignstudio/internal/queue"
)

type recordingQueue struct {
	mu    sync.Mutex
	tasks []queue.Task
	err   error
}

func (r *recordingQueue) Enqueue(_ context.Context, t queue.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, t)
	return r.err
}

func TestSchedulerRegistersJobs(t *testing.T) {
	q := &recordingQueue{}
	s := NewScheduler(q, zerolog.Nop())
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 2)
}

func TestSchedulerWithoutQueue(t *testing.T) {
	s := NewScheduler(nil, zerolog.Nop())
	require.NoError(t, s.Start())
	assert.Empty(t, s.cron.Entries())
}

func TestEnqueue(t *testing.T) {
	q := &recordingQueue{}
	s := NewScheduler(q, zerolog.Nop())

	s.enqueue(queue.TaskPublishDue)()
	s.enqueue(queue.TaskCleanup)()

	assert.Equal(t, []queue.Task{{Type: queue.TaskPublishDue}, {Type: queue.TaskCleanup}}, q.tasks)

	q.err = errors.New("redis down")
	assert.NotPanics(t, s.enqueue(queue.TaskCleanup))
}
