// Package queue moves background tasks between the API, the scheduler and the
// worker over a Redis stream consumed by a group.
package queue

import (
	"errors"
	"fmt"
)

type TaskType string

const (
	TaskPublishDue TaskType = "publish_due"
	TaskThumbnail  TaskType = "thumbnail"
	TaskCleanup    TaskType = "cleanup"
)

type Task struct {
	Type   TaskType
	PostID string
	// Attempt counts redeliveries after a stalled consumer.
	Attempt int
}

var ErrInvalidTask = errors.New("invalid task")

func (t Task) values() map[string]any {
	v := map[string]any{"type": string(t.Type)}
	if t.PostID != "" {
		v["post_id"] = t.PostID
	}
	return v
}

func decodeTask(values map[string]any) (Task, error) {
	typ, _ := values["type"].(string)
	if typ == "" {
		return Task{}, fmt.Errorf("%w: missing type", ErrInvalidTask)
	}
	t := Task{Type: TaskType(typ)}
	t.PostID, _ = values["post_id"].(string)
	if t.Type == TaskThumbnail && t.PostID == "" {
		return Task{}, fmt.Errorf("%w: thumbnail without post_id", ErrInvalidTask)
	}
	return t, nil
}
