package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskValues(t *testing.T) {
	v := Task{Type: TaskThumbnail, PostID: "p1"}.values()
	assert.Equal(t, map[string]any{"type": "thumbnail", "post_id": "p1"}, v)

	v = Task{Type: TaskCleanup}.values()
	assert.Equal(t, map[string]any{"type": "cleanup"}, v)
}

func TestDecodeTask(t *testing.T) {
	task, err := decodeTask(map[string]any{"type": "thumbnail", "post_id": "p1"})
	require.NoError(t, err)
	assert.Equal(t, Task{Type: TaskThumbnail, PostID: "p1"}, task)

	task, err = decodeTask(map[string]any{"type": "publish_due"})
	require.NoError(t, err)
	assert.Equal(t, TaskPublishDue, task.Type)

	_, err = decodeTask(map[string]any{})
	assert.ErrorIs(t, err, ErrInvalidTask)
	_, err = decodeTask(map[string]any{"type": "thumbnail"})
	assert.ErrorIs(t, err, ErrInvalidTask)
}
