package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventKey(t *testing.T) {
	assert.Equal(t, []byte("p1"), Event{PostID: "p1", CampaignID: "c1"}.Key())
	assert.Equal(t, []byte("c1"), Event{CampaignID: "c1"}.Key())
}

func TestDecode(t *testing.T) {
	e, err := Decode([]byte(`{"type":"post.published","postId":"p1","campaignId":"c1","userId":"u1","status":"published","at":"2026-01-02T03:04:05Z"}`))
	require.NoError(t, err)
	assert.Equal(t, PostPublished, e.Type)
	assert.Equal(t, "u1", e.UserID)
	assert.Equal(t, 2026, e.At.Year())

	_, err = Decode([]byte(`{"type":"post.published"}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`nope`))
	assert.Error(t, err)
}
