package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignstudio/internal/events"
)

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubDeliversToOwnerOnly(t *testing.T) {
	hub := NewHub(nil, zerolog.Nop())
	go hub.Run()
	defer hub.Shutdown()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("user"))
	}))
	defer srv.Close()

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	require.Eventually(t, func() bool { return hub.Connections() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(events.Event{Type: events.PostPublished, PostID: "p1", UserID: "alice", CampaignID: "c1"})

	_ = alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	require.NoError(t, alice.ReadJSON(&got))
	assert.Equal(t, "p1", got.PostID)
	assert.Equal(t, events.PostPublished, got.Type)

	_ = bob.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err, "bob must not receive alice's events")

	alice.Close()
	require.Eventually(t, func() bool { return hub.Connections() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestCheckOrigin(t *testing.T) {
	hub := NewHub([]string{"https://app.example.com"}, zerolog.Nop())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://app.example.com")
	assert.True(t, hub.upgrader.CheckOrigin(r))

	r.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, hub.upgrader.CheckOrigin(r))

	r.Header.Del("Origin")
	assert.True(t, hub.upgrader.CheckOrigin(r), "clients without an origin are not browsers")
}

func TestCheckOriginWithoutAllowList(t *testing.T) {
	hub := NewHub(nil, zerolog.Nop())

	r := httptest.NewRequest(http.MethodGet, "http://api.example.com/api/v1/ws", nil)
	require.Equal(t, "api.example.com", r.Host)

	tests := []struct {
		origin string
		want   bool
	}{
		{origin: "https://api.example.com", want: true},
		{origin: "http://API.example.com", want: true},
		{origin: "https://evil.example.com", want: false},
		{origin: "https://api.example.com.evil.io", want: false},
		{origin: "null", want: false},
	}
	for _, tt := range tests {
		r.Header.Set("Origin", tt.origin)
		assert.Equal(t, tt.want, hub.upgrader.CheckOrigin(r), tt.origin)
	}
}
