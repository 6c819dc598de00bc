package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/madrasa/internal/app/models"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func TestHub_DeliversOnlyToParticipant(t *testing.T) {
	hub := startHub(t)
	a := &Client{hub: hub, key: "teacher:1", send: make(chan []byte, 4)}
	b := &Client{hub: hub, key: "student:1", send: make(chan []byte, 4)}
	require.True(t, hub.add(a))
	require.True(t, hub.add(b))

	hub.SendTo("teacher:1", Event{Type: "ping", Data: "x"})

	select {
	case raw := <-a.send:
		var ev Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		assert.Equal(t, "ping", ev.Type)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	assert.Len(t, b.send, 0)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := startHub(t)
	slow := &Client{hub: hub, key: "guardian:9", send: make(chan []byte, 1)}
	require.True(t, hub.add(slow))
	require.Eventually(t, func() bool { return hub.ClientCount("guardian:9") == 1 }, time.Second, 5*time.Millisecond)

	hub.SendTo("guardian:9", Event{Type: "one"})
	hub.SendTo("guardian:9", Event{Type: "two"})

	require.Eventually(t, func() bool { return hub.ClientCount("guardian:9") == 0 }, time.Second, 5*time.Millisecond)
	<-slow.send
	_, open := <-slow.send
	assert.False(t, open, "send channel closed after drop")
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() { hub.Run(ctx); close(stopped) }()

	c := &Client{hub: hub, key: "admin:1", send: make(chan []byte, 1)}
	require.True(t, hub.add(c))
	cancel()
	<-stopped

	_, open := <-c.send
	assert.False(t, open)
	assert.False(t, hub.add(&Client{hub: hub, key: "admin:1", send: make(chan []byte)}))
	hub.SendTo("admin:1", Event{Type: "late"}) // must not block
}

func TestHandler_PushesMessageEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := startHub(t)

	r := gin.New()
	r.GET("/ws", NewHandler(hub, func(c *gin.Context) (string, bool) {
		key := c.Query("as")
		return key, key != ""
	}, nil, zerolog.Nop()).HandleConnection)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?as=student:5"
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount("student:5") == 1 }, time.Second, 5*time.Millisecond)

	msg := &models.Message{ID: 11, SenderID: 2, SenderRole: models.RoleTeacher, ReceiverID: 5, ReceiverRole: models.RoleStudent, Title: "Huiswerk", SentAt: time.Now()}
	NewMessageNotifier(hub).MessageCreated(msg)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Type string         `json:"type"`
		Data models.Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, EventMessageCreated, ev.Type)
	assert.Equal(t, int64(11), ev.Data.ID)
	assert.Equal(t, "Huiswerk", ev.Data.Title)
}
