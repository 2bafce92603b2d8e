package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maanas1234/Celestia-Hackathon/models"
)

func TestHubPushesNewAlerts(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.AlertCreated(models.AlertView{
		ID:         "a1",
		AlertText:  "Single woman with multiple men",
		MenCount:   2,
		WomenCount: 1,
		Timestamp:  "2024-07-04 22:15:00",
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, EventAlertCreated, event.Type)
	require.NotNil(t, event.Alert)
	assert.Equal(t, "a1", event.Alert.ID)
	assert.Equal(t, 2, event.Alert.MenCount)
	assert.NotZero(t, event.Timestamp)
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.ClientCount())

	// broadcasting after shutdown must not block
	hub.AlertCreated(models.AlertView{ID: "late"})
}
