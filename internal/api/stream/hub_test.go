package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandpulse/internal/domain/workflow"
	"brandpulse/pkg/logger"
)

func dial(t *testing.T, hub *Hub, query string) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/ws", NewHandler(hub).Connect)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.Count() > 0 }, time.Second, 5*time.Millisecond)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_StreamsRunProgress(t *testing.T) {
	hub := NewHub(logger.NewNop())
	conn := dial(t, hub, "")

	hub.StateChanged("run-1", workflow.StateInitialized, workflow.StateCollecting)
	hub.StepFinished("run-1", workflow.StepResult{Step: workflow.StepDataCollection, Outcome: workflow.OutcomeCompleted})
	hub.RunFinished(&workflow.Report{RunID: "run-1", Brand: "Acme", Status: workflow.StatusSucceeded})

	state := read(t, conn)
	assert.Equal(t, "state", state.Type)
	assert.Equal(t, workflow.StateCollecting, state.To)

	step := read(t, conn)
	assert.Equal(t, "step", step.Type)
	require.NotNil(t, step.Step)
	assert.Equal(t, workflow.StepDataCollection, step.Step.Step)

	done := read(t, conn)
	assert.Equal(t, "run", done.Type)
	assert.Equal(t, workflow.StatusSucceeded, done.Status)
	assert.Equal(t, "Acme", done.Brand)
}

func TestHub_FiltersByRun(t *testing.T) {
	hub := NewHub(logger.NewNop())
	conn := dial(t, hub, "?run_id=run-2")

	hub.StateChanged("run-1", workflow.StateInitialized, workflow.StateCollecting)
	hub.StateChanged("run-2", workflow.StateInitialized, workflow.StateCollecting)

	msg := read(t, conn)
	assert.Equal(t, "run-2", msg.RunID)
}

func TestHub_UnsubscribeOnClientClose(t *testing.T) {
	hub := NewHub(logger.NewNop())
	conn := dial(t, hub, "")

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastWithoutSubscribers(t *testing.T) {
	hub := NewHub(logger.NewNop())
	assert.NotPanics(t, func() {
		hub.StepFinished("run-1", workflow.StepResult{Step: workflow.StepFinalize})
	})
	hub.Close()
	assert.Equal(t, 0, hub.Count())
}
