package stream

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"brandpulse/internal/domain/workflow"
	"brandpulse/internal/metrics"
	"brandpulse/pkg/logger"
)

var _ workflow.Observer = (*Hub)(nil)

// Message is one frame on the step stream
type Message struct {
	Type      string               `json:"type"` // state | step | run
	RunID     string               `json:"run_id"`
	From      workflow.State       `json:"from,omitempty"`
	To        workflow.State       `json:"to,omitempty"`
	Step      *workflow.StepResult `json:"step,omitempty"`
	Status    workflow.Status      `json:"status,omitempty"`
	Brand     string               `json:"brand,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// Subscriber is one connected WebSocket client
type Subscriber struct {
	conn  *websocket.Conn
	send  chan []byte
	runID string // empty: all runs
	once  sync.Once
}

func (c *Subscriber) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub fans workflow progress out to WebSocket subscribers. Observer
// callbacks never block: a subscriber whose buffer is full misses frames.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*Subscriber]struct{}
	bufferSize   int
	writeTimeout time.Duration
	pingInterval time.Duration
	log          *logger.Logger
}

// NewHub creates an empty hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:      make(map[*Subscriber]struct{}),
		bufferSize:   64,
		writeTimeout: 5 * time.Second,
		pingInterval: 30 * time.Second,
		log:          log.With("component", "stream_hub"),
	}
}

// Subscribe registers conn and starts its writer. runID filters frames to
// one run; empty receives everything.
func (h *Hub) Subscribe(conn *websocket.Conn, runID string) *Subscriber {
	c := &Subscriber{
		conn:  conn,
		send:  make(chan []byte, h.bufferSize),
		runID: runID,
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.StreamConnections.Inc()

	go h.writeLoop(c)
	return c
}

// Unsubscribe removes c and closes its connection
func (h *Hub) Unsubscribe(c *Subscriber) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		metrics.StreamConnections.Dec()
		c.close()
	}
}

// Count returns the number of subscribers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close drops every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Subscriber]struct{})
	h.mu.Unlock()

	for c := range clients {
		metrics.StreamConnections.Dec()
		c.close()
	}
}

// StateChanged implements workflow.Observer
func (h *Hub) StateChanged(runID string, from, to workflow.State) {
	h.broadcast(Message{Type: "state", RunID: runID, From: from, To: to, Timestamp: time.Now()})
}

// StepFinished implements workflow.Observer
func (h *Hub) StepFinished(runID string, result workflow.StepResult) {
	h.broadcast(Message{Type: "step", RunID: runID, Step: &result, Timestamp: time.Now()})
}

// RunFinished implements workflow.Observer
func (h *Hub) RunFinished(report *workflow.Report) {
	h.broadcast(Message{
		Type:      "run",
		RunID:     report.RunID,
		Brand:     report.Brand,
		Status:    report.Status,
		Timestamp: report.CompletedAt,
	})
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Errorw("Failed to encode stream message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.runID != "" && c.runID != msg.RunID {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.log.Debugw("Stream subscriber lagging, frame dropped", "run_id", msg.RunID)
		}
	}
}

func (h *Hub) writeLoop(c *Subscriber) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debugw("Stream write failed", "error", err)
				go h.Unsubscribe(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
				go h.Unsubscribe(c)
				return
			}
		}
	}
}
