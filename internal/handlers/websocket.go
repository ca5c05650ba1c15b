package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/curatorhq/curator/internal/common"
	"github.com/curatorhq/curator/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Single-user local deployment; cross-origin browser clients are expected
		return true
	},
}

// WSMessage is the envelope broadcast to WebSocket clients
type WSMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// WebSocketHandler fans job events out to connected WebSocket clients.
// Unlike the per-job SSE stream, a WebSocket connection receives events for
// every job, filtered through the configured whitelist and throttles.
type WebSocketHandler struct {
	eventService interfaces.EventService
	logger       arbor.ILogger

	clients     map[*websocket.Conn]bool
	clientMutex map[*websocket.Conn]*sync.Mutex
	mu          sync.RWMutex

	// Event types allowed through to clients. Empty means allow all.
	allowedEvents map[string]bool

	// Per-event-type limiters for high-frequency events such as job_progress.
	throttlers map[string]*rate.Limiter
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(eventService interfaces.EventService, wsConfig common.WebSocketConfig, logger arbor.ILogger) *WebSocketHandler {
	allowed := make(map[string]bool, len(wsConfig.AllowedEvents))
	for _, e := range wsConfig.AllowedEvents {
		allowed[e] = true
	}

	throttlers := make(map[string]*rate.Limiter, len(wsConfig.ThrottleIntervals))
	for eventType, intervalStr := range wsConfig.ThrottleIntervals {
		interval, err := time.ParseDuration(intervalStr)
		if err != nil || interval <= 0 {
			logger.Warn().Str("event_type", eventType).Str("interval", intervalStr).Msg("Invalid throttle interval, skipping")
			continue
		}
		throttlers[eventType] = rate.NewLimiter(rate.Every(interval), 1)
	}

	return &WebSocketHandler{
		eventService:  eventService,
		logger:        logger,
		clients:       make(map[*websocket.Conn]bool),
		clientMutex:   make(map[*websocket.Conn]*sync.Mutex),
		allowedEvents: allowed,
		throttlers:    throttlers,
	}
}

// HandleWebSocket upgrades the connection and registers the client
// GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().Str("remote", r.RemoteAddr).Int("clients", clientCount).Msg("WebSocket client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		remaining := len(h.clients)
		h.mu.Unlock()
		conn.Close()
		h.logger.Info().Str("remote", r.RemoteAddr).Int("clients", remaining).Msg("WebSocket client disconnected")
	}()

	// Drain client frames; the protocol is broadcast-only but the read loop
	// is what detects disconnects and answers pings.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}

// SubscribeToJobEvents registers handlers that broadcast job lifecycle events
// to all connected clients.
func (h *WebSocketHandler) SubscribeToJobEvents() {
	eventTypes := []interfaces.EventType{
		interfaces.EventJobCreated,
		interfaces.EventJobProgress,
		interfaces.EventJobPaused,
		interfaces.EventJobResumed,
		interfaces.EventJobCompleted,
		interfaces.EventJobFailed,
		interfaces.EventJobCancelled,
	}

	for _, eventType := range eventTypes {
		et := eventType
		h.eventService.Subscribe(et, func(ctx context.Context, event interfaces.Event) error {
			h.broadcast(string(et), event.Payload)
			return nil
		})
	}
}

// broadcast sends a message to every connected client, applying the event
// whitelist and per-type throttles.
func (h *WebSocketHandler) broadcast(eventType string, payload interface{}) {
	if len(h.allowedEvents) > 0 && !h.allowedEvents[eventType] {
		return
	}
	if limiter, ok := h.throttlers[eventType]; ok && !limiter.Allow() {
		return
	}

	msg := WSMessage{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		// gorilla/websocket allows only one concurrent writer per connection
		mutexes[i].Lock()
		err := conn.WriteJSON(msg)
		mutexes[i].Unlock()

		if err != nil {
			h.logger.Debug().Err(err).Msg("WebSocket write failed, dropping client")
			h.mu.Lock()
			delete(h.clients, conn)
			delete(h.clientMutex, conn)
			h.mu.Unlock()
			conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
