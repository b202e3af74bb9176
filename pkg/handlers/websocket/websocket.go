package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labring/sunmi-print-server/pkg/activity"
	"github.com/labring/sunmi-print-server/pkg/console"
	"github.com/labring/sunmi-print-server/pkg/handlers/common"
	"github.com/labring/sunmi-print-server/pkg/utils"
)

// WebSocketHandler streams the activity log and modal changes to live clients
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	clients     map[*websocket.Conn]*ClientInfo
	mutex       sync.RWMutex
	log         *activity.Log
	config      *WebSocketConfig
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

// ClientInfo holds client connection information
type ClientInfo struct {
	ID         string
	Connected  time.Time
	Timeout    time.Duration
	Subscribed bool

	lastActive atomic.Int64
	historySeq int64
	out        chan any
	done       chan struct{}
	closeOnce  sync.Once
}

// LastActive returns when the client was last heard from
func (c *ClientInfo) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *ClientInfo) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

// NewWebSocketHandler creates a handler that follows log and, when state is
// not nil, its device-info modal.
func NewWebSocketHandler(log *activity.Log, state *console.State, config *WebSocketConfig) *WebSocketHandler {
	ctx, cancel := context.WithCancel(context.Background())

	if config == nil {
		config = NewDefaultWebSocketConfig()
	}

	ws := &WebSocketHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*ClientInfo),
		log:     log,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}

	ws.unsubscribe = log.Subscribe(ws)
	if state != nil {
		state.SetBroadcaster(ws)
	}

	go ws.startConnectionHealthChecker()

	return ws
}

// Close stops background work and disconnects every client
func (h *WebSocketHandler) Close() {
	h.cancel()
	h.unsubscribe()

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn, client := range h.clients {
		delete(h.clients, conn)
		client.close()
	}
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := &ClientInfo{
		ID:        utils.NewNanoID(),
		Connected: time.Now(),
		Timeout:   h.config.ReadTimeout,
		out:       make(chan any, h.config.SendBuffer),
		done:      make(chan struct{}),
	}
	client.touch()

	h.mutex.Lock()
	h.clients[conn] = client
	h.mutex.Unlock()

	slog.Debug("WebSocket client connected", slog.String("client", client.ID), slog.String("remote", r.RemoteAddr))

	go h.writePump(conn, client)
	go h.handleClient(conn, client)
}

// handleClient reads requests until the connection fails
func (h *WebSocketHandler) handleClient(conn *websocket.Conn, client *ClientInfo) {
	defer h.cleanupClientConnection(conn)

	conn.SetReadLimit(h.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(client.Timeout))
	conn.SetPongHandler(func(string) error {
		client.touch()
		conn.SetReadDeadline(time.Now().Add(client.Timeout))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket error", slog.String("error", err.Error()), slog.String("client", client.ID))
			}
			return
		}
		client.touch()
		conn.SetReadDeadline(time.Now().Add(client.Timeout))

		var req common.SubscriptionRequest
		if err := json.Unmarshal(message, &req); err != nil {
			h.sendError(client, "Invalid request format", "INVALID_FORMAT")
			continue
		}

		switch req.Action {
		case "subscribe":
			h.handleSubscribe(client, &req)
		case "unsubscribe":
			h.handleUnsubscribe(client)
		case "list":
			h.handleList(client)
		default:
			h.sendError(client, "Unknown action", "UNKNOWN_ACTION")
		}
	}
}

// handleSubscribe replays history and starts live delivery. Both happen under
// the handler lock so no entry is lost or duplicated between them.
func (h *WebSocketHandler) handleSubscribe(client *ClientInfo, req *common.SubscriptionRequest) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if client.Subscribed {
		h.enqueue(client, common.ErrorResponse{
			Type:      common.MessageTypeError,
			Error:     "subscription already exists",
			Code:      "SUBSCRIBE_FAILED",
			Timestamp: time.Now().Unix(),
		})
		return
	}

	client.Subscribed = true
	client.historySeq = 0

	h.enqueue(client, common.SubscriptionResult{
		Action:    "subscribed",
		ClientID:  client.ID,
		Active:    true,
		Timestamp: time.Now().Unix(),
	})

	if req.Options.Tail != 0 {
		history := h.log.Tail(max(req.Options.Tail, 0))
		if len(history) > 0 {
			client.historySeq = history[len(history)-1].Sequence
		}
		h.enqueue(client, common.NewHistoryMessage(history))
	}
}

func (h *WebSocketHandler) handleUnsubscribe(client *ClientInfo) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !client.Subscribed {
		h.enqueue(client, common.ErrorResponse{
			Type:      common.MessageTypeError,
			Error:     "subscription not found",
			Code:      "UNSUBSCRIBE_FAILED",
			Timestamp: time.Now().Unix(),
		})
		return
	}

	client.Subscribed = false
	h.enqueue(client, common.SubscriptionResult{
		Action:    "unsubscribed",
		ClientID:  client.ID,
		Active:    false,
		Timestamp: time.Now().Unix(),
	})
}

func (h *WebSocketHandler) handleList(client *ClientInfo) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.enqueue(client, common.SubscriptionResult{
		Action:    "list",
		ClientID:  client.ID,
		Active:    client.Subscribed,
		Timestamp: time.Now().Unix(),
	})
}

// EntryAppended broadcasts a new log entry to every subscribed client.
// It implements activity.Listener.
func (h *WebSocketHandler) EntryAppended(entry activity.Entry) {
	message := common.NewLogMessage(entry)

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, client := range h.clients {
		if !client.Subscribed || entry.Sequence <= client.historySeq {
			continue
		}
		h.enqueue(client, message)
	}
}

// BroadcastModal pushes a modal change to every subscribed client.
// It implements console.ModalBroadcaster.
func (h *WebSocketHandler) BroadcastModal(modal *console.Modal) {
	message := common.ModalMessage{Type: common.MessageTypeModal, Modal: modal}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, client := range h.clients {
		if client.Subscribed {
			h.enqueue(client, message)
		}
	}
}

// enqueue hands a message to the client's writer. A client that cannot keep
// up is disconnected. Callers hold h.mutex.
func (h *WebSocketHandler) enqueue(client *ClientInfo, v any) {
	select {
	case <-client.done:
	case client.out <- v:
	default:
		slog.Warn("WebSocket client too slow, disconnecting", slog.String("client", client.ID))
		client.close()
	}
}

func (h *WebSocketHandler) sendError(client *ClientInfo, message string, code string) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	h.enqueue(client, common.ErrorResponse{
		Type:      common.MessageTypeError,
		Error:     message,
		Code:      code,
		Timestamp: time.Now().Unix(),
	})
}

// writePump is the only goroutine writing to conn
func (h *WebSocketHandler) writePump(conn *websocket.Conn, client *ClientInfo) {
	ticker := time.NewTicker(h.config.PingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case v := <-client.out:
			if err := h.sendJSON(conn, v); err != nil {
				slog.Debug("Failed to send message", slog.String("error", err.Error()), slog.String("client", client.ID))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(h.config.WriteWait)); err != nil {
				return
			}
		case <-client.done:
			return
		case <-h.ctx.Done():
			return
		}
	}
}

func (c *ClientInfo) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// cleanupClientConnection removes a client and closes its connection
func (h *WebSocketHandler) cleanupClientConnection(conn *websocket.Conn) {
	h.mutex.Lock()
	client, exists := h.clients[conn]
	delete(h.clients, conn)
	h.mutex.Unlock()

	if exists {
		client.close()
		slog.Debug("WebSocket client disconnected", slog.String("client", client.ID))
	}
	conn.Close()
}

// startConnectionHealthChecker periodically drops clients that stopped answering
func (h *WebSocketHandler) startConnectionHealthChecker() {
	ticker := time.NewTicker(h.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.checkConnectionHealth()
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *WebSocketHandler) checkConnectionHealth() {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	now := time.Now()
	for _, client := range h.clients {
		if now.Sub(client.LastActive()) > client.Timeout {
			slog.Info("Connection timeout, closing", slog.String("client", client.ID))
			client.close()
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// sendJSON writes one JSON text frame
func (h *WebSocketHandler) sendJSON(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
