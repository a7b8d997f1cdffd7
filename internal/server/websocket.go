package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vikinglords/vikinglords-server/internal/config"
	apperrors "github.com/vikinglords/vikinglords-server/internal/errors"
	"github.com/vikinglords/vikinglords-server/internal/game"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 64
)

// Message types exchanged over the websocket.
const (
	MessageSubscribe = "subscribe"
	MessageAction    = "action"
	MessageGameState = "game_state"
	MessageEvent     = "event"
	MessageError     = "error"
)

// WSMessage is one frame in either direction.
type WSMessage struct {
	Type   string       `json:"type"`
	GameID string       `json:"gameId,omitempty"`
	Action *game.Action `json:"action,omitempty"`
	Data   any          `json:"data,omitempty"`
	Error  *WSError     `json:"error,omitempty"`
}

// WSError reports a rejected request.
type WSError struct {
	Code     apperrors.Code    `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Client is one websocket connection. A client watches at most one game.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	userID string
	gameID string
}

// Hub fans engine events out to the clients watching each game.
type Hub struct {
	engine *game.Engine
	logger *zap.Logger

	unregister chan *Client

	mu      sync.RWMutex
	clients map[*Client]bool
	stopped bool

	pendingMu sync.Mutex
	events    []rules.Event
	stale     map[string]bool
	kick      chan struct{}

	subscription int
}

// NewHub creates a hub listening on the engine's event bus.
func NewHub(engine *game.Engine, logger *zap.Logger) *Hub {
	h := &Hub{
		engine:     engine,
		logger:     logger,
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		stale:      make(map[string]bool),
		kick:       make(chan struct{}, 1),
	}
	h.subscription = engine.Events().Subscribe(h.onEvent)
	return h
}

// onEvent runs on the publishing goroutine while the engine holds the game
// lock, so it only queues work for Run.
func (h *Hub) onEvent(e rules.Event) {
	h.pendingMu.Lock()
	h.events = append(h.events, e)
	h.stale[e.GameID] = true
	h.pendingMu.Unlock()
	h.wake()
}

// add registers client unless the hub has stopped.
func (h *Hub) add(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.clients[client] = true
	h.logger.Debug("websocket client registered", zap.String("user_id", client.userID))
	return true
}

func (h *Hub) markStale(gameID string) {
	h.pendingMu.Lock()
	h.stale[gameID] = true
	h.pendingMu.Unlock()
	h.wake()
}

func (h *Hub) wake() {
	select {
	case h.kick <- struct{}{}:
	default:
	}
}

// Run serves unregistrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer h.engine.Events().Unsubscribe(h.subscription)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client unregistered", zap.String("user_id", client.userID))

		case <-h.kick:
			h.flush(ctx)
		}
	}
}

func (h *Hub) flush(ctx context.Context) {
	h.pendingMu.Lock()
	events := h.events
	stale := h.stale
	h.events = nil
	h.stale = make(map[string]bool)
	h.pendingMu.Unlock()

	for _, e := range events {
		h.broadcast(e.GameID, WSMessage{Type: MessageEvent, GameID: e.GameID, Data: e})
	}
	for gameID := range stale {
		g, err := h.engine.GetGame(ctx, gameID)
		if err != nil {
			h.logger.Warn("failed to load game for broadcast", zap.String("game_id", gameID), zap.Error(err))
			continue
		}
		doc, err := gameDocument(g)
		if err != nil {
			h.logger.Error("failed to render game", zap.String("game_id", gameID), zap.Error(err))
			continue
		}
		h.broadcast(gameID, WSMessage{Type: MessageGameState, GameID: gameID, Data: doc})
	}
}

func (h *Hub) broadcast(gameID string, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode websocket message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.gameID != gameID {
			continue
		}
		select {
		case client.send <- payload:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) reply(client *Client, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode websocket message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- payload:
	default:
	}
}

func (h *Hub) replyError(client *Client, gameID string, err error) {
	werr := &WSError{Code: apperrors.GetCode(err), Message: err.Error(), Metadata: apperrors.GetMetadata(err)}
	if werr.Code == apperrors.CodeUnknown {
		h.logger.Error("websocket request failed", zap.String("game_id", gameID), zap.Error(err))
		werr.Message = "an unexpected error occurred"
	}
	h.reply(client, WSMessage{Type: MessageError, GameID: gameID, Error: werr})
}

func (h *Hub) handleMessage(ctx context.Context, client *Client, msg WSMessage) {
	switch msg.Type {
	case MessageSubscribe:
		g, err := h.engine.GetGame(ctx, msg.GameID)
		if err != nil {
			h.replyError(client, msg.GameID, err)
			return
		}
		h.mu.Lock()
		client.gameID = msg.GameID
		h.mu.Unlock()

		doc, err := gameDocument(g)
		if err != nil {
			h.replyError(client, msg.GameID, err)
			return
		}
		h.reply(client, WSMessage{Type: MessageGameState, GameID: msg.GameID, Data: doc})

	case MessageAction:
		if msg.Action == nil {
			h.replyError(client, msg.GameID, apperrors.New(apperrors.CodeInvalidArgument, "action is required"))
			return
		}
		gameID := msg.GameID
		if gameID == "" {
			h.mu.RLock()
			gameID = client.gameID
			h.mu.RUnlock()
		}
		action := *msg.Action
		action.UserID = client.userID
		if !game.KnownAction(action.Type) {
			h.replyError(client, gameID, apperrors.Newf(apperrors.CodeInvalidArgument, "unknown action %q", action.Type))
			return
		}
		if _, err := h.engine.ProcessAction(ctx, gameID, action); err != nil {
			h.replyError(client, gameID, err)
			return
		}
		h.markStale(gameID)

	default:
		h.replyError(client, msg.GameID, apperrors.Newf(apperrors.CodeInvalidArgument, "unknown message type %q", msg.Type))
	}
}

func (c *Client) readPump(ctx context.Context, hub *Hub) {
	defer func() {
		select {
		case hub.unregister <- c:
		case <-ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				hub.logger.Debug("websocket read failed", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			hub.replyError(c, "", apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed message", err))
			continue
		}
		hub.handleMessage(ctx, c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Handler returns the HTTP handler upgrading requests to websocket clients.
// The caller is identified by the X-User-Id header or the user_id query
// parameter.
func (h *Hub) Handler(ctx context.Context, allowedOrigins []string) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if userID == "" {
			userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
		}
		if userID == "" {
			http.Error(w, "user id is required", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			conn:   conn,
			send:   make(chan []byte, sendBuffer),
			userID: userID,
		}
		if !h.add(client) {
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump(ctx, h)
	})
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[strings.TrimRight(origin, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[strings.TrimRight(origin, "/")]
	}
}

// StartWebSocketServer serves the hub until ctx is done.
func StartWebSocketServer(ctx context.Context, cfg config.WebSocketConfig, hub *Hub, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, hub.Handler(ctx, cfg.AllowedOrigins))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("websocket server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("starting WebSocket server",
		zap.String("address", cfg.Address),
		zap.String("path", cfg.Path),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
