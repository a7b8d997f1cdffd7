package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vikinglords/vikinglords-server/internal/errors"
	"github.com/vikinglords/vikinglords-server/internal/game"
	"github.com/vikinglords/vikinglords-server/internal/game/ledger"
	"go.uber.org/zap/zaptest"
)

type wsEnv struct {
	url    string
	gameID string
}

func startTestHub(t *testing.T) wsEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	engine, lobbyMgr := newTestBackend(t)
	hub := NewHub(engine, zaptest.NewLogger(t))
	go hub.Run(ctx)

	srv := httptest.NewServer(hub.Handler(ctx, nil))
	t.Cleanup(srv.Close)

	g, err := lobbyMgr.Create(ctx, game.User{ID: "u-alice", Name: "Alice"}, "")
	require.NoError(t, err)
	_, err = lobbyMgr.Join(ctx, g.ID, game.User{ID: "u-bob", Name: "Bob"})
	require.NoError(t, err)
	_, err = lobbyMgr.Start(ctx, g.ID, "u-alice")
	require.NoError(t, err)

	return wsEnv{url: "ws" + strings.TrimPrefix(srv.URL, "http"), gameID: g.ID}
}

func dial(t *testing.T, env wsEnv, userID string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("X-User-Id", userID)
	conn, resp, err := websocket.DefaultDialer.Dial(env.url, header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func ofType(kind string) func(map[string]any) bool {
	return func(msg map[string]any) bool { return msg["type"] == kind }
}

func TestWebSocketSubscribeAndAct(t *testing.T) {
	env := startTestHub(t)
	alice := dial(t, env, "u-alice")
	bob := dial(t, env, "u-bob")

	for _, conn := range []*websocket.Conn{alice, bob} {
		require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageSubscribe, GameID: env.gameID}))
		msg := readUntil(t, conn, ofType(MessageGameState))
		assert.Equal(t, env.gameID, msg["gameId"])
		data := msg["data"].(map[string]any)
		assert.Equal(t, "started", data["status"])
	}

	require.NoError(t, alice.WriteJSON(WSMessage{
		Type:   MessageAction,
		Action: &game.Action{Type: game.ActionPickCommon, Resource: ledger.Blue},
	}))

	event := readUntil(t, bob, func(msg map[string]any) bool {
		return msg["type"] == MessageEvent && msg["data"].(map[string]any)["type"] == "RESOURCE_PICKED"
	})
	assert.Equal(t, "u-alice", event["data"].(map[string]any)["playerId"])

	state := readUntil(t, bob, func(msg map[string]any) bool {
		if msg["type"] != MessageGameState {
			return false
		}
		cs := msg["data"].(map[string]any)["currentState"].(map[string]any)
		return cs["currentPlayerIndex"] == float64(1)
	})
	assert.Len(t, state["data"].(map[string]any)["checksum"], 64)

	require.NoError(t, alice.WriteJSON(WSMessage{
		Type:   MessageAction,
		GameID: env.gameID,
		Action: &game.Action{Type: game.ActionPickCommon, Resource: ledger.Red},
	}))
	failure := readUntil(t, alice, ofType(MessageError))
	assert.Equal(t, string(apperrors.CodeInvalidTransition), failure["error"].(map[string]any)["code"])
}

func TestWebSocketRejectsBadRequests(t *testing.T) {
	env := startTestHub(t)

	_, resp, err := websocket.DefaultDialer.Dial(env.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	conn := dial(t, env, "u-alice")

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageSubscribe, GameID: "missing"}))
	msg := readUntil(t, conn, ofType(MessageError))
	assert.Equal(t, string(apperrors.CodeNotFound), msg["error"].(map[string]any)["code"])

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "dance"}))
	msg = readUntil(t, conn, ofType(MessageError))
	assert.Equal(t, string(apperrors.CodeInvalidArgument), msg["error"].(map[string]any)["code"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	msg = readUntil(t, conn, ofType(MessageError))
	assert.Equal(t, string(apperrors.CodeInvalidArgument), msg["error"].(map[string]any)["code"])
}
