// internal/handlers/ws_test.go
package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *ActionHandler) {
	t.Helper()
	actions := newTestActions(t, nil)
	srv := httptest.NewServer(NewRouter(actions.Logger, actions, nil))
	t.Cleanup(srv.Close)
	return srv, actions
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

// readUntil reads frames until one of type typ arrives and returns it.
func readUntil(t *testing.T, ctx context.Context, c *websocket.Conn, typ string) map[string]interface{} {
	t.Helper()
	for {
		var msg map[string]interface{}
		require.NoError(t, wsjson.Read(ctx, c, &msg), "waiting for %s", typ)
		if msg["type"] == typ {
			return msg
		}
	}
}

// readUntilFrom is readUntil restricted to frames whose playerId is playerID.
func readUntilFrom(t *testing.T, ctx context.Context, c *websocket.Conn, typ, playerID string) map[string]interface{} {
	t.Helper()
	for {
		msg := readUntil(t, ctx, c, typ)
		if msg["playerId"] == playerID {
			return msg
		}
	}
}

func hand(t *testing.T, deal map[string]interface{}) []map[string]interface{} {
	t.Helper()
	raw, _ := deal["hand"].([]interface{})
	out := make([]map[string]interface{}, len(raw))
	for i, c := range raw {
		out[i] = c.(map[string]interface{})
	}
	return out
}

func TestWSPingUnknownAndMalformed(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := dial(t, ctx, srv)

	require.NoError(t, wsjson.Write(ctx, c, map[string]string{"type": "ping"}))
	readUntil(t, ctx, c, "pong")

	require.NoError(t, wsjson.Write(ctx, c, map[string]string{"type": "teleport"}))
	errMsg := readUntil(t, ctx, c, "error")
	assert.Contains(t, errMsg["message"], "teleport")

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("{not json")))
	errMsg = readUntil(t, ctx, c, "error")
	assert.Equal(t, "Invalid JSON format.", errMsg["message"])

	// the connection survives bad input
	require.NoError(t, wsjson.Write(ctx, c, map[string]string{"type": "ping"}))
	readUntil(t, ctx, c, "pong")
}

// TestWSTwoPlayerGame plays the short r1 scenario over real WebSocket connections.
func TestWSTwoPlayerGame(t *testing.T) {
	srv, actions := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c1 := dial(t, ctx, srv)
	c2 := dial(t, ctx, srv)

	require.NoError(t, wsjson.Write(ctx, c1, GameMessage{Type: "join", RoomID: "r1", Name: "One"}))
	p1 := readUntil(t, ctx, c1, "joined")["playerId"].(string)
	require.NoError(t, wsjson.Write(ctx, c2, GameMessage{Type: "join", RoomID: "r1", Name: "Two"}))
	p2 := readUntil(t, ctx, c2, "joined")["playerId"].(string)
	require.NotEqual(t, p1, p2)

	list := readUntil(t, ctx, c1, "playerList")
	for len(list["players"].([]interface{})) < 2 {
		list = readUntil(t, ctx, c1, "playerList")
	}

	require.NoError(t, wsjson.Write(ctx, c1, GameMessage{Type: "start", RoomID: "r1", HandSize: 5}))
	hand1 := hand(t, readUntil(t, ctx, c1, "deal"))
	require.Len(t, hand1, 5)
	require.Len(t, hand(t, readUntil(t, ctx, c2, "deal")), 5)

	top := readUntil(t, ctx, c1, "cardPlacedOnTable")["card"].(map[string]interface{})
	started := readUntil(t, ctx, c1, "gameStarted")
	assert.Equal(t, p1, started["currentPlayerId"])
	readUntil(t, ctx, c2, "gameStarted")

	var playable string
	for _, card := range hand1 {
		if card["color"] == top["activeColor"] || card["value"] == top["value"] {
			playable = card["id"].(string)
			break
		}
	}
	if playable != "" {
		require.NoError(t, wsjson.Write(ctx, c1, GameMessage{Type: "play", RoomID: "r1", CardID: playable}))
		played := readUntil(t, ctx, c2, "cardPlayed")
		assert.Equal(t, p1, played["playerId"])
	} else {
		require.NoError(t, wsjson.Write(ctx, c1, GameMessage{Type: "draw", RoomID: "r1"}))
		readUntil(t, ctx, c2, "playerDrew")
	}

	// whatever was played, with two players the turn either passed or stayed
	// (Reverse, Skip and Draw Two all hand it back); wait for p2's turn
	room, ok := actions.Store.GetRoom("r1")
	require.True(t, ok)
	turn := readUntil(t, ctx, c2, "turnChanged")
	for turn["currentPlayerId"] != p2 {
		require.NoError(t, wsjson.Write(ctx, c1, GameMessage{Type: "draw", RoomID: "r1"}))
		turn = readUntil(t, ctx, c2, "turnChanged")
	}

	require.NoError(t, wsjson.Write(ctx, c2, GameMessage{Type: "draw", RoomID: "r1"}))
	readUntilFrom(t, ctx, c1, "playerDrew", p2)
	assert.Equal(t, p1, readUntil(t, ctx, c1, "turnChanged")["currentPlayerId"])

	require.NoError(t, c1.Close(websocket.StatusNormalClosure, "bye"))
	list = readUntil(t, ctx, c2, "playerList")
	players := list["players"].([]interface{})
	require.Len(t, players, 1)
	assert.Equal(t, p2, players[0].(map[string]interface{})["id"])
	assert.Equal(t, p2, readUntil(t, ctx, c2, "turnChanged")["currentPlayerId"])

	st := room.Snapshot()
	require.Len(t, st.Players, 1)
	assert.Equal(t, p2, st.CurrentPlayerID)
}

func TestHealthAndSnapshotEndpoints(t *testing.T) {
	srv, actions := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/rooms/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	room := actions.Store.GetOrCreateRoom("r9")
	room.Join("x", "Xi")

	resp, err = http.Get(srv.URL + "/rooms/r9")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"roomId":"r9"`)
	assert.Contains(t, string(body), `"handSize":0`)
	assert.NotContains(t, string(body), `"hand":`)
	assert.Contains(t, string(body), `"drawPileCount":100`)
}

func TestCORSHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://client.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	assert.Equal(t, []string{"*"}, corsOrigins(nil))
	assert.Equal(t, []string{"*"}, corsOrigins([]string{"a.com", "*"}))
	assert.Equal(t,
		[]string{"https://example.com", "http://example.com", "https://*.example.org", "http://*.example.org"},
		corsOrigins([]string{"example.com", "*.example.org"}))
}
