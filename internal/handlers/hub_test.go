// internal/handlers/hub_test.go
package handlers

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/uno/internal/game"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// drain returns every frame currently queued for a client, decoded.
func drain(t *testing.T, c *Client) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for {
		select {
		case data := <-c.Send:
			var m map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &m))
			out = append(out, m)
		default:
			return out
		}
	}
}

func types(frames []map[string]interface{}) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i], _ = f["type"].(string)
	}
	return out
}

func TestHubBroadcastOnlyReachesGroup(t *testing.T) {
	hub := NewHub(quietLogger(), 8)
	a := hub.Register("a")
	b := hub.Register("b")
	c := hub.Register("c")
	hub.Subscribe("r1", "a")
	hub.Subscribe("r1", "b")
	hub.Subscribe("r2", "c")

	hub.Broadcast("r1", []byte(`{"type":"x"}`))
	hub.SendTo("c", []byte(`{"type":"y"}`))

	assert.Equal(t, []string{"x"}, types(drain(t, a)))
	assert.Equal(t, []string{"x"}, types(drain(t, b)))
	assert.Equal(t, []string{"y"}, types(drain(t, c)))
	assert.Equal(t, 2, hub.Members("r1"))

	hub.Unsubscribe("r1", "b")
	hub.Broadcast("r1", []byte(`{"type":"z"}`))
	assert.Equal(t, []string{"z"}, types(drain(t, a)))
	assert.Empty(t, drain(t, b))
}

func TestHubSubscribeRequiresRegistration(t *testing.T) {
	hub := NewHub(quietLogger(), 8)
	hub.Subscribe("r1", "ghost")
	assert.Equal(t, 0, hub.Members("r1"))
	hub.SendTo("ghost", []byte(`{}`)) // no-op, must not panic
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := NewHub(quietLogger(), 2)
	slow := hub.Register("slow")
	hub.Subscribe("r1", "slow")

	hub.SendTo("slow", []byte(`{"type":"1"}`))
	hub.SendTo("slow", []byte(`{"type":"2"}`))
	select {
	case <-slow.Done:
		t.Fatal("client dropped before its queue overflowed")
	default:
	}

	hub.Broadcast("r1", []byte(`{"type":"3"}`))

	select {
	case <-slow.Done:
	default:
		t.Fatal("client should be dropped once its queue overflows")
	}
	assert.Equal(t, 0, hub.Members("r1"))
	assert.Equal(t, []string{"1", "2"}, types(drain(t, slow)), "queued frames stay in order")
}

func TestHubUnregisterClosesDone(t *testing.T) {
	hub := NewHub(quietLogger(), 0)
	c := hub.Register("a")
	hub.Subscribe("r1", "a")

	hub.Unregister("a")
	hub.Unregister("a")

	_, open := <-c.Done
	assert.False(t, open)
	assert.Equal(t, 0, hub.Members("r1"))
}

func TestHubAttachRoom(t *testing.T) {
	hub := NewHub(quietLogger(), 16)
	a := hub.Register("a")
	hub.Subscribe("r1", "a")

	room := game.NewRoom("r1", game.DeckOptions{})
	hub.AttachRoom(room)
	room.Join("a", "Ann")

	frames := drain(t, a)
	require.Equal(t, []string{"joined", "playerList"}, types(frames))
	assert.Equal(t, "a", frames[0]["playerId"])
	assert.Equal(t, "r1", frames[0]["roomId"])
	players := frames[1]["players"].([]interface{})
	require.Len(t, players, 1)
	assert.Equal(t, map[string]interface{}{"id": "a", "name": "Ann"}, players[0])
}
