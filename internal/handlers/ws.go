// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/uno/internal/middleware"
)

const writeTimeout = 5 * time.Second

// WSHandler upgrades the request to a WebSocket, assigns the connection a
// fresh id (which doubles as the player id) and feeds its frames to the
// action handler until the client goes away.
func WSHandler(logger *logrus.Logger, actions *ActionHandler, originPatterns []string) http.HandlerFunc {
	if len(originPatterns) == 0 {
		originPatterns = []string{"*"}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warnf("WebSocket accept error from %s: %v", r.RemoteAddr, err)
			return
		}

		connID := uuid.NewString()
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)
		logger.Infof("Connection %s established from %s.", connID, r.RemoteAddr)

		client := actions.Hub.Register(connID)
		ctx, cancel := context.WithCancel(r.Context())
		go writePump(ctx, cancel, c, client, logger)

		readErr := readMessages(ctx, c, connID, actions, logger)

		// cancel before unregistering so the write pump doesn't treat the
		// closed queue as a slow consumer
		cancel()
		actions.Disconnect(connID)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readMessages reads frames until the connection fails or ctx ends. A normal
// close returns nil.
func readMessages(ctx context.Context, c *websocket.Conn, connID string, actions *ActionHandler, logger *logrus.Logger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				logger.Infof("WebSocket closed normally for connection %s.", connID)
				return nil
			case errors.Is(err, context.Canceled):
				logger.Infof("WebSocket context canceled for connection %s.", connID)
				return nil
			default:
				logger.Warnf("Error reading from WebSocket for connection %s: %v (Status: %d)", connID, err, status)
				return err
			}
		}

		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from connection %s. Ignoring.", msgType, connID)
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON received from connection %s: %v. Data: %s", connID, err, string(data))
			sendWsError(actions.Hub, connID, "Invalid JSON format.")
			continue
		}

		if msg.Type == "ping" {
			logger.Tracef("Received ping from connection %s, sending pong.", connID)
			sendWsMessage(actions.Hub, connID, map[string]string{"type": "pong"})
			continue
		}

		if err := actions.Handle(connID, msg); err != nil {
			if errors.Is(err, ErrUnknownAction) {
				logger.Warnf("Unknown action type '%s' from connection %s.", msg.Type, connID)
				sendWsError(actions.Hub, connID, "Unknown action type: "+msg.Type)
				continue
			}
			logger.Errorf("Failed to handle '%s' from connection %s: %v", msg.Type, connID, err)
		}
	}
}

// writePump is the only writer on the connection, so frames leave in the
// order they were queued.
func writePump(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, client *Client, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done:
			if ctx.Err() != nil {
				return
			}
			logger.Warnf("Closing connection %s: slow consumer.", client.ID)
			c.Close(SlowConsumerError, "outbound queue overflow")
			cancel()
			return
		case data := <-client.Send:
			writeCtx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, websocket.MessageText, data)
			wcancel()
			if err != nil {
				if ctx.Err() == nil {
					logger.Warnf("Failed to write to connection %s: %v", client.ID, err)
				}
				cancel()
				return
			}
		}
	}
}

// sendWsMessage marshals a transport-level message and queues it for one connection.
func sendWsMessage(hub *Hub, connID string, message interface{}) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("Error marshaling WebSocket message: %v", err)
		return
	}
	hub.SendTo(connID, msgBytes)
}

// sendWsError sends a structured error message to the client.
func sendWsError(hub *Hub, connID, errorMsg string) {
	sendWsMessage(hub, connID, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}
