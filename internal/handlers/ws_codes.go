// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes. These give clients a more specific reason for
// closure than the standard codes.
const (
	SlowConsumerError websocket.StatusCode = 3000 // Outbound queue overflowed; the client wasn't reading fast enough.
)
