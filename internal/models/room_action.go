// internal/models/room_action.go
package models

// RoomAction captures one applied room action for the historian queue.
type RoomAction struct {
	RoomID        string                 `json:"room_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorID       string                 `json:"actor_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}
