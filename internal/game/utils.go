// internal/game/utils.go
package game

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
)

// EventBytes marshals a GameEvent into a JSON frame.
// Logs a warning and returns "{}" on marshalling error.
func EventBytes(ev GameEvent) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Warnf("Failed to marshal GameEvent type %s: %v", ev.Type, err)
		return []byte("{}")
	}
	return data
}
