package handler

import (
	"encoding/json"
	"time"

	"github.com/starfall/server/internal/wire"
)

// Heartbeat echoes the client's timestamp with the server clock attached.
func Heartbeat(deps *Deps) wire.HandlerFunc {
	return func(s wire.Sender, raw []byte) error {
		var msg wire.Heartbeat
		if err := json.Unmarshal(raw, &msg); err != nil {
			return wire.Errorf(wire.CodeValidationFailed, "malformed heartbeat")
		}
		s.Send(&wire.HeartbeatAck{
			Type:       wire.TypeHeartbeatAck,
			ServerTime: time.Now().UnixMilli(),
			Echo:       msg.Timestamp,
		})
		return nil
	}
}
