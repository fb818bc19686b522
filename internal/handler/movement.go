package handler

import (
	"encoding/json"

	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
)

// PositionUpdate queues a movement intent for integration on the next tick.
func PositionUpdate(deps *Deps) wire.HandlerFunc {
	return func(s wire.Sender, raw []byte) error {
		_, run, p, err := playerOf(s)
		if err != nil {
			return err
		}
		var msg wire.PositionUpdate
		if err := json.Unmarshal(raw, &msg); err != nil {
			return wire.Errorf(wire.CodeValidationFailed, "malformed position_update")
		}
		if !wire.ValidateClientID(msg.ClientID, p.ClientID) {
			return wire.Errorf(wire.CodeValidationFailed, "clientId mismatch")
		}
		if !wire.FinitePosition(msg.X, msg.Y, msg.Rotation, msg.VelocityX, msg.VelocityY) {
			return wire.Errorf(wire.CodeInvalidPlayerPosition, "non-finite position")
		}
		if p.IsDead {
			return nil
		}
		run.Map.PushPosition(p.ClientID, world.PositionInput{
			X:        msg.X,
			Y:        msg.Y,
			Rotation: msg.Rotation,
			VX:       msg.VelocityX,
			VY:       msg.VelocityY,
			Tick:     msg.Tick,
		})
		return nil
	}
}
