package handler

import (
	"encoding/json"

	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
)

// ExplosionCreated relays a cosmetic explosion to nearby players. Purely
// visual; no damage flows through this path.
func ExplosionCreated(deps *Deps) wire.HandlerFunc {
	return func(s wire.Sender, raw []byte) error {
		_, run, p, err := playerOf(s)
		if err != nil {
			return err
		}
		var msg wire.ExplosionCreated
		if err := json.Unmarshal(raw, &msg); err != nil {
			return wire.Errorf(wire.CodeValidationFailed, "malformed explosion_created")
		}
		if !wire.FinitePosition(msg.Position.X, msg.Position.Y) {
			return wire.Errorf(wire.CodeValidationFailed, "non-finite position")
		}
		msg.ClientID = p.ClientID
		deps.Env.Bc.Near(run.Map, msg.Position.X, msg.Position.Y,
			world.LocalInterestRadius, &msg, p.ClientID)
		return nil
	}
}
