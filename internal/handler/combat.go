package handler

import (
	"encoding/json"
	"time"

	"github.com/starfall/server/internal/wire"
)

// StartCombat opens a combat session against an NPC. Session conflicts and
// missing targets come back as combat_error frames, not connection errors.
func StartCombat(deps *Deps) wire.HandlerFunc {
	return func(s wire.Sender, raw []byte) error {
		sess, run, p, err := playerOf(s)
		if err != nil {
			return err
		}
		var msg wire.StartCombat
		if err := json.Unmarshal(raw, &msg); err != nil {
			return wire.Errorf(wire.CodeValidationFailed, "malformed start_combat")
		}
		if !wire.ValidatePlayerID(msg.PlayerID, p.PlayerDbID, p.UserID) {
			return wire.Errorf(wire.CodeValidationFailed, "playerId mismatch")
		}
		if p.IsDead {
			return wire.Errorf(wire.CodeValidationFailed, "dead players cannot fight")
		}
		if cerr := run.Combat.Start(run.Map, p, msg.NpcID, time.Now()); cerr != nil {
			sess.Send(cerr)
		}
		return nil
	}
}

// StopCombat closes the player's session and arms the auto-start
// suppression window.
func StopCombat(deps *Deps) wire.HandlerFunc {
	return func(s wire.Sender, raw []byte) error {
		_, run, p, err := playerOf(s)
		if err != nil {
			return err
		}
		var msg wire.StopCombat
		if err := json.Unmarshal(raw, &msg); err != nil {
			return wire.Errorf(wire.CodeValidationFailed, "malformed stop_combat")
		}
		if !wire.ValidatePlayerID(msg.PlayerID, p.PlayerDbID, p.UserID) {
			return wire.Errorf(wire.CodeValidationFailed, "playerId mismatch")
		}
		run.Combat.Stop(run.Map, p, time.Now())
		return nil
	}
}
