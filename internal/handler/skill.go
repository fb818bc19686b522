package handler

import (
	"encoding/json"

	"github.com/starfall/server/internal/persist"
	"github.com/starfall/server/internal/system"
	"github.com/starfall/server/internal/wire"
)

// SkillUpgrade spends one skill point on a stat and recomputes derived
// stats. Raising a maximum also heals by the gained amount so the upgrade is
// felt immediately.
func SkillUpgrade(deps *Deps) wire.HandlerFunc {
	return func(s wire.Sender, raw []byte) error {
		_, _, p, err := playerOf(s)
		if err != nil {
			return err
		}
		var msg wire.SkillUpgradeRequest
		if err := json.Unmarshal(raw, &msg); err != nil {
			return wire.Errorf(wire.CodeValidationFailed, "malformed skill_upgrade_request")
		}
		if !wire.ValidatePlayerID(msg.PlayerID, p.PlayerDbID, p.UserID) {
			return wire.Errorf(wire.CodeValidationFailed, "playerId mismatch")
		}
		if p.Inventory.SkillPoints < 1 {
			return wire.Errorf(wire.CodeValidationFailed, "no skill points available")
		}

		switch msg.UpgradeType {
		case "hp":
			p.Upgrades.HP++
		case "shield":
			p.Upgrades.Shield++
		case "speed":
			p.Upgrades.Speed++
		case "damage":
			p.Upgrades.Damage++
		default:
			return wire.Errorf(wire.CodeValidationFailed, "unknown upgrade type %q", msg.UpgradeType)
		}
		p.Inventory.SkillPoints--

		ship := deps.Env.Ships.Get(p.ShipID)
		if ship == nil {
			ship = deps.Env.Ships.Default()
		}
		stats := ship.Derive(p.Upgrades.Damage, p.Upgrades.HP, p.Upgrades.Shield)
		if gained := stats.MaxHealth - p.MaxHealth; gained > 0 {
			p.Health += gained
		}
		if gained := stats.MaxShield - p.MaxShield; gained > 0 {
			p.Shield += gained
		}
		p.MaxHealth = stats.MaxHealth
		p.MaxShield = stats.MaxShield
		p.Damage = stats.Damage
		p.Speed = stats.Speed

		system.SendStateUpdate(p, "skill_upgrade", nil)
		deps.Env.Saves.Enqueue(persist.SaveRequest{Record: p.ToRecord(), Reason: "skill_upgrade"})
		return nil
	}
}
