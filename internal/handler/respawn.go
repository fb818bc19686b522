package handler

import (
	"github.com/starfall/server/internal/wire"
)

// Respawn revives a dead player at the map origin with full vitals.
func Respawn(deps *Deps) wire.HandlerFunc {
	return func(s wire.Sender, raw []byte) error {
		_, run, p, err := playerOf(s)
		if err != nil {
			return err
		}
		if !p.IsDead {
			return wire.Errorf(wire.CodeValidationFailed, "not dead")
		}
		p.IsDead = false
		p.X, p.Y = 0, 0
		p.VX, p.VY = 0, 0
		p.Rotation = 0
		p.Health = p.MaxHealth
		p.Shield = p.MaxShield

		deps.Env.Bc.ToMap(run.Map, &wire.PlayerRespawn{
			Type:     wire.TypePlayerRespawn,
			ClientID: p.ClientID,
			Position: wire.Position{X: p.X, Y: p.Y},
			Health:   p.Health,
			Shield:   p.Shield,
		}, "")
		return nil
	}
}
