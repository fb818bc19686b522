package handler

import (
	"encoding/json"
	"math"
	"time"

	"github.com/starfall/server/internal/scripting"
	"github.com/starfall/server/internal/system"
	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
)

// ProjectileFired spawns a manually aimed ballistic shot. The client only
// supplies direction; damage is always computed server-side.
func ProjectileFired(deps *Deps) wire.HandlerFunc {
	return func(s wire.Sender, raw []byte) error {
		_, run, p, err := playerOf(s)
		if err != nil {
			return err
		}
		var msg wire.ProjectileFired
		if err := json.Unmarshal(raw, &msg); err != nil {
			return wire.Errorf(wire.CodeValidationFailed, "malformed projectile_fired")
		}
		if p.IsDead {
			return nil
		}
		if !wire.FinitePosition(msg.Velocity.X, msg.Velocity.Y) {
			return wire.Errorf(wire.CodeValidationFailed, "non-finite velocity")
		}

		// Direction comes from the client, magnitude from config.
		speed := deps.Cfg.Game.Combat.ProjectileSpeed
		vx, vy := msg.Velocity.X, msg.Velocity.Y
		mag := math.Hypot(vx, vy)
		if mag <= 0 {
			return wire.Errorf(wire.CodeValidationFailed, "zero velocity")
		}
		vx, vy = vx/mag*speed, vy/mag*speed

		tpl := deps.Env.Ships.Get(p.ShipID)
		perLevel := 0.05
		base := p.Damage
		if tpl != nil {
			perLevel = tpl.DamagePerLevel
			base = tpl.BaseDamage
		}
		damage := deps.Env.Lua.CalcProjectileDamage(scripting.ProjectileDamageContext{
			BaseDamage:     base,
			DamageUpgrades: p.Upgrades.Damage,
			DamagePerLevel: perLevel,
		})

		now := time.Now()
		proj := run.Map.SpawnProjectile(&world.Projectile{
			ShooterID:      p.ClientID,
			Source:         world.SourcePlayer,
			X:              p.X,
			Y:              p.Y,
			VX:             vx,
			VY:             vy,
			Damage:         damage,
			ProjectileType: msg.ProjectileType,
			CreatedAt:      now,
			Lifetime:       system.BallisticLifetime,
		})

		deps.Env.Bc.Near(run.Map, p.X, p.Y, world.LocalInterestRadius, &wire.ProjectileFired{
			Type:           wire.TypeProjectileFired,
			ClientID:       p.ClientID,
			ProjectileID:   proj.ID,
			Position:       wire.Vec2{X: p.X, Y: p.Y},
			Velocity:       wire.Vec2{X: vx, Y: vy},
			ProjectileType: proj.ProjectileType,
			Damage:         damage,
		}, "")
		return nil
	}
}
