package system

import (
	"math"
	"time"

	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
	"go.uber.org/zap"
)

// Projectile removal bounds, independent of map size: anything this far out
// is garbage regardless of the shard's extent.
const (
	projectileWorldLimit  = 25000.0
	projectileTargetLimit = 2000.0
)

// Collision radii.
const (
	playerHitRadius  = 30.0
	npcHitRadiusBase = 40.0
)

// ProjectileEngine integrates, steers, expires and collides every in-flight
// shot.
type ProjectileEngine struct {
	env    *Env
	damage *DamageResolver
	combat *CombatManager

	// scratch buffers reused across ticks
	dead    []string
	updates []wire.ProjectileState
}

func NewProjectileEngine(env *Env) *ProjectileEngine {
	return &ProjectileEngine{env: env}
}

// Wire connects the engine to the damage pipeline.
func (e *ProjectileEngine) Wire(damage *DamageResolver, combat *CombatManager) {
	e.damage = damage
	e.combat = combat
}

// Update runs one projectile tick: steer, integrate, expire, collide,
// broadcast.
func (e *ProjectileEngine) Update(m *world.Map, now time.Time, dt float64) {
	turnRate := e.env.Cfg.Game.Combat.TurnRate
	e.dead = e.dead[:0]
	e.updates = e.updates[:0]

	for _, p := range m.Projectiles {
		if p.Homing() {
			tx, ty, ok := e.targetPosition(m, p)
			if ok {
				steer(p, tx, ty, turnRate, dt)
			}
		}

		p.X += p.VX * dt
		p.Y += p.VY * dt

		if reason := e.removalReason(m, p, now); reason != "" {
			e.dead = append(e.dead, p.ID)
			e.destroy(m, p, reason)
			continue
		}

		if hit := e.collide(m, p, now); hit {
			e.dead = append(e.dead, p.ID)
			continue
		}

		if p.Homing() {
			e.updates = append(e.updates, wire.ProjectileState{
				ID: p.ID, X: p.X, Y: p.Y, VX: p.VX, VY: p.VY,
			})
		}
	}

	for _, id := range e.dead {
		m.RemoveProjectile(id)
	}

	if len(e.updates) > 0 {
		raw, err := wire.EncodeProjectileUpdates(e.updates)
		if err != nil {
			m.Log.Error("encode projectile updates", zap.Error(err))
			return
		}
		// Homing shots cluster around their targets; one local broadcast
		// from the batch centroid keeps the fanout bounded.
		cx, cy := e.updates[0].X, e.updates[0].Y
		e.env.Bc.RawNear(m, cx, cy, world.LocalInterestRadius, raw, "")
	}
}

// targetPosition resolves the homing target, which may be an NPC or a
// player.
func (e *ProjectileEngine) targetPosition(m *world.Map, p *world.Projectile) (float64, float64, bool) {
	if n := m.Npcs[p.TargetID]; n != nil {
		return n.X, n.Y, true
	}
	if pl := m.Player(p.TargetID); pl != nil && !pl.IsDead {
		return pl.X, pl.Y, true
	}
	return 0, 0, false
}

// steer rotates the velocity toward the target by at most turnRate·dt,
// preserving speed.
func steer(p *world.Projectile, tx, ty, turnRate, dt float64) {
	speed := math.Hypot(p.VX, p.VY)
	if speed <= 0 {
		return
	}
	current := math.Atan2(p.VY, p.VX)
	desired := math.Atan2(ty-p.Y, tx-p.X)

	diff := desired - current
	for diff > math.Pi {
		diff -= 2 * math.Pi
	}
	for diff < -math.Pi {
		diff += 2 * math.Pi
	}

	maxTurn := turnRate * dt
	if diff > maxTurn {
		diff = maxTurn
	} else if diff < -maxTurn {
		diff = -maxTurn
	}

	angle := current + diff
	p.VX = math.Cos(angle) * speed
	p.VY = math.Sin(angle) * speed
}

// removalReason returns a non-empty reason when the projectile must go.
func (e *ProjectileEngine) removalReason(m *world.Map, p *world.Projectile, now time.Time) string {
	if p.Expired(now) {
		return "expired"
	}
	if math.Abs(p.X) > projectileWorldLimit || math.Abs(p.Y) > projectileWorldLimit {
		return "out_of_bounds"
	}
	if p.Homing() {
		tx, ty, ok := e.targetPosition(m, p)
		if !ok {
			return "orphaned"
		}
		if world.DistSq(p.X, p.Y, tx, ty) > projectileTargetLimit*projectileTargetLimit {
			return "out_of_range"
		}
	}
	return ""
}

// collide applies the first hit and reports whether the projectile is
// consumed. Homing shots test only their target; ballistic shots test
// everything except the shooter.
func (e *ProjectileEngine) collide(m *world.Map, p *world.Projectile, now time.Time) bool {
	if p.Homing() {
		if n := m.Npcs[p.TargetID]; n != nil {
			if e.hitsNpc(p, n) {
				e.applyNpcHit(m, p, n, now)
				return true
			}
			return false
		}
		if pl := m.Player(p.TargetID); pl != nil && !pl.IsDead && pl.ClientID != p.ShooterID {
			if e.hitsPlayer(p, pl) {
				e.applyPlayerHit(m, p, pl, now)
				return true
			}
		}
		return false
	}

	for _, n := range m.Npcs {
		if n.ID == p.ShooterID {
			continue
		}
		if e.hitsNpc(p, n) {
			e.applyNpcHit(m, p, n, now)
			return true
		}
	}
	for _, pl := range m.Players {
		if pl.ClientID == p.ShooterID || pl.IsDead {
			continue
		}
		if e.hitsPlayer(p, pl) {
			e.applyPlayerHit(m, p, pl, now)
			return true
		}
	}
	return false
}

func (e *ProjectileEngine) hitsPlayer(p *world.Projectile, pl *world.Player) bool {
	return world.DistSq(p.X, p.Y, pl.X, pl.Y) <= playerHitRadius*playerHitRadius
}

// hitsNpc widens the NPC radius with relative closing speed so fast passes
// cannot tunnel: 10 px per 100 px/s above 200, capped at +80.
func (e *ProjectileEngine) hitsNpc(p *world.Projectile, n *world.Npc) bool {
	relSpeed := math.Hypot(p.VX-n.VX, p.VY-n.VY)
	bonus := 0.0
	if relSpeed > 200 {
		bonus = (relSpeed - 200) / 100 * 10
		if bonus > 80 {
			bonus = 80
		}
	}
	r := npcHitRadiusBase + bonus
	return world.DistSq(p.X, p.Y, n.X, n.Y) <= r*r
}

func (e *ProjectileEngine) applyNpcHit(m *world.Map, p *world.Projectile, n *world.Npc, now time.Time) {
	e.destroy(m, p, "hit")
	shooter := ""
	if p.Source == world.SourcePlayer || p.Source == world.SourcePet {
		shooter = p.ShooterID
	}
	e.damage.DamageNpc(m, n, p.Damage, shooter, now)
	if shooter != "" {
		if pl := m.Player(shooter); pl != nil && m.Npcs[n.ID] != nil {
			e.combat.MaybeAutoStart(m, pl, n.ID, now)
		}
	}
}

func (e *ProjectileEngine) applyPlayerHit(m *world.Map, p *world.Projectile, pl *world.Player, now time.Time) {
	e.destroy(m, p, "hit")
	e.damage.DamagePlayer(m, pl, p.Damage, p.ShooterID, now)
}

func (e *ProjectileEngine) destroy(m *world.Map, p *world.Projectile, reason string) {
	e.env.Bc.Near(m, p.X, p.Y, world.LocalInterestRadius, &wire.ProjectileDestroyed{
		Type:         wire.TypeProjectileDestroyed,
		ProjectileID: p.ID,
		Reason:       reason,
	}, "")
}
