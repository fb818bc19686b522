package system

import (
	"fmt"
	"math"
	"time"

	"github.com/starfall/server/internal/scripting"
	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
)

// CombatSession is one player's lock on a target. At most one per player.
type CombatSession struct {
	SessionID      string
	TargetID       string
	StartedAt      time.Time
	LastAttackTime time.Time
}

// CombatManager owns the per-map combat sessions and the fire cadence for
// both players and NPCs.
type CombatManager struct {
	env      *Env
	sessions map[string]*CombatSession // by clientId
	npcFire  map[string]time.Time     // last shot per npc id
	seq      int64
}

func NewCombatManager(env *Env) *CombatManager {
	return &CombatManager{
		env:      env,
		sessions: make(map[string]*CombatSession),
		npcFire:  make(map[string]time.Time),
	}
}

// Session returns the player's active session, or nil.
func (c *CombatManager) Session(clientID string) *CombatSession {
	return c.sessions[clientID]
}

// Start opens a combat session against an NPC and fires the first shot
// immediately to mask latency.
func (c *CombatManager) Start(m *world.Map, p *world.Player, npcID string, now time.Time) *wire.CombatError {
	target := m.Npcs[npcID]
	if target == nil {
		return &wire.CombatError{
			Type:    wire.TypeCombatError,
			Code:    wire.CodeNpcNotFound,
			Message: fmt.Sprintf("npc %s not on map %s", npcID, m.ID),
		}
	}
	if existing := c.sessions[p.ClientID]; existing != nil {
		return &wire.CombatError{
			Type:            wire.TypeCombatError,
			Code:            wire.CodeMultipleCombatSessions,
			Message:         "combat session already active",
			ActiveSessionID: existing.SessionID,
		}
	}
	c.seq++
	s := &CombatSession{
		SessionID: fmt.Sprintf("cs_%d", c.seq),
		TargetID:  npcID,
		StartedAt: now,
	}
	c.sessions[p.ClientID] = s
	c.firePlayerShot(m, p, target, s, now)
	c.broadcastUpdate(m, p, s, true)
	return nil
}

// Stop closes the player's session and arms the auto-start suppression
// window.
func (c *CombatManager) Stop(m *world.Map, p *world.Player, now time.Time) {
	s := c.sessions[p.ClientID]
	if s == nil {
		return
	}
	delete(c.sessions, p.ClientID)
	p.LastCombatStop = now
	c.broadcastUpdate(m, p, s, false)
}

// MaybeAutoStart opens a session when a player deals or takes NPC damage
// outside an active session, unless combat was explicitly stopped within the
// suppression window.
func (c *CombatManager) MaybeAutoStart(m *world.Map, p *world.Player, npcID string, now time.Time) {
	if c.sessions[p.ClientID] != nil || p.IsDead {
		return
	}
	if now.Sub(p.LastCombatStop) < c.env.Cfg.Game.Combat.AutoStartCooldown {
		return
	}
	if m.Npcs[npcID] == nil {
		return
	}
	c.Start(m, p, npcID, now)
}

// TargetRemoved drops every session locked on a removed NPC.
func (c *CombatManager) TargetRemoved(m *world.Map, npcID string, now time.Time) {
	delete(c.npcFire, npcID)
	for clientID, s := range c.sessions {
		if s.TargetID != npcID {
			continue
		}
		delete(c.sessions, clientID)
		if p := m.Player(clientID); p != nil {
			c.broadcastUpdate(m, p, s, false)
		}
	}
}

// PlayerLeft cleans up when a player disconnects or migrates.
func (c *CombatManager) PlayerLeft(clientID string) {
	delete(c.sessions, clientID)
}

// Update fires cadence shots for players and lets aggressive NPCs shoot
// back.
func (c *CombatManager) Update(m *world.Map, now time.Time) {
	interval := c.env.Cfg.Game.Combat.FireInterval

	for clientID, s := range c.sessions {
		p := m.Player(clientID)
		if p == nil || p.IsDead {
			delete(c.sessions, clientID)
			continue
		}
		target := m.Npcs[s.TargetID]
		if target == nil {
			delete(c.sessions, clientID)
			c.broadcastUpdate(m, p, s, false)
			continue
		}
		if now.Sub(s.LastAttackTime) >= interval {
			c.firePlayerShot(m, p, target, s, now)
		}
	}

	for _, n := range m.Npcs {
		if n.Behavior != world.BehaviorAggressive {
			continue
		}
		target := m.Player(n.LastAttackerID)
		if target == nil || target.IsDead {
			target = c.env.Spatial.NearestPlayer(m, n.X, n.Y)
		}
		if target == nil {
			continue
		}
		if world.DistSq(n.X, n.Y, target.X, target.Y) > n.Template.AttackRange*n.Template.AttackRange {
			continue
		}
		if now.Sub(c.npcFire[n.ID]) < interval {
			continue
		}
		c.npcFire[n.ID] = now
		c.fireNpcShot(m, n, target, now)
	}
}

func (c *CombatManager) firePlayerShot(m *world.Map, p *world.Player, target *world.Npc, s *CombatSession, now time.Time) {
	s.LastAttackTime = now
	tpl := c.env.Ships.Get(p.ShipID)
	perLevel := 0.05
	base := p.Damage
	if tpl != nil {
		perLevel = tpl.DamagePerLevel
		base = tpl.BaseDamage
	}
	damage := c.env.Lua.CalcProjectileDamage(scripting.ProjectileDamageContext{
		BaseDamage:     base,
		DamageUpgrades: p.Upgrades.Damage,
		DamagePerLevel: perLevel,
		TargetShield:   target.Shield,
		TargetIsNpc:    true,
	})
	c.spawnHoming(m, p.ClientID, world.SourcePlayer, p.X, p.Y, target.ID, target.X, target.Y, damage, "laser", now)
}

func (c *CombatManager) fireNpcShot(m *world.Map, n *world.Npc, target *world.Player, now time.Time) {
	c.spawnHoming(m, n.ID, world.SourceNpc, n.X, n.Y, target.ClientID, target.X, target.Y, n.Template.Damage, "npc_laser", now)
}

func (c *CombatManager) spawnHoming(m *world.Map, shooterID, source string, x, y float64, targetID string, tx, ty float64, damage int, projType string, now time.Time) {
	speed := c.env.Cfg.Game.Combat.ProjectileSpeed
	dist := world.Dist(x, y, tx, ty)
	dx, dy := tx-x, ty-y
	var vx, vy float64
	if dist > 0 {
		vx = dx / dist * speed
		vy = dy / dist * speed
	} else {
		vx = speed
	}

	proj := &world.Projectile{
		ShooterID:       shooterID,
		Source:          source,
		X:               x,
		Y:               y,
		VX:              vx,
		VY:              vy,
		Damage:          damage,
		ProjectileType:  projType,
		TargetID:        targetID,
		CreatedAt:       now,
		InitialDistance: dist,
		Lifetime:        HomingLifetime(dist, speed, source),
	}
	m.SpawnProjectile(proj)

	c.env.Bc.Near(m, x, y, world.LocalInterestRadius, &wire.ProjectileFired{
		Type:           wire.TypeProjectileFired,
		ProjectileID:   proj.ID,
		Position:       wire.Vec2{X: x, Y: y},
		Velocity:       wire.Vec2{X: vx, Y: vy},
		ProjectileType: projType,
		Damage:         damage,
		TargetID:       proj.TargetID,
	}, "")
}

func (c *CombatManager) broadcastUpdate(m *world.Map, p *world.Player, s *CombatSession, attacking bool) {
	c.env.Bc.ToMap(m, &wire.CombatUpdate{
		Type:           wire.TypeCombatUpdate,
		PlayerID:       p.UserID,
		ClientID:       p.ClientID,
		NpcID:          s.TargetID,
		IsAttacking:    attacking,
		SessionID:      s.SessionID,
		LastAttackTime: s.LastAttackTime.UnixMilli(),
	}, "")
}

// HomingLifetime is the travel budget of a steered shot: the straight-line
// flight time plus a margin of min(3s, 50%), capped per shooter kind.
func HomingLifetime(initialDistance, speed float64, source string) time.Duration {
	if speed <= 0 {
		speed = 1
	}
	flight := initialDistance / speed // seconds
	margin := math.Min(3, flight*0.5)
	total := flight + margin

	limit := 8.0
	if source == world.SourceNpc {
		limit = 12.0
	}
	if total > limit {
		total = limit
	}
	return time.Duration(total * float64(time.Second))
}

// BallisticLifetime is the fixed budget for non-homing shots.
const BallisticLifetime = 10 * time.Second
