package system

import (
	"math"
	"time"

	"github.com/starfall/server/internal/world"
	"go.uber.org/zap"
)

// NpcAi drives the per-NPC behavior state machine every tick.
type NpcAi struct {
	env *Env
}

func NewNpcAi(env *Env) *NpcAi {
	return &NpcAi{env: env}
}

// Update evaluates transitions and integrates movement for every NPC.
func (a *NpcAi) Update(m *world.Map, now time.Time, dt float64) {
	timeout := a.env.Cfg.Game.Combat.DamageTimeout
	for _, n := range m.Npcs {
		a.trackPlayersInRange(m, n, now)
		a.transition(n, now, timeout)

		switch n.Behavior {
		case world.BehaviorFlee:
			a.flee(m, n)
		case world.BehaviorAggressive:
			a.aggressive(m, n)
		default:
			a.cruise(m, n)
		}

		n.X += n.VX * dt
		n.Y += n.VY * dt

		a.sanitize(m, n)
		n.X, n.Y, n.VX, n.VY = m.ReflectIntoBounds(n.X, n.Y, n.VX, n.VY)
	}
}

// trackPlayersInRange refreshes the aggro memory for aggressive templates.
func (a *NpcAi) trackPlayersInRange(m *world.Map, n *world.Npc, now time.Time) {
	if !n.Template.Aggressive {
		return
	}
	if a.env.Spatial.AnyPlayerWithin(m, n.X, n.Y, n.Template.AggroRadius) {
		n.LastPlayerInRange = now
	}
}

// transition picks the behavior for this tick. Order matters: a wounded NPC
// flees even while players are in range.
func (a *NpcAi) transition(n *world.Npc, now time.Time, timeout time.Duration) {
	threshold := n.Template.FleeThreshold
	if threshold <= 0 {
		threshold = 0.5
	}
	switch {
	case float64(n.Health) < threshold*float64(n.MaxHealth):
		n.Behavior = world.BehaviorFlee
	case now.Sub(n.LastPlayerInRange) < timeout || now.Sub(n.LastDamage) < timeout:
		n.Behavior = world.BehaviorAggressive
	default:
		n.Behavior = world.BehaviorCruise
	}
}

func (a *NpcAi) cruise(m *world.Map, n *world.Npc) {
	speed := math.Hypot(n.VX, n.VY)
	if speed < 0.1 {
		angle := m.Rng.Float64() * 2 * math.Pi
		s := 0.5 * n.Template.CruiseSpeed
		n.VX = math.Cos(angle) * s
		n.VY = math.Sin(angle) * s
		n.Rotation = angle + math.Pi/2
	}
}

func (a *NpcAi) aggressive(m *world.Map, n *world.Npc) {
	target := a.pickTarget(m, n)
	if target == nil {
		a.cruise(m, n)
		return
	}
	dx := target.X - n.X
	dy := target.Y - n.Y
	d := math.Hypot(dx, dy)
	r := n.Template.AttackRange
	speed := n.Template.ChaseSpeed

	switch {
	case d > 1.4*r:
		// Close the gap.
		if d > 0 {
			n.VX = dx / d * speed
			n.VY = dy / d * speed
		}
	case d < 0.7*r:
		// Back off.
		if d > 0 {
			n.VX = -dx / d * speed
			n.VY = -dy / d * speed
		}
	default:
		// Orbit the target at half speed, tangent to the sight line.
		if d > 0 {
			n.VX = -dy / d * speed * 0.5
			n.VY = dx / d * speed * 0.5
		}
	}
	n.Rotation = math.Atan2(dy, dx) + math.Pi/2
}

// pickTarget prefers the last attacker while it is still on the map.
func (a *NpcAi) pickTarget(m *world.Map, n *world.Npc) *world.Player {
	if n.LastAttackerID != "" {
		if p := m.Player(n.LastAttackerID); p != nil && !p.IsDead {
			return p
		}
		n.LastAttackerID = ""
	}
	return a.env.Spatial.NearestPlayer(m, n.X, n.Y)
}

func (a *NpcAi) flee(m *world.Map, n *world.Npc) {
	nearest := a.env.Spatial.NearestPlayer(m, n.X, n.Y)
	if math.Hypot(n.VX, n.VY) < 0.1 && nearest != nil {
		dx := n.X - nearest.X
		dy := n.Y - nearest.Y
		d := math.Hypot(dx, dy)
		s := n.Template.FleeSpeed
		if s <= 0 {
			s = 1.5 * n.Template.CruiseSpeed
		}
		if d > 0 {
			n.VX = dx / d * s
			n.VY = dy / d * s
		} else {
			angle := m.Rng.Float64() * 2 * math.Pi
			n.VX = math.Cos(angle) * s
			n.VY = math.Sin(angle) * s
		}
	}
	if nearest != nil &&
		world.DistSq(n.X, n.Y, nearest.X, nearest.Y) <= n.Template.AttackRange*n.Template.AttackRange {
		n.Rotation = math.Atan2(nearest.Y-n.Y, nearest.X-n.X) + math.Pi/2
	} else {
		n.Rotation = math.Atan2(n.VY, n.VX) + math.Pi/2
	}
}

// sanitize resets an NPC whose numbers went non-finite. The tick must
// survive bad math.
func (a *NpcAi) sanitize(m *world.Map, n *world.Npc) {
	if isFinite(n.X) && isFinite(n.Y) && isFinite(n.VX) && isFinite(n.VY) {
		return
	}
	m.Log.Warn("npc state non-finite, resetting",
		zap.String("npc", n.ID),
		zap.Float64("x", n.X), zap.Float64("y", n.Y))
	n.X, n.Y = 0, 0
	n.VX = (m.Rng.Float64() - 0.5) * 10
	n.VY = (m.Rng.Float64() - 0.5) * 10
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
