package system

import (
	"time"

	"github.com/starfall/server/internal/world"
)

// RepairSystem channels vitals restoration for players that have been out of
// combat long enough. The channel arms after a quiet delay, then restores a
// fixed amount per tick until full; any damage or combat session breaks it.
type RepairSystem struct {
	env    *Env
	combat *CombatManager
}

func NewRepairSystem(env *Env) *RepairSystem {
	return &RepairSystem{env: env}
}

func (r *RepairSystem) Wire(combat *CombatManager) {
	r.combat = combat
}

func (r *RepairSystem) Update(m *world.Map, now time.Time) {
	cfg := r.env.Cfg.Game.Repair
	for _, p := range m.Players {
		if p.IsDead {
			p.Repairing = nil
			continue
		}
		full := p.Health >= p.MaxHealth && p.Shield >= p.MaxShield
		inCombat := r.combat.Session(p.ClientID) != nil ||
			now.Sub(p.LastDamage) < cfg.OutOfCombatDelay
		if full || inCombat {
			p.Repairing = nil
			continue
		}

		if p.Repairing == nil {
			p.Repairing = &world.RepairState{StartedAt: now}
			continue
		}
		if now.Sub(p.Repairing.StartedAt) < cfg.ChannelDuration {
			continue
		}

		p.Health += cfg.HealthPerTick
		if p.Health > p.MaxHealth {
			p.Health = p.MaxHealth
		}
		p.Shield += cfg.ShieldPerTick
		if p.Shield > p.MaxShield {
			p.Shield = p.MaxShield
		}
	}

	// NPC shields trickle back when they have been left alone.
	for _, n := range m.Npcs {
		if n.MaxShield > 0 && n.Shield < n.MaxShield &&
			now.Sub(n.LastDamage) >= cfg.OutOfCombatDelay {
			n.Shield += cfg.ShieldPerTick
			if n.Shield > n.MaxShield {
				n.Shield = n.MaxShield
			}
		}
	}
}
