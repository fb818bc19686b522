package system

import (
	"fmt"
	"time"

	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
	"go.uber.org/zap"
)

// DeathObserver is notified after an entity dies. Observers register
// explicitly; there is no implicit hook wrapping.
type DeathObserver interface {
	OnNpcDeath(m *world.Map, n *world.Npc, killerClientID, killOpID string)
	OnPlayerDeath(m *world.Map, p *world.Player, killerID string)
}

// DamageResolver applies shield-first damage and drives the death pipeline:
// rewards, cargo spawn, respawn scheduling, combat cleanup.
type DamageResolver struct {
	env     *Env
	combat  *CombatManager
	rewards *RewardGrant
	cargo   *CargoManager
	respawn *RespawnSystem

	observers []DeathObserver
}

func NewDamageResolver(env *Env) *DamageResolver {
	return &DamageResolver{env: env}
}

// Wire connects the resolver to its per-map collaborators. Called once
// during map setup, before the first tick.
func (d *DamageResolver) Wire(combat *CombatManager, rewards *RewardGrant, cargo *CargoManager, respawn *RespawnSystem) {
	d.combat = combat
	d.rewards = rewards
	d.cargo = cargo
	d.respawn = respawn
}

// Observe registers a death observer.
func (d *DamageResolver) Observe(o DeathObserver) {
	d.observers = append(d.observers, o)
}

// DamageNpc applies damage to an NPC. attackerClientID is the responsible
// player's clientId, or empty for environmental damage.
func (d *DamageResolver) DamageNpc(m *world.Map, n *world.Npc, damage int, attackerClientID string, now time.Time) {
	shieldAbsorbed, healthDamage := n.ApplyDamageShieldFirst(damage)
	n.LastDamage = now
	if attackerClientID != "" {
		n.LastAttackerID = attackerClientID
	}

	d.env.Bc.ToMap(m, &wire.EntityDamaged{
		Type:       wire.TypeEntityDamaged,
		EntityID:   n.ID,
		EntityType: "npc",
		Damage:     shieldAbsorbed + healthDamage,
		NewHealth:  n.Health,
		NewShield:  n.Shield,
	}, "")

	if n.Health <= 0 {
		d.killNpc(m, n, attackerClientID, now)
	}
}

func (d *DamageResolver) killNpc(m *world.Map, n *world.Npc, killerClientID string, now time.Time) {
	m.RemoveNpc(n.ID)
	d.combat.TargetRemoved(m, n.ID, now)
	d.respawn.Schedule(n.Template.TypeID, now)

	killOpID := fmt.Sprintf("kill_%s_%d", n.ID, now.UnixNano())
	if killer := m.Player(killerClientID); killer != nil {
		d.rewards.Grant(m, killer, n, killOpID, now)
	}
	d.cargo.SpawnOnDeath(m, n, killerClientID, now)

	d.env.Bc.ToMap(m, &wire.EntityDestroyed{
		Type:       wire.TypeEntityDestroyed,
		EntityID:   n.ID,
		EntityType: "npc",
		KillerID:   killerClientID,
	}, "")
	d.env.Bc.ToMap(m, &wire.NpcLeft{Type: wire.TypeNpcLeft, NpcID: n.ID}, "")

	for _, o := range d.observers {
		o.OnNpcDeath(m, n, killerClientID, killOpID)
	}
}

// DamagePlayer applies damage to a player. attackerID is the NPC or player
// id responsible, or empty for hazards.
func (d *DamageResolver) DamagePlayer(m *world.Map, p *world.Player, damage int, attackerID string, now time.Time) {
	if p.IsDead {
		return
	}
	shieldAbsorbed, healthDamage := p.ApplyDamageShieldFirst(damage)
	p.LastDamage = now

	d.env.Bc.ToMap(m, &wire.EntityDamaged{
		Type:       wire.TypeEntityDamaged,
		EntityID:   p.ClientID,
		EntityType: "player",
		Damage:     shieldAbsorbed + healthDamage,
		NewHealth:  p.Health,
		NewShield:  p.Shield,
	}, "")

	if p.Health <= 0 {
		d.killPlayer(m, p, attackerID, now)
	}
}

func (d *DamageResolver) killPlayer(m *world.Map, p *world.Player, killerID string, now time.Time) {
	p.IsDead = true
	p.VX, p.VY = 0, 0
	d.combat.Stop(m, p, now)
	p.Collecting = nil
	p.Repairing = nil

	// Attackers forget a dead target so respawned players start clean.
	for _, n := range m.Npcs {
		if n.LastAttackerID == p.ClientID {
			n.LastAttackerID = ""
		}
	}

	d.env.Bc.ToMap(m, &wire.PlayerDeath{
		Type:     wire.TypePlayerDeath,
		ClientID: p.ClientID,
		KillerID: killerID,
	}, "")
	m.Log.Info("player died",
		zap.String("client", p.ClientID),
		zap.String("killer", killerID))

	for _, o := range d.observers {
		o.OnPlayerDeath(m, p, killerID)
	}
}
