package world

import (
	"time"

	"github.com/starfall/server/internal/data"
)

// Behavior names for the NPC state machine.
const (
	BehaviorCruise     = "cruise"
	BehaviorAggressive = "aggressive"
	BehaviorFlee       = "flee"
)

// Npc is one live NPC. Owned by its Map; tick-goroutine access only.
type Npc struct {
	ID       string
	Template *data.NpcTemplate

	X, Y     float64
	Rotation float64
	VX, VY   float64

	Health    int
	MaxHealth int
	Shield    int
	MaxShield int

	Behavior string

	// Combat memory driving the behavior switcher.
	LastAttackerID    string // clientId of the last player that hit us
	LastDamage        time.Time
	LastPlayerInRange time.Time
}

// NewNpc builds an NPC at a position from its template.
func NewNpc(id string, tpl *data.NpcTemplate, x, y float64) *Npc {
	return &Npc{
		ID:        id,
		Template:  tpl,
		X:         x,
		Y:         y,
		Health:    tpl.MaxHealth,
		MaxHealth: tpl.MaxHealth,
		Shield:    tpl.MaxShield,
		MaxShield: tpl.MaxShield,
		Behavior:  BehaviorCruise,
	}
}

// ApplyDamageShieldFirst burns shield before health and returns the split.
func (n *Npc) ApplyDamageShieldFirst(damage int) (shieldAbsorbed, healthDamage int) {
	if damage < 0 {
		damage = 0
	}
	shieldAbsorbed = damage
	if shieldAbsorbed > n.Shield {
		shieldAbsorbed = n.Shield
	}
	n.Shield -= shieldAbsorbed
	healthDamage = damage - shieldAbsorbed
	if healthDamage > n.Health {
		healthDamage = n.Health
	}
	n.Health -= healthDamage
	return shieldAbsorbed, healthDamage
}
