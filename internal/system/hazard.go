package system

import (
	"time"

	"github.com/starfall/server/internal/world"
)

// HazardSystem applies damage-over-time while players sit inside a map's
// hazard regions. Fractional damage accumulates across ticks so low rates
// still land.
type HazardSystem struct {
	env    *Env
	damage *DamageResolver
	accum  map[string]float64 // pending fractional damage per clientId
}

func NewHazardSystem(env *Env) *HazardSystem {
	return &HazardSystem{env: env, accum: make(map[string]float64)}
}

func (h *HazardSystem) Wire(damage *DamageResolver) {
	h.damage = damage
}

// Update accumulates hazard damage for every player inside a region.
func (h *HazardSystem) Update(m *world.Map, now time.Time, dt float64) {
	if len(m.Info.Hazards) == 0 {
		return
	}
	for _, p := range m.Players {
		if p.IsDead {
			delete(h.accum, p.ClientID)
			continue
		}
		rate := 0.0
		for i := range m.Info.Hazards {
			hz := &m.Info.Hazards[i]
			if world.DistSq(p.X, p.Y, hz.X, hz.Y) <= hz.Radius*hz.Radius {
				rate += float64(hz.DamagePerSec)
			}
		}
		if rate == 0 {
			delete(h.accum, p.ClientID)
			continue
		}
		h.accum[p.ClientID] += rate * dt
		if whole := int(h.accum[p.ClientID]); whole > 0 {
			h.accum[p.ClientID] -= float64(whole)
			h.damage.DamagePlayer(m, p, whole, "", now)
		}
	}
}

// PlayerLeft clears accumulated state for a departed player.
func (h *HazardSystem) PlayerLeft(clientID string) {
	delete(h.accum, clientID)
}
