package system

import (
	"time"

	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
	"go.uber.org/zap"
)

const (
	npcRespawnDelay  = 10 * time.Second
	respawnSweep     = time.Second
	minPlayerClear   = 1000.0
	placementRetries = 10
)

type respawnEntry struct {
	npcType string
	dueAt   time.Time
}

// RespawnSystem queues dead NPC types and respawns them after a fixed
// delay, sweeping once per second.
type RespawnSystem struct {
	env       *Env
	queue     []respawnEntry
	lastSweep time.Time
}

func NewRespawnSystem(env *Env) *RespawnSystem {
	return &RespawnSystem{env: env}
}

// Schedule enqueues a respawn for the given NPC type.
func (r *RespawnSystem) Schedule(npcType string, now time.Time) {
	r.queue = append(r.queue, respawnEntry{npcType: npcType, dueAt: now.Add(npcRespawnDelay)})
}

// Pending returns the number of queued respawns.
func (r *RespawnSystem) Pending() int {
	return len(r.queue)
}

// Update spawns all due entries. Runs its real work at most once per sweep
// interval.
func (r *RespawnSystem) Update(m *world.Map, now time.Time) {
	if now.Sub(r.lastSweep) < respawnSweep {
		return
	}
	r.lastSweep = now

	remaining := r.queue[:0]
	for _, e := range r.queue {
		if now.Before(e.dueAt) {
			remaining = append(remaining, e)
			continue
		}
		r.spawn(m, e.npcType)
	}
	r.queue = remaining
}

func (r *RespawnSystem) spawn(m *world.Map, npcType string) {
	tpl := r.env.NpcTypes.Get(npcType)
	if tpl == nil {
		m.Log.Warn("respawn for unknown npc type", zap.String("type", npcType))
		return
	}
	x, y := r.pickSpot(m)
	n := m.SpawnNpc(tpl, x, y)

	r.env.Bc.Near(m, x, y, world.GlobalInterestRadius, &wire.NpcSpawn{
		Type:      wire.TypeNpcSpawn,
		NpcID:     n.ID,
		NpcType:   n.Template.TypeID,
		X:         n.X,
		Y:         n.Y,
		Rotation:  n.Rotation,
		Health:    n.Health,
		MaxHealth: n.MaxHealth,
		Shield:    n.Shield,
		MaxShield: n.MaxShield,
		Behavior:  n.Behavior,
	}, "")
	m.Log.Debug("npc respawned", zap.String("npc", n.ID), zap.String("type", npcType))
}

// pickSpot tries for a position at least minPlayerClear from every player;
// after the retry budget it falls back to the central 80% of the world.
func (r *RespawnSystem) pickSpot(m *world.Map) (float64, float64) {
	h := m.Info.HalfExtent
	for i := 0; i < placementRetries; i++ {
		x := (m.Rng.Float64()*2 - 1) * h
		y := (m.Rng.Float64()*2 - 1) * h
		if !r.env.Spatial.AnyPlayerWithin(m, x, y, minPlayerClear) {
			return x, y
		}
	}
	x := (m.Rng.Float64()*2 - 1) * h * 0.8
	y := (m.Rng.Float64()*2 - 1) * h * 0.8
	return x, y
}
