package system

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/starfall/server/internal/persist"
	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
	"go.uber.org/zap"
)

// Runner owns one map's tick loop. All simulation state for the map is
// mutated here and nowhere else; cross-goroutine work arrives through the
// map's Inbox and Commands channels.
type Runner struct {
	Env    *Env
	Map    *world.Map
	Router *wire.Router

	Movement    *Movement
	Ai          *NpcAi
	Combat      *CombatManager
	Projectiles *ProjectileEngine
	Damage      *DamageResolver
	Rewards     *RewardGrant
	Cargo       *CargoManager
	Hazard      *HazardSystem
	Repair      *RepairSystem
	Respawn     *RespawnSystem

	lastSave time.Time
}

// NewRunner builds the full per-map system suite and wires the circular
// collaborations.
func NewRunner(env *Env, m *world.Map, router *wire.Router) *Runner {
	r := &Runner{
		Env:    env,
		Map:    m,
		Router: router,

		Movement:    NewMovement(env),
		Ai:          NewNpcAi(env),
		Combat:      NewCombatManager(env),
		Projectiles: NewProjectileEngine(env),
		Damage:      NewDamageResolver(env),
		Rewards:     NewRewardGrant(env),
		Cargo:       NewCargoManager(env),
		Hazard:      NewHazardSystem(env),
		Repair:      NewRepairSystem(env),
		Respawn:     NewRespawnSystem(env),
	}
	r.Damage.Wire(r.Combat, r.Rewards, r.Cargo, r.Respawn)
	r.Projectiles.Wire(r.Damage, r.Combat)
	r.Hazard.Wire(r.Damage)
	r.Repair.Wire(r.Combat)
	return r
}

// Seed spawns the map's initial NPC population, cycling through the map's
// configured types up to its budget.
func (r *Runner) Seed() {
	m := r.Map
	if len(m.Info.NpcTypes) == 0 || m.Info.NpcBudget <= 0 {
		return
	}
	h := m.Info.HalfExtent
	for i := 0; i < m.Info.NpcBudget; i++ {
		typeID := m.Info.NpcTypes[i%len(m.Info.NpcTypes)]
		tpl := r.Env.NpcTypes.Get(typeID)
		if tpl == nil {
			m.Log.Warn("unknown npc type in map config", zap.String("type", typeID))
			continue
		}
		x := (m.Rng.Float64()*2 - 1) * h
		y := (m.Rng.Float64()*2 - 1) * h
		m.SpawnNpc(tpl, x, y)
	}
	m.Log.Info("seeded npcs", zap.Int("count", len(m.Npcs)))
}

// Run drives the tick loop until the context is cancelled. A tick that
// overruns the interval is counted and the next one fires as soon as the
// ticker allows; ticks are never batched.
func (r *Runner) Run(ctx context.Context) {
	interval := r.Env.Cfg.Game.TickRate
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.lastSave = time.Now()
	r.Map.Log.Info("tick loop started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return
		case <-ticker.C:
			start := time.Now()
			r.safeTick(start)
			took := time.Since(start)
			r.Env.Metrics.TickDuration.WithLabelValues(r.Map.ID).Observe(took.Seconds())
			if took > interval {
				r.Env.Metrics.TickOverruns.WithLabelValues(r.Map.ID).Inc()
				r.Map.Log.Warn("tick overrun",
					zap.Duration("took", took), zap.Duration("interval", interval))
			}
		}
	}
}

// safeTick recovers a panicking tick so one bad frame or entity cannot take
// the whole map down.
func (r *Runner) safeTick(now time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			stack := debug.Stack()
			r.Map.Log.Error("panic in tick", zap.Any("panic", rec))
			if r.Env.Crash != nil {
				r.Env.Crash.ReportPanic("tick:"+r.Map.ID, rec, stack)
			}
		}
	}()
	r.tick(now)
}

func (r *Runner) tick(now time.Time) {
	m := r.Map
	m.Tick++
	dt := r.Env.Cfg.Game.TickRate.Seconds()

	r.drainCommands()
	r.drainInbox()

	r.Movement.Update(m, now)
	r.Ai.Update(m, now, dt)
	r.Combat.Update(m, now)
	r.Projectiles.Update(m, now, dt)
	r.Cargo.Update(m, now)
	r.Hazard.Update(m, now, dt)
	r.Repair.Update(m, now)
	r.Respawn.Update(m, now)

	r.broadcastNpcs(now)
	r.updateGauges()

	if now.Sub(r.lastSave) >= r.Env.Cfg.Game.SaveInterval {
		r.lastSave = now
		r.saveAll("periodic")
	}
}

// drainCommands runs every queued cross-goroutine mutation (join attach,
// disconnect cleanup, map migration) before frames are dispatched.
func (r *Runner) drainCommands() {
	for {
		select {
		case cmd := <-r.Map.Commands:
			cmd(r.Map)
		default:
			return
		}
	}
}

// drainInbox dispatches queued client frames in arrival order, bounded per
// tick so a flood cannot starve the simulation.
func (r *Runner) drainInbox() {
	limit := r.Env.Cfg.Network.MaxFramesPerTick
	if limit <= 0 {
		limit = 64
	}
	for i := 0; i < limit; i++ {
		select {
		case f := <-r.Map.Inbox:
			r.Router.Dispatch(f.Client, f.Raw)
		default:
			return
		}
	}
}

// broadcastNpcs ships the compact per-tick NPC delta to everyone on the map.
func (r *Runner) broadcastNpcs(now time.Time) {
	m := r.Map
	if len(m.Npcs) == 0 || len(m.Players) == 0 {
		return
	}
	states := make([]wire.NpcState, 0, len(m.Npcs))
	for _, n := range m.Npcs {
		states = append(states, wire.NpcState{
			ID:       n.ID,
			X:        n.X,
			Y:        n.Y,
			Rotation: n.Rotation,
			Health:   n.Health,
			Shield:   n.Shield,
			Behavior: n.Behavior,
		})
	}
	raw, err := wire.EncodeNpcBulkUpdate(states, now.UnixMilli())
	if err != nil {
		m.Log.Error("encode npc bulk update", zap.Error(err))
		return
	}
	r.Env.Bc.RawToMap(m, raw, "")
}

func (r *Runner) updateGauges() {
	m := r.Map
	mt := r.Env.Metrics
	mt.Players.WithLabelValues(m.ID).Set(float64(len(m.Players)))
	mt.Npcs.WithLabelValues(m.ID).Set(float64(len(m.Npcs)))
	mt.Projectiles.WithLabelValues(m.ID).Set(float64(len(m.Projectiles)))
	mt.CargoBoxes.WithLabelValues(m.ID).Set(float64(len(m.Boxes)))
}

// saveAll enqueues a snapshot of every player on the map.
func (r *Runner) saveAll(reason string) {
	for _, p := range r.Map.Players {
		r.Env.Saves.Enqueue(persist.SaveRequest{Record: p.ToRecord(), Reason: reason})
	}
}

// shutdown runs once when the loop stops: tell clients, then snapshot
// everyone before the save queue closes.
func (r *Runner) shutdown() {
	m := r.Map
	r.Env.Bc.ToMap(m, &wire.ServerShutdown{
		Type:    wire.TypeServerShutdown,
		Message: "server shutting down",
	}, "")
	r.saveAll("shutdown")
	m.Log.Info("tick loop stopped", zap.Int("players", len(m.Players)))
}
