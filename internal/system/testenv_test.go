package system

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/starfall/server/internal/config"
	"github.com/starfall/server/internal/crash"
	"github.com/starfall/server/internal/data"
	"github.com/starfall/server/internal/metrics"
	"github.com/starfall/server/internal/persist"
	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const shipFixture = `
ships:
  - ship_id: vanguard
    name: Vanguard
    base_health: 100000
    base_shield: 50000
    base_damage: 2000
    base_speed: 420
    damage_per_level: 0.05
    health_per_level: 0.05
    shield_per_level: 0.05
`

const npcFixture = `
npcs:
  - type_id: raider
    name: Raider
    max_health: 16000
    max_shield: 3000
    damage: 800
    cruise_speed: 160
    chase_speed: 320
    flee_speed: 340
    aggro_radius: 1400
    attack_range: 900
    flee_threshold: 0.2
    aggressive: true
    reward_credits: 1200
    reward_exp: 500
    reward_honor: 20
    drop_chance: 1.0
    drop_table: raider_cache
    cargo_resources: [ore]
    cargo_min: 4
    cargo_max: 10
  - type_id: drifter
    name: Drifter
    max_health: 8000
    damage: 300
    cruise_speed: 120
    chase_speed: 220
    flee_speed: 260
    aggro_radius: 900
    attack_range: 700
    flee_threshold: 0.25
    aggressive: false
    reward_credits: 400
    reward_exp: 150
    reward_honor: 5
    drop_chance: 0
    cargo_resources: []
`

const dropFixture = `
tables:
  - table_id: raider_cache
    entries:
      - item_id: coil_fragment
        name: Coil Fragment
        min: 1
        max: 2
        chance: 1
`

const rankFixture = `
ranks:
  - rank: 0
    title: Recruit
    min_xp: 0
  - rank: 1
    title: Ensign
    min_xp: 5000
`

const mapFixture = `
maps:
  - map_id: testmap
    name: Test Reach
    half_extent: 25000
    npc_budget: 0
    npc_types: [raider]
    hazards:
      - x: 20000
        y: 20000
        radius: 1000
        damage_per_sec: 200
`

func writeFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	dir := t.TempDir()
	log := zap.NewNop()

	ships, err := data.LoadShipTable(writeFixture(t, dir, "ship_list.yaml", shipFixture))
	require.NoError(t, err)
	npcs, err := data.LoadNpcTable(writeFixture(t, dir, "npc_list.yaml", npcFixture))
	require.NoError(t, err)
	drops, err := data.LoadDropTable(writeFixture(t, dir, "drop_list.yaml", dropFixture))
	require.NoError(t, err)
	ranks, err := data.LoadRankLadder(writeFixture(t, dir, "rank_list.yaml", rankFixture))
	require.NoError(t, err)

	return &Env{
		Cfg:      config.Defaults(),
		Ships:    ships,
		NpcTypes: npcs,
		Drops:    drops,
		Ranks:    ranks,
		Lua:      nil, // formula fallbacks
		Bc:       world.NewBroadcaster(log),
		Spatial:  world.LinearSpatial{},
		Saves:    persist.NewQueue(persist.NewMemStore(), 64, 1, log, persist.QueueStats{}),
		Crash:    crash.NewReporter(t.TempDir(), log),
		Metrics:  metrics.New(prometheus.NewRegistry()),
		Log:      log,
	}
}

func newTestMap(t *testing.T, env *Env) *world.Map {
	t.Helper()
	maps, err := data.LoadMapTable(writeFixture(t, t.TempDir(), "map_list.yaml", mapFixture))
	require.NoError(t, err)
	return world.NewMap(maps.Get("testmap"), 16, zap.NewNop())
}

// fixture wires the per-map systems the way map setup does.
type fixture struct {
	env     *Env
	m       *world.Map
	ai      *NpcAi
	combat  *CombatManager
	proj    *ProjectileEngine
	damage  *DamageResolver
	rewards *RewardGrant
	cargo   *CargoManager
	hazard  *HazardSystem
	repair  *RepairSystem
	respawn *RespawnSystem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := newTestEnv(t)
	f := &fixture{
		env:     env,
		m:       newTestMap(t, env),
		ai:      NewNpcAi(env),
		combat:  NewCombatManager(env),
		proj:    NewProjectileEngine(env),
		damage:  NewDamageResolver(env),
		rewards: NewRewardGrant(env),
		cargo:   NewCargoManager(env),
		hazard:  NewHazardSystem(env),
		repair:  NewRepairSystem(env),
		respawn: NewRespawnSystem(env),
	}
	f.damage.Wire(f.combat, f.rewards, f.cargo, f.respawn)
	f.proj.Wire(f.damage, f.combat)
	f.hazard.Wire(f.damage)
	f.repair.Wire(f.combat)
	return f
}

func (f *fixture) addPlayer(t *testing.T, id string, x, y float64) *world.Player {
	t.Helper()
	p := newTestPlayer(id, f.env)
	p.X, p.Y = x, y
	f.m.AddPlayer(p)
	return p
}

func (f *fixture) addNpc(t *testing.T, typeID string, x, y float64) *world.Npc {
	t.Helper()
	tpl := f.env.NpcTypes.Get(typeID)
	require.NotNil(t, tpl)
	return f.m.SpawnNpc(tpl, x, y)
}

// fakeClient records every frame sent to it.
type fakeClient struct {
	id     string
	frames [][]byte
	closed bool
}

func (c *fakeClient) ClientID() string    { return c.id }
func (c *fakeClient) Authenticated() bool { return true }
func (c *fakeClient) Closed() bool        { return c.closed }

func (c *fakeClient) Send(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	c.frames = append(c.frames, raw)
}

func (c *fakeClient) SendRaw(b []byte) {
	c.frames = append(c.frames, append([]byte(nil), b...))
}

// sentTypes returns the type discriminators of every recorded frame.
func (c *fakeClient) sentTypes() []string {
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		tp, _ := wire.PeekType(f)
		out = append(out, tp)
	}
	return out
}

// lastOfType decodes the most recent frame with the given discriminator.
func (c *fakeClient) lastOfType(t *testing.T, msgType string) map[string]any {
	t.Helper()
	for i := len(c.frames) - 1; i >= 0; i-- {
		tp, _ := wire.PeekType(c.frames[i])
		if tp != msgType {
			continue
		}
		var out map[string]any
		require.NoError(t, json.Unmarshal(c.frames[i], &out))
		return out
	}
	t.Fatalf("no %s frame sent to %s", msgType, c.id)
	return nil
}

func (c *fakeClient) sentCount(msgType string) int {
	n := 0
	for _, tp := range c.sentTypes() {
		if tp == msgType {
			n++
		}
	}
	return n
}

func newTestPlayer(id string, env *Env) *world.Player {
	ship := env.Ships.Default()
	stats := ship.Derive(0, 0, 0)
	return &world.Player{
		ClientID:      id,
		UserID:        "user-" + id,
		PlayerDbID:    1,
		Nickname:      id,
		ShipID:        ship.ShipID,
		Conn:          &fakeClient{id: id},
		MaxHealth:     stats.MaxHealth,
		Health:        stats.MaxHealth,
		MaxShield:     stats.MaxShield,
		Shield:        stats.MaxShield,
		Damage:        stats.Damage,
		Speed:         stats.Speed,
		RecentKillOps: world.NewOpRing(300),
	}
}
