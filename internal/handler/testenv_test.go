package handler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/starfall/server/internal/auth"
	"github.com/starfall/server/internal/config"
	"github.com/starfall/server/internal/crash"
	"github.com/starfall/server/internal/data"
	"github.com/starfall/server/internal/metrics"
	"github.com/starfall/server/internal/persist"
	"github.com/starfall/server/internal/system"
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
`

func writeFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// newTestDeps builds a one-map world with a static verifier and an in-memory
// store, wired the way main wires production deps.
func newTestDeps(t *testing.T) (*Deps, *system.Runner) {
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
	maps, err := data.LoadMapTable(writeFixture(t, dir, "map_list.yaml", mapFixture))
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.Game.DefaultMap = "testmap"

	env := &system.Env{
		Cfg:      cfg,
		Ships:    ships,
		NpcTypes: npcs,
		Drops:    drops,
		Ranks:    ranks,
		Lua:      nil,
		Bc:       world.NewBroadcaster(log),
		Spatial:  world.LinearSpatial{},
		Saves:    persist.NewQueue(persist.NewMemStore(), 64, 1, log, persist.QueueStats{}),
		Crash:    crash.NewReporter(t.TempDir(), log),
		Metrics:  metrics.New(prometheus.NewRegistry()),
		Log:      log,
	}

	m := world.NewMap(maps.Get("testmap"), 16, log)
	router := wire.NewRouter(log, env.Crash, nil)
	run := system.NewRunner(env, m, router)

	reg := system.NewRegistry()
	reg.Add(run)

	deps := &Deps{
		Cfg:      cfg,
		Env:      env,
		Verifier: auth.StaticVerifier{},
		Store:    persist.NewMemStore(),
		Maps:     reg,
		Log:      log,
	}
	return deps, run
}

// drainCommands runs queued map commands inline, standing in for the tick
// goroutine.
func drainCommands(run *system.Runner) {
	for {
		select {
		case cmd := <-run.Map.Commands:
			cmd(run.Map)
		default:
			return
		}
	}
}

// fakeSession is a connection double recording every outbound frame.
type fakeSession struct {
	id       string
	authed   bool
	closed   bool
	run      *system.Runner
	identity auth.Identity
	frames   [][]byte
}

func (s *fakeSession) ClientID() string        { return s.id }
func (s *fakeSession) Authenticated() bool     { return s.authed }
func (s *fakeSession) Closed() bool            { return s.closed }
func (s *fakeSession) Context() context.Context { return context.Background() }

func (s *fakeSession) Send(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	s.frames = append(s.frames, raw)
}

func (s *fakeSession) SendRaw(b []byte) {
	s.frames = append(s.frames, append([]byte(nil), b...))
}

func (s *fakeSession) Runner() *system.Runner         { return s.run }
func (s *fakeSession) AttachRunner(r *system.Runner)  { s.run = r }
func (s *fakeSession) MarkAuthenticated(id auth.Identity) {
	s.authed = true
	s.identity = id
}

func (s *fakeSession) sentCount(msgType string) int {
	n := 0
	for _, f := range s.frames {
		if tp, _ := wire.PeekType(f); tp == msgType {
			n++
		}
	}
	return n
}

// lastOfType decodes the most recent frame with the given discriminator.
func (s *fakeSession) lastOfType(t *testing.T, msgType string) map[string]any {
	t.Helper()
	for i := len(s.frames) - 1; i >= 0; i-- {
		tp, _ := wire.PeekType(s.frames[i])
		if tp != msgType {
			continue
		}
		var out map[string]any
		require.NoError(t, json.Unmarshal(s.frames[i], &out))
		return out
	}
	t.Fatalf("no %s frame sent to %s", msgType, s.id)
	return nil
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

// join runs the full handshake for a fresh session and returns it with its
// map player.
func join(t *testing.T, deps *Deps, run *system.Runner, id string) (*fakeSession, *world.Player) {
	t.Helper()
	sess := &fakeSession{id: id}
	raw := encode(t, &wire.Join{Type: wire.TypeJoin, AuthToken: "user-" + id, Nickname: id})
	require.NoError(t, Join(deps)(sess, raw))
	drainCommands(run)
	p := run.Map.Player(id)
	require.NotNil(t, p)
	return sess, p
}

// wireCode extracts the code of a coded handler error.
func wireCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	werr, ok := err.(*wire.Error)
	require.True(t, ok, "expected a coded error, got %v", err)
	return werr.Code
}
