package system

import (
	"testing"
	"time"

	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDamageNpcShieldFirst(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	p := f.addPlayer(t, "c1", 0, 0)
	n := f.addNpc(t, "raider", 100, 0)

	// The template seeds the shield pool; raiders spawn with 3000.
	require.Equal(t, 3000, n.Shield)
	require.Equal(t, 3000, n.MaxShield)

	f.damage.DamageNpc(f.m, n, 3500, p.ClientID, now)
	assert.Equal(t, 0, n.Shield)
	assert.Equal(t, n.MaxHealth-500, n.Health)
	assert.Equal(t, p.ClientID, n.LastAttackerID)
	assert.Equal(t, now, n.LastDamage)

	dmg := p.Conn.(*fakeClient).lastOfType(t, wire.TypeEntityDamaged)
	assert.Equal(t, n.ID, dmg["entityId"])
	assert.Equal(t, "npc", dmg["entityType"])
	assert.Equal(t, float64(3500), dmg["damage"])
	assert.Equal(t, float64(n.Health), dmg["newHealth"])
}

func TestKillNpcPipeline(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	p := f.addPlayer(t, "c1", 0, 0)
	n := f.addNpc(t, "raider", 100, 0)
	require.Nil(t, f.combat.Start(f.m, p, n.ID, now))

	f.damage.DamageNpc(f.m, n, n.Shield+n.MaxHealth, p.ClientID, now)

	assert.Nil(t, f.m.Npcs[n.ID], "dead npc leaves the map")
	assert.Nil(t, f.combat.Session(p.ClientID), "sessions on the target close")
	assert.Equal(t, 1, f.respawn.Pending(), "a replacement is queued")

	// raider: 1200 credits, 500 xp, 20 honor; drop_chance 1 guarantees a box.
	assert.Equal(t, int64(1200), p.Inventory.Credits)
	assert.Equal(t, int64(500), p.Inventory.Experience)
	assert.Equal(t, int64(20), p.Inventory.Honor)
	assert.Len(t, f.m.Boxes, 1)

	conn := p.Conn.(*fakeClient)
	destroyed := conn.lastOfType(t, wire.TypeEntityDestroyed)
	assert.Equal(t, n.ID, destroyed["entityId"])
	assert.Equal(t, p.ClientID, destroyed["killerId"])
	assert.Equal(t, 1, conn.sentCount(wire.TypeNpcLeft))
	assert.Equal(t, 1, conn.sentCount(wire.TypePlayerStateUpdate))
}

func TestKillNpcWithoutAttacker(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	watcher := f.addPlayer(t, "watcher", 0, 0)
	n := f.addNpc(t, "raider", 100, 0)

	f.damage.DamageNpc(f.m, n, n.Shield+n.MaxHealth, "", now)

	assert.Nil(t, f.m.Npcs[n.ID])
	assert.Zero(t, watcher.Inventory.Credits, "environmental kills grant nothing")
	assert.Equal(t, 1, f.respawn.Pending())

	// The box still drops, with no exclusivity holder.
	require.Len(t, f.m.Boxes, 1)
	for _, box := range f.m.Boxes {
		assert.Empty(t, box.KillerID)
	}
}

type recordingObserver struct {
	npcDeaths    []string
	playerDeaths []string
}

func (o *recordingObserver) OnNpcDeath(m *world.Map, n *world.Npc, killerClientID, killOpID string) {
	o.npcDeaths = append(o.npcDeaths, n.ID)
}

func (o *recordingObserver) OnPlayerDeath(m *world.Map, p *world.Player, killerID string) {
	o.playerDeaths = append(o.playerDeaths, p.ClientID)
}

func TestDeathObserversNotified(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	obs := &recordingObserver{}
	f.damage.Observe(obs)

	p := f.addPlayer(t, "c1", 0, 0)
	n := f.addNpc(t, "raider", 100, 0)

	f.damage.DamageNpc(f.m, n, n.Shield+n.MaxHealth, p.ClientID, now)
	require.Len(t, obs.npcDeaths, 1)
	assert.Equal(t, n.ID, obs.npcDeaths[0])

	f.damage.DamagePlayer(f.m, p, p.Shield+p.Health, "npc_1", now)
	require.Len(t, obs.playerDeaths, 1)
	assert.Equal(t, p.ClientID, obs.playerDeaths[0])
}

func TestDamagePlayerDeath(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	p := f.addPlayer(t, "c1", 0, 0)
	n := f.addNpc(t, "raider", 100, 0)
	n.LastAttackerID = p.ClientID
	p.VX, p.VY = 100, 100

	f.damage.DamagePlayer(f.m, p, p.Shield+p.Health, n.ID, now)

	assert.True(t, p.IsDead)
	assert.Zero(t, p.Health)
	assert.Zero(t, p.VX)
	assert.Empty(t, n.LastAttackerID, "npcs forget a dead target")

	death := p.Conn.(*fakeClient).lastOfType(t, wire.TypePlayerDeath)
	assert.Equal(t, p.ClientID, death["clientId"])
	assert.Equal(t, n.ID, death["killerId"])
}

func TestDamagePlayerIgnoresDead(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	p := f.addPlayer(t, "c1", 0, 0)
	p.IsDead = true
	p.Health = 1

	f.damage.DamagePlayer(f.m, p, 9999, "", now)
	assert.Equal(t, 1, p.Health, "dead players take no further damage")
	assert.Zero(t, p.Conn.(*fakeClient).sentCount(wire.TypeEntityDamaged))
}
