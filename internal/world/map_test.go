package world

import (
	"testing"

	"github.com/starfall/server/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testMapInfo() *data.MapInfo {
	return &data.MapInfo{
		MapID:      "m1",
		Name:       "Test",
		HalfExtent: 1000,
	}
}

func testNpcTemplate() *data.NpcTemplate {
	return &data.NpcTemplate{
		TypeID:      "drone",
		MaxHealth:   500,
		CruiseSpeed: 100,
	}
}

func TestMapPushPositionDropsOldest(t *testing.T) {
	m := NewMap(testMapInfo(), 8, zap.NewNop())
	for i := int64(1); i <= 7; i++ {
		m.PushPosition("c1", PositionInput{Tick: i})
	}
	got := m.DrainPositions("c1")
	require.Len(t, got, 5)
	assert.Equal(t, int64(3), got[0].Tick, "oldest inputs beyond the bound are dropped")
	assert.Equal(t, int64(7), got[4].Tick)

	assert.Nil(t, m.DrainPositions("c1"), "drain clears the queue")
}

func TestMapPostDropsWhenFull(t *testing.T) {
	m := NewMap(testMapInfo(), 2, zap.NewNop())
	f := InboundFrame{Raw: []byte(`{}`)}
	assert.True(t, m.Post(f))
	assert.True(t, m.Post(f))
	assert.False(t, m.Post(f), "a full inbox drops instead of blocking")
}

func TestMapSpawnIDsAreStable(t *testing.T) {
	m := NewMap(testMapInfo(), 8, zap.NewNop())
	tpl := testNpcTemplate()

	n1 := m.SpawnNpc(tpl, 0, 0)
	n2 := m.SpawnNpc(tpl, 10, 10)
	assert.Equal(t, "npc_1", n1.ID)
	assert.Equal(t, "npc_2", n2.ID)

	m.RemoveNpc(n1.ID)
	n3 := m.SpawnNpc(tpl, 0, 0)
	assert.Equal(t, "npc_3", n3.ID, "ids are never reused")

	p1 := m.SpawnProjectile(&Projectile{})
	assert.Equal(t, "proj_1", p1.ID)
	b1 := m.SpawnBox(&CargoBox{})
	assert.Equal(t, "box_1", b1.ID)
}

func TestSpawnNpcSeedsVitalsFromTemplate(t *testing.T) {
	m := NewMap(testMapInfo(), 8, zap.NewNop())
	tpl := testNpcTemplate()
	tpl.MaxShield = 300

	n := m.SpawnNpc(tpl, 0, 0)
	assert.Equal(t, 500, n.Health)
	assert.Equal(t, 500, n.MaxHealth)
	assert.Equal(t, 300, n.Shield)
	assert.Equal(t, 300, n.MaxShield)
}

func TestMapRemovePlayerClearsQueue(t *testing.T) {
	m := NewMap(testMapInfo(), 8, zap.NewNop())
	p := &Player{ClientID: "c1"}
	m.AddPlayer(p)
	m.PushPosition("c1", PositionInput{Tick: 1})

	removed := m.RemovePlayer("c1")
	assert.Same(t, p, removed)
	assert.Nil(t, m.Player("c1"))
	assert.Nil(t, m.DrainPositions("c1"))

	assert.Nil(t, m.RemovePlayer("nope"))
}

func TestReflectIntoBounds(t *testing.T) {
	m := NewMap(testMapInfo(), 8, zap.NewNop())

	tests := []struct {
		name           string
		x, y, vx, vy   float64
		wantX, wantY   float64
		wantVX, wantVY float64
	}{
		{"inside untouched", 500, -500, 10, -10, 500, -500, 10, -10},
		{"right edge reflects vx", 1200, 0, 50, 5, 1000, 0, -50, 5},
		{"left edge reflects vx", -1100, 0, -30, 0, -1000, 0, 30, 0},
		{"bottom edge reflects vy", 0, -1500, 0, -20, 0, -1000, 0, 20},
		{"corner reflects both", 1100, 1100, 10, 10, 1000, 1000, -10, -10},
		{"inward velocity kept", 1200, 0, -50, 0, 1000, 0, -50, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y, vx, vy := m.ReflectIntoBounds(tc.x, tc.y, tc.vx, tc.vy)
			assert.Equal(t, tc.wantX, x)
			assert.Equal(t, tc.wantY, y)
			assert.Equal(t, tc.wantVX, vx)
			assert.Equal(t, tc.wantVY, vy)
		})
	}
}

func TestClampIntoBounds(t *testing.T) {
	m := NewMap(testMapInfo(), 8, zap.NewNop())
	x, y := m.ClampIntoBounds(5000, -5000)
	assert.Equal(t, 1000.0, x)
	assert.Equal(t, -1000.0, y)
	x, y = m.ClampIntoBounds(42, 42)
	assert.Equal(t, 42.0, x)
	assert.Equal(t, 42.0, y)
}
