package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDamageShieldFirst(t *testing.T) {
	tests := []struct {
		name           string
		shield, health int
		damage         int
		wantAbsorbed   int
		wantHealthDmg  int
		wantShield     int
		wantHealth     int
	}{
		{"all absorbed", 100, 50, 60, 60, 0, 40, 50},
		{"spills to health", 100, 50, 120, 100, 20, 0, 30},
		{"overkill clamps at zero", 10, 20, 999, 10, 20, 0, 0},
		{"negative treated as zero", 10, 20, -5, 0, 0, 10, 20},
		{"zero shield", 0, 40, 15, 0, 15, 0, 25},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &Player{Shield: tc.shield, Health: tc.health}
			absorbed, healthDmg := p.ApplyDamageShieldFirst(tc.damage)
			assert.Equal(t, tc.wantAbsorbed, absorbed)
			assert.Equal(t, tc.wantHealthDmg, healthDmg)
			assert.Equal(t, tc.wantShield, p.Shield)
			assert.Equal(t, tc.wantHealth, p.Health)

			n := &Npc{Shield: tc.shield, Health: tc.health}
			absorbed, healthDmg = n.ApplyDamageShieldFirst(tc.damage)
			assert.Equal(t, tc.wantAbsorbed, absorbed)
			assert.Equal(t, tc.wantHealthDmg, healthDmg)
			assert.Equal(t, tc.wantShield, n.Shield)
			assert.Equal(t, tc.wantHealth, n.Health)
		})
	}
}

func TestInventoryClamp(t *testing.T) {
	inv := Inventory{
		Credits:    -5,
		Experience: 100,
		Honor:      -1,
		Resources:  map[string]int64{"ore": -3, "gas": 7},
	}
	inv.Clamp()
	assert.Equal(t, int64(0), inv.Credits)
	assert.Equal(t, int64(100), inv.Experience)
	assert.Equal(t, int64(0), inv.Honor)
	assert.Equal(t, int64(0), inv.Resources["ore"])
	assert.Equal(t, int64(7), inv.Resources["gas"])
}

func TestRecordRoundTrip(t *testing.T) {
	p := &Player{
		ClientID:   "c1",
		UserID:     "u1",
		PlayerDbID: 42,
		Nickname:   "Nova",
		ShipID:     "vanguard",
		Upgrades:   Upgrades{HP: 1, Shield: 2, Speed: 3, Damage: 4},
		Inventory: Inventory{
			Credits:    100,
			Experience: 5000,
			Resources:  map[string]int64{"ore": 12},
		},
		SelectedSkinID: "flame",
		PodiumRank:     2,
	}

	rec := p.ToRecord()
	// A snapshot must not alias live state.
	rec.Resources["ore"] = 999

	var q Player
	q.FromRecord(p.ToRecord())
	assert.Equal(t, "u1", q.UserID)
	assert.Equal(t, int64(42), q.PlayerDbID)
	assert.Equal(t, p.Upgrades, q.Upgrades)
	assert.Equal(t, int64(100), q.Inventory.Credits)
	assert.Equal(t, int64(12), q.Inventory.Resources["ore"])
	assert.Equal(t, "flame", q.SelectedSkinID)
	assert.Equal(t, 2, q.PodiumRank)
	assert.Equal(t, int64(12), p.Inventory.Resources["ore"], "record mutation must not leak back")
}

func TestEquippedInSlot(t *testing.T) {
	p := &Player{Items: []OwnedItem{
		{ID: "laser", InstanceID: "i1", Slot: "weapon"},
		{ID: "plate", InstanceID: "i2"},
	}}
	got := p.EquippedInSlot("weapon")
	assert.NotNil(t, got)
	assert.Equal(t, "i1", got.InstanceID)
	assert.Nil(t, p.EquippedInSlot("engine"))
	assert.Nil(t, p.EquippedInSlot(""))
}
