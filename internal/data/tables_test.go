package data

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYaml(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadShipTable(t *testing.T) {
	path := writeYaml(t, "ship_list.yaml", `
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
  - ship_id: corsair
    name: Corsair
    base_health: 80000
    base_shield: 60000
    base_damage: 2400
    base_speed: 460
`)
	ships, err := LoadShipTable(path)
	require.NoError(t, err)
	assert.Equal(t, 2, ships.Count())
	assert.Equal(t, "vanguard", ships.Default().ShipID, "the first entry is the starter hull")
	assert.Nil(t, ships.Get("no_such_hull"))
}

func TestLoadShipTableEmptyFails(t *testing.T) {
	_, err := LoadShipTable(writeYaml(t, "ship_list.yaml", "ships: []"))
	assert.Error(t, err)
}

func TestDerive(t *testing.T) {
	s := &ShipTemplate{
		BaseHealth: 100000, BaseShield: 50000, BaseDamage: 2000, BaseSpeed: 420,
		DamagePerLevel: 0.05, HealthPerLevel: 0.05, ShieldPerLevel: 0.05,
	}

	base := s.Derive(0, 0, 0)
	assert.Equal(t, 100000, base.MaxHealth)
	assert.Equal(t, 2000, base.Damage)
	assert.Equal(t, 420.0, base.Speed)

	upgraded := s.Derive(2, 1, 3)
	assert.Equal(t, 2200, upgraded.Damage)
	assert.Equal(t, 105000, upgraded.MaxHealth)
	assert.Equal(t, 57500, upgraded.MaxShield)

	assert.Equal(t, base, s.Derive(-1, -1, -1), "negative levels clamp to zero")
}

func TestRankFor(t *testing.T) {
	ladder, err := LoadRankLadder(writeYaml(t, "rank_list.yaml", `
ranks:
  - rank: 1
    title: Ensign
    min_xp: 5000
  - rank: 0
    title: Recruit
    min_xp: 0
  - rank: 2
    title: Captain
    min_xp: 20000
`))
	require.NoError(t, err)

	tests := []struct {
		xp   int64
		rank int
	}{
		{0, 0},
		{4999, 0},
		{5000, 1},
		{19999, 1},
		{20000, 2},
		{1 << 40, 2},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.rank, ladder.RankFor(tc.xp).Rank, "xp=%d", tc.xp)
	}
}

func TestDropRoll(t *testing.T) {
	drops, err := LoadDropTable(writeYaml(t, "drop_list.yaml", `
tables:
  - table_id: cache
    entries:
      - item_id: common_scrap
        min: 2
        max: 5
        chance: 0.2
      - item_id: rare_core
        min: 1
        max: 1
        chance: 0.05
  - table_id: empty
    entries: []
`))
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(42))

	counts := map[string]int{}
	misses := 0
	for i := 0; i < 2000; i++ {
		e, qty := drops.Roll("cache", rng)
		if e == nil {
			misses++
			continue
		}
		counts[e.ItemID]++
		assert.GreaterOrEqual(t, qty, e.Min)
		if e.Max >= 1 {
			assert.LessOrEqual(t, qty, e.Max)
		}
	}
	// Chances are absolute: 20% + 5% drop, the remaining 75% of rolls yield
	// nothing at all.
	assert.Greater(t, counts["common_scrap"], 300)
	assert.Less(t, counts["common_scrap"], 500)
	assert.Greater(t, counts["rare_core"], 50)
	assert.Less(t, counts["rare_core"], 160)
	assert.Greater(t, misses, 1350)
}

func TestDropRollDegenerateGroups(t *testing.T) {
	drops, err := LoadDropTable(writeYaml(t, "drop_list.yaml", `
tables:
  - table_id: chanceless
    entries:
      - item_id: ghost
        min: 1
        max: 1
        chance: 0
`))
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))

	e, qty := drops.Roll("no_such_table", rng)
	assert.Nil(t, e)
	assert.Zero(t, qty)

	e, _ = drops.Roll("chanceless", rng)
	assert.Nil(t, e, "a zero-chance group never drops")
}

func TestDropRollQuantityFloor(t *testing.T) {
	drops, err := LoadDropTable(writeYaml(t, "drop_list.yaml", `
tables:
  - table_id: cache
    entries:
      - item_id: lone
        min: 0
        max: 0
        chance: 1
`))
	require.NoError(t, err)

	e, qty := drops.Roll("cache", rand.New(rand.NewSource(7)))
	require.NotNil(t, e)
	assert.Equal(t, 1, qty, "a winning roll always yields at least one item")
}
