package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeScript(t *testing.T, dir, sub, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, sub, name), []byte(body), 0o644))
}

func newEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestCalcProjectileDamageFromScript(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "combat", "damage.lua", `
function calc_projectile_damage(ctx)
  local dmg = ctx.base_damage * (1 + ctx.damage_upgrades * ctx.damage_per_level)
  if ctx.target_is_npc then
    dmg = dmg * 1.5
  end
  return dmg
end
`)
	e := newEngine(t, dir)

	ctx := ProjectileDamageContext{BaseDamage: 2000, DamageUpgrades: 2, DamagePerLevel: 0.05}
	assert.Equal(t, 2200, e.CalcProjectileDamage(ctx))

	ctx.TargetIsNpc = true
	assert.Equal(t, 3300, e.CalcProjectileDamage(ctx))
}

func TestCalcProjectileDamageFallbacks(t *testing.T) {
	ctx := ProjectileDamageContext{BaseDamage: 2000, DamageUpgrades: 1, DamagePerLevel: 0.05}

	// nil engine: the linear formula applies.
	var nilEngine *Engine
	assert.Equal(t, 2100, nilEngine.CalcProjectileDamage(ctx))

	// loaded VM without the function: same fallback.
	e := newEngine(t, t.TempDir())
	assert.Equal(t, 2100, e.CalcProjectileDamage(ctx))

	// a script returning nonsense cannot produce negative damage.
	dir := t.TempDir()
	writeScript(t, dir, "combat", "damage.lua", `
function calc_projectile_damage(ctx)
  return -99
end
`)
	assert.Equal(t, 2100, newEngine(t, dir).CalcProjectileDamage(ctx))
}

func TestCalcKillRewardsFromScript(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "economy", "rewards.lua", `
function calc_kill_rewards(npc_type, killer_rank)
  if npc_type == "raider" then
    return { credits = 2, experience = 1.5, honor = 1 }
  end
  return { credits = 1, experience = 1, honor = 1 }
end
`)
	e := newEngine(t, dir)

	r := e.CalcKillRewards("raider", 3)
	assert.Equal(t, 2.0, r.Credits)
	assert.Equal(t, 1.5, r.Experience)
	assert.Equal(t, 1.0, r.Honor)

	r = e.CalcKillRewards("drifter", 3)
	assert.Equal(t, KillRewards{Credits: 1, Experience: 1, Honor: 1}, r)
}

func TestCalcKillRewardsGuards(t *testing.T) {
	var nilEngine *Engine
	unit := KillRewards{Credits: 1, Experience: 1, Honor: 1}
	assert.Equal(t, unit, nilEngine.CalcKillRewards("raider", 0))

	// zero or negative multipliers from a script are clamped to unit.
	dir := t.TempDir()
	writeScript(t, dir, "economy", "rewards.lua", `
function calc_kill_rewards(npc_type, killer_rank)
  return { credits = 0, experience = -5, honor = 3 }
end
`)
	r := newEngine(t, dir).CalcKillRewards("raider", 0)
	assert.Equal(t, KillRewards{Credits: 1, Experience: 1, Honor: 3}, r)
}

// One engine is shared across map goroutines; concurrent calls must stay
// serialized and keep returning correct results.
func TestEngineConcurrentCalls(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "combat", "damage.lua", `
function calc_projectile_damage(ctx)
  return ctx.base_damage * 2
end
`)
	writeScript(t, dir, "economy", "rewards.lua", `
function calc_kill_rewards(npc_type, killer_rank)
  return { credits = 2, experience = 2, honor = 2 }
end
`)
	e := newEngine(t, dir)

	var wg sync.WaitGroup
	errs := make(chan string, 4)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if got := e.CalcProjectileDamage(ProjectileDamageContext{BaseDamage: 500}); got != 1000 {
					errs <- fmt.Sprintf("damage = %d", got)
					return
				}
				if r := e.CalcKillRewards("raider", 1); r.Credits != 2 {
					errs <- fmt.Sprintf("credits = %v", r.Credits)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}

func TestNewEngineRejectsBrokenScript(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "combat", "bad.lua", "function broken(")
	_, err := NewEngine(dir, zap.NewNop())
	assert.Error(t, err)
}

func TestNewEngineSkipsMissingDirs(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "nope"), zap.NewNop())
	require.NoError(t, err)
	e.Close()
}
