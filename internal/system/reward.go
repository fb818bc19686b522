package system

import (
	"fmt"
	"math"
	"time"

	"github.com/starfall/server/internal/persist"
	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
	"go.uber.org/zap"
)

// RewardGrant credits a kill to a player exactly once per killOpId. The
// dedupe ring survives for the life of the session, which covers the retry
// window that matters (client reconnect replays).
type RewardGrant struct {
	env *Env
}

func NewRewardGrant(env *Env) *RewardGrant {
	return &RewardGrant{env: env}
}

// Grant applies the NPC's rewards to the killer. Duplicate killOpIds are
// suppressed and recorded; any invalid reward field aborts the whole grant.
func (r *RewardGrant) Grant(m *world.Map, killer *world.Player, n *world.Npc, killOpID string, now time.Time) {
	if killer.RecentKillOps.Contains(killOpID) {
		m.Log.Info("duplicate kill op suppressed",
			zap.String("client", killer.ClientID),
			zap.String("killOpId", killOpID))
		r.env.Crash.Record(killer.ClientID, "loot_duplicate_suppressed", killOpID)
		if r.env.Metrics != nil {
			r.env.Metrics.RewardsDuped.Inc()
		}
		return
	}
	killer.RecentKillOps.Remember(killOpID)

	mult := r.env.Lua.CalcKillRewards(n.Template.TypeID, killer.Rank)
	credits := scaleReward(n.Template.RewardCredits, mult.Credits)
	experience := scaleReward(n.Template.RewardExp, mult.Experience)
	honor := scaleReward(n.Template.RewardHonor, mult.Honor)
	if credits < 0 || experience < 0 || honor < 0 {
		m.Log.Error("invalid reward values, aborting grant",
			zap.String("npcType", n.Template.TypeID),
			zap.String("killOpId", killOpID),
			zap.Int64("credits", credits),
			zap.Int64("experience", experience),
			zap.Int64("honor", honor))
		return
	}

	killer.Inventory.Credits += credits
	killer.Inventory.Experience += experience
	killer.Inventory.Honor += honor
	killer.Inventory.Clamp()
	killer.Rank = r.env.Ranks.RankFor(killer.Inventory.Experience).Rank

	rewards := &wire.RewardsEarned{
		Credits:    credits,
		Experience: experience,
		Honor:      honor,
		KillOpID:   killOpID,
		NpcID:      n.ID,
	}

	// At most one item per kill: a single roll over the shuffled drop
	// group's absolute chance windows, which may yield nothing.
	if n.Template.DropTable != "" {
		if entry, qty := r.env.Drops.Roll(n.Template.DropTable, m.Rng); entry != nil && qty > 0 {
			item := world.OwnedItem{
				ID:         entry.ItemID,
				InstanceID: fmt.Sprintf("%s_%d", entry.ItemID, now.UnixNano()),
				AcquiredAt: now,
			}
			killer.Items = append(killer.Items, item)
			rewards.ItemID = entry.ItemID
		}
	}

	if r.env.Metrics != nil {
		r.env.Metrics.RewardsGranted.Inc()
	}

	SendStateUpdate(killer, "npc_reward", rewards)

	req := persist.SaveRequest{
		Record: killer.ToRecord(),
		Reason: "npc_reward:" + killOpID,
	}
	if honor > 0 {
		req.HonorSource = "npc_reward"
	}
	r.env.Saves.Enqueue(req)
}

// scaleReward applies a multiplier, guarding against non-finite results.
func scaleReward(base int64, mult float64) int64 {
	v := float64(base) * mult
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return -1
	}
	return int64(v)
}

// SendStateUpdate pushes the player's full inventory snapshot to their own
// client.
func SendStateUpdate(p *world.Player, source string, rewards *wire.RewardsEarned) {
	if p.Conn == nil || p.Conn.Closed() {
		return
	}
	msg := &wire.PlayerStateUpdate{
		Type: wire.TypePlayerStateUpdate,
		Inventory: wire.Inventory{
			Credits:          p.Inventory.Credits,
			Cosmos:           p.Inventory.Cosmos,
			Experience:       p.Inventory.Experience,
			Honor:            p.Inventory.Honor,
			SkillPoints:      p.Inventory.SkillPoints,
			SkillPointsTotal: p.Inventory.SkillPointsTotal,
			Resources:        p.Inventory.Resources,
		},
		Upgrades: wire.Upgrades{
			HP:     p.Upgrades.HP,
			Shield: p.Upgrades.Shield,
			Speed:  p.Upgrades.Speed,
			Damage: p.Upgrades.Damage,
		},
		RecentHonor:   p.RecentHonor,
		Source:        source,
		RewardsEarned: rewards,
	}
	for _, it := range p.Items {
		msg.Items = append(msg.Items, wire.Item{
			ID:         it.ID,
			InstanceID: it.InstanceID,
			AcquiredAt: it.AcquiredAt.UnixMilli(),
			Slot:       it.Slot,
		})
	}
	p.Conn.Send(msg)
}
