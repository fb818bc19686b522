package system

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/starfall/server/internal/persist"
	"github.com/starfall/server/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGrantAppliesRewardsOnce(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	p := f.addPlayer(t, "c1", 0, 0)
	n := f.addNpc(t, "raider", 100, 0)

	f.rewards.Grant(f.m, p, n, "kill_op_1", now)
	assert.Equal(t, int64(1200), p.Inventory.Credits)
	assert.Equal(t, int64(500), p.Inventory.Experience)
	assert.Equal(t, int64(20), p.Inventory.Honor)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "coil_fragment", p.Items[0].ID)

	// Replays with the same op id must change nothing.
	f.rewards.Grant(f.m, p, n, "kill_op_1", now)
	assert.Equal(t, int64(1200), p.Inventory.Credits)
	assert.Len(t, p.Items, 1)
	assert.Equal(t, 1, p.Conn.(*fakeClient).sentCount(wire.TypePlayerStateUpdate),
		"no second state update on a suppressed grant")

	// A fresh op id grants again.
	f.rewards.Grant(f.m, p, n, "kill_op_2", now)
	assert.Equal(t, int64(2400), p.Inventory.Credits)
}

func TestGrantUpdatesRank(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	p := f.addPlayer(t, "c1", 0, 0)
	n := f.addNpc(t, "raider", 100, 0)
	p.Inventory.Experience = 4600 // 500 more crosses the 5000 step

	require.Zero(t, p.Rank)
	f.rewards.Grant(f.m, p, n, "kill_op_rank", now)
	assert.Equal(t, 1, p.Rank)
}

func TestGrantStateUpdateCarriesRewards(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	p := f.addPlayer(t, "c1", 0, 0)
	n := f.addNpc(t, "raider", 100, 0)

	f.rewards.Grant(f.m, p, n, "kill_op_9", now)

	upd := p.Conn.(*fakeClient).lastOfType(t, wire.TypePlayerStateUpdate)
	assert.Equal(t, "npc_reward", upd["source"])
	earned, ok := upd["rewardsEarned"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "kill_op_9", earned["killOpId"])
	assert.Equal(t, float64(1200), earned["credits"])
	assert.Equal(t, n.ID, earned["npcId"])
}

func TestGrantNoDropTable(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	p := f.addPlayer(t, "c1", 0, 0)
	n := f.addNpc(t, "drifter", 100, 0)

	f.rewards.Grant(f.m, p, n, "kill_op_d", now)
	assert.Equal(t, int64(400), p.Inventory.Credits)
	assert.Empty(t, p.Items, "drifters drop no items")
}

func TestGrantWritesHonorSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := persist.NewMemStore()
	require.NoError(t, store.Create(ctx, &persist.PlayerRecord{
		UserID:    "user-c1",
		Nickname:  "c1",
		ShipID:    "vanguard",
		Resources: map[string]int64{},
	}))
	q := persist.NewQueue(store, 16, 1, zap.NewNop(), persist.QueueStats{})
	q.Start(context.Background())
	f.env.Saves = q

	p := f.addPlayer(t, "c1", 0, 0)
	n := f.addNpc(t, "raider", 100, 0)
	f.rewards.Grant(f.m, p, n, "kill_op_h", time.Now())
	q.Close()

	avg, err := store.RecentHonorAverage(ctx, "user-c1", 7)
	require.NoError(t, err)
	assert.Equal(t, 20.0, avg, "the kill's honor lands in the ledger")
}

func TestScaleReward(t *testing.T) {
	assert.Equal(t, int64(150), scaleReward(100, 1.5))
	assert.Equal(t, int64(100), scaleReward(100, 1))
	assert.Equal(t, int64(-1), scaleReward(100, math.NaN()))
	assert.Equal(t, int64(-1), scaleReward(100, math.Inf(1)))
}

func TestSendStateUpdateSkipsClosedConn(t *testing.T) {
	f := newFixture(t)
	p := f.addPlayer(t, "c1", 0, 0)
	p.Conn.(*fakeClient).closed = true

	SendStateUpdate(p, "test", nil)
	assert.Empty(t, p.Conn.(*fakeClient).frames)
}
