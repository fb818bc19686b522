package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func addPlayerAt(m *Map, id string, x, y float64, dead bool) *Player {
	p := &Player{ClientID: id, X: x, Y: y, IsDead: dead, Conn: &stubClient{id: id}}
	m.AddPlayer(p)
	return p
}

func TestNearestPlayerSkipsDead(t *testing.T) {
	m := NewMap(testMapInfo(), 8, zap.NewNop())
	s := LinearSpatial{}

	assert.Nil(t, s.NearestPlayer(m, 0, 0))

	addPlayerAt(m, "near_dead", 10, 0, true)
	far := addPlayerAt(m, "far_alive", 500, 0, false)

	got := s.NearestPlayer(m, 0, 0)
	assert.Same(t, far, got, "dead players are invisible to queries")
}

func TestPlayersWithin(t *testing.T) {
	m := NewMap(testMapInfo(), 8, zap.NewNop())
	s := LinearSpatial{}

	addPlayerAt(m, "a", 0, 0, false)
	addPlayerAt(m, "b", 99, 0, false)
	addPlayerAt(m, "c", 101, 0, false)
	addPlayerAt(m, "d", 50, 0, true)

	got := s.PlayersWithin(m, 0, 0, 100)
	ids := make(map[string]bool)
	for _, p := range got {
		ids[p.ClientID] = true
	}
	assert.Len(t, got, 2)
	assert.True(t, ids["a"])
	assert.True(t, ids["b"])
}

func TestAnyPlayerWithin(t *testing.T) {
	m := NewMap(testMapInfo(), 8, zap.NewNop())
	s := LinearSpatial{}

	assert.False(t, s.AnyPlayerWithin(m, 0, 0, 1000))
	addPlayerAt(m, "a", 300, 400, false) // dist 500
	assert.True(t, s.AnyPlayerWithin(m, 0, 0, 500))
	assert.False(t, s.AnyPlayerWithin(m, 0, 0, 499))
}

func TestDistSq(t *testing.T) {
	assert.Equal(t, 25.0, DistSq(0, 0, 3, 4))
	assert.Equal(t, 5.0, Dist(0, 0, 3, 4))
	assert.Equal(t, 0.0, DistSq(7, -7, 7, -7))
}
