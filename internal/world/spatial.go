package world

import "math"

// SpatialQuery answers distance questions about a map's entities. The
// interface exists so the linear scan below can be swapped for a grid
// without touching the systems that ask the questions.
type SpatialQuery interface {
	// NearestPlayer returns the closest live player to (x, y), or nil.
	NearestPlayer(m *Map, x, y float64) *Player
	// PlayersWithin returns players with squared distance ≤ r².
	PlayersWithin(m *Map, x, y, r float64) []*Player
	// AnyPlayerWithin reports whether some live player is within r.
	AnyPlayerWithin(m *Map, x, y, r float64) bool
}

// LinearSpatial is the O(N·M) implementation: fine at current entity
// counts, measured before it is replaced.
type LinearSpatial struct{}

var _ SpatialQuery = LinearSpatial{}

func (LinearSpatial) NearestPlayer(m *Map, x, y float64) *Player {
	var best *Player
	bestD := math.MaxFloat64
	for _, p := range m.Players {
		if p.IsDead {
			continue
		}
		d := DistSq(x, y, p.X, p.Y)
		if d < bestD {
			bestD = d
			best = p
		}
	}
	return best
}

func (LinearSpatial) PlayersWithin(m *Map, x, y, r float64) []*Player {
	r2 := r * r
	var out []*Player
	for _, p := range m.Players {
		if p.IsDead {
			continue
		}
		if DistSq(x, y, p.X, p.Y) <= r2 {
			out = append(out, p)
		}
	}
	return out
}

func (LinearSpatial) AnyPlayerWithin(m *Map, x, y, r float64) bool {
	r2 := r * r
	for _, p := range m.Players {
		if p.IsDead {
			continue
		}
		if DistSq(x, y, p.X, p.Y) <= r2 {
			return true
		}
	}
	return false
}

// DistSq is the squared euclidean distance; callers compare against squared
// radii to avoid the sqrt.
func DistSq(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return dx*dx + dy*dy
}

// Dist is the euclidean distance, for the few places that need the real
// value.
func Dist(x1, y1, x2, y2 float64) float64 {
	return math.Sqrt(DistSq(x1, y1, x2, y2))
}
