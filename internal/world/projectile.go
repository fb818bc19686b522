package world

import "time"

// Projectile sources.
const (
	SourcePlayer = "player"
	SourcePet    = "pet"
	SourceNpc    = "npc"
)

// Projectile is one in-flight shot. Owned by its Map.
type Projectile struct {
	ID       string
	ShooterID string // clientId or npc id
	Source   string  // player|pet|npc

	X, Y   float64
	VX, VY float64

	Damage         int
	ProjectileType string

	// TargetID is set for homing shots; empty means ballistic.
	TargetID string

	CreatedAt       time.Time
	Lifetime        time.Duration
	InitialDistance float64
}

// Homing reports whether the projectile steers toward a target.
func (p *Projectile) Homing() bool {
	return p.TargetID != ""
}

// Expired reports whether the projectile outlived its lifetime at now.
func (p *Projectile) Expired(now time.Time) bool {
	return now.Sub(p.CreatedAt) >= p.Lifetime
}
