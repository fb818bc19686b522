package world

import "time"

// CargoBox is a loot container dropped by a dead NPC. Owned by its Map.
type CargoBox struct {
	ID           string
	X, Y         float64
	ResourceType string
	Quantity     int64
	NpcType      string
	// KillerID is the clientId entitled to the box during the exclusivity
	// window; empty when the kill had no attributable player.
	KillerID       string
	SpawnedAt      time.Time
	ExpiresAt      time.Time
	ExclusiveUntil time.Time

	// CollectorID is the clientId of the player currently channelling a
	// pickup; empty when idle.
	CollectorID string
}

// Expired reports whether the box is past its lifetime.
func (b *CargoBox) Expired(now time.Time) bool {
	return now.After(b.ExpiresAt)
}

// ExclusiveTo reports whether only the killer may collect at now.
func (b *CargoBox) ExclusiveTo(now time.Time) bool {
	return now.Before(b.ExclusiveUntil)
}
