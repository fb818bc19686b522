package persist

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no row exists for the requested player.
var ErrNotFound = errors.New("player not found")

// ItemRecord is one owned item row.
type ItemRecord struct {
	ID         string
	InstanceID string
	AcquiredAt time.Time
	Slot       string // empty = not equipped
}

// PlayerRecord is the persisted shape of a player. The simulation owns the
// live copy; records cross the store boundary by value semantics (callers
// pass snapshots, never live pointers shared with the tick loop).
type PlayerRecord struct {
	PlayerDbID int64
	UserID     string
	Nickname   string
	ShipID     string

	UpgradeHP     int
	UpgradeShield int
	UpgradeSpeed  int
	UpgradeDamage int

	Credits          int64
	Cosmos           int64
	Experience       int64
	Honor            int64
	SkillPoints      int64
	SkillPointsTotal int64
	Resources        map[string]int64

	Items []ItemRecord

	SelectedSkinID  string
	UnlockedSkinIDs []string

	IsAdministrator bool
	PodiumRank      int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlayerStore is the persistence port. The tick loop never calls it
// directly; saves go through the bounded Queue and loads happen on the
// session goroutine during the join handshake.
type PlayerStore interface {
	// Load fetches a player by user id; ErrNotFound when absent.
	Load(ctx context.Context, userID string) (*PlayerRecord, error)
	// Create inserts a new player row and fills in PlayerDbID.
	Create(ctx context.Context, rec *PlayerRecord) error
	// Save upserts the full record. reason is an audit tag such as
	// "periodic", "disconnect" or "npc_reward:<killOpId>".
	Save(ctx context.Context, rec *PlayerRecord, reason string) error
	// SaveHonorSnapshot appends one honor ledger row.
	SaveHonorSnapshot(ctx context.Context, userID string, honor int64, source string) error
	// RecentHonorAverage returns the mean snapshot honor over the last
	// n days, 0 when there is no history.
	RecentHonorAverage(ctx context.Context, userID string, days int) (float64, error)
}
