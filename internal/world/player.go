package world

import (
	"time"

	"github.com/starfall/server/internal/persist"
)

// Client is the connection-side surface the simulation needs. The concrete
// session lives in internal/net; the world only sees stable IDs and a
// best-effort send.
type Client interface {
	ClientID() string
	Authenticated() bool
	// Send marshals and queues one frame; drops when the socket is closed
	// or the queue is full.
	Send(v any)
	// SendRaw queues a pre-marshaled frame (serialize-once broadcasts).
	SendRaw(b []byte)
	Closed() bool
}

// Upgrades are the player's purchased levels per stat.
type Upgrades struct {
	HP     int
	Shield int
	Speed  int
	Damage int
}

// Inventory is the player's currency purse. All fields stay non-negative;
// mutations go through Clamp.
type Inventory struct {
	Credits          int64
	Cosmos           int64
	Experience       int64
	Honor            int64
	SkillPoints      int64
	SkillPointsTotal int64
	Resources        map[string]int64
}

// Clamp forces every currency to be non-negative.
func (inv *Inventory) Clamp() {
	if inv.Credits < 0 {
		inv.Credits = 0
	}
	if inv.Cosmos < 0 {
		inv.Cosmos = 0
	}
	if inv.Experience < 0 {
		inv.Experience = 0
	}
	if inv.Honor < 0 {
		inv.Honor = 0
	}
	if inv.SkillPoints < 0 {
		inv.SkillPoints = 0
	}
	if inv.SkillPointsTotal < 0 {
		inv.SkillPointsTotal = 0
	}
	for k, v := range inv.Resources {
		if v < 0 {
			inv.Resources[k] = 0
		}
	}
}

// OwnedItem is one item instance held by the player. Slot is empty when the
// item is not equipped; at most one item per slot is equipped.
type OwnedItem struct {
	ID         string
	InstanceID string
	AcquiredAt time.Time
	Slot       string
}

// Player is the live, per-connection player entity. Owned exclusively by its
// Map; all access happens on the map's tick goroutine.
type Player struct {
	ClientID   string
	UserID     string
	PlayerDbID int64
	Nickname   string
	ShipID     string

	Conn Client

	X, Y     float64
	Rotation float64
	VX, VY   float64
	// Client-reported tick of the last accepted position input.
	LastInputTick int64

	Health    int
	MaxHealth int
	Shield    int
	MaxShield int
	Speed     float64
	Damage    int

	Upgrades  Upgrades
	Inventory Inventory
	Items     []OwnedItem

	Rank        int
	PodiumRank  int
	RecentHonor float64

	SelectedSkinID  string
	UnlockedSkinIDs []string

	IsDead          bool
	IsAdministrator bool

	LastInputAt    time.Time
	LastDamage     time.Time
	LastCombatStop time.Time

	// Recent killOpIds for idempotent reward grants.
	RecentKillOps *OpRing

	// Channelled action state; at most one of each.
	Collecting *CollectState
	Repairing  *RepairState
}

// CollectState tracks a channelled cargo pickup.
type CollectState struct {
	BoxID    string
	StartedAt time.Time
	// Anchor is set on the first tick after the channel starts; drifting
	// more than the tolerance from it cancels the pickup.
	AnchorX, AnchorY float64
	Anchored         bool
}

// RepairState tracks a channelled repair.
type RepairState struct {
	StartedAt time.Time
}

// EquippedInSlot returns the equipped item for a slot, or nil.
func (p *Player) EquippedInSlot(slot string) *OwnedItem {
	if slot == "" {
		return nil
	}
	for i := range p.Items {
		if p.Items[i].Slot == slot {
			return &p.Items[i]
		}
	}
	return nil
}

// ApplyDamageShieldFirst burns shield before health and returns the split.
// Negative damage is treated as zero.
func (p *Player) ApplyDamageShieldFirst(damage int) (shieldAbsorbed, healthDamage int) {
	if damage < 0 {
		damage = 0
	}
	shieldAbsorbed = damage
	if shieldAbsorbed > p.Shield {
		shieldAbsorbed = p.Shield
	}
	p.Shield -= shieldAbsorbed
	healthDamage = damage - shieldAbsorbed
	if healthDamage > p.Health {
		healthDamage = p.Health
	}
	p.Health -= healthDamage
	return shieldAbsorbed, healthDamage
}

// ToRecord snapshots the player into a persistence record. The snapshot
// shares nothing with the live entity.
func (p *Player) ToRecord() *persist.PlayerRecord {
	rec := &persist.PlayerRecord{
		PlayerDbID:       p.PlayerDbID,
		UserID:           p.UserID,
		Nickname:         p.Nickname,
		ShipID:           p.ShipID,
		UpgradeHP:        p.Upgrades.HP,
		UpgradeShield:    p.Upgrades.Shield,
		UpgradeSpeed:     p.Upgrades.Speed,
		UpgradeDamage:    p.Upgrades.Damage,
		Credits:          p.Inventory.Credits,
		Cosmos:           p.Inventory.Cosmos,
		Experience:       p.Inventory.Experience,
		Honor:            p.Inventory.Honor,
		SkillPoints:      p.Inventory.SkillPoints,
		SkillPointsTotal: p.Inventory.SkillPointsTotal,
		Resources:        make(map[string]int64, len(p.Inventory.Resources)),
		SelectedSkinID:   p.SelectedSkinID,
		UnlockedSkinIDs:  append([]string(nil), p.UnlockedSkinIDs...),
		IsAdministrator:  p.IsAdministrator,
		PodiumRank:       p.PodiumRank,
	}
	for k, v := range p.Inventory.Resources {
		rec.Resources[k] = v
	}
	for _, it := range p.Items {
		rec.Items = append(rec.Items, persist.ItemRecord{
			ID:         it.ID,
			InstanceID: it.InstanceID,
			AcquiredAt: it.AcquiredAt,
			Slot:       it.Slot,
		})
	}
	return rec
}

// FromRecord seeds the player from a persistence record.
func (p *Player) FromRecord(rec *persist.PlayerRecord) {
	p.UserID = rec.UserID
	p.PlayerDbID = rec.PlayerDbID
	p.Nickname = rec.Nickname
	p.ShipID = rec.ShipID
	p.Upgrades = Upgrades{
		HP:     rec.UpgradeHP,
		Shield: rec.UpgradeShield,
		Speed:  rec.UpgradeSpeed,
		Damage: rec.UpgradeDamage,
	}
	p.Inventory = Inventory{
		Credits:          rec.Credits,
		Cosmos:           rec.Cosmos,
		Experience:       rec.Experience,
		Honor:            rec.Honor,
		SkillPoints:      rec.SkillPoints,
		SkillPointsTotal: rec.SkillPointsTotal,
		Resources:        make(map[string]int64, len(rec.Resources)),
	}
	for k, v := range rec.Resources {
		p.Inventory.Resources[k] = v
	}
	p.Items = p.Items[:0]
	for _, it := range rec.Items {
		p.Items = append(p.Items, OwnedItem{
			ID:         it.ID,
			InstanceID: it.InstanceID,
			AcquiredAt: it.AcquiredAt,
			Slot:       it.Slot,
		})
	}
	p.SelectedSkinID = rec.SelectedSkinID
	p.UnlockedSkinIDs = append([]string(nil), rec.UnlockedSkinIDs...)
	p.IsAdministrator = rec.IsAdministrator
	p.PodiumRank = rec.PodiumRank
}
