package wire

import "encoding/json"

// Message type discriminators. Every frame is a single JSON object whose
// "type" field selects the variant; the remaining fields sit beside it.

// Inbound.
const (
	TypeJoin                = "join"
	TypePositionUpdate      = "position_update"
	TypeHeartbeat           = "heartbeat"
	TypeProjectileFired     = "projectile_fired"
	TypeStartCombat         = "start_combat"
	TypeStopCombat          = "stop_combat"
	TypeSkillUpgradeRequest = "skill_upgrade_request"
	TypeExplosionCreated    = "explosion_created"
	TypeChatMessage         = "chat_message"
	TypeCargoBoxCollect     = "cargo_box_collect"
	TypeRequestPlayerData   = "request_player_data"
	TypeSaveRequest         = "save_request"
	TypeRespawnRequest      = "respawn_request"
)

// Outbound.
const (
	TypeWelcome               = "welcome"
	TypePlayerJoined          = "player_joined"
	TypePlayerLeft            = "player_left"
	TypeRemotePlayerUpdate    = "remote_player_update"
	TypeInitialNpcs           = "initial_npcs"
	TypeNpcSpawn              = "npc_spawn"
	TypeNpcBulkUpdate         = "npc_bulk_update"
	TypeNpcLeft               = "npc_left"
	TypeProjectileUpdates     = "projectile_updates"
	TypeProjectileDestroyed   = "projectile_destroyed"
	TypeEntityDamaged         = "entity_damaged"
	TypeEntityDestroyed       = "entity_destroyed"
	TypeCombatUpdate          = "combat_update"
	TypeCombatError           = "combat_error"
	TypePlayerStateUpdate     = "player_state_update"
	TypeCargoBoxSpawned       = "cargo_box_spawned"
	TypeCargoBoxRemoved       = "cargo_box_removed"
	TypeCargoBoxCollectStatus = "cargo_box_collect_status"
	TypePlayerDataResponse    = "player_data_response"
	TypeSaveResponse          = "save_response"
	TypeHeartbeatAck          = "heartbeat_ack"
	TypePositionAck           = "position_ack"
	TypePlayerDeath           = "player_death"
	TypePlayerRespawn         = "player_respawn"
	TypeServerShutdown        = "server_shutdown"
	TypeError                 = "error"
)

// Envelope is the minimal decode used to pick a variant before full
// unmarshalling.
type Envelope struct {
	Type string `json:"type"`
}

// PeekType extracts the type discriminator from a raw frame.
func PeekType(raw []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}

// Position is the shared {x, y, rotation} tuple.
type Position struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
}

// Vec2 is a plain coordinate or velocity pair.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ---- inbound frames ----

type Join struct {
	Type      string   `json:"type"`
	ClientID  string   `json:"clientId"`
	Nickname  string   `json:"nickname"`
	AuthToken string   `json:"authToken"`
	UserID    string   `json:"userId"`
	Position  Position `json:"position"`
}

type PositionUpdate struct {
	Type      string  `json:"type"`
	ClientID  string  `json:"clientId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  float64 `json:"rotation"`
	VelocityX float64 `json:"velocityX"`
	VelocityY float64 `json:"velocityY"`
	Tick      int64   `json:"tick"`
}

type Heartbeat struct {
	Type      string `json:"type"`
	ClientID  string `json:"clientId"`
	Timestamp int64  `json:"timestamp"`
}

// ProjectileFired is both inbound (client fires, server computes damage) and
// outbound (relayed to nearby players).
type ProjectileFired struct {
	Type           string          `json:"type"`
	ClientID       string          `json:"clientId,omitempty"`
	ProjectileID   string          `json:"projectileId"`
	PlayerID       json.RawMessage `json:"playerId,omitempty"`
	Position       Vec2            `json:"position"`
	Velocity       Vec2            `json:"velocity"`
	ProjectileType string          `json:"projectileType"`
	Damage         int             `json:"damage,omitempty"`
	TargetID       string          `json:"targetId,omitempty"`
}

type StartCombat struct {
	Type     string          `json:"type"`
	ClientID string          `json:"clientId"`
	PlayerID json.RawMessage `json:"playerId"`
	NpcID    string          `json:"npcId"`
}

type StopCombat struct {
	Type     string          `json:"type"`
	ClientID string          `json:"clientId"`
	PlayerID json.RawMessage `json:"playerId"`
	NpcID    string          `json:"npcId,omitempty"`
}

type SkillUpgradeRequest struct {
	Type        string          `json:"type"`
	ClientID    string          `json:"clientId"`
	PlayerID    json.RawMessage `json:"playerId"`
	UpgradeType string          `json:"upgradeType"` // hp|shield|speed|damage
}

type ExplosionCreated struct {
	Type          string `json:"type"`
	ClientID      string `json:"clientId,omitempty"`
	ExplosionID   string `json:"explosionId"`
	EntityID      string `json:"entityId"`
	EntityType    string `json:"entityType"`
	Position      Vec2   `json:"position"`
	ExplosionType string `json:"explosionType"`
}

type ChatMessage struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	Content  string `json:"content"`
}

type CargoBoxCollect struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	BoxID    string `json:"boxId"`
}

type RequestPlayerData struct {
	Type     string          `json:"type"`
	ClientID string          `json:"clientId"`
	PlayerID json.RawMessage `json:"playerId"`
}

type SaveRequest struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}

type RespawnRequest struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}

// ---- outbound frames ----

type ShipSkins struct {
	SelectedSkinID  string   `json:"selectedSkinId"`
	UnlockedSkinIDs []string `json:"unlockedSkinIds"`
}

type InitialState struct {
	Position        Position  `json:"position"`
	Health          int       `json:"health"`
	MaxHealth       int       `json:"maxHealth"`
	Shield          int       `json:"shield"`
	MaxShield       int       `json:"maxShield"`
	IsAdministrator bool      `json:"isAdministrator"`
	Rank            int       `json:"rank"`
	PodiumRank      int       `json:"leaderboardPodiumRank"`
	ShipSkins       ShipSkins `json:"shipSkins"`
	RecentHonor     float64   `json:"recentHonor"`
}

type Welcome struct {
	Type         string       `json:"type"`
	ClientID     string       `json:"clientId"`
	PlayerID     string       `json:"playerId"` // user UUID
	PlayerDbID   int64        `json:"playerDbId"`
	MapID        string       `json:"mapId"`
	Message      string       `json:"message"`
	InitialState InitialState `json:"initialState"`
}

type PlayerJoined struct {
	Type     string   `json:"type"`
	ClientID string   `json:"clientId"`
	Nickname string   `json:"nickname"`
	Position Position `json:"position"`
}

type PlayerLeft struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}

type NpcSpawn struct {
	Type      string  `json:"type"`
	NpcID     string  `json:"npcId"`
	NpcType   string  `json:"npcType"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  float64 `json:"rotation"`
	Health    int     `json:"health"`
	MaxHealth int     `json:"maxHealth"`
	Shield    int     `json:"shield"`
	MaxShield int     `json:"maxShield"`
	Behavior  string  `json:"behavior"`
}

type NpcLeft struct {
	Type  string `json:"type"`
	NpcID string `json:"npcId"`
}

type EntityDamaged struct {
	Type       string `json:"type"`
	EntityID   string `json:"entityId"`
	EntityType string `json:"entityType"` // player|npc
	Damage     int    `json:"damage"`
	NewHealth  int    `json:"newHealth"`
	NewShield  int    `json:"newShield"`
}

type EntityDestroyed struct {
	Type       string `json:"type"`
	EntityID   string `json:"entityId"`
	EntityType string `json:"entityType"`
	KillerID   string `json:"killerId,omitempty"`
}

type ProjectileDestroyed struct {
	Type         string `json:"type"`
	ProjectileID string `json:"projectileId"`
	Reason       string `json:"reason,omitempty"` // hit|expired|orphaned|out_of_bounds|out_of_range
}

type CombatUpdate struct {
	Type           string `json:"type"`
	PlayerID       string `json:"playerId"`
	ClientID       string `json:"clientId"`
	NpcID          string `json:"npcId"`
	IsAttacking    bool   `json:"isAttacking"`
	SessionID      string `json:"sessionId,omitempty"`
	LastAttackTime int64  `json:"lastAttackTime"`
}

type CombatError struct {
	Type            string `json:"type"`
	Code            string `json:"code"`
	Message         string `json:"message"`
	ActiveSessionID string `json:"activeSessionId,omitempty"`
}

type Inventory struct {
	Credits          int64            `json:"credits"`
	Cosmos           int64            `json:"cosmos"`
	Experience       int64            `json:"experience"`
	Honor            int64            `json:"honor"`
	SkillPoints      int64            `json:"skillPoints"`
	SkillPointsTotal int64            `json:"skillPointsTotal"`
	Resources        map[string]int64 `json:"resourceInventory"`
}

type Upgrades struct {
	HP     int `json:"hp"`
	Shield int `json:"shield"`
	Speed  int `json:"speed"`
	Damage int `json:"damage"`
}

type Item struct {
	ID         string `json:"id"`
	InstanceID string `json:"instanceId"`
	AcquiredAt int64  `json:"acquiredAt"`
	Slot       string `json:"slot,omitempty"`
}

type RewardsEarned struct {
	Credits    int64  `json:"credits"`
	Cosmos     int64  `json:"cosmos"`
	Experience int64  `json:"experience"`
	Honor      int64  `json:"honor"`
	ItemID     string `json:"itemId,omitempty"`
	KillOpID   string `json:"killOpId"`
	NpcID      string `json:"npcId"`
}

type PlayerStateUpdate struct {
	Type          string         `json:"type"`
	Inventory     Inventory      `json:"inventory"`
	Upgrades      Upgrades       `json:"upgrades"`
	Items         []Item         `json:"items"`
	RecentHonor   float64        `json:"recentHonor"`
	Source        string         `json:"source"`
	RewardsEarned *RewardsEarned `json:"rewardsEarned,omitempty"`
}

type CargoBoxSpawned struct {
	Type           string  `json:"type"`
	BoxID          string  `json:"boxId"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	ResourceType   string  `json:"resourceType"`
	NpcType        string  `json:"npcType"`
	KillerID       string  `json:"killerId,omitempty"`
	ExpiresAt      int64   `json:"expiresAt"`
	ExclusiveUntil int64   `json:"exclusiveUntil"`
}

type CargoBoxRemoved struct {
	Type  string `json:"type"`
	BoxID string `json:"boxId"`
}

type CargoBoxCollectStatus struct {
	Type     string `json:"type"`
	BoxID    string `json:"boxId"`
	Status   string `json:"status"` // started|completed|failed
	Reason   string `json:"reason,omitempty"`
	Quantity int64  `json:"quantity,omitempty"`
	Resource string `json:"resourceType,omitempty"`
}

type HeartbeatAck struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	Echo       int64  `json:"timestamp"`
}

type PositionAck struct {
	Type string `json:"type"`
	Tick int64  `json:"tick"`
}

type ChatBroadcast struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	Nickname string `json:"nickname"`
	Content  string `json:"content"`
}

type PlayerDataResponse struct {
	Type      string    `json:"type"`
	PlayerID  string    `json:"playerId"`
	Nickname  string    `json:"nickname"`
	Inventory Inventory `json:"inventory"`
	Upgrades  Upgrades  `json:"upgrades"`
	Rank      int       `json:"rank"`
}

type SaveResponse struct {
	Type string `json:"type"`
	OK   bool   `json:"ok"`
}

type PlayerDeath struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	KillerID string `json:"killerId,omitempty"`
}

type PlayerRespawn struct {
	Type     string   `json:"type"`
	ClientID string   `json:"clientId"`
	Position Position `json:"position"`
	Health   int      `json:"health"`
	Shield   int      `json:"shield"`
}

type ServerShutdown struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewError builds an error frame from a coded error.
func NewError(code, message string) *ErrorMessage {
	return &ErrorMessage{Type: TypeError, Code: code, Message: message}
}
