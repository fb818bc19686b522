package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PgStore is the Postgres-backed PlayerStore.
type PgStore struct {
	db  *DB
	log *zap.Logger
}

func NewPgStore(db *DB, log *zap.Logger) *PgStore {
	return &PgStore{db: db, log: log}
}

var _ PlayerStore = (*PgStore)(nil)

func (s *PgStore) Load(ctx context.Context, userID string) (*PlayerRecord, error) {
	rec := &PlayerRecord{UserID: userID}
	var resources []byte
	var skins []byte
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, nickname, ship_id,
		       upgrade_hp, upgrade_shield, upgrade_speed, upgrade_damage,
		       credits, cosmos, experience, honor,
		       skill_points, skill_points_total,
		       resources, selected_skin_id, unlocked_skin_ids,
		       is_administrator, podium_rank, created_at, updated_at
		FROM players WHERE user_id = $1`, userID).Scan(
		&rec.PlayerDbID, &rec.Nickname, &rec.ShipID,
		&rec.UpgradeHP, &rec.UpgradeShield, &rec.UpgradeSpeed, &rec.UpgradeDamage,
		&rec.Credits, &rec.Cosmos, &rec.Experience, &rec.Honor,
		&rec.SkillPoints, &rec.SkillPointsTotal,
		&resources, &rec.SelectedSkinID, &skins,
		&rec.IsAdministrator, &rec.PodiumRank, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load player %s: %w", userID, err)
	}
	if err := json.Unmarshal(resources, &rec.Resources); err != nil {
		return nil, fmt.Errorf("decode resources for %s: %w", userID, err)
	}
	if err := json.Unmarshal(skins, &rec.UnlockedSkinIDs); err != nil {
		return nil, fmt.Errorf("decode skins for %s: %w", userID, err)
	}

	items, err := s.loadItems(ctx, rec.PlayerDbID)
	if err != nil {
		return nil, err
	}
	rec.Items = items
	return rec, nil
}

func (s *PgStore) loadItems(ctx context.Context, playerDbID int64) ([]ItemRecord, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT item_id, instance_id, acquired_at, COALESCE(slot, '')
		FROM player_items WHERE player_id = $1
		ORDER BY acquired_at`, playerDbID)
	if err != nil {
		return nil, fmt.Errorf("load items for %d: %w", playerDbID, err)
	}
	defer rows.Close()

	var items []ItemRecord
	for rows.Next() {
		var it ItemRecord
		if err := rows.Scan(&it.ID, &it.InstanceID, &it.AcquiredAt, &it.Slot); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *PgStore) Create(ctx context.Context, rec *PlayerRecord) error {
	resources, err := json.Marshal(nonNilResources(rec.Resources))
	if err != nil {
		return fmt.Errorf("encode resources: %w", err)
	}
	skins, err := json.Marshal(nonNilStrings(rec.UnlockedSkinIDs))
	if err != nil {
		return fmt.Errorf("encode skins: %w", err)
	}
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO players (
			user_id, nickname, ship_id,
			upgrade_hp, upgrade_shield, upgrade_speed, upgrade_damage,
			credits, cosmos, experience, honor,
			skill_points, skill_points_total,
			resources, selected_skin_id, unlocked_skin_ids,
			is_administrator, podium_rank
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		RETURNING id, created_at, updated_at`,
		rec.UserID, rec.Nickname, rec.ShipID,
		rec.UpgradeHP, rec.UpgradeShield, rec.UpgradeSpeed, rec.UpgradeDamage,
		rec.Credits, rec.Cosmos, rec.Experience, rec.Honor,
		rec.SkillPoints, rec.SkillPointsTotal,
		resources, rec.SelectedSkinID, skins,
		rec.IsAdministrator, rec.PodiumRank,
	).Scan(&rec.PlayerDbID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create player %s: %w", rec.UserID, err)
	}
	return nil
}

func (s *PgStore) Save(ctx context.Context, rec *PlayerRecord, reason string) error {
	resources, err := json.Marshal(nonNilResources(rec.Resources))
	if err != nil {
		return fmt.Errorf("encode resources: %w", err)
	}
	skins, err := json.Marshal(nonNilStrings(rec.UnlockedSkinIDs))
	if err != nil {
		return fmt.Errorf("encode skins: %w", err)
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE players SET
			nickname = $2, ship_id = $3,
			upgrade_hp = $4, upgrade_shield = $5, upgrade_speed = $6, upgrade_damage = $7,
			credits = $8, cosmos = $9, experience = $10, honor = $11,
			skill_points = $12, skill_points_total = $13,
			resources = $14, selected_skin_id = $15, unlocked_skin_ids = $16,
			podium_rank = $17, updated_at = now()
		WHERE id = $1`,
		rec.PlayerDbID, rec.Nickname, rec.ShipID,
		rec.UpgradeHP, rec.UpgradeShield, rec.UpgradeSpeed, rec.UpgradeDamage,
		rec.Credits, rec.Cosmos, rec.Experience, rec.Honor,
		rec.SkillPoints, rec.SkillPointsTotal,
		resources, rec.SelectedSkinID, skins, rec.PodiumRank,
	)
	if err != nil {
		return fmt.Errorf("save player %d (%s): %w", rec.PlayerDbID, reason, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save player %d (%s): %w", rec.PlayerDbID, reason, ErrNotFound)
	}

	// Items are replaced wholesale; the set is small and the save path is
	// already off the tick loop.
	if _, err := tx.Exec(ctx, `DELETE FROM player_items WHERE player_id = $1`, rec.PlayerDbID); err != nil {
		return fmt.Errorf("clear items for %d: %w", rec.PlayerDbID, err)
	}
	for _, it := range rec.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO player_items (player_id, item_id, instance_id, acquired_at, slot)
			VALUES ($1,$2,$3,$4,NULLIF($5,''))`,
			rec.PlayerDbID, it.ID, it.InstanceID, it.AcquiredAt, it.Slot); err != nil {
			return fmt.Errorf("save item %s for %d: %w", it.InstanceID, rec.PlayerDbID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save for %d: %w", rec.PlayerDbID, err)
	}
	return nil
}

func (s *PgStore) SaveHonorSnapshot(ctx context.Context, userID string, honor int64, source string) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO honor_snapshots (user_id, honor, source)
		VALUES ($1, $2, $3)`, userID, honor, source)
	if err != nil {
		return fmt.Errorf("honor snapshot for %s: %w", userID, err)
	}
	return nil
}

func (s *PgStore) RecentHonorAverage(ctx context.Context, userID string, days int) (float64, error) {
	var avg *float64
	err := s.db.Pool.QueryRow(ctx, `
		SELECT AVG(honor) FROM honor_snapshots
		WHERE user_id = $1 AND recorded_at > now() - make_interval(days => $2)`,
		userID, days).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("honor average for %s: %w", userID, err)
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

func nonNilResources(m map[string]int64) map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	return m
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
