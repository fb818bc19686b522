package persist

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-memory PlayerStore for tests and storeless development
// runs (empty database DSN).
type MemStore struct {
	mu      sync.Mutex
	nextID  int64
	players map[string]*PlayerRecord // by userID
	honor   map[string][]honorRow
}

type honorRow struct {
	honor      int64
	source     string
	recordedAt time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		nextID:  1,
		players: make(map[string]*PlayerRecord),
		honor:   make(map[string][]honorRow),
	}
}

var _ PlayerStore = (*MemStore)(nil)

func (s *MemStore) Load(_ context.Context, userID string) (*PlayerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.players[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemStore) Create(_ context.Context, rec *PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.PlayerDbID = s.nextID
	s.nextID++
	touchTimestamps(rec)
	s.players[rec.UserID] = cloneRecord(rec)
	return nil
}

func (s *MemStore) Save(_ context.Context, rec *PlayerRecord, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[rec.UserID]; !ok {
		return ErrNotFound
	}
	touchTimestamps(rec)
	s.players[rec.UserID] = cloneRecord(rec)
	return nil
}

func (s *MemStore) SaveHonorSnapshot(_ context.Context, userID string, honor int64, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.honor[userID] = append(s.honor[userID], honorRow{
		honor:      honor,
		source:     source,
		recordedAt: time.Now(),
	})
	return nil
}

func (s *MemStore) RecentHonorAverage(_ context.Context, userID string, days int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -days)
	var sum, n int64
	for _, row := range s.honor[userID] {
		if row.recordedAt.After(cutoff) {
			sum += row.honor
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float64(sum) / float64(n), nil
}

func cloneRecord(rec *PlayerRecord) *PlayerRecord {
	cp := *rec
	cp.Resources = make(map[string]int64, len(rec.Resources))
	for k, v := range rec.Resources {
		cp.Resources[k] = v
	}
	cp.Items = append([]ItemRecord(nil), rec.Items...)
	cp.UnlockedSkinIDs = append([]string(nil), rec.UnlockedSkinIDs...)
	return &cp
}

func touchTimestamps(rec *PlayerRecord) {
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
}
