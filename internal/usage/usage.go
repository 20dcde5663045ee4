// Package usage records one row per AI call made through the HTTP API.
package usage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Record struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	RequestID string    `json:"requestId"`
	Action    string    `json:"action"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Status    int       `json:"status"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	LatencyMs int64     `json:"latencyMs"`
	CreatedAt time.Time `json:"createdAt"`
}

type Store interface {
	LogUsage(ctx context.Context, rec *Record) error
	GetUsageByClient(ctx context.Context, clientID string, from, to time.Time) ([]*Record, error)
	CountByClient(ctx context.Context, clientID string, from, to time.Time) (int64, error)
}

// NopStore drops every record.
type NopStore struct{}

func (NopStore) LogUsage(context.Context, *Record) error { return nil }

func (NopStore) GetUsageByClient(context.Context, string, time.Time, time.Time) ([]*Record, error) {
	return nil, nil
}

func (NopStore) CountByClient(context.Context, string, time.Time, time.Time) (int64, error) {
	return 0, nil
}

// MemoryStore keeps records in process. It backs the server when no
// database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) LogUsage(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = uuid.New().String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	cp := *rec
	s.records = append(s.records, &cp)
	return nil
}

func (s *MemoryStore) match(clientID string, from, to time.Time) []*Record {
	var out []*Record
	for _, r := range s.records {
		if r.ClientID != clientID || r.CreatedAt.Before(from) || r.CreatedAt.After(to) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out
}

func (s *MemoryStore) GetUsageByClient(_ context.Context, clientID string, from, to time.Time) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.match(clientID, from, to)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CountByClient(_ context.Context, clientID string, from, to time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.match(clientID, from, to))), nil
}
