// Package idempotency replays responses for repeated requests carrying the
// same idempotency key. Records live in memory only and expire after a window.
package idempotency

import (
	"context"
	"sync"
	"time"
)

// Record holds a stored response.
type Record struct {
	StatusCode int       `json:"statusCode"`
	Response   []byte    `json:"response"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Store looks up and saves responses by key. Get returns nil for a missing or
// expired key.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Save(ctx context.Context, key string, record Record) error
}

// MemoryStore is a TTL map. Expired records are dropped on access and on
// every Save.
type MemoryStore struct {
	Now func() time.Time

	mu   sync.Mutex
	data map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]Record),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	if !m.now().Before(rec.ExpiresAt) {
		delete(m.data, key)
		return nil, nil
	}
	rec.Response = append([]byte(nil), rec.Response...)
	return &rec, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, rec := range m.data {
		if !now.Before(rec.ExpiresAt) {
			delete(m.data, k)
		}
	}
	record.Response = append([]byte(nil), record.Response...)
	m.data[key] = record
	return nil
}

// Len counts records, expired ones included until the next sweep.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Remember builds a record valid for window from now and saves it.
func Remember(ctx context.Context, s Store, now time.Time, window time.Duration, key string, status int, body []byte) error {
	return s.Save(ctx, key, Record{
		StatusCode: status,
		Response:   body,
		CreatedAt:  now,
		ExpiresAt:  now.Add(window),
	})
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
