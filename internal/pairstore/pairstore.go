// Package pairstore holds prior conversational turns keyed by
// contradiction_pair_id so the gate can compare the current answer against
// the most recent one in the same pair. Memory, Redis, and Postgres backends
// share the Store interface; the backend is selected at startup.
package pairstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Turn is one recorded question/answer exchange within a contradiction pair.
type Turn struct {
	PairID     string    `json:"pair_id"`
	SampleID   string    `json:"sample_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Store is the cross-turn answer store. Append and Latest may run
// concurrently; readers observe only fully-completed writes for the same
// pair id. Latest returns (nil, nil) when the pair has no recorded turns.
type Store interface {
	Append(ctx context.Context, turn Turn) error
	Latest(ctx context.Context, pairID string) (*Turn, error)
	Close() error
}

// MemoryStore is the default in-process backend: a mutex-guarded map of
// append-only turn lists, with optional JSON snapshot persistence.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]Turn
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]Turn)}
}

func (m *MemoryStore) Append(ctx context.Context, turn Turn) error {
	if turn.PairID == "" {
		return fmt.Errorf("pairstore: empty pair id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if turn.RecordedAt.IsZero() {
		turn.RecordedAt = time.Now().UTC()
	}
	m.turns[turn.PairID] = append(m.turns[turn.PairID], turn)
	return nil
}

func (m *MemoryStore) Latest(ctx context.Context, pairID string) (*Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.turns[pairID]
	if len(list) == 0 {
		return nil, nil
	}
	turn := list[len(list)-1]
	return &turn, nil
}

func (m *MemoryStore) Close() error { return nil }

// SaveSnapshot writes the full store contents as JSON for restart recovery.
func (m *MemoryStore) SaveSnapshot(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m.turns, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot replaces the store contents from a JSON snapshot. A missing
// file is not an error; the store simply starts empty.
func (m *MemoryStore) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	turns := make(map[string][]Turn)
	if err := json.Unmarshal(data, &turns); err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = turns
	return nil
}

// Len returns the number of pairs with at least one recorded turn.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}
