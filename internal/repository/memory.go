package repository

import (
	"context"
	"sync"

	"github.com/skywatchlabs/go-squawk-alert/internal/models"
)

// MemoryStore is the fail-open fallback when the sqlite file cannot be
// opened: the monitor runs with an empty alerted set rather than aborting,
// trading a possible duplicate email for never missing an emergency. Dedup
// then only holds for the lifetime of the process.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]models.AlertRecord
	order   []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]models.AlertRecord),
	}
}

func (m *MemoryStore) Contains(ctx context.Context, hex string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[hex]
	return ok, nil
}

func (m *MemoryStore) Add(ctx context.Context, rec *models.AlertRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.Hex]; !ok {
		m.order = append(m.order, rec.Hex)
	}
	m.records[rec.Hex] = *rec
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]models.AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]models.AlertRecord, 0, len(m.order))
	for _, hex := range m.order {
		records = append(records, m.records[hex])
	}
	return records, nil
}

func (m *MemoryStore) Clear(ctx context.Context, hex string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[hex]; !ok {
		return false, nil
	}
	delete(m.records, hex)
	for i, h := range m.order {
		if h == hex {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *MemoryStore) ClearAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.records))
	m.records = make(map[string]models.AlertRecord)
	m.order = nil
	return n, nil
}
