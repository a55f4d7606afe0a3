// mock_store.go - In-memory record store for testing
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/customs-pairing/backend/internal/fields"
	"github.com/customs-pairing/backend/internal/models"
	"github.com/customs-pairing/backend/internal/store"
)

// MockStore implements store.Store with deterministic ids and a fixed
// clock, so tests can assert on record identity and seeded dates.
type MockStore struct {
	mu        sync.Mutex
	records   map[string]*models.PairRecord
	catalogue *fields.Catalogue
	counter   int
	// Now is the fixed creation time stamped on new records.
	Now time.Time
	// FailNext makes a mutating call return an error, for testing
	// mid-sequence failure handling. FailAfter lets that many mutating
	// calls succeed before the failure fires.
	FailNext  error
	FailAfter int
}

// NewMockStore creates an empty mock store over the built-in catalogue.
func NewMockStore() *MockStore {
	return &MockStore{
		records:   make(map[string]*models.PairRecord),
		catalogue: fields.Default(),
		Now:       time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

func (m *MockStore) failNext() error {
	if m.FailNext == nil {
		return nil
	}
	if m.FailAfter > 0 {
		m.FailAfter--
		return nil
	}
	err := m.FailNext
	m.FailNext = nil
	return err
}

func (m *MockStore) Create(ctx context.Context, slots store.Slots, status models.PairingStatus) (*models.PairRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNext(); err != nil {
		return nil, err
	}
	if slots.Declaration == nil && slots.Freight == nil {
		return nil, store.ErrEmptySlots
	}

	m.counter++
	record := &models.PairRecord{
		ID:              fmt.Sprintf("rec-%03d", m.counter),
		AnalyzedAt:      m.Now.Add(time.Duration(m.counter) * time.Second),
		Declaration:     slots.Declaration,
		Freight:         slots.Freight,
		Status:          models.RecordSuccess,
		Data:            m.catalogue.Defaults(m.Now),
		PairingVerified: status,
	}
	m.records[record.ID] = record
	return record.Clone(), nil
}

func (m *MockStore) Update(ctx context.Context, record *models.PairRecord) (*models.PairRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNext(); err != nil {
		return nil, err
	}
	if _, ok := m.records[record.ID]; !ok {
		return nil, store.ErrNotFound
	}
	m.records[record.ID] = record.Clone()
	return record.Clone(), nil
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNext(); err != nil {
		return err
	}
	if _, ok := m.records[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *MockStore) DeleteMany(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNext(); err != nil {
		return err
	}
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *MockStore) ListAll(ctx context.Context) ([]*models.PairRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.PairRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (m *MockStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNext(); err != nil {
		return err
	}
	m.records = make(map[string]*models.PairRecord)
	return nil
}

func (m *MockStore) Close() error { return nil }

// Ensure MockStore implements store.Store
var _ store.Store = (*MockStore)(nil)

// Test Helper Methods

// Put inserts a record directly, bypassing Create's id assignment.
func (m *MockStore) Put(record *models.PairRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record.Clone()
}

// Count returns the number of stored records.
func (m *MockStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Doc builds a test document with a deterministic id derived from the
// filename.
func Doc(fileName string) *models.DocumentInfo {
	return &models.DocumentInfo{
		ID:       "doc-" + fileName,
		FileName: fileName,
		FileType: "image/png",
	}
}
