package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/customs-pairing/backend/internal/fields"
	"github.com/customs-pairing/backend/internal/models"
)

const snapshotVersion = 1

type snapshot struct {
	Version int                  `msgpack:"version"`
	Records []*models.PairRecord `msgpack:"records"`
}

// FileStore keeps all records in memory and mirrors every mutation into a
// msgpack snapshot file. Writes go to a temp file first and are renamed
// into place, so a crash mid-write never corrupts the previous snapshot.
type FileStore struct {
	mu        sync.RWMutex
	path      string
	records   map[string]*models.PairRecord
	catalogue *fields.Catalogue
	now       func() time.Time
}

// NewFileStore opens (or creates) the snapshot at path.
func NewFileStore(path string, cat *fields.Catalogue) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &FileStore{
		path:      path,
		records:   make(map[string]*models.PairRecord),
		catalogue: cat,
		now:       time.Now,
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}

	var snap snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	for _, r := range snap.Records {
		s.records[r.ID] = r
	}
	fmt.Printf("[Store] Loaded %d records from %s\n", len(s.records), s.path)
	return nil
}

// flush writes the full snapshot. Caller must hold the write lock.
func (s *FileStore) flush() error {
	snap := snapshot{Version: snapshotVersion}
	for _, r := range s.records {
		snap.Records = append(snap.Records, r)
	}

	data, err := msgpack.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Create assigns id and timestamp, seeds defaults and persists.
func (s *FileStore) Create(ctx context.Context, slots Slots, status models.PairingStatus) (*models.PairRecord, error) {
	if slots.Declaration == nil && slots.Freight == nil {
		return nil, ErrEmptySlots
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := newRecord(s.catalogue, s.now(), slots, status)
	s.records[record.ID] = record
	if err := s.flush(); err != nil {
		delete(s.records, record.ID)
		return nil, err
	}
	return record.Clone(), nil
}

// Update overwrites the stored record by id. A record without documents
// is never persisted.
func (s *FileStore) Update(ctx context.Context, record *models.PairRecord) (*models.PairRecord, error) {
	if record.Declaration == nil && record.Freight == nil {
		return nil, ErrEmptySlots
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.records[record.ID]
	if !ok {
		return nil, fmt.Errorf("updating %s: %w", record.ID, ErrNotFound)
	}

	s.records[record.ID] = record.Clone()
	if err := s.flush(); err != nil {
		s.records[record.ID] = prev
		return nil, err
	}
	return record.Clone(), nil
}

// Delete removes one record.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.records[id]
	if !ok {
		return fmt.Errorf("deleting %s: %w", id, ErrNotFound)
	}

	delete(s.records, id)
	if err := s.flush(); err != nil {
		s.records[id] = prev
		return err
	}
	return nil
}

// DeleteMany removes every listed id, skipping unknown ones.
func (s *FileStore) DeleteMany(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]*models.PairRecord)
	for _, id := range ids {
		if r, ok := s.records[id]; ok {
			removed[id] = r
			delete(s.records, id)
		}
	}
	if len(removed) == 0 {
		return nil
	}

	if err := s.flush(); err != nil {
		for id, r := range removed {
			s.records[id] = r
		}
		return err
	}
	return nil
}

// ListAll returns a deep copy of every record, order unspecified.
func (s *FileStore) ListAll(ctx context.Context) ([]*models.PairRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.PairRecord, 0, len(s.records))
	for _, r := range s.records {
		list = append(list, r.Clone())
	}
	return list, nil
}

// Clear removes everything.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*models.PairRecord)
	return s.flush()
}

// Close is a no-op for the file backend; every mutation already flushed.
func (s *FileStore) Close() error {
	return nil
}
