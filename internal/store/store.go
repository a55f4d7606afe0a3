// Package store persists pair records. Two backends implement the same
// contract: a msgpack snapshot file (default) and an embedded DuckDB
// database for deployments where record batches with embedded page
// images outgrow a single snapshot.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/customs-pairing/backend/internal/fields"
	"github.com/customs-pairing/backend/internal/models"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Slots carries the document assignment for a new record. At least one
// slot must be filled; a record with no documents is never persisted.
type Slots struct {
	Declaration *models.DocumentInfo
	Freight     *models.DocumentInfo
}

// ErrEmptySlots rejects creation of a record with no documents.
var ErrEmptySlots = errors.New("record must hold at least one document")

// Store is the durable map from record id to PairRecord. All operations
// are single-record except DeleteMany and Clear; multi-record flows (the
// zipper) issue independent writes and are not atomic as a whole.
type Store interface {
	// Create assigns a fresh id and timestamp, seeds the field map with
	// catalogue defaults and persists the record.
	Create(ctx context.Context, slots Slots, status models.PairingStatus) (*models.PairRecord, error)
	// Update overwrites the record with the same id in full.
	Update(ctx context.Context, record *models.PairRecord) (*models.PairRecord, error)
	Delete(ctx context.Context, id string) error
	// DeleteMany removes every listed id; unknown ids are skipped.
	DeleteMany(ctx context.Context, ids []string) error
	// ListAll returns all records in no guaranteed order.
	ListAll(ctx context.Context) ([]*models.PairRecord, error)
	Clear(ctx context.Context) error
	Close() error
}

// newRecord builds the record both backends persist on Create.
func newRecord(cat *fields.Catalogue, now time.Time, slots Slots, status models.PairingStatus) *models.PairRecord {
	return &models.PairRecord{
		ID:              uuid.New().String(),
		AnalyzedAt:      now,
		Declaration:     slots.Declaration,
		Freight:         slots.Freight,
		Status:          models.RecordSuccess,
		Data:            cat.Defaults(now),
		PairingVerified: status,
	}
}
