package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/customs-pairing/backend/internal/fields"
	"github.com/customs-pairing/backend/internal/models"
)

// DuckStore persists records in an embedded DuckDB file. Each record is
// one row keyed by id with a msgpack payload, so the snapshot format and
// the database format decode through the same structs.
type DuckStore struct {
	db        *sql.DB
	dbPath    string
	catalogue *fields.Catalogue
	now       func() time.Time
}

// DuckOptions tunes the embedded database.
type DuckOptions struct {
	Threads     int
	MemoryLimit string
}

// NewDuckStore opens (or creates) the records database at dbPath.
func NewDuckStore(dbPath string, cat *fields.Catalogue, opts DuckOptions) (*DuckStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	if opts.Threads <= 0 {
		opts.Threads = 2
	}
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = "512MB"
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("opening DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id          VARCHAR PRIMARY KEY,
			analyzed_at BIGINT NOT NULL,
			payload     BLOB NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating records table: %w", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count); err == nil {
		fmt.Printf("[DuckStore] Opened %s with %d records\n", dbPath, count)
	}

	return &DuckStore{
		db:        db,
		dbPath:    dbPath,
		catalogue: cat,
		now:       time.Now,
	}, nil
}

// Create assigns id and timestamp, seeds defaults and inserts the row.
func (s *DuckStore) Create(ctx context.Context, slots Slots, status models.PairingStatus) (*models.PairRecord, error) {
	if slots.Declaration == nil && slots.Freight == nil {
		return nil, ErrEmptySlots
	}

	record := newRecord(s.catalogue, s.now(), slots, status)
	payload, err := msgpack.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO records (id, analyzed_at, payload) VALUES (?, ?, ?)",
		record.ID, record.AnalyzedAt.UnixMilli(), payload)
	if err != nil {
		return nil, fmt.Errorf("inserting record: %w", err)
	}
	return record, nil
}

// Update overwrites the stored record by id. A record without documents
// is never persisted.
func (s *DuckStore) Update(ctx context.Context, record *models.PairRecord) (*models.PairRecord, error) {
	if record.Declaration == nil && record.Freight == nil {
		return nil, ErrEmptySlots
	}
	payload, err := msgpack.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE records SET analyzed_at = ?, payload = ? WHERE id = ?",
		record.AnalyzedAt.UnixMilli(), payload, record.ID)
	if err != nil {
		return nil, fmt.Errorf("updating record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("updating %s: %w", record.ID, ErrNotFound)
	}
	return record, nil
}

// Delete removes one record.
func (s *DuckStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("deleting %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteMany removes every listed id, skipping unknown ones.
func (s *DuckStore) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM records WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	return nil
}

// ListAll decodes every stored record, order unspecified.
func (s *DuckStore) ListAll(ctx context.Context) ([]*models.PairRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM records")
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var list []*models.PairRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		var record models.PairRecord
		if err := msgpack.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		list = append(list, &record)
	}
	return list, rows.Err()
}

// Clear removes everything.
func (s *DuckStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM records")
	if err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}
	return nil
}

// Close releases the database handle. The file stays on disk.
func (s *DuckStore) Close() error {
	return s.db.Close()
}
