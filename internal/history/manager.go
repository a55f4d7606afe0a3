// Package history owns the application state: the in-memory mirror of the
// record store and every pairing operation the UI can trigger. The mirror
// is updated only from the outcomes of store calls, never optimistically,
// so it stays a cache of the store rather than a second source of truth.
package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/customs-pairing/backend/internal/fields"
	"github.com/customs-pairing/backend/internal/models"
	"github.com/customs-pairing/backend/internal/pairing"
	"github.com/customs-pairing/backend/internal/store"
)

// Manager orchestrates batch pairing, the zipper and record CRUD against
// the store. All methods are safe for concurrent use, though the app is
// effectively single-user.
type Manager struct {
	mu        sync.RWMutex
	store     store.Store
	catalogue *fields.Catalogue
	opts      pairing.Options
	entries   []*models.PairRecord // display order: analyzedAt desc
	now       func() time.Time
}

// NewManager creates a manager over the given store. Call Load before
// serving requests.
func NewManager(s store.Store, cat *fields.Catalogue, opts pairing.Options) *Manager {
	return &Manager{
		store:     s,
		catalogue: cat,
		opts:      opts,
		now:       time.Now,
	}
}

// Load fills the mirror from the store, running the reconcile pass that
// repairs leftovers of an interrupted multi-record sequence.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := store.ApplyReconcile(ctx, m.store)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	m.setEntries(records)
	fmt.Printf("[History] Loaded %d records\n", len(m.entries))
	return nil
}

// setEntries replaces the mirror. Caller must hold the write lock.
func (m *Manager) setEntries(records []*models.PairRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].AnalyzedAt.Equal(records[j].AnalyzedAt) {
			return records[i].AnalyzedAt.After(records[j].AnalyzedAt)
		}
		return records[i].ID < records[j].ID
	})
	m.entries = records
}

// refresh re-reads the store. Caller must hold the write lock.
func (m *Manager) refresh(ctx context.Context) error {
	records, err := m.store.ListAll(ctx)
	if err != nil {
		return err
	}
	m.setEntries(records)
	return nil
}

// Entries returns the mirror in display order (newest first).
func (m *Manager) Entries() []*models.PairRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.PairRecord, len(m.entries))
	for i, r := range m.entries {
		out[i] = r.Clone()
	}
	return out
}

// Get returns one record by id.
func (m *Manager) Get(id string) (*models.PairRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r := m.find(id)
	if r == nil {
		return nil, false
	}
	return r.Clone(), true
}

// find returns the mirror entry by id. Caller must hold a lock.
func (m *Manager) find(id string) *models.PairRecord {
	for _, r := range m.entries {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// PendingQueue returns the unverified queue in filename order.
func (m *Manager) PendingQueue() []*models.PairRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queue := pairing.PendingQueue(m.entries, m.opts)
	out := make([]*models.PairRecord, len(queue))
	for i, r := range queue {
		out[i] = r.Clone()
	}
	return out
}

// NextPending returns the first record of the unverified queue whose id
// differs from excludeID, or false when the queue is exhausted.
func (m *Manager) NextPending(excludeID string) (*models.PairRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range pairing.PendingQueue(m.entries, m.opts) {
		if r.ID != excludeID {
			return r.Clone(), true
		}
	}
	return nil, false
}

// CreateFromUpload runs the batch pairing algorithm over a freshly
// ingested document batch and persists the resulting records. Returns
// the created records in pairing order.
func (m *Manager) CreateFromUpload(ctx context.Context, docs []*models.DocumentInfo) ([]*models.PairRecord, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	drafts := pairing.BatchPair(docs, m.opts)
	created, err := m.createDrafts(ctx, drafts)
	if rerr := m.refresh(ctx); rerr != nil && err == nil {
		err = rerr
	}
	return created, err
}

// createDrafts persists drafts one by one; a mid-sequence failure returns
// what was created so far together with the error.
func (m *Manager) createDrafts(ctx context.Context, drafts []pairing.Draft) ([]*models.PairRecord, error) {
	created := make([]*models.PairRecord, 0, len(drafts))
	for _, d := range drafts {
		record, err := m.store.Create(ctx, store.Slots{Declaration: d.Declaration, Freight: d.Freight}, d.Status)
		if err != nil {
			return created, fmt.Errorf("creating record: %w", err)
		}
		created = append(created, record)
	}
	return created, nil
}

// ConfirmPairing marks a pending pair as verified. A record that is not a
// pending pair is left untouched (invalid actions are no-ops).
func (m *Manager) ConfirmPairing(ctx context.Context, id string) (*models.PairRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.find(id)
	if r == nil || !r.IsPendingPair() {
		return nil, nil
	}

	updated := r.Clone()
	updated.PairingVerified = models.PairingVerified
	saved, err := m.store.Update(ctx, updated)
	if err != nil {
		return nil, err
	}
	*r = *saved
	return saved.Clone(), nil
}

// RejectPairing breaks a pair outright: both documents are unrelated.
// Inside the unverified queue this invalidates and re-pairs the whole
// tail (zipper); outside it, only the one record is split into
// singletons. No-op on records that are not two-document pairs.
func (m *Manager) RejectPairing(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.find(id)
	if r == nil || r.DocumentCount() != 2 {
		return nil
	}

	queue := pairing.PendingQueue(m.entries, m.opts)
	removeDocs := make([]string, 0, 2)
	for _, doc := range r.Documents() {
		removeDocs = append(removeDocs, doc.ID)
	}

	if plan, ok := pairing.PlanZipper(queue, id, removeDocs, m.opts); ok {
		return m.applyPlan(ctx, plan)
	}

	// History-context fallback: re-create each document as a singleton,
	// drop the old record, touch nothing else.
	singles := make([]pairing.Draft, 0, 2)
	if r.Declaration != nil {
		singles = append(singles, pairing.Draft{Declaration: r.Declaration})
	}
	if r.Freight != nil {
		singles = append(singles, pairing.Draft{Freight: r.Freight})
	}
	return m.applyPlan(ctx, &pairing.TailPlan{
		DeleteIDs:  []string{r.ID},
		Singletons: singles,
	})
}

// RemoveDocument deletes one side of a two-document pair. Inside the
// unverified queue the zipper re-pairs the tail and the removed document
// survives as a singleton for later manual pairing; outside the queue the
// record is split in place and the removed document is discarded. No-op
// on records that are not two-document pairs.
func (m *Manager) RemoveDocument(ctx context.Context, id string, slot models.DocumentSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.find(id)
	if r == nil || r.DocumentCount() != 2 || !slot.Valid() {
		return nil
	}
	doc := r.Document(slot)

	queue := pairing.PendingQueue(m.entries, m.opts)
	if plan, ok := pairing.PlanZipper(queue, id, []string{doc.ID}, m.opts); ok {
		return m.applyPlan(ctx, plan)
	}

	// Outside the queue: split in place. The record keeps its id and
	// timestamp; data and verification reset because the document set
	// changed.
	updated := r.Clone()
	switch slot {
	case models.SlotDeclaration:
		updated.Declaration = nil
	case models.SlotFreight:
		updated.Freight = nil
	}
	updated.PairingVerified = models.PairingUnpaired
	updated.Verified = false
	updated.Data = m.catalogue.Defaults(m.now())

	saved, err := m.store.Update(ctx, updated)
	if err != nil {
		return err
	}
	*r = *saved
	return nil
}

// applyPlan executes a zipper plan: delete the invalidated tail, re-create
// the rejected documents as singletons, then persist the fresh drafts.
// The sequence is not atomic; on failure the error propagates and the
// mirror is refreshed to whatever state the store reached (see the
// reconcile pass for recovery on next load). Caller must hold the write
// lock.
func (m *Manager) applyPlan(ctx context.Context, plan *pairing.TailPlan) error {
	err := m.store.DeleteMany(ctx, plan.DeleteIDs)
	if err == nil {
		_, err = m.createDrafts(ctx, plan.Singletons)
	}
	if err == nil {
		_, err = m.createDrafts(ctx, plan.Drafts)
	}

	if rerr := m.refresh(ctx); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

// CreateManualPair pairs two singleton records into one new record. The
// user placed the documents into named slots deliberately, so the pair is
// trusted and skips the verification queue. This is the only path that
// creates an already-verified pair.
func (m *Manager) CreateManualPair(ctx context.Context, declarationID, freightID string) (*models.PairRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e1, e2 := m.find(declarationID), m.find(freightID)
	if e1 == nil || e2 == nil || declarationID == freightID {
		return nil, nil
	}

	declDoc := firstDocument(e1)
	freightDoc := firstDocument(e2)
	if declDoc == nil || freightDoc == nil {
		return nil, nil
	}

	record, err := m.store.Create(ctx,
		store.Slots{Declaration: declDoc, Freight: freightDoc},
		models.PairingVerified)
	if err != nil {
		return nil, err
	}
	err = m.store.DeleteMany(ctx, []string{declarationID, freightID})

	if rerr := m.refresh(ctx); rerr != nil && err == nil {
		err = rerr
	}
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

func firstDocument(r *models.PairRecord) *models.DocumentInfo {
	if r.Declaration != nil {
		return r.Declaration
	}
	return r.Freight
}

// AutoPairRemaining pairs all current singletons by filename order, the
// same walk as batch pairing. New pairs still enter the verification
// queue. A leftover odd singleton keeps its existing record untouched.
// Returns the created pair records.
func (m *Manager) AutoPairRemaining(ctx context.Context) ([]*models.PairRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	singles := make([]*models.PairRecord, 0, len(m.entries))
	for _, r := range m.entries {
		if r.IsSingleton() {
			singles = append(singles, r)
		}
	}
	if len(singles) < 2 {
		return nil, nil
	}

	pairing.NewSorter(m.opts.Locale).SortRecords(singles)

	// Only full pairs; the trailing odd record stays as it is.
	pairable := singles[:len(singles)-len(singles)%2]
	docs := make([]*models.DocumentInfo, 0, len(pairable))
	deleteIDs := make([]string, 0, len(pairable))
	for _, r := range pairable {
		docs = append(docs, firstDocument(r))
		deleteIDs = append(deleteIDs, r.ID)
	}

	drafts := pairing.BatchPair(docs, m.opts)
	created, err := m.createDrafts(ctx, drafts)
	if err == nil {
		err = m.store.DeleteMany(ctx, deleteIDs)
	}

	if rerr := m.refresh(ctx); rerr != nil && err == nil {
		err = rerr
	}
	return created, err
}

// Update overwrites a record in full (field edits, verification flags).
// The stored shape must stay legal: at least one document, and a pairing
// status that matches the slot count.
func (m *Manager) Update(ctx context.Context, record *models.PairRecord) (*models.PairRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record.DocumentCount() == 0 {
		return nil, fmt.Errorf("updating %s: %w", record.ID, store.ErrEmptySlots)
	}
	if !record.StatusConsistent() {
		return nil, fmt.Errorf("updating %s: pairing status %s does not match %d document(s)",
			record.ID, record.PairingVerified, record.DocumentCount())
	}

	saved, err := m.store.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	if r := m.find(saved.ID); r != nil {
		*r = *saved
	}
	return saved.Clone(), nil
}

// SetDataVerified toggles the data-verification flag, an axis independent
// of pairing.
func (m *Manager) SetDataVerified(ctx context.Context, id string, verified bool) (*models.PairRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.find(id)
	if r == nil {
		return nil, fmt.Errorf("verifying %s: %w", id, store.ErrNotFound)
	}

	updated := r.Clone()
	updated.Verified = verified
	saved, err := m.store.Update(ctx, updated)
	if err != nil {
		return nil, err
	}
	*r = *saved
	return saved.Clone(), nil
}

// RotateDocument applies a quarter-turn to one document. Rotation
// survives re-pairing because it lives on the document, not the record.
func (m *Manager) RotateDocument(ctx context.Context, id string, slot models.DocumentSlot, deg int) (*models.PairRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.find(id)
	if r == nil || !slot.Valid() || r.Document(slot) == nil {
		return nil, nil
	}

	updated := r.Clone()
	updated.Document(slot).Rotate(deg)
	saved, err := m.store.Update(ctx, updated)
	if err != nil {
		return nil, err
	}
	*r = *saved
	return saved.Clone(), nil
}

// RenameDocument changes the display name of one document. The document
// id is untouched; a rename can reorder the unverified queue.
func (m *Manager) RenameDocument(ctx context.Context, id string, slot models.DocumentSlot, name string) (*models.PairRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.find(id)
	if r == nil || !slot.Valid() || r.Document(slot) == nil || name == "" {
		return nil, nil
	}

	updated := r.Clone()
	updated.Document(slot).FileName = name
	saved, err := m.store.Update(ctx, updated)
	if err != nil {
		return nil, err
	}
	*r = *saved
	return saved.Clone(), nil
}

// Delete removes one record entirely, documents included.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	return m.refresh(ctx)
}

// DeleteMany removes a set of records.
func (m *Manager) DeleteMany(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.DeleteMany(ctx, ids); err != nil {
		return err
	}
	return m.refresh(ctx)
}

// Clear wipes the whole history.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	m.entries = nil
	return nil
}
