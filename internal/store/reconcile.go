package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/customs-pairing/backend/internal/models"
)

// ReconcilePlan lists the repairs needed to bring a loaded record set
// back to a consistent state after a crash mid-way through a multi-record
// sequence (zipper deletes and recreates are not transactional).
type ReconcilePlan struct {
	Updates   []*models.PairRecord
	DeleteIDs []string
}

// Empty reports whether no repairs are needed.
func (p *ReconcilePlan) Empty() bool {
	return len(p.Updates) == 0 && len(p.DeleteIDs) == 0
}

// Reconcile inspects all records and plans repairs:
//   - records with no documents are deleted (never a valid shape),
//   - a document owned by more than one record stays with the oldest
//     record and is removed from the newer ones,
//   - the pairing tri-state is realigned with the slot count.
//
// Field data is left untouched; this pass restores invariants, it does
// not second-guess user input.
func Reconcile(records []*models.PairRecord) *ReconcilePlan {
	plan := &ReconcilePlan{}

	// Oldest records claim their documents first.
	ordered := make([]*models.PairRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].AnalyzedAt.Before(ordered[j].AnalyzedAt)
	})

	owned := make(map[string]string) // document id -> record id
	for _, r := range ordered {
		changed := false

		if r.Declaration != nil {
			if _, taken := owned[r.Declaration.ID]; taken {
				r.Declaration = nil
				changed = true
			} else {
				owned[r.Declaration.ID] = r.ID
			}
		}
		if r.Freight != nil {
			if _, taken := owned[r.Freight.ID]; taken {
				r.Freight = nil
				changed = true
			} else {
				owned[r.Freight.ID] = r.ID
			}
		}

		if r.DocumentCount() == 0 {
			plan.DeleteIDs = append(plan.DeleteIDs, r.ID)
			continue
		}

		if !r.StatusConsistent() {
			if r.DocumentCount() < 2 {
				r.PairingVerified = models.PairingUnpaired
			} else {
				r.PairingVerified = models.PairingPending
			}
			changed = true
		}

		if changed {
			plan.Updates = append(plan.Updates, r)
		}
	}

	return plan
}

// ApplyReconcile loads all records, plans repairs and writes them back.
// Returns the repaired record set.
func ApplyReconcile(ctx context.Context, s Store) ([]*models.PairRecord, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	plan := Reconcile(records)
	if plan.Empty() {
		return records, nil
	}

	fmt.Printf("[Store] Reconcile: %d updates, %d deletes\n", len(plan.Updates), len(plan.DeleteIDs))
	for _, r := range plan.Updates {
		if _, err := s.Update(ctx, r); err != nil {
			return nil, fmt.Errorf("reconcile update: %w", err)
		}
	}
	if err := s.DeleteMany(ctx, plan.DeleteIDs); err != nil {
		return nil, fmt.Errorf("reconcile delete: %w", err)
	}

	return s.ListAll(ctx)
}
