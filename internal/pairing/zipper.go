package pairing

import "github.com/customs-pairing/backend/internal/models"

// PendingQueue derives the ordered unverified queue from a record set:
// every record with two documents and unconfirmed pairing, sorted by the
// same filename collation as batch pairing.
func PendingQueue(records []*models.PairRecord, opts Options) []*models.PairRecord {
	queue := make([]*models.PairRecord, 0, len(records))
	for _, r := range records {
		if r.IsPendingPair() {
			queue = append(queue, r)
		}
	}
	NewSorter(opts.Locale).SortRecords(queue)
	return queue
}

// TailPlan describes the store mutations of one zipper pass: which
// records to delete, which documents come back as singletons, and the
// fresh drafts re-paired over the surviving documents.
type TailPlan struct {
	// DeleteIDs are the invalidated tail records, in queue order.
	DeleteIDs []string
	// Singletons are the rejected documents, each to be re-created as
	// its own unpaired record, keeping its original slot.
	Singletons []Draft
	// Drafts are the re-paired survivors.
	Drafts []Draft
}

// PlanZipper computes the invalidate-and-recompute plan for breaking the
// record targetID inside the given queue. removeDocs lists the document
// ids leaving the pairing sequence: both documents of the target for a
// full rejection, or a single document id for a one-side removal.
//
// Every pair downstream of the break is positionally suspect (removing a
// document shifts each subsequent document's role), so the whole tail
// from the target onward is flattened and re-paired. Records before the
// target are untouched. Returns ok=false when the target is not in the
// queue; callers then fall back to a local split.
func PlanZipper(queue []*models.PairRecord, targetID string, removeDocs []string, opts Options) (*TailPlan, bool) {
	k := -1
	for i, r := range queue {
		if r.ID == targetID {
			k = i
			break
		}
	}
	if k < 0 {
		return nil, false
	}

	removed := make(map[string]bool, len(removeDocs))
	for _, id := range removeDocs {
		removed[id] = true
	}

	plan := &TailPlan{}
	var survivors []*models.DocumentInfo
	for _, r := range queue[k:] {
		plan.DeleteIDs = append(plan.DeleteIDs, r.ID)
		if doc := r.Declaration; doc != nil {
			if removed[doc.ID] {
				plan.Singletons = append(plan.Singletons, Draft{Declaration: doc})
			} else {
				survivors = append(survivors, doc)
			}
		}
		if doc := r.Freight; doc != nil {
			if removed[doc.ID] {
				plan.Singletons = append(plan.Singletons, Draft{Freight: doc})
			} else {
				survivors = append(survivors, doc)
			}
		}
	}

	plan.Drafts = BatchPair(survivors, opts)
	return plan, true
}
