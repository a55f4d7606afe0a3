package pairing

import (
	"testing"
	"time"

	"github.com/customs-pairing/backend/internal/models"
)

func pendingRecord(id, declName, freightName string) *models.PairRecord {
	return &models.PairRecord{
		ID:              id,
		AnalyzedAt:      time.Now(),
		Declaration:     doc(declName),
		Freight:         doc(freightName),
		Status:          models.RecordSuccess,
		PairingVerified: models.PairingPending,
	}
}

func TestPendingQueue(t *testing.T) {
	opts := Options{Locale: "tr"}

	verified := pendingRecord("r-verified", "x1.png", "x2.png")
	verified.PairingVerified = models.PairingVerified

	singleton := &models.PairRecord{
		ID:              "r-single",
		Declaration:     doc("y.png"),
		PairingVerified: models.PairingUnpaired,
	}

	records := []*models.PairRecord{
		pendingRecord("r2", "scan_03.png", "scan_04.png"),
		verified,
		pendingRecord("r1", "scan_01.png", "scan_02.png"),
		singleton,
	}

	queue := PendingQueue(records, opts)
	if len(queue) != 2 {
		t.Fatalf("Expected 2 queue entries, got %d", len(queue))
	}
	if queue[0].ID != "r1" || queue[1].ID != "r2" {
		t.Errorf("Expected queue order [r1 r2], got [%s %s]", queue[0].ID, queue[1].ID)
	}
}

func TestPlanZipper(t *testing.T) {
	opts := Options{Locale: "tr"}

	// Queue of three pending pairs: (01,02) (03,04) (05,06).
	queue := []*models.PairRecord{
		pendingRecord("r1", "scan_01.png", "scan_02.png"),
		pendingRecord("r2", "scan_03.png", "scan_04.png"),
		pendingRecord("r3", "scan_05.png", "scan_06.png"),
	}

	t.Run("removing one document re-pairs the tail", func(t *testing.T) {
		// Remove scan_03; the tail (03,04),(05,06) flattens to 04,05,06
		// and re-pairs as (04,05) plus singleton 06.
		plan, ok := PlanZipper(queue, "r2", []string{"doc-scan_03.png"}, opts)
		if !ok {
			t.Fatal("Expected target to be found in queue")
		}

		if len(plan.DeleteIDs) != 2 || plan.DeleteIDs[0] != "r2" || plan.DeleteIDs[1] != "r3" {
			t.Errorf("Expected tail deletes [r2 r3], got %v", plan.DeleteIDs)
		}
		if len(plan.Singletons) != 1 {
			t.Fatalf("Expected 1 singleton, got %d", len(plan.Singletons))
		}
		if plan.Singletons[0].Declaration == nil || plan.Singletons[0].Declaration.FileName != "scan_03.png" {
			t.Errorf("Expected removed scan_03 as declaration singleton, got %+v", plan.Singletons[0])
		}

		got := names(plan.Drafts)
		want := [][2]string{
			{"scan_04.png", "scan_05.png"},
			{"scan_06.png", ""},
		}
		if len(got) != len(want) {
			t.Fatalf("Expected %d drafts, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Draft %d: expected %v, got %v", i, want[i], got[i])
			}
		}
	})

	t.Run("records before the target are untouched", func(t *testing.T) {
		plan, ok := PlanZipper(queue, "r2", []string{"doc-scan_03.png"}, opts)
		if !ok {
			t.Fatal("Expected target to be found in queue")
		}
		for _, id := range plan.DeleteIDs {
			if id == "r1" {
				t.Error("Expected r1 to survive the zipper")
			}
		}
	})

	t.Run("rejecting a full pair sheds both documents", func(t *testing.T) {
		plan, ok := PlanZipper(queue, "r1", []string{"doc-scan_01.png", "doc-scan_02.png"}, opts)
		if !ok {
			t.Fatal("Expected target to be found in queue")
		}

		if len(plan.DeleteIDs) != 3 {
			t.Errorf("Expected whole queue invalidated, got %v", plan.DeleteIDs)
		}
		if len(plan.Singletons) != 2 {
			t.Fatalf("Expected 2 singletons, got %d", len(plan.Singletons))
		}
		// Rejected documents keep their original slots.
		if plan.Singletons[0].Declaration == nil || plan.Singletons[1].Freight == nil {
			t.Errorf("Expected slot-preserving singletons, got %+v", plan.Singletons)
		}

		// Survivors 03..06 re-pair cleanly.
		got := names(plan.Drafts)
		want := [][2]string{
			{"scan_03.png", "scan_04.png"},
			{"scan_05.png", "scan_06.png"},
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Draft %d: expected %v, got %v", i, want[i], got[i])
			}
		}
	})

	t.Run("target outside the queue reports not found", func(t *testing.T) {
		if _, ok := PlanZipper(queue, "missing", nil, opts); ok {
			t.Error("Expected ok=false for unknown target")
		}
	})

	t.Run("no document is lost or duplicated", func(t *testing.T) {
		plan, _ := PlanZipper(queue, "r2", []string{"doc-scan_04.png"}, opts)

		seen := map[string]int{}
		for _, d := range plan.Singletons {
			for _, s := range []*models.DocumentInfo{d.Declaration, d.Freight} {
				if s != nil {
					seen[s.ID]++
				}
			}
		}
		for _, d := range plan.Drafts {
			for _, s := range []*models.DocumentInfo{d.Declaration, d.Freight} {
				if s != nil {
					seen[s.ID]++
				}
			}
		}

		// Tail held 4 documents (r2, r3); all must reappear exactly once.
		if len(seen) != 4 {
			t.Errorf("Expected 4 documents across plan, got %d", len(seen))
		}
		for id, n := range seen {
			if n != 1 {
				t.Errorf("Document %s appears %d times", id, n)
			}
		}
	})
}
