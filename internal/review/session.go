// Package review drives the fullscreen verification workflow: walking the
// unverified queue one pair at a time and deciding what the user sees
// after each confirm, reject or document removal.
package review

import (
	"context"
	"sync"

	"github.com/customs-pairing/backend/internal/history"
	"github.com/customs-pairing/backend/internal/models"
)

// ViewContext selects which records the fullscreen view iterates.
type ViewContext string

const (
	// ContextAnalysis shows only the unverified queue (initial pairing
	// review after an upload).
	ContextAnalysis ViewContext = "analysis"
	// ContextHistory shows every record (general browsing and editing).
	ContextHistory ViewContext = "history"
)

// Valid reports whether the context is one of the two known views.
func (v ViewContext) Valid() bool {
	return v == ContextAnalysis || v == ContextHistory
}

// State of the workflow.
type State string

const (
	// StateIdle: no pair is under pairing review; the view is either
	// closed or showing a record in plain data-entry mode.
	StateIdle State = "idle"
	// StateAwaitingDecision: the current record is an unconfirmed
	// two-document pair and the user must confirm or break it.
	StateAwaitingDecision State = "awaiting_decision"
)

// Outcome reports where the workflow landed after an action.
type Outcome struct {
	Record *models.PairRecord `json:"record,omitempty"`
	Closed bool               `json:"closed"`
}

// Session is the single active fullscreen view. The app is single-user,
// so one session exists per server; opening a new view replaces it.
// Decisions are strictly sequential: only one record is ever awaiting a
// decision.
type Session struct {
	mu        sync.Mutex
	mgr       *history.Manager
	viewCtx   ViewContext
	currentID string
	open      bool
}

// NewSession creates a closed session over the manager.
func NewSession(mgr *history.Manager) *Session {
	return &Session{mgr: mgr}
}

// Open starts a view in the given context at the selected record.
func (s *Session) Open(viewCtx ViewContext, selectedID string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.viewCtx = viewCtx
	s.currentID = selectedID
	s.open = true
	return s.settle()
}

// Close ends the view.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.currentID = ""
}

// State reports the workflow state for the current record. Records that
// are already verified or unpaired never await a decision; they go
// straight to data-entry mode.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return StateIdle
	}
	r, ok := s.mgr.Get(s.currentID)
	if ok && r.IsPendingPair() {
		return StateAwaitingDecision
	}
	return StateIdle
}

// Current returns the selected record, if the view is open and the record
// still exists.
func (s *Session) Current() (*models.PairRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, false
	}
	return s.mgr.Get(s.currentID)
}

// items lists the records the view iterates, in view order.
func (s *Session) items() []*models.PairRecord {
	if s.viewCtx == ContextAnalysis {
		return s.mgr.PendingQueue()
	}
	return s.mgr.Entries()
}

// Navigate moves by offset within the view's item list, clamped to its
// bounds. Closes the view when the list is empty.
func (s *Session) Navigate(offset int) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return Outcome{Closed: true}
	}

	items := s.items()
	if len(items) == 0 {
		s.open = false
		return Outcome{Closed: true}
	}

	idx := indexOf(items, s.currentID) + offset
	if idx < 0 {
		idx = 0
	}
	if idx >= len(items) {
		idx = len(items) - 1
	}
	s.currentID = items[idx].ID
	return Outcome{Record: items[idx]}
}

// Confirm accepts the current pairing. Invalid when no pending pair is
// selected; then nothing changes. Afterwards the view moves to the next
// unverified pair, or closes when the queue is empty.
func (s *Session) Confirm(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return Outcome{Closed: true}, nil
	}

	saved, err := s.mgr.ConfirmPairing(ctx, s.currentID)
	if err != nil {
		return Outcome{}, err
	}
	if saved == nil {
		// Not a pending pair: no-op, stay put.
		r, _ := s.mgr.Get(s.currentID)
		return Outcome{Record: r}, nil
	}
	return s.afterQueueAction(), nil
}

// Reject breaks the current pairing outright. Inside the queue this
// triggers zipper re-pairing of the tail.
func (s *Session) Reject(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return Outcome{Closed: true}, nil
	}

	prevIdx := indexOf(s.items(), s.currentID)
	if err := s.mgr.RejectPairing(ctx, s.currentID); err != nil {
		return Outcome{}, err
	}
	return s.afterBreak(prevIdx), nil
}

// DeleteSide removes one document from the current pair. Inside the queue
// this triggers zipper re-pairing of the tail.
func (s *Session) DeleteSide(ctx context.Context, slot models.DocumentSlot) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return Outcome{Closed: true}, nil
	}

	prevIdx := indexOf(s.items(), s.currentID)
	if err := s.mgr.RemoveDocument(ctx, s.currentID, slot); err != nil {
		return Outcome{}, err
	}
	return s.afterBreak(prevIdx), nil
}

// afterQueueAction moves to the first remaining unverified pair or closes
// the view. Caller must hold the lock.
func (s *Session) afterQueueAction() Outcome {
	next, ok := s.mgr.NextPending("")
	if !ok {
		if s.viewCtx == ContextAnalysis {
			s.open = false
			s.currentID = ""
			return Outcome{Closed: true}
		}
		return s.settle()
	}
	s.currentID = next.ID
	return Outcome{Record: next}
}

// afterBreak decides the post-break navigation target. In the analysis
// context the queue rules apply; in the history context the previous
// display index is clamped into the updated item list. Caller must hold
// the lock.
func (s *Session) afterBreak(prevIdx int) Outcome {
	if s.viewCtx == ContextAnalysis {
		return s.afterQueueAction()
	}

	items := s.items()
	if len(items) == 0 {
		s.open = false
		s.currentID = ""
		return Outcome{Closed: true}
	}
	if prevIdx < 0 {
		prevIdx = 0
	}
	if prevIdx >= len(items) {
		prevIdx = len(items) - 1
	}
	s.currentID = items[prevIdx].ID
	return Outcome{Record: items[prevIdx]}
}

// settle re-resolves the current selection against the item list: missing
// targets fall back to the first remaining item, an empty list closes the
// view. Caller must hold the lock.
func (s *Session) settle() Outcome {
	items := s.items()
	if len(items) == 0 {
		s.open = false
		s.currentID = ""
		return Outcome{Closed: true}
	}
	if idx := indexOf(items, s.currentID); idx >= 0 {
		return Outcome{Record: items[idx]}
	}
	s.currentID = items[0].ID
	return Outcome{Record: items[0]}
}

func indexOf(items []*models.PairRecord, id string) int {
	for i, r := range items {
		if r.ID == id {
			return i
		}
	}
	return -1
}
