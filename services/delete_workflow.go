package services

import (
	"context"
	"fmt"
	"sync"

	"ticket-marketplace/internal/status"
)

type TicketDeleter interface {
	Delete(ctx context.Context, guard *SessionGuard, id string) Result[struct{}]
}

// DeleteWorkflow guards destructive actions behind an explicit confirm step:
// idle -> pending confirmation -> deleting -> idle. Opening the workflow
// never touches the network; only Confirm does. While a delete is in
// flight a second Confirm is rejected without issuing another remote call.
type DeleteWorkflow struct {
	svc TicketDeleter

	mu        sync.Mutex
	pendingID string
	deleting  bool
}

func NewDeleteWorkflow(svc TicketDeleter) *DeleteWorkflow {
	return &DeleteWorkflow{svc: svc}
}

// Open stages id for confirmation, replacing any previously staged id.
func (w *DeleteWorkflow) Open(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.deleting {
		return
	}
	w.pendingID = id
}

// Cancel clears the staged id without deleting anything.
func (w *DeleteWorkflow) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.deleting {
		return
	}
	w.pendingID = ""
}

// State reports the staged ticket id and whether a delete is in flight,
// which is what the confirm control renders (and disables) from.
func (w *DeleteWorkflow) State() (pendingID string, isDeleting bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pendingID, w.deleting
}

// Confirm executes the staged delete. Whatever the outcome, the workflow
// returns to idle: a failed delete must not leave the UI stuck in a
// deleting state.
func (w *DeleteWorkflow) Confirm(ctx context.Context, guard *SessionGuard) Result[struct{}] {
	w.mu.Lock()
	if w.deleting {
		w.mu.Unlock()
		return Fail[struct{}](fmt.Errorf("%w: delete already in progress", status.ErrInvalidState))
	}
	if w.pendingID == "" {
		w.mu.Unlock()
		return Fail[struct{}](fmt.Errorf("%w: no delete pending confirmation", status.ErrInvalidState))
	}
	id := w.pendingID
	w.deleting = true
	w.mu.Unlock()

	res := w.svc.Delete(ctx, guard, id)

	w.mu.Lock()
	w.deleting = false
	w.pendingID = ""
	w.mu.Unlock()

	return res
}
