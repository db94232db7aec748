package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/services"
)

// SelectionHandler exposes the shared "currently previewed ticket" slot.
// One selection exists system-wide; setting it from any surface replaces
// whatever another surface had selected.
type SelectionHandler struct {
	store     *services.Store
	selection *services.SelectionStore
}

func NewSelectionHandler(store *services.Store, selection *services.SelectionStore) *SelectionHandler {
	return &SelectionHandler{
		store:     store,
		selection: selection,
	}
}

func (h *SelectionHandler) Get(e *core.RequestEvent) error {
	return e.JSON(http.StatusOK, map[string]any{
		"ticket": h.selection.Get(),
	})
}

func (h *SelectionHandler) Set(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		TicketID string `json:"ticket_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if req.TicketID == "" {
		h.selection.Set(nil)
		return h.Get(e)
	}

	ticket, err := h.store.GetByID(e.Request.Context(), req.TicketID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return apis.NewNotFoundError("Ticket not found", err)
		}
		return apis.NewBadRequestError("Failed to load ticket", err)
	}

	h.selection.Set(ticket)
	return h.Get(e)
}

func (h *SelectionHandler) Clear(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	h.selection.Set(nil)
	return h.Get(e)
}
