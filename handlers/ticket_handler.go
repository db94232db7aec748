package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-marketplace/models"
	"ticket-marketplace/services"
)

type TicketHandler struct {
	app             *pocketbase.PocketBase
	store           *services.Store
	cache           *services.CollectionCache
	svc             *services.TicketService
	workflow        *services.DeleteWorkflow
	sessionValidity time.Duration
}

func NewTicketHandler(
	app *pocketbase.PocketBase,
	store *services.Store,
	cache *services.CollectionCache,
	svc *services.TicketService,
	workflow *services.DeleteWorkflow,
	sessionValidity time.Duration,
) *TicketHandler {
	return &TicketHandler{
		app:             app,
		store:           store,
		cache:           cache,
		svc:             svc,
		workflow:        workflow,
		sessionValidity: sessionValidity,
	}
}

// guard builds the per-request session guard every mutating path must go
// through before touching the tickets table.
func (h *TicketHandler) guard(e *core.RequestEvent) *services.SessionGuard {
	return services.NewSessionGuard(newRecordAuth(h.app, e.Auth, h.sessionValidity))
}

// Browse - public marketplace listing of available tickets
func (h *TicketHandler) Browse(e *core.RequestEvent) error {
	query := e.Request.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	listings, err := h.store.BrowseAvailable(e.Request.Context(), limit, offset)
	if err != nil {
		return apis.NewBadRequestError("Failed to list tickets", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"tickets": listings,
		"count":   len(listings),
	})
}

// GetMyCollection - the cached added/purchased projection for the
// authenticated user. ?refresh=1 forces an invalidation first.
func (h *TicketHandler) GetMyCollection(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ctx := e.Request.Context()
	userID := e.Auth.Id

	if e.Request.URL.Query().Get("refresh") != "" {
		if err := h.cache.Invalidate(ctx, userID); err != nil {
			return apis.NewBadRequestError("Failed to refresh tickets", err)
		}
	}

	col, err := h.cache.GetOrFetch(ctx, userID)
	if err != nil {
		return apis.NewBadRequestError("Failed to get tickets", err)
	}

	return e.JSON(http.StatusOK, col)
}

// Create - list a new ticket for sale
func (h *TicketHandler) Create(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var input models.TicketInput
	if err := e.BindBody(&input); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	res := h.svc.Create(e.Request.Context(), h.guard(e), input)
	return writeResult(e, res)
}

// Update - partial edit of an available ticket by its seller
func (h *TicketHandler) Update(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Ticket ID is required", nil)
	}

	var patch models.TicketPatch
	if err := e.BindBody(&patch); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	res := h.svc.Update(e.Request.Context(), h.guard(e), id, patch)
	return writeResult(e, res)
}

// RequestDelete - stage a ticket for deletion, no network side effects
func (h *TicketHandler) RequestDelete(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Ticket ID is required", nil)
	}

	h.workflow.Open(id)
	return h.deleteState(e)
}

// ConfirmDelete - execute the staged delete
func (h *TicketHandler) ConfirmDelete(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	res := h.workflow.Confirm(e.Request.Context(), h.guard(e))
	return writeResult(e, res)
}

// CancelDelete - drop the staged delete without touching the backend
func (h *TicketHandler) CancelDelete(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	h.workflow.Cancel()
	return h.deleteState(e)
}

// GetDeleteState - what the confirm dialog renders and disables from
func (h *TicketHandler) GetDeleteState(e *core.RequestEvent) error {
	return h.deleteState(e)
}

func (h *TicketHandler) deleteState(e *core.RequestEvent) error {
	pendingID, isDeleting := h.workflow.State()
	return e.JSON(http.StatusOK, map[string]any{
		"pending_id":  pendingID,
		"is_deleting": isDeleting,
	})
}

// SimulatePurchase - development-only purchase simulation; assigns the
// authenticated user as buyer and marks the ticket sold.
func (h *TicketHandler) SimulatePurchase(e *core.RequestEvent) error {
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
		return apis.NewBadRequestError("Ticket ID is required", nil)
	}

	res := h.svc.MarkSold(e.Request.Context(), h.guard(e), req.TicketID)
	return writeResult(e, res)
}

func statusForKind(kind string) int {
	switch kind {
	case "not_authenticated":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "validation_error":
		return http.StatusBadRequest
	case "invalid_state":
		return http.StatusConflict
	case "not_found":
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// writeResult serializes the uniform mutation result. Failures keep the
// result body so surfaces branch on success/kind, the HTTP code is advisory.
func writeResult[T any](e *core.RequestEvent, res services.Result[T]) error {
	if res.Success {
		return e.JSON(http.StatusOK, res)
	}
	return e.JSON(statusForKind(res.Kind), res)
}
