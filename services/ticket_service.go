package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/models"
	"ticket-marketplace/monitoring"
)

// TicketStore is the subset of the store the mutation service depends on.
type TicketStore interface {
	GetByID(ctx context.Context, id string) (*models.Ticket, error)
	Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error)
	Update(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error)
	Delete(ctx context.Context, id string) error
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// TicketService orchestrates every ticket mutation: fresh session first,
// precondition checks against the freshly read identity, derived price,
// remote call, then cache invalidation. Operations report through Result
// and never panic or throw at the surfaces.
type TicketService struct {
	store TicketStore
	cache CacheInvalidator
}

func NewTicketService(store TicketStore, cache CacheInvalidator) *TicketService {
	return &TicketService{store: store, cache: cache}
}

func (s *TicketService) Create(ctx context.Context, guard *SessionGuard, input models.TicketInput) Result[models.Ticket] {
	session, err := guard.EnsureFreshSession(ctx)
	if err != nil {
		return s.fail("create", err)
	}

	if err := validateCommercial(input.Title, input.PricePerUnit, input.Quantity); err != nil {
		return s.fail("create", err)
	}

	ticket := &models.Ticket{
		// The seller is always the fresh session user, never caller input.
		SellerID:     session.UserID,
		Title:        strings.TrimSpace(input.Title),
		Description:  input.Description,
		Category:     input.Category,
		Venue:        input.Venue,
		EventDate:    input.EventDate,
		EventTime:    input.EventTime,
		PricePerUnit: input.PricePerUnit,
		Quantity:     input.Quantity,
		Price:        computeTotal(input.PricePerUnit, input.Quantity),
		FilePath:     input.FilePath,
		Status:       models.StatusAvailable,
	}

	stored, err := s.store.Create(ctx, ticket)
	if err != nil {
		return s.fail("create", err)
	}

	s.invalidate(ctx, session.UserID)
	monitoring.TrackMutation("create", "success")
	return Ok(*stored)
}

func (s *TicketService) Update(ctx context.Context, guard *SessionGuard, id string, patch models.TicketPatch) Result[models.Ticket] {
	session, err := guard.EnsureFreshSession(ctx)
	if err != nil {
		return s.fail("update", err)
	}

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return s.fail("update", err)
	}

	// Ownership is re-checked at mutation time against the fresh session,
	// not trusted from whatever surface rendered the edit control.
	if !current.OwnedBy(session.UserID) {
		return s.fail("update", fmt.Errorf("%w: ticket %s", status.ErrForbidden, id))
	}
	if !current.Editable() {
		return s.fail("update", fmt.Errorf("%w: status is %s", status.ErrInvalidState, current.Status))
	}

	updated := *current
	patch.Apply(&updated)

	if err := validateCommercial(updated.Title, updated.PricePerUnit, updated.Quantity); err != nil {
		return s.fail("update", err)
	}
	if patch.RepricesTicket() {
		updated.Price = computeTotal(updated.PricePerUnit, updated.Quantity)
	}

	stored, err := s.store.Update(ctx, &updated)
	if err != nil {
		return s.fail("update", err)
	}

	s.invalidate(ctx, session.UserID)
	monitoring.TrackMutation("update", "success")
	return Ok(*stored)
}

func (s *TicketService) Delete(ctx context.Context, guard *SessionGuard, id string) Result[struct{}] {
	session, err := guard.EnsureFreshSession(ctx)
	if err != nil {
		return s.fail2("delete", err)
	}

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		// A concurrent delete from another tab is a benign race: the row is
		// already gone, which is the state this call was asked to produce.
		if errors.Is(err, status.ErrNotFound) {
			s.invalidate(ctx, session.UserID)
			monitoring.TrackMutation("delete", "success")
			return Ok(struct{}{})
		}
		return s.fail2("delete", err)
	}

	if !current.OwnedBy(session.UserID) {
		return s.fail2("delete", fmt.Errorf("%w: ticket %s", status.ErrForbidden, id))
	}
	if !current.Editable() {
		return s.fail2("delete", fmt.Errorf("%w: status is %s", status.ErrInvalidState, current.Status))
	}

	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, status.ErrNotFound) {
		return s.fail2("delete", err)
	}

	s.invalidate(ctx, session.UserID)
	monitoring.TrackMutation("delete", "success")
	return Ok(struct{}{})
}

// MarkSold assigns the fresh session user as buyer and transitions the
// ticket to sold. Development-only purchase simulation; no payment runs.
func (s *TicketService) MarkSold(ctx context.Context, guard *SessionGuard, id string) Result[models.Ticket] {
	session, err := guard.EnsureFreshSession(ctx)
	if err != nil {
		return s.fail("mark_sold", err)
	}

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return s.fail("mark_sold", err)
	}

	if current.SellerID == session.UserID {
		return s.fail("mark_sold", fmt.Errorf("%w: seller cannot purchase own ticket", status.ErrValidation))
	}
	if !current.Editable() {
		return s.fail("mark_sold", fmt.Errorf("%w: status is %s", status.ErrInvalidState, current.Status))
	}

	updated := *current
	updated.BuyerID = session.UserID
	updated.Status = models.StatusSold

	stored, err := s.store.Update(ctx, &updated)
	if err != nil {
		return s.fail("mark_sold", err)
	}

	// Both parties' collection views changed.
	s.invalidate(ctx, stored.SellerID)
	s.invalidate(ctx, session.UserID)
	monitoring.TrackMutation("mark_sold", "success")
	return Ok(*stored)
}

// invalidate runs strictly after a confirmed remote success. A failed
// invalidation leaves surfaces stale, so it is logged at error level.
func (s *TicketService) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		slog.Error("cache invalidation failed after mutation", "userID", userID, "error", err)
	}
}

func (s *TicketService) fail(operation string, err error) Result[models.Ticket] {
	monitoring.TrackMutation(operation, status.KindOf(err))
	return Fail[models.Ticket](err)
}

func (s *TicketService) fail2(operation string, err error) Result[struct{}] {
	monitoring.TrackMutation(operation, status.KindOf(err))
	return Fail[struct{}](err)
}

func validateCommercial(title string, pricePerUnit float64, quantity int) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", status.ErrValidation)
	}
	if pricePerUnit < 0 {
		return fmt.Errorf("%w: price per unit must not be negative", status.ErrValidation)
	}
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", status.ErrValidation)
	}
	return nil
}

// computeTotal derives the total price from its factors. The service owns
// this, callers supplying a total are ignored, so the invariant
// price == round(price_per_unit * quantity, 2) cannot drift.
func computeTotal(pricePerUnit float64, quantity int) float64 {
	return decimal.NewFromFloat(pricePerUnit).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2).
		InexactFloat64()
}
