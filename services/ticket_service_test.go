package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/models"
)

type fakeAuth struct {
	session    *Session
	sessionErr error
	refreshErr error
	refreshes  int
}

func (f *fakeAuth) RefreshSession(ctx context.Context) error {
	f.refreshes++
	return f.refreshErr
}

func (f *fakeAuth) GetSession(ctx context.Context) (*Session, error) {
	return f.session, f.sessionErr
}

// fakeStore keeps tickets in a map and appends every call to events so
// tests can assert ordering against the invalidator.
type fakeStore struct {
	tickets map[string]*models.Ticket
	nextID  int
	failAll error
	events  *[]string
}

func newFakeStore(events *[]string) *fakeStore {
	return &fakeStore{tickets: map[string]*models.Ticket{}, events: events}
}

func (f *fakeStore) log(event string) {
	if f.events != nil {
		*f.events = append(*f.events, event)
	}
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	t, ok := f.tickets[id]
	if !ok {
		return nil, fmt.Errorf("%w: ticket %s", status.ErrNotFound, id)
	}
	copied := *t
	return &copied, nil
}

func (f *fakeStore) Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.nextID++
	copied := *ticket
	copied.ID = fmt.Sprintf("ticket-%d", f.nextID)
	copied.CreatedAt = time.Now()
	copied.UpdatedAt = copied.CreatedAt
	f.tickets[copied.ID] = &copied
	f.log("store:create")
	result := copied
	return &result, nil
}

func (f *fakeStore) Update(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	if _, ok := f.tickets[ticket.ID]; !ok {
		return nil, fmt.Errorf("%w: ticket %s", status.ErrNotFound, ticket.ID)
	}
	copied := *ticket
	copied.UpdatedAt = time.Now()
	f.tickets[copied.ID] = &copied
	f.log("store:update")
	result := copied
	return &result, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	if f.failAll != nil {
		return f.failAll
	}
	if _, ok := f.tickets[id]; !ok {
		return fmt.Errorf("%w: ticket %s", status.ErrNotFound, id)
	}
	delete(f.tickets, id)
	f.log("store:delete")
	return nil
}

type recordingInvalidator struct {
	events *[]string
	err    error
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, userID string) error {
	if r.events != nil {
		*r.events = append(*r.events, "invalidate:"+userID)
	}
	return r.err
}

func sellerGuard() *SessionGuard {
	return NewSessionGuard(&fakeAuth{session: &Session{
		UserID:    "seller-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}})
}

func guardFor(userID string) *SessionGuard {
	return NewSessionGuard(&fakeAuth{session: &Session{
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Hour),
	}})
}

func setupTicketService() (*TicketService, *fakeStore, *[]string) {
	events := &[]string{}
	store := newFakeStore(events)
	svc := NewTicketService(store, &recordingInvalidator{events: events})
	return svc, store, events
}

func TestTicketService_Create_ComputesDerivedPrice(t *testing.T) {
	svc, _, _ := setupTicketService()

	res := svc.Create(context.Background(), sellerGuard(), models.TicketInput{
		Title:        "Concert ticket",
		PricePerUnit: 15.00,
		Quantity:     3,
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 45.00, res.Data.Price)
	assert.Equal(t, "seller-1", res.Data.SellerID)
	assert.Equal(t, models.StatusAvailable, res.Data.Status)
}

func TestTicketService_Create_RoundsToCents(t *testing.T) {
	svc, _, _ := setupTicketService()

	res := svc.Create(context.Background(), sellerGuard(), models.TicketInput{
		Title:        "Odd pricing",
		PricePerUnit: 10.005,
		Quantity:     3,
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 30.02, res.Data.Price)
}

func TestTicketService_Create_ValidationFailures(t *testing.T) {
	svc, store, _ := setupTicketService()

	cases := []models.TicketInput{
		{Title: "", PricePerUnit: 10, Quantity: 1},
		{Title: "   ", PricePerUnit: 10, Quantity: 1},
		{Title: "ok", PricePerUnit: -1, Quantity: 1},
		{Title: "ok", PricePerUnit: 10, Quantity: 0},
	}

	for _, input := range cases {
		res := svc.Create(context.Background(), sellerGuard(), input)
		assert.False(t, res.Success)
		assert.Equal(t, "validation_error", res.Kind)
	}

	assert.Empty(t, store.tickets, "no remote writes on validation failure")
}

func TestTicketService_Create_NotAuthenticated(t *testing.T) {
	svc, store, _ := setupTicketService()
	guard := NewSessionGuard(&fakeAuth{session: nil})

	res := svc.Create(context.Background(), guard, models.TicketInput{
		Title:        "Concert ticket",
		PricePerUnit: 10,
		Quantity:     1,
	})

	assert.False(t, res.Success)
	assert.Equal(t, "not_authenticated", res.Kind)
	assert.Empty(t, store.tickets)
}

func TestTicketService_Create_InvalidatesAfterRemoteSuccess(t *testing.T) {
	svc, _, events := setupTicketService()

	res := svc.Create(context.Background(), sellerGuard(), models.TicketInput{
		Title:        "Concert ticket",
		PricePerUnit: 10,
		Quantity:     1,
	})

	require.True(t, res.Success)
	require.Equal(t, []string{"store:create", "invalidate:seller-1"}, *events,
		"invalidation must follow the confirmed remote write, never precede it")
}

func TestTicketService_Update_RecomputesPriceOnQuantityChange(t *testing.T) {
	svc, _, _ := setupTicketService()

	created := svc.Create(context.Background(), sellerGuard(), models.TicketInput{
		Title:        "Concert ticket",
		PricePerUnit: 15.00,
		Quantity:     3,
	})
	require.True(t, created.Success)

	qty := 2
	res := svc.Update(context.Background(), sellerGuard(), created.Data.ID, models.TicketPatch{
		Quantity: &qty,
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 30.00, res.Data.Price)
	assert.Equal(t, 2, res.Data.Quantity)
}

func TestTicketService_Update_PreservesFilePath(t *testing.T) {
	svc, _, _ := setupTicketService()

	created := svc.Create(context.Background(), sellerGuard(), models.TicketInput{
		Title:        "Concert ticket",
		PricePerUnit: 15.00,
		Quantity:     3,
		FilePath:     "tickets/abc/scan.pdf",
	})
	require.True(t, created.Success)

	title := "Concert ticket (updated)"
	res := svc.Update(context.Background(), sellerGuard(), created.Data.ID, models.TicketPatch{
		Title: &title,
	})

	require.True(t, res.Success)
	assert.Equal(t, "tickets/abc/scan.pdf", res.Data.FilePath)
}

func TestTicketService_Update_ForbiddenForNonOwner(t *testing.T) {
	svc, store, _ := setupTicketService()

	created := svc.Create(context.Background(), sellerGuard(), models.TicketInput{
		Title:        "Concert ticket",
		PricePerUnit: 15.00,
		Quantity:     3,
	})
	require.True(t, created.Success)

	qty := 1
	res := svc.Update(context.Background(), guardFor("buyer-9"), created.Data.ID, models.TicketPatch{
		Quantity: &qty,
	})

	assert.False(t, res.Success)
	assert.Equal(t, "forbidden", res.Kind)

	// The remote row is untouched.
	stored := store.tickets[created.Data.ID]
	assert.Equal(t, 3, stored.Quantity)
	assert.Equal(t, 45.00, stored.Price)
}

func TestTicketService_Update_RejectedOutsideAvailable(t *testing.T) {
	svc, store, _ := setupTicketService()

	for _, ticketStatus := range []models.TicketStatus{models.StatusSold, models.StatusExpired, models.StatusCancelled} {
		id := fmt.Sprintf("frozen-%s", ticketStatus)
		store.tickets[id] = &models.Ticket{
			ID:       id,
			SellerID: "seller-1",
			Title:    "Frozen",
			Quantity: 1,
			Status:   ticketStatus,
		}

		title := "nope"
		res := svc.Update(context.Background(), sellerGuard(), id, models.TicketPatch{Title: &title})

		assert.False(t, res.Success)
		assert.Equal(t, "invalid_state", res.Kind, "status %s", ticketStatus)
		assert.Equal(t, "Frozen", store.tickets[id].Title)
	}
}

func TestTicketService_Delete_IdempotentOnMissingTicket(t *testing.T) {
	svc, _, _ := setupTicketService()

	created := svc.Create(context.Background(), sellerGuard(), models.TicketInput{
		Title:        "Concert ticket",
		PricePerUnit: 15.00,
		Quantity:     3,
	})
	require.True(t, created.Success)

	first := svc.Delete(context.Background(), sellerGuard(), created.Data.ID)
	require.True(t, first.Success)

	// The row is gone; a repeat delete (concurrent tab) is a benign race.
	second := svc.Delete(context.Background(), sellerGuard(), created.Data.ID)
	assert.True(t, second.Success)
	assert.Empty(t, second.Error)
}

func TestTicketService_Delete_ForbiddenForNonOwner(t *testing.T) {
	svc, store, _ := setupTicketService()

	created := svc.Create(context.Background(), sellerGuard(), models.TicketInput{
		Title:        "Concert ticket",
		PricePerUnit: 15.00,
		Quantity:     3,
	})
	require.True(t, created.Success)

	res := svc.Delete(context.Background(), guardFor("buyer-9"), created.Data.ID)

	assert.False(t, res.Success)
	assert.Equal(t, "forbidden", res.Kind)
	assert.Contains(t, store.tickets, created.Data.ID)
}

func TestTicketService_Delete_RejectedOutsideAvailable(t *testing.T) {
	svc, store, _ := setupTicketService()

	store.tickets["sold-1"] = &models.Ticket{
		ID:       "sold-1",
		SellerID: "seller-1",
		BuyerID:  "buyer-9",
		Title:    "Sold out",
		Quantity: 1,
		Status:   models.StatusSold,
	}

	res := svc.Delete(context.Background(), sellerGuard(), "sold-1")

	assert.False(t, res.Success)
	assert.Equal(t, "invalid_state", res.Kind)
	assert.Contains(t, store.tickets, "sold-1")
}

func TestTicketService_Delete_InvalidatesAfterRemoteSuccess(t *testing.T) {
	svc, _, events := setupTicketService()

	created := svc.Create(context.Background(), sellerGuard(), models.TicketInput{
		Title:        "Concert ticket",
		PricePerUnit: 15.00,
		Quantity:     3,
	})
	require.True(t, created.Success)

	*events = (*events)[:0]
	res := svc.Delete(context.Background(), sellerGuard(), created.Data.ID)

	require.True(t, res.Success)
	assert.Equal(t, []string{"store:delete", "invalidate:seller-1"}, *events)
}

func TestTicketService_MarkSold_AssignsBuyerAndInvalidatesBothParties(t *testing.T) {
	svc, _, events := setupTicketService()

	created := svc.Create(context.Background(), sellerGuard(), models.TicketInput{
		Title:        "Concert ticket",
		PricePerUnit: 15.00,
		Quantity:     3,
	})
	require.True(t, created.Success)

	*events = (*events)[:0]
	res := svc.MarkSold(context.Background(), guardFor("buyer-9"), created.Data.ID)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "buyer-9", res.Data.BuyerID)
	assert.Equal(t, models.StatusSold, res.Data.Status)
	assert.Equal(t, []string{"store:update", "invalidate:seller-1", "invalidate:buyer-9"}, *events)
}

func TestTicketService_MarkSold_SellerCannotBuyOwnTicket(t *testing.T) {
	svc, store, _ := setupTicketService()

	created := svc.Create(context.Background(), sellerGuard(), models.TicketInput{
		Title:        "Concert ticket",
		PricePerUnit: 15.00,
		Quantity:     3,
	})
	require.True(t, created.Success)

	res := svc.MarkSold(context.Background(), sellerGuard(), created.Data.ID)

	assert.False(t, res.Success)
	assert.Equal(t, "validation_error", res.Kind)
	assert.Equal(t, models.StatusAvailable, store.tickets[created.Data.ID].Status)
}

// Full walk through the seller lifecycle: list, reprice, reject a foreign
// edit, delete, and survive a duplicate delete.
func TestTicketService_SellerLifecycleScenario(t *testing.T) {
	svc, store, _ := setupTicketService()
	ctx := context.Background()

	created := svc.Create(ctx, sellerGuard(), models.TicketInput{
		Title:        "Festival pass",
		PricePerUnit: 15.00,
		Quantity:     3,
	})
	require.True(t, created.Success)
	assert.Equal(t, 45.00, created.Data.Price)
	assert.Equal(t, models.StatusAvailable, created.Data.Status)

	qty := 2
	updated := svc.Update(ctx, sellerGuard(), created.Data.ID, models.TicketPatch{Quantity: &qty})
	require.True(t, updated.Success)
	assert.Equal(t, 30.00, updated.Data.Price)

	foreign := svc.Update(ctx, guardFor("buyer-b"), created.Data.ID, models.TicketPatch{Quantity: &qty})
	assert.Equal(t, "forbidden", foreign.Kind)

	deleted := svc.Delete(ctx, sellerGuard(), created.Data.ID)
	require.True(t, deleted.Success)
	assert.NotContains(t, store.tickets, created.Data.ID)

	again := svc.Delete(ctx, sellerGuard(), created.Data.ID)
	assert.True(t, again.Success)
}
