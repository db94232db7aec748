package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-marketplace/models"
)

func TestSelectionStore_LastWriteWins(t *testing.T) {
	store := NewSelectionStore()

	store.Set(&models.Ticket{ID: "ticket-a", Title: "A"})
	store.Set(&models.Ticket{ID: "ticket-b", Title: "B"})

	// Opening a second selection silently replaces the first; there is no
	// stacking anywhere in the system.
	current := store.Get()
	require.NotNil(t, current)
	assert.Equal(t, "ticket-b", current.ID)
}

func TestSelectionStore_SubscribersSeeEveryWrite(t *testing.T) {
	store := NewSelectionStore()

	var seen []string
	cancel := store.Subscribe(func(ticket *models.Ticket) {
		if ticket == nil {
			seen = append(seen, "<nil>")
			return
		}
		seen = append(seen, ticket.ID)
	})
	defer cancel()

	store.Set(&models.Ticket{ID: "ticket-a"})
	store.Set(&models.Ticket{ID: "ticket-b"})
	store.Set(nil)

	assert.Equal(t, []string{"ticket-a", "ticket-b", "<nil>"}, seen)
}

func TestSelectionStore_ClearedSlotReadsNil(t *testing.T) {
	store := NewSelectionStore()

	store.Set(&models.Ticket{ID: "ticket-a"})
	store.Set(nil)

	assert.Nil(t, store.Get())
}

func TestSelectionStore_Unsubscribe(t *testing.T) {
	store := NewSelectionStore()

	notified := 0
	cancel := store.Subscribe(func(*models.Ticket) { notified++ })

	store.Set(&models.Ticket{ID: "ticket-a"})
	cancel()
	store.Set(&models.Ticket{ID: "ticket-b"})

	assert.Equal(t, 1, notified)
}

func TestSelectionStore_GetReturnsCopy(t *testing.T) {
	store := NewSelectionStore()
	store.Set(&models.Ticket{ID: "ticket-a", Title: "original"})

	got := store.Get()
	got.Title = "mutated by a surface"

	assert.Equal(t, "original", store.Get().Title)
}

func TestSelectionStore_MultipleConsumersAgree(t *testing.T) {
	store := NewSelectionStore()

	var gridSees, dialogSees string
	cancelGrid := store.Subscribe(func(ticket *models.Ticket) {
		gridSees = ticket.ID
	})
	defer cancelGrid()
	cancelDialog := store.Subscribe(func(ticket *models.Ticket) {
		dialogSees = ticket.ID
	})
	defer cancelDialog()

	store.Set(&models.Ticket{ID: "ticket-a"})
	store.Set(&models.Ticket{ID: "ticket-b"})

	assert.Equal(t, "ticket-b", gridSees)
	assert.Equal(t, "ticket-b", dialogSees)
	assert.Equal(t, "ticket-b", store.Get().ID)
}
