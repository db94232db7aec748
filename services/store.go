package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/models"
	"ticket-marketplace/utils"
)

const ticketsCollection = "tickets"

// Store is the thin request layer over the backend's tickets table.
// Every call goes through a circuit breaker so a struggling backend fails
// fast instead of stalling each open surface in turn.
type Store struct {
	app     core.App
	breaker *utils.Breaker
}

func NewStore(app core.App) *Store {
	return &Store{
		app:     app,
		breaker: utils.NewBreaker(ticketsCollection),
	}
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	var record *core.Record
	err := s.breaker.Run(func() error {
		r, err := s.app.FindRecordById(ticketsCollection, id)
		if err != nil {
			// A missing row is an answer, not a backend failure.
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		record = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrRemote, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: ticket %s", status.ErrNotFound, id)
	}

	return recordToTicket(record), nil
}

func (s *Store) Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	collection, err := s.app.FindCollectionByNameOrId(ticketsCollection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrRemote, err)
	}

	record := core.NewRecord(collection)
	applyTicketFields(record, ticket)

	if err := s.breaker.Run(func() error { return s.app.Save(record) }); err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrRemote, err)
	}

	return recordToTicket(record), nil
}

func (s *Store) Update(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	var record *core.Record
	err := s.breaker.Run(func() error {
		r, err := s.app.FindRecordById(ticketsCollection, ticket.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		applyTicketFields(r, ticket)
		if err := s.app.Save(r); err != nil {
			return err
		}
		record = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrRemote, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: ticket %s", status.ErrNotFound, ticket.ID)
	}

	return recordToTicket(record), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	var found bool
	err := s.breaker.Run(func() error {
		record, err := s.app.FindRecordById(ticketsCollection, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		found = true
		return s.app.Delete(record)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", status.ErrRemote, err)
	}
	if !found {
		return fmt.Errorf("%w: ticket %s", status.ErrNotFound, id)
	}

	return nil
}

// FetchCollection loads every ticket the user is a party to and splits it
// into the added/purchased projection the cache serves to surfaces.
func (s *Store) FetchCollection(ctx context.Context, userID string) (models.TicketCollection, error) {
	var records []*core.Record
	err := s.breaker.Run(func() error {
		var err error
		records, err = s.app.FindRecordsByFilter(
			ticketsCollection,
			"seller = {:userId} || buyer = {:userId}",
			"-created",
			0,
			0,
			dbx.Params{"userId": userID},
		)
		return err
	})
	if err != nil {
		return models.TicketCollection{}, fmt.Errorf("%w: %v", status.ErrRemote, err)
	}

	tickets := make([]models.Ticket, 0, len(records))
	for _, record := range records {
		tickets = append(tickets, *recordToTicket(record))
	}

	return models.SplitCollection(userID, tickets, time.Now()), nil
}

// BrowseAvailable lists available tickets for the public marketplace view.
func (s *Store) BrowseAvailable(ctx context.Context, limit, offset int) ([]models.TicketListing, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	listings := []models.TicketListing{}
	err := s.breaker.Run(func() error {
		return s.app.DB().
			Select(
				"id",
				"title",
				"category",
				"venue",
				"event_date",
				"price",
				"price_per_unit",
				"quantity",
				"seller",
			).
			From(ticketsCollection).
			Where(dbx.HashExp{"status": string(models.StatusAvailable)}).
			OrderBy("created DESC").
			Limit(int64(limit)).
			Offset(int64(offset)).
			All(&listings)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrRemote, err)
	}

	return listings, nil
}

func applyTicketFields(record *core.Record, t *models.Ticket) {
	record.Set("seller", t.SellerID)
	record.Set("buyer", t.BuyerID)
	record.Set("title", t.Title)
	record.Set("description", t.Description)
	record.Set("category", t.Category)
	record.Set("venue", t.Venue)
	record.Set("event_date", t.EventDate)
	record.Set("event_time", t.EventTime)
	record.Set("price", t.Price)
	record.Set("price_per_unit", t.PricePerUnit)
	record.Set("quantity", t.Quantity)
	record.Set("attachment", t.FilePath)
	record.Set("status", string(t.Status))
}

func recordToTicket(record *core.Record) *models.Ticket {
	return &models.Ticket{
		ID:           record.Id,
		SellerID:     record.GetString("seller"),
		BuyerID:      record.GetString("buyer"),
		Title:        record.GetString("title"),
		Description:  record.GetString("description"),
		Category:     record.GetString("category"),
		Venue:        record.GetString("venue"),
		EventDate:    record.GetString("event_date"),
		EventTime:    record.GetString("event_time"),
		Price:        record.GetFloat("price"),
		PricePerUnit: record.GetFloat("price_per_unit"),
		Quantity:     record.GetInt("quantity"),
		FilePath:     record.GetString("attachment"),
		Status:       models.TicketStatus(record.GetString("status")),
		CreatedAt:    record.GetDateTime("created").Time(),
		UpdatedAt:    record.GetDateTime("updated").Time(),
	}
}
