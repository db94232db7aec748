package models

import (
	"time"
)

type TicketStatus string

const (
	StatusAvailable TicketStatus = "available"
	StatusSold      TicketStatus = "sold"
	StatusExpired   TicketStatus = "expired"
	StatusCancelled TicketStatus = "cancelled"
)

type Ticket struct {
	ID           string       `json:"id"`
	SellerID     string       `json:"seller_id"`
	BuyerID      string       `json:"buyer_id,omitempty"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Category     string       `json:"category,omitempty"`
	Venue        string       `json:"venue,omitempty"`
	EventDate    string       `json:"event_date,omitempty"`
	EventTime    string       `json:"event_time,omitempty"`
	Price        float64      `json:"price"`
	PricePerUnit float64      `json:"price_per_unit"`
	Quantity     int          `json:"quantity"`
	FilePath     string       `json:"file_path,omitempty"`
	Status       TicketStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Editable reports whether the ticket may still be mutated or deleted
// by its seller. Sold, expired and cancelled are terminal here.
func (t *Ticket) Editable() bool {
	return t.Status == StatusAvailable
}

func (t *Ticket) OwnedBy(userID string) bool {
	return userID != "" && t.SellerID == userID
}

// TicketInput is the caller-supplied shape for create. The seller and the
// total price are never taken from input, the mutation service derives both.
type TicketInput struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Venue        string  `json:"venue"`
	EventDate    string  `json:"event_date"`
	EventTime    string  `json:"event_time"`
	PricePerUnit float64 `json:"price_per_unit"`
	Quantity     int     `json:"quantity"`
	FilePath     string  `json:"file_path"`
}

// TicketPatch is a partial update. Nil fields keep the current value,
// including FilePath when no new attachment was uploaded.
type TicketPatch struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Category     *string  `json:"category"`
	Venue        *string  `json:"venue"`
	EventDate    *string  `json:"event_date"`
	EventTime    *string  `json:"event_time"`
	PricePerUnit *float64 `json:"price_per_unit"`
	Quantity     *int     `json:"quantity"`
	FilePath     *string  `json:"file_path"`
}

// RepricesTicket reports whether applying the patch changes either factor
// of the derived total price.
func (p *TicketPatch) RepricesTicket() bool {
	return p.PricePerUnit != nil || p.Quantity != nil
}

// Apply copies the set fields of the patch onto t.
func (p *TicketPatch) Apply(t *Ticket) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Venue != nil {
		t.Venue = *p.Venue
	}
	if p.EventDate != nil {
		t.EventDate = *p.EventDate
	}
	if p.EventTime != nil {
		t.EventTime = *p.EventTime
	}
	if p.PricePerUnit != nil {
		t.PricePerUnit = *p.PricePerUnit
	}
	if p.Quantity != nil {
		t.Quantity = *p.Quantity
	}
	if p.FilePath != nil {
		t.FilePath = *p.FilePath
	}
}

// TicketListing is the lightweight row shape for the public marketplace
// browse view, read straight off the tickets table.
type TicketListing struct {
	ID           string  `db:"id" json:"id"`
	Title        string  `db:"title" json:"title"`
	Category     string  `db:"category" json:"category,omitempty"`
	Venue        string  `db:"venue" json:"venue,omitempty"`
	EventDate    string  `db:"event_date" json:"event_date,omitempty"`
	Price        float64 `db:"price" json:"price"`
	PricePerUnit float64 `db:"price_per_unit" json:"price_per_unit"`
	Quantity     int     `db:"quantity" json:"quantity"`
	SellerID     string  `db:"seller" json:"seller_id"`
}

// TicketCollection is the per-user cached projection: tickets the user is
// selling ("added") and tickets the user bought ("purchased"). It is derived
// from one backend fetch, never stored.
type TicketCollection struct {
	UserID    string    `json:"user_id"`
	Added     []Ticket  `json:"added"`
	Purchased []Ticket  `json:"purchased"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SplitCollection builds the derived projection for userID from the full
// set of tickets fetched for that user.
func SplitCollection(userID string, tickets []Ticket, fetchedAt time.Time) TicketCollection {
	col := TicketCollection{
		UserID:    userID,
		Added:     []Ticket{},
		Purchased: []Ticket{},
		FetchedAt: fetchedAt,
	}
	for _, t := range tickets {
		if t.SellerID == userID {
			col.Added = append(col.Added, t)
		}
		if t.BuyerID == userID {
			col.Purchased = append(col.Purchased, t)
		}
	}
	return col
}
