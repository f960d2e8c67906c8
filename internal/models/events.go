package models

import (
	"time"

	"github.com/google/uuid"
)

// NATS Event Types
const (
	EventTicketsPurchased = "tickets.purchased"
	EventStatesChanged    = "states.changed"
)

// State change operations carried by StatesChangedEvent
const (
	StateOpCreated = "created"
	StateOpUpdated = "updated"
	StateOpDeleted = "deleted"
)

// TicketsPurchasedEvent is published after a purchase commits
type TicketsPurchasedEvent struct {
	TicketTypeID int64       `json:"ticket_type_id"`
	UserID       uuid.UUID   `json:"user_id"`
	Quantity     int         `json:"quantity"`
	TicketIDs    []uuid.UUID `json:"ticket_ids"`
	Remaining    int         `json:"remaining"`
	PurchaseTime time.Time   `json:"purchase_time"`
}

// StatesChangedEvent is published after a state write commits and the cache is invalidated
type StatesChangedEvent struct {
	CountryIDs []int64   `json:"country_ids"`
	StateIDs   []int64   `json:"state_ids"`
	Operation  string    `json:"operation"`
	Timestamp  time.Time `json:"timestamp"`
}
