package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType distinguishes online from physical events
type EventType int

const (
	EventTypeOnline   EventType = 1
	EventTypePhysical EventType = 2
)

func (t EventType) Valid() bool {
	return t == EventTypeOnline || t == EventTypePhysical
}

func (t EventType) String() string {
	switch t {
	case EventTypeOnline:
		return "Online"
	case EventTypePhysical:
		return "Physical"
	default:
		return ""
	}
}

// User is the purchaser of tickets and the creator of events
type User struct {
	ID          uuid.UUID `json:"id" db:"id"`
	FirstName   string    `json:"first_name" db:"first_name"`
	LastName    string    `json:"last_name" db:"last_name"`
	Email       string    `json:"email" db:"email"`
	PhoneNumber *string   `json:"phone_number" db:"phone_number"`
}

// Country is a top-level location
type Country struct {
	ID   int64   `json:"id" db:"id"`
	Name string  `json:"name" db:"name"`
	ISO  *string `json:"iso" db:"iso"`
}

// State belongs to exactly one country
type State struct {
	ID        int64    `json:"id" db:"id"`
	CountryID int64    `json:"country_id" db:"country_id"`
	Name      string   `json:"name" db:"name"`
	Country   *Country `json:"country,omitempty"` // Not from DB, filled when included
}

// Event groups the ticket types on sale
type Event struct {
	ID             int64      `json:"id" db:"id"`
	Title          string     `json:"title" db:"title"`
	Description    string     `json:"description" db:"description"`
	OrganizerEmail string     `json:"organizer_email" db:"organizer_email"`
	OrganizerPhone *string    `json:"organizer_phone" db:"organizer_phone"`
	Location       string     `json:"location" db:"location"`
	CountryID      int64      `json:"country_id" db:"country_id"`
	StateID        int64      `json:"state_id" db:"state_id"`
	EventDateTime  time.Time  `json:"event_datetime" db:"event_datetime"`
	EventType      EventType  `json:"event_type" db:"event_type"`
	CreatedBy      uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at" db:"updated_at"`
	IsActive       bool       `json:"is_active" db:"is_active"`

	// Relations, filled only when requested through EventIncludes
	TicketTypes []TicketType `json:"ticket_types,omitempty"`
	Creator     *User        `json:"creator,omitempty"`
	Country     *Country     `json:"country,omitempty"`
	State       *State       `json:"state,omitempty"`
}

// TicketType is a purchasable category of ticket with a remaining-quantity counter.
// Price is stored in minor units.
type TicketType struct {
	ID                int64  `json:"id" db:"id"`
	EventID           int64  `json:"event_id" db:"event_id"`
	Type              string `json:"type" db:"type"`
	Price             int64  `json:"price" db:"price"`
	QuantityAvailable int    `json:"quantity_available" db:"quantity_available"`

	Event *Event `json:"-"`
}

// Ticket is one purchased unit. A purchase of N creates N tickets.
type Ticket struct {
	TicketID     uuid.UUID `json:"ticket_id" db:"ticket_id"`
	TicketTypeID int64     `json:"ticket_type_id" db:"ticket_type_id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	PurchaseTime time.Time `json:"purchase_time" db:"purchase_time"`
	IsActive     bool      `json:"is_active" db:"is_active"`

	TicketType *TicketType `json:"-"`
	User       *User       `json:"-"`
}

// EventIncludes selects which relations are loaded alongside an event
type EventIncludes struct {
	TicketTypes bool
	Creator     bool
	Country     bool
	State       bool
}

// EventIncludeAll loads every relation of an event
var EventIncludeAll = EventIncludes{TicketTypes: true, Creator: true, Country: true, State: true}

// TicketIncludes selects which relations are loaded alongside a ticket.
// Event implies TicketType.
type TicketIncludes struct {
	TicketType bool
	Event      bool
	User       bool
}

// TicketIncludeAll loads the ticket type, its event and the owner
var TicketIncludeAll = TicketIncludes{TicketType: true, Event: true, User: true}

// StateIncludes selects which relations are loaded alongside a state
type StateIncludes struct {
	Country bool
}
