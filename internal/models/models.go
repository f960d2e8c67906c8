package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// APIResponse is the envelope every endpoint answers with
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// PurchaseTicketsRequest - purchase of Quantity units of one ticket type
type PurchaseTicketsRequest struct {
	UserID       uuid.UUID `json:"user_id" binding:"required"`
	TicketTypeID int64     `json:"ticket_type_id" binding:"required"`
	Quantity     int       `json:"quantity"`
}

// TicketTypeRequest - create or update payload for a ticket type
type TicketTypeRequest struct {
	Type              string `json:"type"`
	Price             int64  `json:"price"`
	QuantityAvailable int    `json:"quantity_available"`
}

// CreateEventRequest - event with its initial ticket types
type CreateEventRequest struct {
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Location      string              `json:"location"`
	CountryID     int64               `json:"country_id"`
	StateID       int64               `json:"state_id"`
	EventDateTime time.Time           `json:"event_datetime"`
	EventType     EventType           `json:"event_type"`
	TicketTypes   []TicketTypeRequest `json:"ticket_types"`
	CreatedBy     uuid.UUID           `json:"created_by"`
}

// UpdateEventRequest - partial update, nil fields are left unchanged.
// Ticket types are managed through their own endpoints.
type UpdateEventRequest struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Location      *string    `json:"location"`
	CountryID     *int64     `json:"country_id"`
	StateID       *int64     `json:"state_id"`
	EventDateTime *time.Time `json:"event_datetime"`
	EventType     *EventType `json:"event_type"`
}

// StateRequest - create or update payload for a state
type StateRequest struct {
	Name      string `json:"name"`
	CountryID int64  `json:"country_id"`
}

// DeleteStatesRequest - bulk delete payload
type DeleteStatesRequest struct {
	IDs []int64 `json:"ids"`
}

// TicketView is the purchase-level view of a ticket
type TicketView struct {
	TicketID      uuid.UUID `json:"ticket_id"`
	UserID        uuid.UUID `json:"user_id"`
	UserFirstName string    `json:"user_first_name,omitempty"`
	UserLastName  string    `json:"user_last_name,omitempty"`
	TicketTypeID  int64     `json:"ticket_type_id"`
	TicketType    string    `json:"ticket_type,omitempty"`
	TicketPrice   string    `json:"ticket_price,omitempty"`
	EventID       int64     `json:"event_id,omitempty"`
	EventTitle    string    `json:"event_title,omitempty"`
	EventTime     string    `json:"event_time,omitempty"`
	PurchaseTime  time.Time `json:"purchase_time"`
	Quantity      int       `json:"quantity"`
	IsActive      bool      `json:"is_active"`
}

// TicketTypeView - ticket type as returned to callers
type TicketTypeView struct {
	ID                int64  `json:"id"`
	EventID           int64  `json:"event_id"`
	Type              string `json:"type"`
	Price             string `json:"price"`
	QuantityAvailable int    `json:"quantity_available"`
}

// StateView carries the denormalised country name so cached lists never touch the store
type StateView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CountryID int64  `json:"country_id"`
	Country   string `json:"country,omitempty"`
}

// EventView - event with its loaded relations flattened
type EventView struct {
	ID             int64            `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	OrganizerEmail string           `json:"organizer_email"`
	OrganizerPhone *string          `json:"organizer_phone,omitempty"`
	Location       string           `json:"location"`
	CountryID      int64            `json:"country_id"`
	Country        string           `json:"country,omitempty"`
	StateID        int64            `json:"state_id"`
	State          string           `json:"state,omitempty"`
	EventDate      string           `json:"event_date"`
	EventTime      string           `json:"event_time"`
	EventType      EventType        `json:"event_type"`
	EventTypeName  string           `json:"event_type_name"`
	CreatedBy      uuid.UUID        `json:"created_by"`
	CreatorName    string           `json:"creator_name,omitempty"`
	IsActive       bool             `json:"is_active"`
	TicketTypes    []TicketTypeView `json:"ticket_types"`
}

// FormatPrice renders minor units as a two-decimal string
func FormatPrice(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

func NewTicketTypeView(tt TicketType) TicketTypeView {
	return TicketTypeView{
		ID:                tt.ID,
		EventID:           tt.EventID,
		Type:              tt.Type,
		Price:             FormatPrice(tt.Price),
		QuantityAvailable: tt.QuantityAvailable,
	}
}

func NewTicketTypeViews(tts []TicketType) []TicketTypeView {
	views := make([]TicketTypeView, len(tts))
	for i, tt := range tts {
		views[i] = NewTicketTypeView(tt)
	}
	return views
}

// NewTicketView maps a ticket and whatever relations were loaded.
// Quantity is 1; purchase responses overwrite it with the purchased count.
func NewTicketView(t Ticket) TicketView {
	view := TicketView{
		TicketID:     t.TicketID,
		UserID:       t.UserID,
		TicketTypeID: t.TicketTypeID,
		PurchaseTime: t.PurchaseTime,
		Quantity:     1,
		IsActive:     t.IsActive,
	}
	if t.User != nil {
		view.UserFirstName = t.User.FirstName
		view.UserLastName = t.User.LastName
	}
	if t.TicketType != nil {
		view.TicketType = t.TicketType.Type
		view.TicketPrice = FormatPrice(t.TicketType.Price)
		view.EventID = t.TicketType.EventID
		if ev := t.TicketType.Event; ev != nil {
			view.EventTitle = ev.Title
			view.EventTime = ev.EventDateTime.Format(time.RFC3339)
		}
	}
	return view
}

// EventTitle is the denormalised title used by ticket search
func (t Ticket) EventTitle() string {
	if t.TicketType == nil || t.TicketType.Event == nil {
		return ""
	}
	return t.TicketType.Event.Title
}

func NewStateView(s State) StateView {
	view := StateView{ID: s.ID, Name: s.Name, CountryID: s.CountryID}
	if s.Country != nil {
		view.Country = s.Country.Name
	}
	return view
}

func NewStateViews(states []State) []StateView {
	views := make([]StateView, len(states))
	for i, s := range states {
		views[i] = NewStateView(s)
	}
	return views
}

func NewEventView(e Event) EventView {
	view := EventView{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		OrganizerEmail: e.OrganizerEmail,
		OrganizerPhone: e.OrganizerPhone,
		Location:       e.Location,
		CountryID:      e.CountryID,
		StateID:        e.StateID,
		EventDate:      e.EventDateTime.Format("2006-01-02"),
		EventTime:      e.EventDateTime.Format("15:04"),
		EventType:      e.EventType,
		EventTypeName:  e.EventType.String(),
		CreatedBy:      e.CreatedBy,
		IsActive:       e.IsActive,
		TicketTypes:    NewTicketTypeViews(e.TicketTypes),
	}
	if e.Creator != nil {
		view.CreatorName = e.Creator.FirstName + " " + e.Creator.LastName
	}
	if e.Country != nil {
		view.Country = e.Country.Name
	}
	if e.State != nil {
		view.State = e.State.Name
	}
	return view
}
