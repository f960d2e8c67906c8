package service

import (
	"context"
	"strings"

	"ticketing/internal/clock"
	"ticketing/internal/database"
	"ticketing/internal/logger"
	"ticketing/internal/messaging"
	"ticketing/internal/metrics"
	"ticketing/internal/models"

	"github.com/google/uuid"
)

type TicketTypeStore interface {
	GetByID(ctx context.Context, id int64) (*models.TicketType, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.TicketType, error)
	ListByEvent(ctx context.Context, eventID int64) ([]models.TicketType, error)
	InsertMany(ctx context.Context, types []*models.TicketType) error
	Update(ctx context.Context, tt *models.TicketType) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
}

type TicketStore interface {
	GetByID(ctx context.Context, id uuid.UUID, inc models.TicketIncludes) (*models.Ticket, error)
	ListByUser(ctx context.Context, userID uuid.UUID, inc models.TicketIncludes) ([]models.Ticket, error)
	List(ctx context.Context, inc models.TicketIncludes) ([]models.Ticket, error)
	InsertMany(ctx context.Context, tickets []models.Ticket) error
}

type EventStore interface {
	Insert(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int64, inc models.EventIncludes) (*models.Event, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Event, error)
	List(ctx context.Context, inc models.EventIncludes) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id int64) error
}

type StateStore interface {
	GetByID(ctx context.Context, id int64, inc models.StateIncludes) (*models.State, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.State, error)
	ListByCountry(ctx context.Context, countryID int64, inc models.StateIncludes) ([]models.State, error)
	ExistsByName(ctx context.Context, countryID int64, name string, excludeID int64) (bool, error)
	InsertMany(ctx context.Context, states []*models.State) error
	Update(ctx context.Context, s *models.State) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
}

type CountryStore interface {
	GetByID(ctx context.Context, id int64) (*models.Country, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// LocationCache is the read-through view of states per country
type LocationCache interface {
	IsValidState(ctx context.Context, countryID, stateID int64) (bool, error)
	ListStatesByCountry(ctx context.Context, countryID int64) ([]models.StateView, error)
	InvalidateCountry(countryIDs ...int64)
}

// Dependencies wires the stores and collaborators shared by all services
type Dependencies struct {
	Tx          database.Transactor
	TicketTypes TicketTypeStore
	Tickets     TicketStore
	Events      EventStore
	States      StateStore
	Countries   CountryStore
	Users       UserStore
	Locations   LocationCache
	Publisher   messaging.Publisher
	Clock       clock.Clock
	Metrics     *metrics.Metrics

	// MaxPurchaseRetries is how many times a purchase that lost a lock race is re-run
	MaxPurchaseRetries int
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Publisher == nil {
		d.Publisher = messaging.NopPublisher{}
	}
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop()
	}
	if d.MaxPurchaseRetries < 0 {
		d.MaxPurchaseRetries = 0
	}
	return d
}

type Services struct {
	Tickets     *TicketService
	TicketTypes *TicketTypeService
	Events      *EventService
	States      *StateService
}

func NewServices(deps Dependencies) *Services {
	deps = deps.withDefaults()
	return &Services{
		Tickets:     NewTicketService(deps),
		TicketTypes: NewTicketTypeService(deps),
		Events:      NewEventService(deps),
		States:      NewStateService(deps),
	}
}

// publish sends a domain event. Failures are logged and never fail the caller.
func publish(ctx context.Context, pub messaging.Publisher, subject string, data any) {
	if err := pub.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err,
			"event_type", subject)
	}
}

// labelKey is the comparison form of a ticket type label
func labelKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
