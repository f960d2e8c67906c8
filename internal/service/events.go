package service

import (
	"context"
	"fmt"
	"strings"

	"ticketing/internal/clock"
	"ticketing/internal/database"
	apperrors "ticketing/internal/errors"
	"ticketing/internal/logger"
	"ticketing/internal/models"
	"ticketing/internal/pagination"

	"github.com/google/uuid"
)

type EventService struct {
	tx          database.Transactor
	events      EventStore
	ticketTypes TicketTypeStore
	users       UserStore
	locations   LocationCache
	clock       clock.Clock
}

func NewEventService(deps Dependencies) *EventService {
	deps = deps.withDefaults()
	return &EventService{
		tx:          deps.Tx,
		events:      deps.Events,
		ticketTypes: deps.TicketTypes,
		users:       deps.Users,
		locations:   deps.Locations,
		clock:       deps.Clock,
	}
}

func (s *EventService) validate(req models.CreateEventRequest) []string {
	var errs []string
	if strings.TrimSpace(req.Title) == "" {
		errs = append(errs, "event title is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		errs = append(errs, "event description is required")
	}
	if req.CountryID <= 0 {
		errs = append(errs, "valid country id is required")
	}
	if req.StateID <= 0 {
		errs = append(errs, "valid state id is required")
	}
	if strings.TrimSpace(req.Location) == "" {
		errs = append(errs, "location is required")
	}
	if req.EventDateTime.Before(s.clock.Now()) {
		errs = append(errs, "event date cannot be in the past")
	}
	if !req.EventType.Valid() {
		errs = append(errs, "invalid event type")
	}
	if len(req.TicketTypes) == 0 {
		errs = append(errs, "at least one ticket type is required")
	} else {
		errs = append(errs, validateTicketTypes(req.TicketTypes)...)
		if dups := duplicateLabels(req.TicketTypes); len(dups) > 0 {
			errs = append(errs, fmt.Sprintf("duplicate ticket types found: %s", strings.Join(dups, ", ")))
		}
	}
	if req.CreatedBy == uuid.Nil {
		errs = append(errs, "created by user id is required")
	}
	return errs
}

// CreateEvent stores an event with its initial ticket types. The state
// must belong to the country, checked through the location cache.
func (s *EventService) CreateEvent(ctx context.Context, req models.CreateEventRequest) (*models.EventView, error) {
	if errs := s.validate(req); len(errs) > 0 {
		return nil, apperrors.ErrInvalidEvent.WithDetails(errs...)
	}

	user, err := s.users.GetByID(ctx, req.CreatedBy)
	if err != nil {
		return nil, apperrors.Persistence("get user", err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}

	valid, err := s.locations.IsValidState(ctx, req.CountryID, req.StateID)
	if err != nil {
		return nil, apperrors.Persistence("validate location", err)
	}
	if !valid {
		return nil, apperrors.ErrInvalidLocation
	}

	event := &models.Event{
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		OrganizerEmail: user.Email,
		OrganizerPhone: user.PhoneNumber,
		Location:       strings.TrimSpace(req.Location),
		CountryID:      req.CountryID,
		StateID:        req.StateID,
		EventDateTime:  req.EventDateTime.UTC(),
		EventType:      req.EventType,
		CreatedBy:      user.ID,
		CreatedAt:      s.clock.Now(),
		IsActive:       true,
		Creator:        user,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.events.Insert(ctx, event); err != nil {
			return err
		}
		types := make([]*models.TicketType, len(req.TicketTypes))
		for i, tr := range req.TicketTypes {
			types[i] = &models.TicketType{
				EventID:           event.ID,
				Type:              strings.TrimSpace(tr.Type),
				Price:             tr.Price,
				QuantityAvailable: tr.QuantityAvailable,
			}
		}
		if err := s.ticketTypes.InsertMany(ctx, types); err != nil {
			return err
		}
		event.TicketTypes = make([]models.TicketType, len(types))
		for i, tt := range types {
			event.TicketTypes[i] = *tt
		}
		return nil
	})
	if err != nil {
		return nil, ticketTypeError("create event", err)
	}

	logger.WithContext(ctx).Info("Event created",
		"event_id", event.ID, "created_by", user.ID, "ticket_types", len(event.TicketTypes))

	view := models.NewEventView(*event)
	return &view, nil
}

// GetEvent returns the event with its ticket types, creator, country and state
func (s *EventService) GetEvent(ctx context.Context, id int64) (*models.EventView, error) {
	event, err := s.events.GetByID(ctx, id, models.EventIncludeAll)
	if err != nil {
		return nil, apperrors.Persistence("get event", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}
	view := models.NewEventView(*event)
	return &view, nil
}

// ListEvents pages through events, newest first, searching by title
func (s *EventService) ListEvents(ctx context.Context, filter pagination.Filter, includeInactive bool) (pagination.Page[models.EventView], error) {
	events, err := s.events.List(ctx, models.EventIncludeAll)
	if err != nil {
		return pagination.Page[models.EventView]{}, apperrors.Persistence("list events", err)
	}
	if !includeInactive {
		active := make([]models.Event, 0, len(events))
		for _, e := range events {
			if e.IsActive {
				active = append(active, e)
			}
		}
		events = active
	}
	page := pagination.Paginate(events, filter, func(e models.Event) string { return e.Title })
	return pagination.Map(page, models.NewEventView), nil
}

func (s *EventService) validateUpdate(req models.UpdateEventRequest) []string {
	var errs []string
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		errs = append(errs, "event title cannot be empty")
	}
	if req.Description != nil && strings.TrimSpace(*req.Description) == "" {
		errs = append(errs, "event description cannot be empty")
	}
	if req.Location != nil && strings.TrimSpace(*req.Location) == "" {
		errs = append(errs, "location cannot be empty")
	}
	if req.CountryID != nil && *req.CountryID <= 0 {
		errs = append(errs, "valid country id is required")
	}
	if req.StateID != nil && *req.StateID <= 0 {
		errs = append(errs, "valid state id is required")
	}
	if req.EventDateTime != nil && req.EventDateTime.Before(s.clock.Now()) {
		errs = append(errs, "event date cannot be in the past")
	}
	if req.EventType != nil && !req.EventType.Valid() {
		errs = append(errs, "invalid event type")
	}
	return errs
}

// UpdateEvent applies the fields present in req. When either side of the
// location changes, the resulting country/state pair is checked through
// the location cache with the missing side taken from the stored event.
func (s *EventService) UpdateEvent(ctx context.Context, id int64, req models.UpdateEventRequest) (*models.EventView, error) {
	if errs := s.validateUpdate(req); len(errs) > 0 {
		return nil, apperrors.ErrInvalidEvent.WithDetails(errs...)
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if event == nil {
			return apperrors.ErrEventNotFound
		}

		if req.CountryID != nil || req.StateID != nil {
			countryID, stateID := event.CountryID, event.StateID
			if req.CountryID != nil {
				countryID = *req.CountryID
			}
			if req.StateID != nil {
				stateID = *req.StateID
			}
			// the cache load is shared with other callers, keep it off this transaction
			valid, err := s.locations.IsValidState(database.WithoutTx(ctx), countryID, stateID)
			if err != nil {
				return apperrors.Persistence("validate location", err)
			}
			if !valid {
				return apperrors.ErrInvalidLocation
			}
			event.CountryID, event.StateID = countryID, stateID
		}

		if req.Title != nil {
			event.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			event.Description = strings.TrimSpace(*req.Description)
		}
		if req.Location != nil {
			event.Location = strings.TrimSpace(*req.Location)
		}
		if req.EventDateTime != nil {
			event.EventDateTime = req.EventDateTime.UTC()
		}
		if req.EventType != nil {
			event.EventType = *req.EventType
		}
		now := s.clock.Now()
		event.UpdatedAt = &now

		return s.events.Update(ctx, event)
	})
	if err != nil {
		return nil, eventError("update event", err)
	}

	logger.WithContext(ctx).Info("Event updated", "event_id", id)
	return s.GetEvent(ctx, id)
}

// DeleteEvent removes the event together with its ticket types and tickets
func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if event == nil {
			return apperrors.ErrEventNotFound
		}
		return s.events.Delete(ctx, id)
	})
	if err != nil {
		return eventError("delete event", err)
	}

	logger.WithContext(ctx).Info("Event deleted", "event_id", id)
	return nil
}

// DeactivateEvent hides the event from default listings
func (s *EventService) DeactivateEvent(ctx context.Context, id int64) (*models.EventView, error) {
	return s.setActive(ctx, id, false)
}

func (s *EventService) ReactivateEvent(ctx context.Context, id int64) (*models.EventView, error) {
	return s.setActive(ctx, id, true)
}

func (s *EventService) setActive(ctx context.Context, id int64, active bool) (*models.EventView, error) {
	op := "reactivate event"
	if !active {
		op = "deactivate event"
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if event == nil {
			return apperrors.ErrEventNotFound
		}
		if event.IsActive == active {
			if active {
				return apperrors.ErrEventAlreadyActive
			}
			return apperrors.ErrEventAlreadyInactive
		}
		now := s.clock.Now()
		event.IsActive = active
		event.UpdatedAt = &now
		return s.events.Update(ctx, event)
	})
	if err != nil {
		return nil, eventError(op, err)
	}

	logger.WithContext(ctx).Info("Event active flag changed", "event_id", id, "is_active", active)
	return s.GetEvent(ctx, id)
}

// eventError maps a foreign key violation (the location was removed after
// the cache said it existed) to ErrInvalidLocation.
func eventError(op string, err error) error {
	if apperrors.KindOf(err) != apperrors.KindUnknown {
		return err
	}
	if database.IsForeignKeyViolation(err) {
		return apperrors.ErrInvalidLocation
	}
	return apperrors.Persistence(op, err)
}
