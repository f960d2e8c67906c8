package service

import (
	"context"
	"fmt"
	"strings"

	"ticketing/internal/database"
	apperrors "ticketing/internal/errors"
	"ticketing/internal/logger"
	"ticketing/internal/models"
)

// TicketTypeService manages the ticket types of an event. Every write
// locks the event row first, so label uniqueness and the last-type rule
// are checked against a stable set.
type TicketTypeService struct {
	tx          database.Transactor
	events      EventStore
	ticketTypes TicketTypeStore
}

func NewTicketTypeService(deps Dependencies) *TicketTypeService {
	return &TicketTypeService{
		tx:          deps.Tx,
		events:      deps.Events,
		ticketTypes: deps.TicketTypes,
	}
}

// validateTicketTypes returns one message per invalid field of reqs
func validateTicketTypes(reqs []models.TicketTypeRequest) []string {
	var errs []string
	for i, req := range reqs {
		if strings.TrimSpace(req.Type) == "" {
			errs = append(errs, fmt.Sprintf("ticket type name is required for ticket %d", i+1))
		}
		if req.Price < 0 {
			errs = append(errs, fmt.Sprintf("ticket price cannot be negative for '%s'", req.Type))
		}
		if req.QuantityAvailable <= 0 {
			errs = append(errs, fmt.Sprintf("ticket quantity must be greater than zero for '%s'", req.Type))
		}
	}
	return errs
}

// duplicateLabels returns the labels that occur more than once in reqs, in first-seen order
func duplicateLabels(reqs []models.TicketTypeRequest) []string {
	seen := make(map[string]int, len(reqs))
	var dups []string
	for _, req := range reqs {
		key := labelKey(req.Type)
		seen[key]++
		if seen[key] == 2 {
			dups = append(dups, key)
		}
	}
	return dups
}

func (s *TicketTypeService) AddTicketTypes(ctx context.Context, eventID int64, reqs []models.TicketTypeRequest) ([]models.TicketTypeView, error) {
	if len(reqs) == 0 {
		return nil, apperrors.ErrInvalidTicketType.WithMessage("at least one ticket type is required")
	}

	var created []*models.TicketType
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if event == nil {
			return apperrors.ErrEventNotFound
		}

		if errs := validateTicketTypes(reqs); len(errs) > 0 {
			return apperrors.ErrInvalidTicketType.WithDetails(errs...)
		}
		if dups := duplicateLabels(reqs); len(dups) > 0 {
			return apperrors.ErrDuplicateTicketType.
				WithMessage("duplicate ticket types in request: %s", strings.Join(dups, ", ")).
				WithDetails(dups...)
		}

		existing, err := s.ticketTypes.ListByEvent(ctx, eventID)
		if err != nil {
			return err
		}
		taken := make(map[string]bool, len(existing))
		for _, tt := range existing {
			taken[labelKey(tt.Type)] = true
		}
		var conflicts []string
		for _, req := range reqs {
			if taken[labelKey(req.Type)] {
				conflicts = append(conflicts, req.Type)
			}
		}
		if len(conflicts) > 0 {
			return apperrors.ErrDuplicateTicketType.
				WithMessage("ticket types already exist: %s", strings.Join(conflicts, ", ")).
				WithDetails(conflicts...)
		}

		created = make([]*models.TicketType, len(reqs))
		for i, req := range reqs {
			created[i] = &models.TicketType{
				EventID:           eventID,
				Type:              strings.TrimSpace(req.Type),
				Price:             req.Price,
				QuantityAvailable: req.QuantityAvailable,
			}
		}
		return s.ticketTypes.InsertMany(ctx, created)
	})
	if err != nil {
		return nil, ticketTypeError("add ticket types", err)
	}

	logger.WithContext(ctx).Info("Ticket types added", "event_id", eventID, "count", len(created))

	views := make([]models.TicketTypeView, len(created))
	for i, tt := range created {
		views[i] = models.NewTicketTypeView(*tt)
	}
	return views, nil
}

func (s *TicketTypeService) UpdateTicketType(ctx context.Context, eventID, ticketTypeID int64, req models.TicketTypeRequest) (*models.TicketTypeView, error) {
	var errs []string
	if strings.TrimSpace(req.Type) == "" {
		errs = append(errs, "ticket type name is required")
	}
	if req.Price < 0 {
		errs = append(errs, "ticket price cannot be negative")
	}
	if req.QuantityAvailable <= 0 {
		errs = append(errs, "ticket quantity must be greater than zero")
	}
	if len(errs) > 0 {
		return nil, apperrors.ErrInvalidTicketType.WithDetails(errs...)
	}

	var updated models.TicketType
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		types, err := s.lockedTicketTypes(ctx, eventID)
		if err != nil {
			return err
		}

		target := findTicketType(types, ticketTypeID)
		if target == nil {
			return apperrors.ErrTicketTypeNotFound
		}
		for _, tt := range types {
			if tt.ID != ticketTypeID && labelKey(tt.Type) == labelKey(req.Type) {
				return apperrors.ErrDuplicateTicketType.WithMessage(
					"ticket type '%s' already exists for this event", strings.TrimSpace(req.Type))
			}
		}

		updated = *target
		updated.Type = strings.TrimSpace(req.Type)
		updated.Price = req.Price
		updated.QuantityAvailable = req.QuantityAvailable
		return s.ticketTypes.Update(ctx, &updated)
	})
	if err != nil {
		return nil, ticketTypeError("update ticket type", err)
	}

	view := models.NewTicketTypeView(updated)
	return &view, nil
}

func (s *TicketTypeService) DeleteTicketType(ctx context.Context, eventID, ticketTypeID int64) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		types, err := s.lockedTicketTypes(ctx, eventID)
		if err != nil {
			return err
		}
		if findTicketType(types, ticketTypeID) == nil {
			return apperrors.ErrTicketTypeNotFound
		}
		if len(types) == 1 {
			return apperrors.ErrLastTicketType
		}
		_, err = s.ticketTypes.DeleteMany(ctx, []int64{ticketTypeID})
		return err
	})
	if err != nil {
		return ticketTypeError("delete ticket type", err)
	}

	logger.WithContext(ctx).Info("Ticket type deleted", "event_id", eventID, "ticket_type_id", ticketTypeID)
	return nil
}

func (s *TicketTypeService) ListTicketTypes(ctx context.Context, eventID int64) ([]models.TicketTypeView, error) {
	event, err := s.events.GetByID(ctx, eventID, models.EventIncludes{TicketTypes: true})
	if err != nil {
		return nil, apperrors.Persistence("list ticket types", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}
	return models.NewTicketTypeViews(event.TicketTypes), nil
}

// lockedTicketTypes locks the event row and returns its ticket types
func (s *TicketTypeService) lockedTicketTypes(ctx context.Context, eventID int64) ([]models.TicketType, error) {
	event, err := s.events.GetByIDForUpdate(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}
	return s.ticketTypes.ListByEvent(ctx, eventID)
}

func findTicketType(types []models.TicketType, id int64) *models.TicketType {
	for i := range types {
		if types[i].ID == id {
			return &types[i]
		}
	}
	return nil
}

// ticketTypeError passes typed errors through, maps constraint violations
// that slipped past the checks and wraps the rest as persistence failures.
func ticketTypeError(op string, err error) error {
	if apperrors.KindOf(err) != apperrors.KindUnknown {
		return err
	}
	if database.IsUniqueViolation(err) {
		return apperrors.ErrDuplicateTicketType
	}
	if database.IsCheckViolation(err) {
		return apperrors.ErrInvalidTicketType
	}
	return apperrors.Persistence(op, err)
}
