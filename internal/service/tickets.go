package service

import (
	"context"
	"errors"

	"ticketing/internal/clock"
	"ticketing/internal/database"
	apperrors "ticketing/internal/errors"
	"ticketing/internal/logger"
	"ticketing/internal/messaging"
	"ticketing/internal/metrics"
	"ticketing/internal/models"
	"ticketing/internal/pagination"

	"github.com/google/uuid"
)

type TicketService struct {
	tx          database.Transactor
	ticketTypes TicketTypeStore
	tickets     TicketStore
	users       UserStore
	publisher   messaging.Publisher
	clock       clock.Clock
	metrics     *metrics.Metrics
	maxRetries  int
}

func NewTicketService(deps Dependencies) *TicketService {
	deps = deps.withDefaults()
	return &TicketService{
		tx:          deps.Tx,
		ticketTypes: deps.TicketTypes,
		tickets:     deps.Tickets,
		users:       deps.Users,
		publisher:   deps.Publisher,
		clock:       deps.Clock,
		metrics:     deps.Metrics,
		maxRetries:  deps.MaxPurchaseRetries,
	}
}

type purchase struct {
	tickets    []models.Ticket
	ticketType models.TicketType
	user       models.User
}

// PurchaseTickets creates req.Quantity tickets and decrements the ticket
// type's remaining quantity as one transaction. The ticket type row stays
// locked from the availability check until commit. A transaction that
// loses a lock race is re-run up to maxRetries times.
func (s *TicketService) PurchaseTickets(ctx context.Context, req models.PurchaseTicketsRequest) (*models.TicketView, error) {
	log := logger.WithContext(ctx)

	var (
		result *purchase
		err    error
	)
	for attempt := 0; ; attempt++ {
		result, err = s.purchaseOnce(ctx, req)
		if err == nil || !database.IsRetryable(err) || attempt >= s.maxRetries {
			break
		}
		s.metrics.PurchaseRetries.Inc()
		log.Warn("Purchase lost a lock race, retrying",
			"ticket_type_id", req.TicketTypeID, "attempt", attempt+1, "error", err)
	}
	if err != nil {
		s.metrics.Purchases.WithLabelValues(purchaseOutcome(err)).Inc()
		if apperrors.KindOf(err) != apperrors.KindUnknown {
			return nil, err
		}
		log.Error("Purchase failed", "ticket_type_id", req.TicketTypeID, "error", err)
		return nil, apperrors.Persistence("purchase tickets", err)
	}

	s.metrics.Purchases.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.metrics.TicketsSold.Add(float64(len(result.tickets)))

	ids := make([]uuid.UUID, len(result.tickets))
	for i, t := range result.tickets {
		ids[i] = t.TicketID
	}
	publish(ctx, s.publisher, models.EventTicketsPurchased, models.TicketsPurchasedEvent{
		TicketTypeID: req.TicketTypeID,
		UserID:       req.UserID,
		Quantity:     req.Quantity,
		TicketIDs:    ids,
		Remaining:    result.ticketType.QuantityAvailable,
		PurchaseTime: result.tickets[0].PurchaseTime,
	})

	log.Info("Tickets purchased",
		"ticket_type_id", req.TicketTypeID,
		"user_id", req.UserID,
		"quantity", req.Quantity,
		"remaining", result.ticketType.QuantityAvailable)

	first := result.tickets[0]
	first.TicketType = &result.ticketType
	first.User = &result.user
	view := models.NewTicketView(first)
	view.Quantity = req.Quantity
	return &view, nil
}

func (s *TicketService) purchaseOnce(ctx context.Context, req models.PurchaseTicketsRequest) (*purchase, error) {
	var p purchase
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		tt, err := s.ticketTypes.GetByIDForUpdate(ctx, req.TicketTypeID)
		if err != nil {
			return err
		}
		if tt == nil {
			return apperrors.ErrTicketTypeNotFound
		}
		if req.Quantity < 1 {
			return apperrors.ErrInvalidQuantity
		}
		if tt.QuantityAvailable < 1 {
			return apperrors.ErrSoldOut
		}
		if req.Quantity > tt.QuantityAvailable {
			return apperrors.ErrInsufficientInventory.WithMessage(
				"only %d tickets are available for this ticket type", tt.QuantityAvailable)
		}

		user, err := s.users.GetByID(ctx, req.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return apperrors.ErrUserNotFound
		}

		purchaseTime := s.clock.Now()
		tickets := make([]models.Ticket, req.Quantity)
		for i := range tickets {
			tickets[i] = models.Ticket{
				TicketID:     uuid.New(),
				TicketTypeID: tt.ID,
				UserID:       user.ID,
				PurchaseTime: purchaseTime,
				IsActive:     true,
			}
		}
		if err := s.tickets.InsertMany(ctx, tickets); err != nil {
			return err
		}

		updated := *tt
		updated.QuantityAvailable -= req.Quantity
		if err := s.ticketTypes.Update(ctx, &updated); err != nil {
			return err
		}

		p = purchase{tickets: tickets, ticketType: updated, user: *user}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func purchaseOutcome(err error) string {
	switch {
	case apperrors.KindOf(err) == apperrors.KindNotFound:
		return metrics.OutcomeNotFound
	case apperrors.KindOf(err) == apperrors.KindValidation:
		return metrics.OutcomeInvalid
	case errors.Is(err, apperrors.ErrSoldOut):
		return metrics.OutcomeSoldOut
	case errors.Is(err, apperrors.ErrInsufficientInventory):
		return metrics.OutcomeInsufficient
	default:
		return metrics.OutcomeError
	}
}

// GetTicket returns one ticket with its type, event and owner
func (s *TicketService) GetTicket(ctx context.Context, id uuid.UUID) (*models.TicketView, error) {
	t, err := s.tickets.GetByID(ctx, id, models.TicketIncludeAll)
	if err != nil {
		return nil, apperrors.Persistence("get ticket", err)
	}
	if t == nil {
		return nil, apperrors.ErrTicketNotFound
	}
	view := models.NewTicketView(*t)
	return &view, nil
}

// ListUserTickets pages through a user's tickets, newest first, searching by event title
func (s *TicketService) ListUserTickets(ctx context.Context, userID uuid.UUID, filter pagination.Filter, includeInactive bool) (pagination.Page[models.TicketView], error) {
	tickets, err := s.tickets.ListByUser(ctx, userID, models.TicketIncludeAll)
	if err != nil {
		return pagination.Page[models.TicketView]{}, apperrors.Persistence("list user tickets", err)
	}
	return pageTickets(tickets, filter, includeInactive), nil
}

// ListTickets pages through every ticket, newest first, searching by event title
func (s *TicketService) ListTickets(ctx context.Context, filter pagination.Filter, includeInactive bool) (pagination.Page[models.TicketView], error) {
	tickets, err := s.tickets.List(ctx, models.TicketIncludeAll)
	if err != nil {
		return pagination.Page[models.TicketView]{}, apperrors.Persistence("list tickets", err)
	}
	return pageTickets(tickets, filter, includeInactive), nil
}

func pageTickets(tickets []models.Ticket, filter pagination.Filter, includeInactive bool) pagination.Page[models.TicketView] {
	if !includeInactive {
		active := make([]models.Ticket, 0, len(tickets))
		for _, t := range tickets {
			if t.IsActive {
				active = append(active, t)
			}
		}
		tickets = active
	}
	page := pagination.Paginate(tickets, filter, models.Ticket.EventTitle)
	return pagination.Map(page, models.NewTicketView)
}
