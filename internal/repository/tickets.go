package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ticketing/internal/database"
	"ticketing/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type TicketRepository struct {
	db *database.DB
}

func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Relations are always joined; includes decide which ones are attached.
const ticketSelect = `
	SELECT t.ticket_id, t.ticket_type_id, t.user_id, t.purchase_time, t.is_active,
	       tt.id, tt.event_id, tt.type, tt.price, tt.quantity_available,
	       e.id, e.title, e.description, e.organizer_email, e.organizer_phone, e.location,
	       e.country_id, e.state_id, e.event_datetime, e.event_type, e.created_by,
	       e.created_at, e.updated_at, e.is_active,
	       u.id, u.first_name, u.last_name, u.email, u.phone_number
	FROM tickets t
	JOIN ticket_types tt ON tt.id = t.ticket_type_id
	JOIN events e ON e.id = tt.event_id
	JOIN users u ON u.id = t.user_id`

func scanTicket(row interface{ Scan(...any) error }, inc models.TicketIncludes) (*models.Ticket, error) {
	var (
		t  models.Ticket
		tt models.TicketType
		e  models.Event
		u  models.User
	)
	err := row.Scan(
		&t.TicketID, &t.TicketTypeID, &t.UserID, &t.PurchaseTime, &t.IsActive,
		&tt.ID, &tt.EventID, &tt.Type, &tt.Price, &tt.QuantityAvailable,
		&e.ID, &e.Title, &e.Description, &e.OrganizerEmail, &e.OrganizerPhone, &e.Location,
		&e.CountryID, &e.StateID, &e.EventDateTime, &e.EventType, &e.CreatedBy,
		&e.CreatedAt, &e.UpdatedAt, &e.IsActive,
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhoneNumber,
	)
	if err != nil {
		return nil, err
	}

	if inc.TicketType || inc.Event {
		t.TicketType = &tt
		if inc.Event {
			tt.Event = &e
		}
	}
	if inc.User {
		t.User = &u
	}
	return &t, nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID, inc models.TicketIncludes) (*models.Ticket, error) {
	query := ticketSelect + ` WHERE t.ticket_id = $1`

	t, err := scanTicket(r.db.Conn(ctx).QueryRowContext(ctx, query, id), inc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// ListByUser returns the user's tickets, newest purchase first
func (r *TicketRepository) ListByUser(ctx context.Context, userID uuid.UUID, inc models.TicketIncludes) ([]models.Ticket, error) {
	return r.list(ctx, inc, ` WHERE t.user_id = $1 ORDER BY t.purchase_time DESC, t.ticket_id`, userID)
}

// List returns every ticket, newest purchase first
func (r *TicketRepository) List(ctx context.Context, inc models.TicketIncludes) ([]models.Ticket, error) {
	return r.list(ctx, inc, ` ORDER BY t.purchase_time DESC, t.ticket_id`)
}

func (r *TicketRepository) list(ctx context.Context, inc models.TicketIncludes, tail string, args ...any) ([]models.Ticket, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, ticketSelect+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows, inc)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// InsertMany streams the tickets with COPY, joining the transaction in ctx
// or opening one. COPY has no bind-parameter limit, so one purchase can
// create any number of tickets.
func (r *TicketRepository) InsertMany(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		tx, _ := database.TxFromContext(ctx)
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("tickets",
			"ticket_id", "ticket_type_id", "user_id", "purchase_time", "is_active"))
		if err != nil {
			return fmt.Errorf("failed to prepare ticket copy: %w", err)
		}

		for _, t := range tickets {
			if _, err := stmt.ExecContext(ctx, t.TicketID, t.TicketTypeID, t.UserID, t.PurchaseTime, t.IsActive); err != nil {
				_ = stmt.Close()
				return err
			}
		}
		// an Exec without arguments flushes the buffered rows
		if _, err := stmt.ExecContext(ctx); err != nil {
			_ = stmt.Close()
			return err
		}
		return stmt.Close()
	})
}
