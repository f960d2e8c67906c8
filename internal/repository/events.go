package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ticketing/internal/database"
	"ticketing/internal/models"

	"github.com/google/uuid"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, description, organizer_email, organizer_phone, location,
	country_id, state_id, event_datetime, event_type, created_by, created_at, updated_at, is_active`

func scanEvent(row interface{ Scan(...any) error }, e *models.Event) error {
	return row.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.OrganizerEmail,
		&e.OrganizerPhone,
		&e.Location,
		&e.CountryID,
		&e.StateID,
		&e.EventDateTime,
		&e.EventType,
		&e.CreatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.IsActive,
	)
}

func (r *EventRepository) Insert(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (title, description, organizer_email, organizer_phone, location,
		                    country_id, state_id, event_datetime, event_type, created_by, created_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	return r.db.Conn(ctx).QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.OrganizerEmail,
		event.OrganizerPhone,
		event.Location,
		event.CountryID,
		event.StateID,
		event.EventDateTime,
		event.EventType,
		event.CreatedBy,
		event.CreatedAt,
		event.IsActive,
	).Scan(&event.ID)
}

// GetByIDForUpdate locks the event row. Ticket-type writes take this lock
// before touching the event's ticket types.
func (r *EventRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Event, error) {
	if _, ok := database.TxFromContext(ctx); !ok {
		return nil, fmt.Errorf("GetByIDForUpdate called outside a transaction")
	}
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *EventRepository) GetByID(ctx context.Context, id int64, inc models.EventIncludes) (*models.Event, error) {
	event, err := r.get(ctx, id, "")
	if err != nil || event == nil {
		return event, err
	}
	events := []models.Event{*event}
	if err := r.load(ctx, events, inc); err != nil {
		return nil, err
	}
	return &events[0], nil
}

// List returns every event, newest first
func (r *EventRepository) List(ctx context.Context, inc models.EventIncludes) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var e models.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.load(ctx, events, inc); err != nil {
		return nil, err
	}
	return events, nil
}

// Update writes every mutable column; ticket types are not touched
func (r *EventRepository) Update(ctx context.Context, e *models.Event) error {
	query := `
		UPDATE events
		SET title = $2, description = $3, location = $4, country_id = $5, state_id = $6,
		    event_datetime = $7, event_type = $8, updated_at = $9, is_active = $10
		WHERE id = $1`

	res, err := r.db.Conn(ctx).ExecContext(ctx, query,
		e.ID,
		e.Title,
		e.Description,
		e.Location,
		e.CountryID,
		e.StateID,
		e.EventDateTime,
		e.EventType,
		e.UpdatedAt,
		e.IsActive,
	)
	if err != nil {
		return err
	}
	return expectAffected(res, 1)
}

// Delete removes the event; its ticket types and tickets go with it (ON DELETE CASCADE)
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Conn(ctx).ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, 1)
}

func (r *EventRepository) get(ctx context.Context, id int64, lock string) (*models.Event, error) {
	event := &models.Event{}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1` + lock

	err := scanEvent(r.db.Conn(ctx).QueryRowContext(ctx, query, id), event)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// load attaches the requested relations. Ticket types come in one query;
// creator, country and state are fetched once per distinct id.
func (r *EventRepository) load(ctx context.Context, events []models.Event, inc models.EventIncludes) error {
	if len(events) == 0 {
		return nil
	}

	if inc.TicketTypes {
		ids := make([]int64, len(events))
		index := make(map[int64]int, len(events))
		for i := range events {
			ids[i] = events[i].ID
			index[events[i].ID] = i
			events[i].TicketTypes = []models.TicketType{}
		}
		types, err := NewTicketTypeRepository(r.db).listByEvents(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load ticket types: %w", err)
		}
		for _, tt := range types {
			e := &events[index[tt.EventID]]
			e.TicketTypes = append(e.TicketTypes, tt)
		}
	}

	users := map[uuid.UUID]*models.User{}
	countries := map[int64]*models.Country{}
	states := map[int64]*models.State{}
	for i := range events {
		e := &events[i]
		if inc.Creator {
			creator, ok := users[e.CreatedBy]
			if !ok {
				var err error
				if creator, err = NewUserRepository(r.db).GetByID(ctx, e.CreatedBy); err != nil {
					return fmt.Errorf("failed to load creator: %w", err)
				}
				users[e.CreatedBy] = creator
			}
			e.Creator = creator
		}
		if inc.Country {
			country, ok := countries[e.CountryID]
			if !ok {
				var err error
				if country, err = NewCountryRepository(r.db).GetByID(ctx, e.CountryID); err != nil {
					return fmt.Errorf("failed to load country: %w", err)
				}
				countries[e.CountryID] = country
			}
			e.Country = country
		}
		if inc.State {
			state, ok := states[e.StateID]
			if !ok {
				var err error
				if state, err = NewStateRepository(r.db).GetByID(ctx, e.StateID, models.StateIncludes{}); err != nil {
					return fmt.Errorf("failed to load state: %w", err)
				}
				states[e.StateID] = state
			}
			e.State = state
		}
	}
	return nil
}
