package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ticketing/internal/database"
	"ticketing/internal/models"

	"github.com/lib/pq"
)

type TicketTypeRepository struct {
	db *database.DB
}

func NewTicketTypeRepository(db *database.DB) *TicketTypeRepository {
	return &TicketTypeRepository{db: db}
}

const ticketTypeColumns = `id, event_id, type, price, quantity_available`

func scanTicketType(row interface{ Scan(...any) error }, tt *models.TicketType) error {
	return row.Scan(&tt.ID, &tt.EventID, &tt.Type, &tt.Price, &tt.QuantityAvailable)
}

func (r *TicketTypeRepository) GetByID(ctx context.Context, id int64) (*models.TicketType, error) {
	return r.getByID(ctx, id, "")
}

// GetByIDForUpdate locks the row until the surrounding transaction ends.
// Must be called with a ctx from WithTx.
func (r *TicketTypeRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.TicketType, error) {
	if _, ok := database.TxFromContext(ctx); !ok {
		return nil, fmt.Errorf("GetByIDForUpdate called outside a transaction")
	}
	return r.getByID(ctx, id, " FOR UPDATE")
}

func (r *TicketTypeRepository) getByID(ctx context.Context, id int64, lock string) (*models.TicketType, error) {
	tt := &models.TicketType{}
	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE id = $1` + lock

	err := scanTicketType(r.db.Conn(ctx).QueryRowContext(ctx, query, id), tt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tt, nil
}

func (r *TicketTypeRepository) ListByEvent(ctx context.Context, eventID int64) ([]models.TicketType, error) {
	return r.listByEvents(ctx, []int64{eventID})
}

func (r *TicketTypeRepository) listByEvents(ctx context.Context, eventIDs []int64) ([]models.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE event_id = ANY($1) ORDER BY event_id, id`

	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, pq.Array(eventIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := []models.TicketType{}
	for rows.Next() {
		var tt models.TicketType
		if err := scanTicketType(rows, &tt); err != nil {
			return nil, err
		}
		types = append(types, tt)
	}
	return types, rows.Err()
}

// InsertMany inserts all rows in one statement and fills in their ids.
// Rows are matched back by event and label, unique per the
// ticket_types_event_type_uq index.
func (r *TicketTypeRepository) InsertMany(ctx context.Context, types []*models.TicketType) error {
	if len(types) == 0 {
		return nil
	}

	args := make([]any, 0, len(types)*4)
	byLabel := make(map[string]*models.TicketType, len(types))
	for _, tt := range types {
		args = append(args, tt.EventID, tt.Type, tt.Price, tt.QuantityAvailable)
		byLabel[ticketTypeKey(tt.EventID, tt.Type)] = tt
	}
	query := `INSERT INTO ticket_types (event_id, type, price, quantity_available) VALUES ` +
		placeholders(len(types), 4) + ` RETURNING id, event_id, type`

	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, eventID int64
			label       string
		)
		if err := rows.Scan(&id, &eventID, &label); err != nil {
			return err
		}
		tt, ok := byLabel[ticketTypeKey(eventID, label)]
		if !ok {
			return fmt.Errorf("inserted ticket type %q for event %d not in batch", label, eventID)
		}
		tt.ID = id
	}
	return rows.Err()
}

func ticketTypeKey(eventID int64, label string) string {
	return fmt.Sprintf("%d/%s", eventID, label)
}

func (r *TicketTypeRepository) Update(ctx context.Context, tt *models.TicketType) error {
	query := `
		UPDATE ticket_types
		SET type = $2, price = $3, quantity_available = $4
		WHERE id = $1`

	res, err := r.db.Conn(ctx).ExecContext(ctx, query, tt.ID, tt.Type, tt.Price, tt.QuantityAvailable)
	if err != nil {
		return err
	}
	return expectAffected(res, 1)
}

func (r *TicketTypeRepository) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.Conn(ctx).ExecContext(ctx, `DELETE FROM ticket_types WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func expectAffected(res sql.Result, want int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != want {
		return fmt.Errorf("expected %d affected rows, got %d", want, n)
	}
	return nil
}
