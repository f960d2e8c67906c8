package repository

import (
	"context"
	"database/sql"

	"ticketing/internal/database"
	"ticketing/internal/models"

	"github.com/lib/pq"
)

type StateRepository struct {
	db *database.DB
}

func NewStateRepository(db *database.DB) *StateRepository {
	return &StateRepository{db: db}
}

const stateSelect = `
	SELECT s.id, s.country_id, s.name, c.id, c.name, c.iso
	FROM states s
	JOIN countries c ON c.id = s.country_id`

func scanState(row interface{ Scan(...any) error }, inc models.StateIncludes) (*models.State, error) {
	var (
		s models.State
		c models.Country
	)
	if err := row.Scan(&s.ID, &s.CountryID, &s.Name, &c.ID, &c.Name, &c.ISO); err != nil {
		return nil, err
	}
	if inc.Country {
		s.Country = &c
	}
	return &s, nil
}

func (r *StateRepository) GetByID(ctx context.Context, id int64, inc models.StateIncludes) (*models.State, error) {
	s, err := scanState(r.db.Conn(ctx).QueryRowContext(ctx, stateSelect+` WHERE s.id = $1`, id), inc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// GetByIDs returns the states that exist among ids, in id order
func (r *StateRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.State, error) {
	return r.list(ctx, models.StateIncludes{}, ` WHERE s.id = ANY($1) ORDER BY s.id`, pq.Array(ids))
}

// ListByCountry returns the country's states ordered by name
func (r *StateRepository) ListByCountry(ctx context.Context, countryID int64, inc models.StateIncludes) ([]models.State, error) {
	return r.list(ctx, inc, ` WHERE s.country_id = $1 ORDER BY s.name, s.id`, countryID)
}

func (r *StateRepository) list(ctx context.Context, inc models.StateIncludes, tail string, args ...any) ([]models.State, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, stateSelect+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := []models.State{}
	for rows.Next() {
		s, err := scanState(rows, inc)
		if err != nil {
			return nil, err
		}
		states = append(states, *s)
	}
	return states, rows.Err()
}

// ExistsByName reports whether the country already has a state with this
// name, ignoring excludeID so an update can keep its own name.
func (r *StateRepository) ExistsByName(ctx context.Context, countryID int64, name string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM states WHERE country_id = $1 AND name = $2 AND id <> $3)`,
		countryID, name, excludeID).Scan(&exists)
	return exists, err
}

func (r *StateRepository) InsertMany(ctx context.Context, states []*models.State) error {
	if len(states) == 0 {
		return nil
	}

	args := make([]any, 0, len(states)*2)
	for _, s := range states {
		args = append(args, s.CountryID, s.Name)
	}
	query := `INSERT INTO states (country_id, name) VALUES ` + placeholders(len(states), 2) + ` RETURNING id`

	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if err := rows.Scan(&states[i].ID); err != nil {
			return err
		}
		i++
	}
	return rows.Err()
}

func (r *StateRepository) Update(ctx context.Context, s *models.State) error {
	res, err := r.db.Conn(ctx).ExecContext(ctx,
		`UPDATE states SET name = $2, country_id = $3 WHERE id = $1`, s.ID, s.Name, s.CountryID)
	if err != nil {
		return err
	}
	return expectAffected(res, 1)
}

func (r *StateRepository) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.Conn(ctx).ExecContext(ctx, `DELETE FROM states WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
