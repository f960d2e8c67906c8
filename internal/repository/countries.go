package repository

import (
	"context"
	"database/sql"

	"ticketing/internal/database"
	"ticketing/internal/models"
)

type CountryRepository struct {
	db *database.DB
}

func NewCountryRepository(db *database.DB) *CountryRepository {
	return &CountryRepository{db: db}
}

func (r *CountryRepository) GetByID(ctx context.Context, id int64) (*models.Country, error) {
	c := &models.Country{}
	err := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, iso FROM countries WHERE id = $1`, id).Scan(&c.ID, &c.Name, &c.ISO)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Upsert inserts a country by name and returns its id
func (r *CountryRepository) Upsert(ctx context.Context, c *models.Country) error {
	query := `
		INSERT INTO countries (name, iso) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET iso = EXCLUDED.iso
		RETURNING id`
	return r.db.Conn(ctx).QueryRowContext(ctx, query, c.Name, c.ISO).Scan(&c.ID)
}
