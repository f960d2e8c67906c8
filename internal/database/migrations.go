package database

import (
	"context"
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations(ctx context.Context) error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createCountriesTable,
		createStatesTable,
		createEventsTable,
		createTicketTypesTable,
		createTicketsTable,
		createTicketsUserIndex,
	}

	for i, migration := range migrations {
		slog.Debug("Running migration", "step", i+1)
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    first_name VARCHAR(100) NOT NULL,
    last_name VARCHAR(100) NOT NULL,
    email VARCHAR(255) UNIQUE NOT NULL,
    phone_number VARCHAR(50)
);`

const createCountriesTable = `
CREATE TABLE IF NOT EXISTS countries (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(200) UNIQUE NOT NULL,
    iso VARCHAR(10) UNIQUE
);`

const createStatesTable = `
CREATE TABLE IF NOT EXISTS states (
    id BIGSERIAL PRIMARY KEY,
    country_id BIGINT NOT NULL REFERENCES countries(id) ON DELETE CASCADE,
    name VARCHAR(200) NOT NULL,

    UNIQUE(country_id, name)
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    description TEXT NOT NULL,
    organizer_email VARCHAR(255) NOT NULL,
    organizer_phone VARCHAR(50),
    location VARCHAR(500) NOT NULL,
    country_id BIGINT NOT NULL REFERENCES countries(id),
    state_id BIGINT NOT NULL REFERENCES states(id),
    event_datetime TIMESTAMPTZ NOT NULL,
    event_type SMALLINT NOT NULL,
    created_by UUID NOT NULL REFERENCES users(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ,
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);`

const createTicketTypesTable = `
CREATE TABLE IF NOT EXISTS ticket_types (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    type VARCHAR(100) NOT NULL,
    price BIGINT NOT NULL,
    quantity_available INTEGER NOT NULL,

    CHECK (price >= 0),
    CHECK (quantity_available >= 0)
);
CREATE UNIQUE INDEX IF NOT EXISTS ticket_types_event_type_uq
ON ticket_types (event_id, LOWER(TRIM(type)));`

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
    ticket_id UUID PRIMARY KEY,
    ticket_type_id BIGINT NOT NULL REFERENCES ticket_types(id) ON DELETE CASCADE,
    user_id UUID NOT NULL REFERENCES users(id),
    purchase_time TIMESTAMPTZ NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);`

const createTicketsUserIndex = `
CREATE INDEX IF NOT EXISTS tickets_user_purchase_idx
ON tickets (user_id, purchase_time DESC);`
