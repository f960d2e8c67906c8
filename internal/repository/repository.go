package repository

import (
	"context"
	"fmt"
	"strings"

	"ticketing/internal/database"
)

type Repositories struct {
	db          *database.DB
	TicketTypes *TicketTypeRepository
	Tickets     *TicketRepository
	Events      *EventRepository
	States      *StateRepository
	Countries   *CountryRepository
	Users       *UserRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		db:          db,
		TicketTypes: NewTicketTypeRepository(db),
		Tickets:     NewTicketRepository(db),
		Events:      NewEventRepository(db),
		States:      NewStateRepository(db),
		Countries:   NewCountryRepository(db),
		Users:       NewUserRepository(db),
	}
}

// WithTx commits everything the repositories do with the ctx handed to fn as one unit
func (r *Repositories) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithTx(ctx, fn)
}

// placeholders renders "($1, $2), ($3, $4)" for rows values of width columns
func placeholders(rows, width int) string {
	var b strings.Builder
	n := 1
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := 0; j < width; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}
