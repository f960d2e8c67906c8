package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"ticketing/internal/config"
	"ticketing/internal/database"
	"ticketing/internal/logger"
	"ticketing/internal/models"
	"ticketing/internal/repository"

	"github.com/google/uuid"
)

var (
	eventsPerState = flag.Int("events", 2, "Events to generate per state")
	seed           = flag.Int64("seed", 1, "Random seed for prices and quantities")
	dryRun         = flag.Bool("dry-run", false, "Show what would be generated without making changes")
)

// Справочник локаций для заполнения тестовой БД
var locations = []struct {
	country string
	iso     string
	states  []string
}{
	{"Kazakhstan", "KZ", []string{"Almaty", "Astana", "Shymkent", "Karaganda"}},
	{"Germany", "DE", []string{"Bavaria", "Berlin", "Hamburg", "Saxony"}},
	{"United States", "US", []string{"California", "New York", "Texas", "Washington"}},
}

var organizers = []models.User{
	{FirstName: "Aruzhan", LastName: "Sadykova", Email: "aruzhan@example.com"},
	{FirstName: "Jonas", LastName: "Weber", Email: "jonas@example.com"},
}

var ticketLabels = []string{"General", "VIP", "Backstage"}

type Generator struct {
	repos *repository.Repositories
	rnd   *rand.Rand
}

func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting data generator...")

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	g := &Generator{
		repos: repository.NewRepositories(db),
		rnd:   rand.New(rand.NewSource(*seed)),
	}

	if err := g.Generate(ctx); err != nil {
		slog.Error("Failed to generate data", "error", err)
		os.Exit(1)
	}

	slog.Info("Data generation completed successfully!")
}

// Generate upserts the location reference data and organizers, then adds
// events with ticket types. Re-running adds new events but no duplicate locations.
func (g *Generator) Generate(ctx context.Context) error {
	users := make([]models.User, len(organizers))
	for i, u := range organizers {
		u.ID = uuid.NewSHA1(uuid.NameSpaceDNS, []byte(u.Email))
		users[i] = u
	}

	if *dryRun {
		for _, loc := range locations {
			slog.Info("DRY RUN: would upsert country", "country", loc.country, "states", len(loc.states),
				"events", len(loc.states)*(*eventsPerState))
		}
		slog.Info("DRY RUN: would upsert organizers", "count", len(users))
		return nil
	}

	return g.repos.WithTx(ctx, func(ctx context.Context) error {
		for i := range users {
			if err := g.repos.Users.Upsert(ctx, &users[i]); err != nil {
				return fmt.Errorf("failed to upsert user %s: %w", users[i].Email, err)
			}
		}

		for _, loc := range locations {
			iso := loc.iso
			country := &models.Country{Name: loc.country, ISO: &iso}
			if err := g.repos.Countries.Upsert(ctx, country); err != nil {
				return fmt.Errorf("failed to upsert country %s: %w", loc.country, err)
			}

			states, err := g.ensureStates(ctx, country.ID, loc.states)
			if err != nil {
				return err
			}

			created := 0
			for _, state := range states {
				for n := 0; n < *eventsPerState; n++ {
					creator := users[g.rnd.Intn(len(users))]
					if err := g.createEvent(ctx, creator, state, n); err != nil {
						return err
					}
					created++
				}
			}
			slog.Info("Generated events for country", "country", loc.country, "states", len(states), "events", created)
		}
		return nil
	})
}

func (g *Generator) ensureStates(ctx context.Context, countryID int64, names []string) ([]models.State, error) {
	var missing []*models.State
	for _, name := range names {
		exists, err := g.repos.States.ExistsByName(ctx, countryID, name, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to check state %s: %w", name, err)
		}
		if !exists {
			missing = append(missing, &models.State{CountryID: countryID, Name: name})
		}
	}
	if len(missing) > 0 {
		if err := g.repos.States.InsertMany(ctx, missing); err != nil {
			return nil, fmt.Errorf("failed to insert states: %w", err)
		}
	}
	return g.repos.States.ListByCountry(ctx, countryID, models.StateIncludes{})
}

func (g *Generator) createEvent(ctx context.Context, creator models.User, state models.State, n int) error {
	event := &models.Event{
		Title:          fmt.Sprintf("%s Live #%d", state.Name, n+1),
		Description:    fmt.Sprintf("Generated event in %s", state.Name),
		OrganizerEmail: creator.Email,
		Location:       state.Name + " Arena",
		CountryID:      state.CountryID,
		StateID:        state.ID,
		EventDateTime:  time.Now().UTC().Add(time.Duration(g.rnd.Intn(90)+7) * 24 * time.Hour).Truncate(time.Hour),
		EventType:      models.EventTypePhysical,
		CreatedBy:      creator.ID,
		CreatedAt:      time.Now().UTC(),
		IsActive:       true,
	}
	if g.rnd.Intn(4) == 0 {
		event.EventType = models.EventTypeOnline
	}
	if err := g.repos.Events.Insert(ctx, event); err != nil {
		return fmt.Errorf("failed to insert event %q: %w", event.Title, err)
	}

	types := make([]*models.TicketType, len(ticketLabels))
	for i, label := range ticketLabels {
		types[i] = &models.TicketType{
			EventID:           event.ID,
			Type:              label,
			Price:             g.priceFor(i),
			QuantityAvailable: g.rnd.Intn(401) + 50,
		}
	}
	if err := g.repos.TicketTypes.InsertMany(ctx, types); err != nil {
		return fmt.Errorf("failed to insert ticket types for event %d: %w", event.ID, err)
	}
	return nil
}

// priceFor returns a price in minor units, higher tiers cost more
func (g *Generator) priceFor(tier int) int64 {
	basePrice := int64(5000)
	switch tier {
	case 0:
		return basePrice + int64(g.rnd.Intn(1000))*10
	case 1:
		return basePrice*3 + int64(g.rnd.Intn(2000))*10
	default:
		return basePrice*6 + int64(g.rnd.Intn(3000))*10
	}
}
