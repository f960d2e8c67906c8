package service

import (
	"testing"
	"time"

	"ticketing/internal/cache"
	"ticketing/internal/clock"
	"ticketing/internal/messaging"
	"ticketing/internal/metrics"
	"ticketing/internal/models"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	store     *memStore
	services  *Services
	locations *recordingLocations
	publisher *messaging.Recorder
	metrics   *metrics.Metrics
	clock     *clock.Manual

	user    models.User
	country models.Country
	almaty  models.State
	event   models.Event
	vip     models.TicketType
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newMemStore()
	h := &harness{
		store:     store,
		publisher: &messaging.Recorder{},
		metrics:   metrics.Nop(),
		clock:     clock.NewManual(testNow),
		user:      models.User{ID: uuid.New(), FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		country:   models.Country{ID: 7, Name: "Kazakhstan"},
	}
	h.almaty = models.State{ID: 70, CountryID: 7, Name: "Almaty"}
	h.event = models.Event{
		ID: 1, Title: "Rock Night", Description: "Loud", Location: "Arena",
		CountryID: 7, StateID: 70, EventDateTime: testNow.Add(72 * time.Hour),
		EventType: models.EventTypePhysical, CreatedBy: h.user.ID, CreatedAt: testNow, IsActive: true,
	}
	h.vip = models.TicketType{ID: 1, EventID: 1, Type: "VIP", Price: 2500, QuantityAvailable: 5}

	store.users[h.user.ID] = h.user
	store.countries[h.country.ID] = h.country
	store.countries[8] = models.Country{ID: 8, Name: "Germany"}
	store.states[h.almaty.ID] = h.almaty
	store.events[h.event.ID] = h.event
	store.ticketTypes[h.vip.ID] = h.vip

	states := fakeStates{store}
	h.locations = &recordingLocations{
		LocationCache: cache.NewLocationCache(states, cache.WithClock(h.clock)),
		store:         store,
	}

	h.services = NewServices(Dependencies{
		Tx:                 store,
		TicketTypes:        fakeTicketTypes{store},
		Tickets:            fakeTickets{store},
		Events:             fakeEvents{store},
		States:             states,
		Countries:          fakeCountries{store},
		Users:              fakeUsers{store},
		Locations:          h.locations,
		Publisher:          h.publisher,
		Clock:              h.clock,
		Metrics:            h.metrics,
		MaxPurchaseRetries: 1,
	})
	return h
}
