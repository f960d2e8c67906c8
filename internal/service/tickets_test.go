package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "ticketing/internal/errors"
	"ticketing/internal/metrics"
	"ticketing/internal/models"
	"ticketing/internal/pagination"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseTickets(t *testing.T) {
	ctx := context.Background()

	t.Run("success decrements and creates one row per unit", func(t *testing.T) {
		h := newHarness(t)

		view, err := h.services.Tickets.PurchaseTickets(ctx, models.PurchaseTicketsRequest{
			UserID: h.user.ID, TicketTypeID: h.vip.ID, Quantity: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, view.Quantity)
		assert.Equal(t, "VIP", view.TicketType)
		assert.Equal(t, "25.00", view.TicketPrice)
		assert.Equal(t, "Ada", view.UserFirstName)
		assert.Equal(t, testNow, view.PurchaseTime)

		assert.Equal(t, 2, h.store.quantity(h.vip.ID))
		assert.Equal(t, 3, h.store.ticketCount())
		for _, tk := range h.store.tickets {
			assert.Equal(t, testNow, tk.PurchaseTime, "all units share one timestamp")
			assert.True(t, tk.IsActive)
		}

		assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Purchases.WithLabelValues(metrics.OutcomeSuccess)))
		assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.TicketsSold))

		msgs := h.publisher.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, models.EventTicketsPurchased, msgs[0].Subject)
		var evt models.TicketsPurchasedEvent
		require.NoError(t, json.Unmarshal(msgs[0].Payload, &evt))
		assert.Equal(t, 3, evt.Quantity)
		assert.Equal(t, 2, evt.Remaining)
		assert.Len(t, evt.TicketIDs, 3)
	})

	t.Run("insufficient inventory leaves quantity unchanged", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.services.Tickets.PurchaseTickets(ctx, models.PurchaseTicketsRequest{
			UserID: h.user.ID, TicketTypeID: h.vip.ID, Quantity: 3,
		})
		require.NoError(t, err)

		_, err = h.services.Tickets.PurchaseTickets(ctx, models.PurchaseTicketsRequest{
			UserID: h.user.ID, TicketTypeID: h.vip.ID, Quantity: 3,
		})
		assert.ErrorIs(t, err, apperrors.ErrInsufficientInventory)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
		assert.Contains(t, err.Error(), "only 2 tickets")
		assert.Equal(t, 2, h.store.quantity(h.vip.ID))
		assert.Equal(t, 3, h.store.ticketCount())
	})

	t.Run("precondition order", func(t *testing.T) {
		h := newHarness(t)
		soldOut := models.TicketType{ID: 2, EventID: 1, Type: "Balcony", Price: 100, QuantityAvailable: 0}
		h.store.ticketTypes[soldOut.ID] = soldOut
		stranger := uuid.New()

		tests := []struct {
			name string
			req  models.PurchaseTicketsRequest
			want error
		}{
			{"missing ticket type wins over bad quantity", models.PurchaseTicketsRequest{UserID: stranger, TicketTypeID: 999, Quantity: 0}, apperrors.ErrTicketTypeNotFound},
			{"bad quantity wins over sold out", models.PurchaseTicketsRequest{UserID: stranger, TicketTypeID: soldOut.ID, Quantity: 0}, apperrors.ErrInvalidQuantity},
			{"sold out wins over missing user", models.PurchaseTicketsRequest{UserID: stranger, TicketTypeID: soldOut.ID, Quantity: 1}, apperrors.ErrSoldOut},
			{"insufficient wins over missing user", models.PurchaseTicketsRequest{UserID: stranger, TicketTypeID: h.vip.ID, Quantity: 6}, apperrors.ErrInsufficientInventory},
			{"missing user", models.PurchaseTicketsRequest{UserID: stranger, TicketTypeID: h.vip.ID, Quantity: 1}, apperrors.ErrUserNotFound},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := h.services.Tickets.PurchaseTickets(ctx, tt.req)
				assert.ErrorIs(t, err, tt.want)
			})
		}

		assert.Equal(t, 5, h.store.quantity(h.vip.ID))
		assert.Zero(t, h.store.ticketCount())
		assert.Empty(t, h.publisher.Messages())
		assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Purchases.WithLabelValues(metrics.OutcomeSoldOut)))
	})

	t.Run("failed counter update rolls back ticket inserts", func(t *testing.T) {
		h := newHarness(t)
		h.store.updateErr = errors.New("disk full")

		_, err := h.services.Tickets.PurchaseTickets(ctx, models.PurchaseTicketsRequest{
			UserID: h.user.ID, TicketTypeID: h.vip.ID, Quantity: 2,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrPersistence)
		assert.Equal(t, apperrors.KindPersistence, apperrors.KindOf(err))
		assert.Zero(t, h.store.ticketCount())
		assert.Equal(t, 5, h.store.quantity(h.vip.ID))
		assert.Empty(t, h.publisher.Messages())
	})

	t.Run("retries once on lock conflict", func(t *testing.T) {
		h := newHarness(t)
		h.store.lockConflicts = 1

		view, err := h.services.Tickets.PurchaseTickets(ctx, models.PurchaseTicketsRequest{
			UserID: h.user.ID, TicketTypeID: h.vip.ID, Quantity: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, view.Quantity)
		assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.PurchaseRetries))
		assert.Equal(t, []string{"rollback", "commit"}, h.store.Trail())
	})

	t.Run("second conflict surfaces as persistence failure", func(t *testing.T) {
		h := newHarness(t)
		h.store.lockConflicts = 2

		_, err := h.services.Tickets.PurchaseTickets(ctx, models.PurchaseTicketsRequest{
			UserID: h.user.ID, TicketTypeID: h.vip.ID, Quantity: 1,
		})
		assert.Equal(t, apperrors.KindPersistence, apperrors.KindOf(err))
		assert.Equal(t, 5, h.store.quantity(h.vip.ID))
		assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Purchases.WithLabelValues(metrics.OutcomeError)))
	})

	t.Run("cancelled context is a persistence failure", func(t *testing.T) {
		h := newHarness(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := h.services.Tickets.PurchaseTickets(cctx, models.PurchaseTicketsRequest{
			UserID: h.user.ID, TicketTypeID: h.vip.ID, Quantity: 1,
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, apperrors.KindPersistence, apperrors.KindOf(err))
		assert.Zero(t, h.store.ticketCount())
	})

	t.Run("publish failure does not fail the purchase", func(t *testing.T) {
		h := newHarness(t)
		h.publisher.Err = errors.New("nats down")

		_, err := h.services.Tickets.PurchaseTickets(ctx, models.PurchaseTicketsRequest{
			UserID: h.user.ID, TicketTypeID: h.vip.ID, Quantity: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, 4, h.store.quantity(h.vip.ID))
	})
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const buyers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		units     int
	)
	for i := 0; i < buyers; i++ {
		qty := 1 + i%2
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.services.Tickets.PurchaseTickets(ctx, models.PurchaseTicketsRequest{
				UserID: h.user.ID, TicketTypeID: h.vip.ID, Quantity: qty,
			})
			if err != nil {
				assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
				return
			}
			mu.Lock()
			succeeded++
			units += qty
			mu.Unlock()
		}()
	}
	wg.Wait()

	remaining := h.store.quantity(h.vip.ID)
	assert.GreaterOrEqual(t, remaining, 0)
	assert.Equal(t, 5, units+remaining)
	assert.Equal(t, units, h.store.ticketCount())
	assert.Positive(t, succeeded)
}

func TestTicketReads(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	other := models.Event{ID: 2, Title: "Jazz Evening", CountryID: 7, StateID: 70, CreatedBy: h.user.ID, IsActive: true}
	h.store.events[other.ID] = other
	jazz := models.TicketType{ID: 3, EventID: 2, Type: "Standard", Price: 1000, QuantityAvailable: 10}
	h.store.ticketTypes[jazz.ID] = jazz

	var lastView *models.TicketView
	for i := 0; i < 3; i++ {
		h.clock.Advance(time.Minute)
		v, err := h.services.Tickets.PurchaseTickets(ctx, models.PurchaseTicketsRequest{
			UserID: h.user.ID, TicketTypeID: jazz.ID, Quantity: 1,
		})
		require.NoError(t, err)
		lastView = v
	}
	h.clock.Advance(time.Minute)
	_, err := h.services.Tickets.PurchaseTickets(ctx, models.PurchaseTicketsRequest{
		UserID: h.user.ID, TicketTypeID: h.vip.ID, Quantity: 1,
	})
	require.NoError(t, err)

	// one inactive ticket
	h.store.tickets[0].IsActive = false

	t.Run("GetTicket loads relations with quantity one", func(t *testing.T) {
		v, err := h.services.Tickets.GetTicket(ctx, lastView.TicketID)
		require.NoError(t, err)
		assert.Equal(t, 1, v.Quantity)
		assert.Equal(t, "Jazz Evening", v.EventTitle)

		_, err = h.services.Tickets.GetTicket(ctx, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})

	t.Run("ListUserTickets newest first, skips inactive", func(t *testing.T) {
		page, err := h.services.Tickets.ListUserTickets(ctx, h.user.ID, pagination.Filter{}, false)
		require.NoError(t, err)
		require.Len(t, page.Data, 3)
		assert.Equal(t, "Rock Night", page.Data[0].EventTitle)
		assert.Equal(t, 3, page.Meta.TotalCount)

		all, err := h.services.Tickets.ListUserTickets(ctx, h.user.ID, pagination.Filter{}, true)
		require.NoError(t, err)
		assert.Equal(t, 4, all.Meta.TotalCount)
	})

	t.Run("search and page window", func(t *testing.T) {
		page, err := h.services.Tickets.ListUserTickets(ctx, h.user.ID,
			pagination.Filter{Search: "JAZZ", PageNumber: 1, PageSize: 1}, true)
		require.NoError(t, err)
		require.Len(t, page.Data, 1)
		assert.Equal(t, 3, page.Meta.TotalCount)
		assert.Equal(t, 3, page.Meta.TotalPages)
		assert.Equal(t, 2, page.Meta.NextPage)
	})

	t.Run("unknown user gets an empty page", func(t *testing.T) {
		page, err := h.services.Tickets.ListUserTickets(ctx, uuid.New(), pagination.Filter{}, false)
		require.NoError(t, err)
		assert.Empty(t, page.Data)
		assert.Equal(t, 0, page.Meta.TotalPages)
	})

	t.Run("ListTickets covers every user", func(t *testing.T) {
		page, err := h.services.Tickets.ListTickets(ctx, pagination.Filter{PageSize: 2}, true)
		require.NoError(t, err)
		assert.Len(t, page.Data, 2)
		assert.Equal(t, 4, page.Meta.TotalCount)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		h.store.listErr = errors.New("timeout")
		defer func() { h.store.listErr = nil }()

		_, err := h.services.Tickets.ListUserTickets(ctx, h.user.ID, pagination.Filter{}, false)
		assert.Equal(t, apperrors.KindPersistence, apperrors.KindOf(err))
	})
}
