package service

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "ticketing/internal/errors"
	"ticketing/internal/models"
	"ticketing/internal/pagination"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEventRequest(h *harness) models.CreateEventRequest {
	return models.CreateEventRequest{
		Title:         "Opera Gala",
		Description:   "An evening of arias",
		Location:      "State Opera House",
		CountryID:     h.country.ID,
		StateID:       h.almaty.ID,
		EventDateTime: testNow.Add(30 * 24 * time.Hour),
		EventType:     models.EventTypePhysical,
		CreatedBy:     h.user.ID,
		TicketTypes: []models.TicketTypeRequest{
			{Type: "Stalls", Price: 8000, QuantityAvailable: 200},
			{Type: "Balcony", Price: 4500, QuantityAvailable: 120},
		},
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("creates event with ticket types", func(t *testing.T) {
		h := newHarness(t)
		view, err := h.services.Events.CreateEvent(ctx, validEventRequest(h))
		require.NoError(t, err)
		assert.NotZero(t, view.ID)
		assert.Equal(t, h.user.Email, view.OrganizerEmail)
		assert.Equal(t, "Ada Lovelace", view.CreatorName)
		assert.Equal(t, "Physical", view.EventTypeName)
		require.Len(t, view.TicketTypes, 2)
		assert.Equal(t, "80.00", view.TicketTypes[0].Price)

		got, err := h.services.Events.GetEvent(ctx, view.ID)
		require.NoError(t, err)
		assert.Equal(t, "Kazakhstan", got.Country)
		assert.Equal(t, "Almaty", got.State)
		assert.Len(t, got.TicketTypes, 2)
	})

	t.Run("state outside the country is rejected", func(t *testing.T) {
		h := newHarness(t)
		req := validEventRequest(h)
		req.CountryID = 8

		_, err := h.services.Events.CreateEvent(ctx, req)
		assert.ErrorIs(t, err, apperrors.ErrInvalidLocation)
		assert.Len(t, h.store.events, 1)
	})

	t.Run("unknown creator", func(t *testing.T) {
		h := newHarness(t)
		req := validEventRequest(h)
		req.CreatedBy = uuid.New()

		_, err := h.services.Events.CreateEvent(ctx, req)
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("validation collects every problem", func(t *testing.T) {
		h := newHarness(t)
		req := models.CreateEventRequest{
			EventDateTime: testNow.Add(-time.Hour),
			EventType:     models.EventType(9),
			TicketTypes: []models.TicketTypeRequest{
				{Type: "A", Price: 1, QuantityAvailable: 1},
				{Type: "a ", Price: 1, QuantityAvailable: 1},
			},
		}

		_, err := h.services.Events.CreateEvent(ctx, req)
		typed, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.KindValidation, typed.Kind)
		assert.Contains(t, typed.Details, "event date cannot be in the past")
		assert.Contains(t, typed.Details, "invalid event type")
		assert.Contains(t, typed.Details, "duplicate ticket types found: a")
		assert.Contains(t, typed.Details, "created by user id is required")
	})

	t.Run("no ticket types", func(t *testing.T) {
		h := newHarness(t)
		req := validEventRequest(h)
		req.TicketTypes = nil

		_, err := h.services.Events.CreateEvent(ctx, req)
		typed, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, []string{"at least one ticket type is required"}, typed.Details)
	})
}

func TestGetEventNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.services.Events.GetEvent(context.Background(), 404)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func ptr[T any](v T) *T { return &v }

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("only provided fields change", func(t *testing.T) {
		h := newHarness(t)
		h.clock.Advance(time.Hour)

		view, err := h.services.Events.UpdateEvent(ctx, h.event.ID, models.UpdateEventRequest{
			Title:     ptr("  Rock Night II "),
			EventType: ptr(models.EventTypeOnline),
		})
		require.NoError(t, err)
		assert.Equal(t, "Rock Night II", view.Title)
		assert.Equal(t, "Loud", view.Description)
		assert.Equal(t, "Arena", view.Location)
		assert.Equal(t, models.EventTypeOnline, view.EventType)
		assert.Equal(t, "Almaty", view.State)
		require.Len(t, view.TicketTypes, 1)

		stored := h.store.events[h.event.ID]
		require.NotNil(t, stored.UpdatedAt)
		assert.Equal(t, testNow.Add(time.Hour), *stored.UpdatedAt)
		assert.Equal(t, []string{"commit"}, h.store.Trail())
	})

	t.Run("state alone is checked against the stored country", func(t *testing.T) {
		h := newHarness(t)
		h.store.states[71] = models.State{ID: 71, CountryID: 7, Name: "Astana"}
		h.store.states[80] = models.State{ID: 80, CountryID: 8, Name: "Bavaria"}

		view, err := h.services.Events.UpdateEvent(ctx, h.event.ID, models.UpdateEventRequest{StateID: ptr(int64(71))})
		require.NoError(t, err)
		assert.Equal(t, "Astana", view.State)

		_, err = h.services.Events.UpdateEvent(ctx, h.event.ID, models.UpdateEventRequest{StateID: ptr(int64(80))})
		assert.ErrorIs(t, err, apperrors.ErrInvalidLocation)
		assert.EqualValues(t, 71, h.store.events[h.event.ID].StateID)
	})

	t.Run("country alone must still own the stored state", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.services.Events.UpdateEvent(ctx, h.event.ID, models.UpdateEventRequest{CountryID: ptr(int64(8))})
		assert.ErrorIs(t, err, apperrors.ErrInvalidLocation)
		assert.EqualValues(t, 7, h.store.events[h.event.ID].CountryID)
		assert.Equal(t, []string{"rollback"}, h.store.Trail())
	})

	t.Run("both sides moved together", func(t *testing.T) {
		h := newHarness(t)
		h.store.states[80] = models.State{ID: 80, CountryID: 8, Name: "Bavaria"}

		view, err := h.services.Events.UpdateEvent(ctx, h.event.ID, models.UpdateEventRequest{
			CountryID: ptr(int64(8)),
			StateID:   ptr(int64(80)),
		})
		require.NoError(t, err)
		assert.Equal(t, "Germany", view.Country)
		assert.Equal(t, "Bavaria", view.State)
	})

	t.Run("validation covers only present fields", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.services.Events.UpdateEvent(ctx, h.event.ID, models.UpdateEventRequest{
			Title:         ptr(" "),
			EventDateTime: ptr(testNow.Add(-time.Minute)),
			EventType:     ptr(models.EventType(9)),
		})
		typed, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.KindValidation, typed.Kind)
		assert.ElementsMatch(t, []string{
			"event title cannot be empty",
			"event date cannot be in the past",
			"invalid event type",
		}, typed.Details)
		assert.Empty(t, h.store.Trail())
	})

	t.Run("missing event", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.services.Events.UpdateEvent(ctx, 404, models.UpdateEventRequest{Title: ptr("x")})
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})

	t.Run("store failure is a persistence error", func(t *testing.T) {
		h := newHarness(t)
		h.store.updateErr = errors.New("connection reset")
		_, err := h.services.Events.UpdateEvent(ctx, h.event.ID, models.UpdateEventRequest{Title: ptr("x")})
		assert.Equal(t, apperrors.KindPersistence, apperrors.KindOf(err))
		assert.Equal(t, "Rock Night", h.store.events[h.event.ID].Title)
	})
}

func TestListEvents(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	for i, title := range []string{"Jazz Evening", "Opera Gala", "Jazz Brunch"} {
		e := h.event
		e.ID = int64(10 + i)
		e.Title = title
		e.CreatedAt = testNow.Add(time.Duration(i+1) * time.Hour)
		h.store.events[e.ID] = e
	}
	hidden := h.store.events[11]
	hidden.IsActive = false
	h.store.events[11] = hidden

	t.Run("active only, newest first", func(t *testing.T) {
		page, err := h.services.Events.ListEvents(ctx, pagination.Filter{}, false)
		require.NoError(t, err)
		assert.Equal(t, 3, page.Meta.TotalCount)
		require.Len(t, page.Data, 3)
		assert.Equal(t, []int64{12, 10, 1}, eventIDs(page.Data))
		assert.Equal(t, "Almaty", page.Data[0].State)
		assert.Equal(t, "Ada Lovelace", page.Data[2].CreatorName)
	})

	t.Run("include inactive", func(t *testing.T) {
		page, err := h.services.Events.ListEvents(ctx, pagination.Filter{}, true)
		require.NoError(t, err)
		assert.Equal(t, []int64{12, 11, 10, 1}, eventIDs(page.Data))
	})

	t.Run("search and page", func(t *testing.T) {
		page, err := h.services.Events.ListEvents(ctx, pagination.Filter{Search: "jazz", PageNumber: 2, PageSize: 1}, true)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Meta.TotalCount)
		assert.Equal(t, []int64{10}, eventIDs(page.Data))
	})
}

func eventIDs(views []models.EventView) []int64 {
	ids := make([]int64, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.services.Tickets.PurchaseTickets(ctx, models.PurchaseTicketsRequest{
		TicketTypeID: h.vip.ID, UserID: h.user.ID, Quantity: 2,
	})
	require.NoError(t, err)
	require.Equal(t, 2, h.store.ticketCount())

	require.NoError(t, h.services.Events.DeleteEvent(ctx, h.event.ID))
	assert.Empty(t, h.store.events)
	assert.Empty(t, h.store.ticketTypes)
	assert.Zero(t, h.store.ticketCount())

	_, err = h.services.Events.GetEvent(ctx, h.event.ID)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)

	err = h.services.Events.DeleteEvent(ctx, h.event.ID)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestDeactivateReactivateEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.services.Events.ReactivateEvent(ctx, h.event.ID)
	assert.ErrorIs(t, err, apperrors.ErrEventAlreadyActive)

	view, err := h.services.Events.DeactivateEvent(ctx, h.event.ID)
	require.NoError(t, err)
	assert.False(t, view.IsActive)
	assert.NotNil(t, h.store.events[h.event.ID].UpdatedAt)

	_, err = h.services.Events.DeactivateEvent(ctx, h.event.ID)
	assert.ErrorIs(t, err, apperrors.ErrEventAlreadyInactive)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	view, err = h.services.Events.ReactivateEvent(ctx, h.event.ID)
	require.NoError(t, err)
	assert.True(t, view.IsActive)

	_, err = h.services.Events.DeactivateEvent(ctx, 404)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}
