package handlers

import (
	"net/http"

	"ticketing/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateEvent - POST /api/events
// Создать событие вместе с типами билетов
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err.Error())
		return
	}

	view, err := h.events.CreateEvent(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Event created successfully", view)
}

// GetEvent - GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	id, valid := int64Param(c, "id")
	if !valid {
		return
	}

	view, err := h.events.GetEvent(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "", view)
}

// ListEvents - GET /api/events
func (h *Handlers) ListEvents(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query", err.Error())
		return
	}

	page, err := h.events.ListEvents(c.Request.Context(), q.Filter, q.IncludeInactive)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "", page)
}

// UpdateEvent - PUT /api/events/:id
// Частичное обновление: меняются только переданные поля
func (h *Handlers) UpdateEvent(c *gin.Context) {
	id, valid := int64Param(c, "id")
	if !valid {
		return
	}
	var req models.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err.Error())
		return
	}

	view, err := h.events.UpdateEvent(c.Request.Context(), id, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "Event updated successfully", view)
}

// DeleteEvent - DELETE /api/events/:id
func (h *Handlers) DeleteEvent(c *gin.Context) {
	id, valid := int64Param(c, "id")
	if !valid {
		return
	}

	if err := h.events.DeleteEvent(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "Event deleted successfully", nil)
}

// DeactivateEvent - POST /api/events/:id/deactivate
func (h *Handlers) DeactivateEvent(c *gin.Context) {
	id, valid := int64Param(c, "id")
	if !valid {
		return
	}

	view, err := h.events.DeactivateEvent(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "Event deactivated successfully", view)
}

// ReactivateEvent - POST /api/events/:id/reactivate
func (h *Handlers) ReactivateEvent(c *gin.Context) {
	id, valid := int64Param(c, "id")
	if !valid {
		return
	}

	view, err := h.events.ReactivateEvent(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "Event reactivated successfully", view)
}

// ListTicketTypes - GET /api/events/:id/ticket-types
func (h *Handlers) ListTicketTypes(c *gin.Context) {
	eventID, valid := int64Param(c, "id")
	if !valid {
		return
	}

	views, err := h.ticketTypes.ListTicketTypes(c.Request.Context(), eventID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "", views)
}

// AddTicketTypes - POST /api/events/:id/ticket-types
func (h *Handlers) AddTicketTypes(c *gin.Context) {
	eventID, valid := int64Param(c, "id")
	if !valid {
		return
	}
	var reqs []models.TicketTypeRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		badRequest(c, "invalid request body", err.Error())
		return
	}

	views, err := h.ticketTypes.AddTicketTypes(c.Request.Context(), eventID, reqs)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Ticket types added successfully", views)
}

// UpdateTicketType - PUT /api/events/:id/ticket-types/:ticketTypeId
func (h *Handlers) UpdateTicketType(c *gin.Context) {
	eventID, valid := int64Param(c, "id")
	if !valid {
		return
	}
	ticketTypeID, valid := int64Param(c, "ticketTypeId")
	if !valid {
		return
	}
	var req models.TicketTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err.Error())
		return
	}

	view, err := h.ticketTypes.UpdateTicketType(c.Request.Context(), eventID, ticketTypeID, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "Ticket type updated successfully", view)
}

// DeleteTicketType - DELETE /api/events/:id/ticket-types/:ticketTypeId
func (h *Handlers) DeleteTicketType(c *gin.Context) {
	eventID, valid := int64Param(c, "id")
	if !valid {
		return
	}
	ticketTypeID, valid := int64Param(c, "ticketTypeId")
	if !valid {
		return
	}

	if err := h.ticketTypes.DeleteTicketType(c.Request.Context(), eventID, ticketTypeID); err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "Ticket type deleted successfully", nil)
}
