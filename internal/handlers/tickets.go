package handlers

import (
	"net/http"

	"ticketing/internal/models"

	"github.com/gin-gonic/gin"
)

// PurchaseTickets - POST /api/tickets
// Купить билеты одного типа
func (h *Handlers) PurchaseTickets(c *gin.Context) {
	var req models.PurchaseTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err.Error())
		return
	}

	view, err := h.tickets.PurchaseTickets(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Tickets purchased successfully", view)
}

// GetTicket - GET /api/tickets/:id
func (h *Handlers) GetTicket(c *gin.Context) {
	id, valid := uuidParam(c, "id")
	if !valid {
		return
	}

	view, err := h.tickets.GetTicket(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "", view)
}

// ListTickets - GET /api/tickets
func (h *Handlers) ListTickets(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query", err.Error())
		return
	}

	page, err := h.tickets.ListTickets(c.Request.Context(), q.Filter, q.IncludeInactive)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "", page)
}

// ListUserTickets - GET /api/users/:id/tickets
// Билеты пользователя, новые первыми
func (h *Handlers) ListUserTickets(c *gin.Context) {
	userID, valid := uuidParam(c, "id")
	if !valid {
		return
	}
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query", err.Error())
		return
	}

	page, err := h.tickets.ListUserTickets(c.Request.Context(), userID, q.Filter, q.IncludeInactive)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "", page)
}
