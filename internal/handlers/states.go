package handlers

import (
	"net/http"

	"ticketing/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateState - POST /api/states
func (h *Handlers) CreateState(c *gin.Context) {
	var req models.StateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err.Error())
		return
	}

	view, err := h.states.CreateState(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, "State created successfully", view)
}

// CreateStates - POST /api/states/bulk
// Частичный успех: невалидные записи попадают в skipped
func (h *Handlers) CreateStates(c *gin.Context) {
	var reqs []models.StateRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		badRequest(c, "invalid request body", err.Error())
		return
	}

	result, err := h.states.CreateStates(c.Request.Context(), reqs)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, "States created successfully", result)
}

// UpdateState - PUT /api/states/:id
func (h *Handlers) UpdateState(c *gin.Context) {
	id, valid := int64Param(c, "id")
	if !valid {
		return
	}
	var req models.StateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err.Error())
		return
	}

	view, err := h.states.UpdateState(c.Request.Context(), id, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "State updated successfully", view)
}

// DeleteState - DELETE /api/states/:id
func (h *Handlers) DeleteState(c *gin.Context) {
	id, valid := int64Param(c, "id")
	if !valid {
		return
	}

	if err := h.states.DeleteState(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "State deleted successfully", nil)
}

// DeleteStates - POST /api/states/bulk-delete
func (h *Handlers) DeleteStates(c *gin.Context) {
	var req models.DeleteStatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err.Error())
		return
	}

	result, err := h.states.DeleteStates(c.Request.Context(), req.IDs)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "States deleted successfully", result)
}

// ListStatesByCountry - GET /api/countries/:id/states
// Отдаётся из кеша локаций
func (h *Handlers) ListStatesByCountry(c *gin.Context) {
	countryID, valid := int64Param(c, "id")
	if !valid {
		return
	}

	views, err := h.states.ListStatesByCountry(c.Request.Context(), countryID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "", views)
}

// IsValidState - GET /api/countries/:id/states/:stateId/valid
func (h *Handlers) IsValidState(c *gin.Context) {
	countryID, valid := int64Param(c, "id")
	if !valid {
		return
	}
	stateID, valid := int64Param(c, "stateId")
	if !valid {
		return
	}

	isValid, err := h.states.IsValidState(c.Request.Context(), countryID, stateID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"valid": isValid})
}
