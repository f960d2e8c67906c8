package handlers

import (
	"context"
	"net/http"
	"strconv"

	"ticketing/internal/database"
	apperrors "ticketing/internal/errors"
	"ticketing/internal/logger"
	"ticketing/internal/models"
	"ticketing/internal/pagination"
	"ticketing/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TicketService interface {
	PurchaseTickets(ctx context.Context, req models.PurchaseTicketsRequest) (*models.TicketView, error)
	GetTicket(ctx context.Context, id uuid.UUID) (*models.TicketView, error)
	ListUserTickets(ctx context.Context, userID uuid.UUID, filter pagination.Filter, includeInactive bool) (pagination.Page[models.TicketView], error)
	ListTickets(ctx context.Context, filter pagination.Filter, includeInactive bool) (pagination.Page[models.TicketView], error)
}

type TicketTypeService interface {
	AddTicketTypes(ctx context.Context, eventID int64, reqs []models.TicketTypeRequest) ([]models.TicketTypeView, error)
	UpdateTicketType(ctx context.Context, eventID, ticketTypeID int64, req models.TicketTypeRequest) (*models.TicketTypeView, error)
	DeleteTicketType(ctx context.Context, eventID, ticketTypeID int64) error
	ListTicketTypes(ctx context.Context, eventID int64) ([]models.TicketTypeView, error)
}

type EventService interface {
	CreateEvent(ctx context.Context, req models.CreateEventRequest) (*models.EventView, error)
	GetEvent(ctx context.Context, id int64) (*models.EventView, error)
	ListEvents(ctx context.Context, filter pagination.Filter, includeInactive bool) (pagination.Page[models.EventView], error)
	UpdateEvent(ctx context.Context, id int64, req models.UpdateEventRequest) (*models.EventView, error)
	DeleteEvent(ctx context.Context, id int64) error
	DeactivateEvent(ctx context.Context, id int64) (*models.EventView, error)
	ReactivateEvent(ctx context.Context, id int64) (*models.EventView, error)
}

type StateService interface {
	CreateState(ctx context.Context, req models.StateRequest) (*models.StateView, error)
	CreateStates(ctx context.Context, reqs []models.StateRequest) (*service.BulkCreateResult, error)
	UpdateState(ctx context.Context, id int64, req models.StateRequest) (*models.StateView, error)
	DeleteState(ctx context.Context, id int64) error
	DeleteStates(ctx context.Context, ids []int64) (*service.BulkDeleteResult, error)
	ListStatesByCountry(ctx context.Context, countryID int64) ([]models.StateView, error)
	IsValidState(ctx context.Context, countryID, stateID int64) (bool, error)
}

// HealthFunc reports storage health for GET /health
type HealthFunc func(ctx context.Context) database.HealthCheck

type Handlers struct {
	tickets     TicketService
	ticketTypes TicketTypeService
	events      EventService
	states      StateService
	health      HealthFunc
}

func NewHandlers(services *service.Services, health HealthFunc) *Handlers {
	return &Handlers{
		tickets:     services.Tickets,
		ticketTypes: services.TicketTypes,
		events:      services.Events,
		states:      services.States,
		health:      health,
	}
}

// RegisterRoutes mounts the API under /api and the health check at /health
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	{
		tickets := api.Group("/tickets")
		{
			tickets.POST("", h.PurchaseTickets)
			tickets.GET("", h.ListTickets)
			tickets.GET("/:id", h.GetTicket)
		}

		api.GET("/users/:id/tickets", h.ListUserTickets)

		events := api.Group("/events")
		{
			events.GET("", h.ListEvents)
			events.POST("", h.CreateEvent)
			events.GET("/:id", h.GetEvent)
			events.PUT("/:id", h.UpdateEvent)
			events.DELETE("/:id", h.DeleteEvent)
			events.POST("/:id/deactivate", h.DeactivateEvent)
			events.POST("/:id/reactivate", h.ReactivateEvent)
			events.GET("/:id/ticket-types", h.ListTicketTypes)
			events.POST("/:id/ticket-types", h.AddTicketTypes)
			events.PUT("/:id/ticket-types/:ticketTypeId", h.UpdateTicketType)
			events.DELETE("/:id/ticket-types/:ticketTypeId", h.DeleteTicketType)
		}

		states := api.Group("/states")
		{
			states.POST("", h.CreateState)
			states.POST("/bulk", h.CreateStates)
			states.POST("/bulk-delete", h.DeleteStates)
			states.PUT("/:id", h.UpdateState)
			states.DELETE("/:id", h.DeleteState)
		}

		countries := api.Group("/countries")
		{
			countries.GET("/:id/states", h.ListStatesByCountry)
			countries.GET("/:id/states/:stateId/valid", h.IsValidState)
		}
	}

	r.GET("/health", h.Health)
}

// Health - GET /health
func (h *Handlers) Health(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		return
	}
	check := h.health(c.Request.Context())
	status := http.StatusOK
	if check.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, check)
}

// listQuery is the query string shared by the ticket list endpoints
type listQuery struct {
	pagination.Filter
	IncludeInactive bool `form:"includeInactive"`
}

func ok(c *gin.Context, status int, message string, data any) {
	c.JSON(status, models.APIResponse{Success: true, Message: message, Data: data})
}

func badRequest(c *gin.Context, message string, errs ...string) {
	c.JSON(http.StatusBadRequest, models.APIResponse{Success: false, Message: message, Errors: errs})
}

// statusFor maps an error kind to the HTTP status returned to the client
func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func handleServiceError(c *gin.Context, err error) {
	_ = c.Error(err)

	typed, found := apperrors.As(err)
	if !found {
		logger.WithContext(c.Request.Context()).Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, models.APIResponse{Success: false, Message: "Internal server error"})
		return
	}

	message := typed.Message
	if typed.Kind == apperrors.KindPersistence {
		message = "Service temporarily unavailable"
	}
	c.JSON(statusFor(typed.Kind), models.APIResponse{
		Success: false,
		Message: message,
		Errors:  typed.Details,
	})
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
