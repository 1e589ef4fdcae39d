package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/grandline-hms/service-reservation/internal/application"
	"github.com/grandline-hms/service-reservation/internal/platform/auth"
	"github.com/grandline-hms/service-reservation/internal/platform/middleware"
	"github.com/grandline-hms/service-reservation/internal/platform/response"
)

// BookingHandler handles HTTP requests for reservation operations.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all reservation routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	staffRole := middleware.RequireRole(auth.RoleStaff)

	reservations := r.Group("/reservations")
	reservations.Use(middleware.AuthMiddleware(jwtManager))
	{
		reservations.POST("", h.CreateReservation)
		reservations.GET("/:id", h.GetReservation)
		reservations.GET("/code/:code", h.GetByCode)
		reservations.POST("/:id/confirm", staffRole, h.Confirm)
		reservations.POST("/:id/check-in", staffRole, h.CheckIn)
		reservations.POST("/:id/check-out", staffRole, h.CheckOut)
		reservations.POST("/:id/cancel", h.Cancel)
		reservations.POST("/:id/addons", h.AddAddOn)
		reservations.DELETE("/:id/addons/:addonID", h.RemoveAddOn)
		reservations.POST("/:id/payments", staffRole, h.RecordPayment)
	}
}

// CreateReservation handles POST /api/v1/reservations. Drafts and manual
// discounts are staff-only.
func (h *BookingHandler) CreateReservation(c *gin.Context) {
	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	role, _ := middleware.GetRole(c)
	if role == auth.RoleGuest && (req.Draft || req.DiscountPct > 0) {
		response.BadRequest(c, "drafts and discounts require a staff account")
		return
	}

	dto, err := h.service.CreateBooking(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// GetReservation handles GET /api/v1/reservations/:id.
func (h *BookingHandler) GetReservation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	dto, err := h.service.GetReservation(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// GetByCode handles GET /api/v1/reservations/code/:code.
func (h *BookingHandler) GetByCode(c *gin.Context) {
	dto, err := h.service.GetByConfirmationCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// Confirm handles POST /api/v1/reservations/:id/confirm.
func (h *BookingHandler) Confirm(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	dto, err := h.service.Confirm(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// CheckIn handles POST /api/v1/reservations/:id/check-in.
func (h *BookingHandler) CheckIn(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	dto, err := h.service.CheckIn(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// CheckOut handles POST /api/v1/reservations/:id/check-out.
func (h *BookingHandler) CheckOut(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	dto, err := h.service.CheckOut(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// Cancel handles POST /api/v1/reservations/:id/cancel.
func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	dto, err := h.service.Cancel(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// AddAddOn handles POST /api/v1/reservations/:id/addons.
func (h *BookingHandler) AddAddOn(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req application.AddAddOnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.AddAddOn(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// RemoveAddOn handles DELETE /api/v1/reservations/:id/addons/:addonID.
func (h *BookingHandler) RemoveAddOn(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	addOnID, err := uuid.Parse(c.Param("addonID"))
	if err != nil {
		response.BadRequest(c, "invalid add-on ID")
		return
	}

	dto, err := h.service.RemoveAddOn(c.Request.Context(), actorFrom(c), id, addOnID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// RecordPayment handles POST /api/v1/reservations/:id/payments.
func (h *BookingHandler) RecordPayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req application.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.RecordPayment(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// parseID parses a UUID path parameter, writing a 400 when it is malformed.
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.BadRequest(c, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// actorFrom names the caller for activity records.
func actorFrom(c *gin.Context) string {
	if email, ok := middleware.GetEmail(c); ok && email != "" {
		return email
	}
	return "anonymous"
}
