package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/grandline-hms/service-reservation/internal/application"
	"github.com/grandline-hms/service-reservation/internal/platform/auth"
	"github.com/grandline-hms/service-reservation/internal/platform/middleware"
	"github.com/grandline-hms/service-reservation/internal/platform/response"
)

// WaitlistHandler handles HTTP requests for the waitlist.
type WaitlistHandler struct {
	service *application.WaitlistService
}

// NewWaitlistHandler creates a new WaitlistHandler.
func NewWaitlistHandler(service *application.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{service: service}
}

// RegisterRoutes registers the waitlist routes on the given router group.
func (h *WaitlistHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	waitlist := r.Group("/waitlist")
	waitlist.Use(middleware.AuthMiddleware(jwtManager))
	{
		waitlist.POST("", h.Join)
	}
}

// Join handles POST /api/v1/waitlist.
func (h *WaitlistHandler) Join(c *gin.Context) {
	var req application.JoinWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.Join(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}
