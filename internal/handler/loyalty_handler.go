package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/grandline-hms/service-reservation/internal/application"
	"github.com/grandline-hms/service-reservation/internal/platform/auth"
	"github.com/grandline-hms/service-reservation/internal/platform/middleware"
	"github.com/grandline-hms/service-reservation/internal/platform/response"
)

// LoyaltyHandler handles HTTP requests for the loyalty program.
type LoyaltyHandler struct {
	service *application.LoyaltyService
}

// NewLoyaltyHandler creates a new LoyaltyHandler.
func NewLoyaltyHandler(service *application.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{service: service}
}

// RegisterRoutes registers all loyalty routes on the given router group.
func (h *LoyaltyHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	loyalty := r.Group("/loyalty")
	loyalty.Use(middleware.AuthMiddleware(jwtManager))
	{
		loyalty.POST("/enroll", h.Enroll)
		loyalty.GET("/lookup", middleware.RequireRole(auth.RoleStaff), h.Lookup)
		loyalty.GET("/:number", h.GetAccount)
		loyalty.GET("/:number/transactions", h.ListTransactions)
		loyalty.POST("/:number/bonus", middleware.RequireRole(auth.RoleAdmin), h.GrantBonus)
	}
}

// Enroll handles POST /api/v1/loyalty/enroll.
func (h *LoyaltyHandler) Enroll(c *gin.Context) {
	var req application.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.Enroll(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// Lookup handles GET /api/v1/loyalty/lookup?email=&phone=.
func (h *LoyaltyHandler) Lookup(c *gin.Context) {
	dto, err := h.service.FindAccount(c.Request.Context(), c.Query("email"), c.Query("phone"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// GetAccount handles GET /api/v1/loyalty/:number.
func (h *LoyaltyHandler) GetAccount(c *gin.Context) {
	dto, err := h.service.GetAccount(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// ListTransactions handles GET /api/v1/loyalty/:number/transactions.
func (h *LoyaltyHandler) ListTransactions(c *gin.Context) {
	dtos, err := h.service.ListTransactions(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dtos)
}

// GrantBonus handles POST /api/v1/loyalty/:number/bonus.
func (h *LoyaltyHandler) GrantBonus(c *gin.Context) {
	var req application.GrantBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.GrantBonus(c.Request.Context(), actorFrom(c), c.Param("number"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}
