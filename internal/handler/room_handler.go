package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/grandline-hms/service-reservation/internal/application"
	"github.com/grandline-hms/service-reservation/internal/platform/auth"
	"github.com/grandline-hms/service-reservation/internal/platform/middleware"
	"github.com/grandline-hms/service-reservation/internal/platform/response"
)

// RoomHandler handles HTTP requests for the room catalog.
type RoomHandler struct {
	service *application.RoomService
}

// NewRoomHandler creates a new RoomHandler.
func NewRoomHandler(service *application.RoomService) *RoomHandler {
	return &RoomHandler{service: service}
}

// RegisterRoutes registers all room routes on the given router group.
func (h *RoomHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	rooms := r.Group("/rooms")
	rooms.Use(middleware.AuthMiddleware(jwtManager))
	{
		rooms.GET("/availability", h.GetAvailability)
		rooms.GET("", middleware.RequireRole(auth.RoleStaff), h.ListRooms)
		rooms.POST("", middleware.RequireRole(auth.RoleAdmin), h.CreateRoom)
		rooms.POST("/:id/maintenance", middleware.RequireRole(auth.RoleStaff), h.SetMaintenance)
	}
}

// GetAvailability handles GET /api/v1/rooms/availability?type=&check_in=&check_out=.
func (h *RoomHandler) GetAvailability(c *gin.Context) {
	dto, err := h.service.GetAvailability(
		c.Request.Context(),
		c.Query("type"),
		c.Query("check_in"),
		c.Query("check_out"),
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// ListRooms handles GET /api/v1/rooms.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	dtos, err := h.service.ListRooms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dtos)
}

// CreateRoom handles POST /api/v1/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req application.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.CreateRoom(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// SetMaintenance handles POST /api/v1/rooms/:id/maintenance.
func (h *RoomHandler) SetMaintenance(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req struct {
		UnderMaintenance bool `json:"under_maintenance"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.SetMaintenance(c.Request.Context(), actorFrom(c), id, req.UnderMaintenance)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}
