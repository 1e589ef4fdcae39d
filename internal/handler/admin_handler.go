package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/grandline-hms/service-reservation/internal/application"
	"github.com/grandline-hms/service-reservation/internal/platform/auth"
	"github.com/grandline-hms/service-reservation/internal/platform/middleware"
	"github.com/grandline-hms/service-reservation/internal/platform/response"
)

// AdminHandler handles admin HTTP requests for reservation management.
type AdminHandler struct {
	bookingService *application.BookingService
	roomService    *application.RoomService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(bookingService *application.BookingService, roomService *application.RoomService) *AdminHandler {
	return &AdminHandler{
		bookingService: bookingService,
		roomService:    roomService,
	}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/reservations", h.ListReservations)
		admin.GET("/stats/occupancy", h.OccupancyStats)
	}
}

// ListReservations handles GET /api/v1/admin/reservations.
func (h *AdminHandler) ListReservations(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	reservations, total, err := h.bookingService.ListReservations(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, reservations, total, page, limit)
}

// OccupancyStats handles GET /api/v1/admin/stats/occupancy.
func (h *AdminHandler) OccupancyStats(c *gin.Context) {
	stats, err := h.roomService.OccupancyStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
