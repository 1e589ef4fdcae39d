package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grandline-hms/service-reservation/internal/domain"
)

// Success writes a 200 with the payload.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// Created writes a 201 with the payload.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// Paginated writes a 200 with the payload and pagination metadata.
func Paginated(c *gin.Context, data any, total int64, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"pagination": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// Error maps a domain error kind to its HTTP status. Unknown errors become
// opaque 500s so internal detail never leaks.
func Error(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrOccupancyExceeded):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInsufficientPoints),
		errors.Is(err, domain.ErrRedemptionCapExceeded):
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, domain.ErrInsufficientInventory),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrConcurrencyConflict):
		status = http.StatusConflict
		message = err.Error()
	}

	c.JSON(status, gin.H{"error": message})
}
