package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marketbay/storefront-api/internal/service"
)

// errorMapper is the one translation from business errors to the wire.
// With legacy on, not-found / forbidden / conflict all collapse to 400,
// which is what the historical clients expect; the distinct internal
// kinds make the 404/403/409 contract a config change away.
type errorMapper struct{ legacy bool }

func (m errorMapper) respond(c *gin.Context, err error) {
	status, detail := m.translate(err)
	c.JSON(status, gin.H{"detail": detail})
}

func (m errorMapper) translate(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNoOrderItems):
		return http.StatusBadRequest, "No Order Items"
	case errors.Is(err, service.ErrInvalidQty):
		return http.StatusBadRequest, "Invalid quantity"
	case errors.Is(err, service.ErrRatingRequired):
		return http.StatusBadRequest, "Please select a rating."
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusBadRequest, "Insufficient stock"
	case errors.Is(err, service.ErrProductNotFound):
		return m.status(http.StatusNotFound), "Product does not exist"
	case errors.Is(err, service.ErrOrderNotFound):
		return m.status(http.StatusNotFound), "Order does not exist"
	case errors.Is(err, service.ErrOrderAccessDenied):
		return m.status(http.StatusForbidden), "Not authorized to view this order"
	case errors.Is(err, service.ErrAdminOnly):
		return m.status(http.StatusForbidden), "Not authorized as admin"
	case errors.Is(err, service.ErrAlreadyReviewed):
		return m.status(http.StatusConflict), "You already reviewed this product."
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (m errorMapper) status(code int) int {
	if m.legacy {
		return http.StatusBadRequest
	}
	return code
}
