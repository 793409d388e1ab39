package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marketbay/storefront-api/internal/dto"
	"github.com/marketbay/storefront-api/internal/middleware"
	"github.com/marketbay/storefront-api/internal/model"
	"github.com/marketbay/storefront-api/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
	errs         errorMapper
}

func NewOrderHandler(orderService *service.OrderService, legacyStatus bool) *OrderHandler {
	return &OrderHandler{orderService: orderService, errs: errorMapper{legacy: legacyStatus}}
}

func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), user, req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	user := middleware.CurrentUser(c)

	orders, err := h.orderService.ListMyOrders(c.Request.Context(), user)
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponses(orders))
}

func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	user := middleware.CurrentUser(c)

	orders, err := h.orderService.ListAllOrders(c.Request.Context(), user)
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponses(orders))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	user := middleware.CurrentUser(c)

	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), user, orderID)
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) MarkPaid(c *gin.Context) {
	user := middleware.CurrentUser(c)

	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	if err := h.orderService.MarkPaid(c.Request.Context(), user, orderID); err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, "Order was paid")
}

func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	user := middleware.CurrentUser(c)

	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	if err := h.orderService.MarkDelivered(c.Request.Context(), user, orderID); err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, "Order was delivered")
}

func (h *OrderHandler) orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid order id"})
		return 0, false
	}
	return id, true
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			OrderID:   item.OrderID,
			Name:      item.Name,
			Qty:       item.Qty,
			Price:     item.Price,
			Image:     item.Image,
		})
	}

	// The legacy serializer emitted false, not null, for a missing
	// address.
	var address any = false
	if order.ShippingAddress != nil {
		address = dto.ShippingAddressResponse{
			ID:            order.ShippingAddress.ID,
			OrderID:       order.ShippingAddress.OrderID,
			Address:       order.ShippingAddress.Address,
			City:          order.ShippingAddress.City,
			PostalCode:    order.ShippingAddress.PostalCode,
			Country:       order.ShippingAddress.Country,
			ShippingPrice: order.ShippingAddress.ShippingPrice,
		}
	}

	var user *dto.UserResponse
	if order.User != nil {
		u := service.ToUserResponse(order.User)
		user = &u
	}

	return dto.OrderResponse{
		ID:              order.ID,
		User:            user,
		OrderItems:      items,
		ShippingAddress: address,
		PaymentMethod:   order.PaymentMethod,
		TaxPrice:        order.TaxPrice,
		ShippingPrice:   order.ShippingPrice,
		TotalPrice:      order.TotalPrice,
		IsPaid:          order.IsPaid,
		PaidAt:          order.PaidAt,
		IsDelivered:     order.IsDelivered,
		DeliveredAt:     order.DeliveredAt,
		CreatedAt:       order.CreatedAt,
	}
}

func toOrderResponses(orders []model.Order) []dto.OrderResponse {
	out := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	return out
}
