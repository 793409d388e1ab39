package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marketbay/storefront-api/internal/dto"
	"github.com/marketbay/storefront-api/internal/middleware"
	"github.com/marketbay/storefront-api/internal/service"
)

type ProductHandler struct {
	catalogService *service.CatalogService
	reviewService  *service.ReviewService
	errs           errorMapper
}

func NewProductHandler(catalogService *service.CatalogService, reviewService *service.ReviewService, legacyStatus bool) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
		reviewService:  reviewService,
		errs:           errorMapper{legacy: legacyStatus},
	}
}

func (h *ProductHandler) List(c *gin.Context) {
	keyword := c.Query("keyword")
	// A non-integer page falls back to the first page.
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil {
		page = 1
	}

	resp, err := h.catalogService.List(c.Request.Context(), keyword, page)
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Top(c *gin.Context) {
	products, err := h.catalogService.Top(c.Request.Context())
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetByID(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}

	resp, err := h.catalogService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Create(c *gin.Context) {
	admin := middleware.CurrentUser(c)

	resp, err := h.catalogService.Create(c.Request.Context(), admin)
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	resp, err := h.catalogService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}

	if err := h.catalogService.Delete(c.Request.Context(), id); err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, "Product Deleted")
}

func (h *ProductHandler) SubmitReview(c *gin.Context) {
	user := middleware.CurrentUser(c)

	id, ok := h.productID(c)
	if !ok {
		return
	}

	var req dto.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if err := h.reviewService.SubmitReview(c.Request.Context(), user, id, req); err != nil {
		h.errs.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, "Review Added")
}

func (h *ProductHandler) productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid product id"})
		return 0, false
	}
	return id, true
}
