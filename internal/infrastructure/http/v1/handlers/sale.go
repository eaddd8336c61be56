package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicore/internal/domain/documents/sale"
	"clinicore/internal/infrastructure/http/v1/dto"
)

// SaleHandler serves sale documents (admin only).
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewSaleHandler creates a sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service) *SaleHandler {
	return &SaleHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /document/sales
func (h *SaleHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req sale.CreateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s, err := h.service.Create(ctx, req)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, s)
}

// Update handles PUT /document/sales/:id
func (h *SaleHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req sale.UpdateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s, err := h.service.Update(ctx, saleID, req)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, s)
}

// Delete handles DELETE /document/sales/:id
func (h *SaleHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, saleID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Get handles GET /document/sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	s, err := h.service.Get(ctx, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, s)
}

// List handles GET /document/sales
func (h *SaleHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := sale.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	var ok bool
	if filter.FranchiseID, ok = h.ParseIDQuery(c, "franchiseId"); !ok {
		return
	}
	if filter.FromDate, filter.ToDate, ok = h.parseDateRange(c); !ok {
		return
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}
