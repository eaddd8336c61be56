package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicore/internal/domain/adminstock"
)

// AdminStockHandler serves the central stock pool (admin only).
type AdminStockHandler struct {
	*BaseHandler
	service *adminstock.Service
}

// NewAdminStockHandler creates an admin stock handler.
func NewAdminStockHandler(base *BaseHandler, service *adminstock.Service) *AdminStockHandler {
	return &AdminStockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// RefillRequest for POST /admin-stock/refill.
type RefillRequest struct {
	Items []adminstock.RefillItem `json:"items"`
}

// Refill handles POST /admin-stock/refill
func (h *AdminStockHandler) Refill(c *gin.Context) {
	ctx := c.Request.Context()

	var req RefillRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Refill(ctx, req.Items); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "stock refilled")
}

// List handles GET /admin-stock
func (h *AdminStockHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	excludeZero := c.DefaultQuery("excludeZero", "true") == "true"

	balances, err := h.service.List(ctx, excludeZero)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": balances})
}

// Balance handles GET /admin-stock/:medicineId
func (h *AdminStockHandler) Balance(c *gin.Context) {
	ctx := c.Request.Context()

	medicineID, ok := h.ParseIDParam(c, "medicineId")
	if !ok {
		return
	}

	quantity, err := h.service.Balance(ctx, medicineID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"medicineId": medicineID,
		"quantity":   quantity,
	})
}

// BatchLots handles GET /admin-stock/:medicineId/batches
func (h *AdminStockHandler) BatchLots(c *gin.Context) {
	ctx := c.Request.Context()

	medicineID, ok := h.ParseIDParam(c, "medicineId")
	if !ok {
		return
	}

	lots, err := h.service.BatchLots(ctx, medicineID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"medicineId": medicineID,
		"batches":    lots,
	})
}
