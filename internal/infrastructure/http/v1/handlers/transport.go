package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicore/internal/core/apperror"
	"clinicore/internal/domain/documents/transport"
	"clinicore/internal/infrastructure/http/v1/dto"
)

// TransportHandler serves transport documents. Creation and edits are
// admin operations; delivery confirmation belongs to the receiving
// franchise.
type TransportHandler struct {
	*BaseHandler
	service *transport.Service
}

// NewTransportHandler creates a transport handler.
func NewTransportHandler(base *BaseHandler, service *transport.Service) *TransportHandler {
	return &TransportHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /document/transports
func (h *TransportHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req transport.CreateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t, err := h.service.Create(ctx, req)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, t)
}

// Update handles PUT /document/transports/:id
func (h *TransportHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	transportID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req transport.AdminUpdateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t, err := h.service.AdminUpdate(ctx, transportID, req)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// Deliver handles POST /document/transports/:id/deliver
func (h *TransportHandler) Deliver(c *gin.Context) {
	ctx := c.Request.Context()

	transportID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	t, err := h.service.Deliver(ctx, transportID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// Get handles GET /document/transports/:id
func (h *TransportHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	transportID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	t, err := h.service.Get(ctx, transportID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// List handles GET /document/transports
func (h *TransportHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := transport.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	var ok bool
	if filter.FranchiseID, ok = h.ParseIDQuery(c, "franchiseId"); !ok {
		return
	}
	if filter.SaleID, ok = h.ParseIDQuery(c, "saleId"); !ok {
		return
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := transport.Status(statusStr)
		switch status {
		case transport.StatusPending, transport.StatusDispatched, transport.StatusDelivered:
			filter.Status = &status
		default:
			h.Error(c, apperror.NewValidation("invalid status").WithDetail("value", statusStr))
			return
		}
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
