package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicore/internal/domain/documents/medicinebill"
	"clinicore/internal/infrastructure/http/v1/dto"
)

// MedicineBillHandler serves medicine bill documents.
type MedicineBillHandler struct {
	*BaseHandler
	service *medicinebill.Service
}

// NewMedicineBillHandler creates a medicine bill handler.
func NewMedicineBillHandler(base *BaseHandler, service *medicinebill.Service) *MedicineBillHandler {
	return &MedicineBillHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /document/medicine-bills
func (h *MedicineBillHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req medicinebill.CreateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	bill, err := h.service.Create(ctx, req)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, bill)
}

// Get handles GET /document/medicine-bills/:id
func (h *MedicineBillHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	billID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	bill, err := h.service.Get(ctx, billID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, bill)
}

// List handles GET /document/medicine-bills
func (h *MedicineBillHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := medicinebill.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	var ok bool
	if filter.FranchiseID, ok = h.ParseIDQuery(c, "franchiseId"); !ok {
		return
	}
	if filter.PatientID, ok = h.ParseIDQuery(c, "patientId"); !ok {
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
