package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicore/internal/domain/documents/consultation"
	"clinicore/internal/infrastructure/http/v1/dto"
)

// ConsultationHandler serves consultation documents.
type ConsultationHandler struct {
	*BaseHandler
	service *consultation.Service
}

// NewConsultationHandler creates a consultation handler.
func NewConsultationHandler(base *BaseHandler, service *consultation.Service) *ConsultationHandler {
	return &ConsultationHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /document/consultations
func (h *ConsultationHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req consultation.CreateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	visit, err := h.service.Create(ctx, req)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, visit)
}

// Get handles GET /document/consultations/:id
func (h *ConsultationHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	consultationID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	visit, err := h.service.Get(ctx, consultationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, visit)
}

// List handles GET /document/consultations
func (h *ConsultationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := consultation.ListFilter{
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
