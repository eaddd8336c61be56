package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicore/internal/core/apperror"
	appctx "clinicore/internal/core/context"
	"clinicore/internal/core/id"
	"clinicore/internal/domain/catalogs/patient"
	"clinicore/internal/infrastructure/http/v1/dto"
)

// PatientHandler serves the patient catalog. Patients are franchise-scoped:
// franchise users only see and register patients of their own franchise,
// admins see everything.
type PatientHandler struct {
	*CatalogHandler[*patient.Patient, dto.CreatePatientRequest, dto.UpdatePatientRequest]
	service *patient.Service
}

// NewPatientHandler creates a patient catalog handler.
func NewPatientHandler(base *BaseHandler, service *patient.Service) *PatientHandler {
	config := CatalogHandlerConfig[
		*patient.Patient,
		dto.CreatePatientRequest,
		dto.UpdatePatientRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "patient",

		// Create goes through PatientHandler.Create below; the mapper is
		// only used for the embedded handler's code path.
		MapCreateDTO: func(req dto.CreatePatientRequest) *patient.Patient {
			return req.ToEntity(id.ID{})
		},

		MapUpdateDTO: func(req dto.UpdatePatientRequest, existing *patient.Patient) *patient.Patient {
			req.ApplyTo(existing)
			return existing
		},

		MapToDTO: func(p *patient.Patient) any {
			return dto.FromPatient(p)
		},
	}

	return &PatientHandler{
		CatalogHandler: NewCatalogHandler(base, config),
		service:        service,
	}
}

// Create handles POST /catalog/patients. Franchise users always register
// into their own franchise; admins must name one.
func (h *PatientHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreatePatientRequest
	if !h.BindJSON(c, &req) {
		return
	}

	franchiseID := appctx.GetFranchiseID(ctx)
	if appctx.IsAdmin(ctx) {
		if req.FranchiseID == nil {
			h.Error(c, apperror.NewValidation("franchiseId is required").WithDetail("field", "franchiseId"))
			return
		}
		franchiseID = *req.FranchiseID
	}

	p := req.ToEntity(franchiseID)
	if err := h.service.Create(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromPatient(p))
}

// List handles GET /catalog/patients, scoped to the caller's franchise for
// franchise users.
func (h *PatientHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	filter := h.ParseListFilter(c)

	if appctx.IsAdmin(ctx) {
		if franchiseID, ok := h.ParseIDQuery(c, "franchiseId"); !ok {
			return
		} else if franchiseID != nil {
			result, err := h.service.ListByFranchise(ctx, *franchiseID, filter)
			if err != nil {
				h.Error(c, err)
				return
			}
			h.WriteList(c, result)
			return
		}

		result, err := h.service.List(ctx, filter)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.WriteList(c, result)
		return
	}

	result, err := h.service.ListByFranchise(ctx, appctx.GetFranchiseID(ctx), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.WriteList(c, result)
}

// FindByPhone handles GET /catalog/patients/by-phone?phone=...
func (h *PatientHandler) FindByPhone(c *gin.Context) {
	ctx := c.Request.Context()

	phone := c.Query("phone")
	if phone == "" {
		h.Error(c, apperror.NewValidation("phone is required"))
		return
	}

	p, err := h.service.FindByPhone(ctx, phone)
	if err != nil {
		h.Error(c, err)
		return
	}

	if !appctx.IsAdmin(ctx) && p.FranchiseID != appctx.GetFranchiseID(ctx) {
		h.Error(c, apperror.NewNotFound("patient", phone))
		return
	}

	c.JSON(http.StatusOK, dto.FromPatient(p))
}
