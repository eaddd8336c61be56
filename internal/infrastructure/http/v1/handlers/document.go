package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"clinicore/internal/core/apperror"
)

// parseDateRange reads optional fromDate/toDate query params (RFC 3339).
func (h *BaseHandler) parseDateRange(c *gin.Context) (from, to *time.Time, ok bool) {
	if v := c.Query("fromDate"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid fromDate format"))
			return nil, nil, false
		}
		from = &parsed
	}
	if v := c.Query("toDate"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid toDate format"))
			return nil, nil, false
		}
		to = &parsed
	}
	return from, to, true
}
