package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clinicore/internal/core/apperror"
	appctx "clinicore/internal/core/context"
	"clinicore/internal/core/id"
	"clinicore/internal/domain/stockledger"
)

// StockHandler serves franchise stock balances and ledger history.
// Franchise users are confined to their own franchise; admins pick one
// via the franchiseId query parameter.
type StockHandler struct {
	*BaseHandler
	ledger *stockledger.Service
}

// NewStockHandler creates a stock handler.
func NewStockHandler(base *BaseHandler, ledger *stockledger.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		ledger:      ledger,
	}
}

// resolveFranchise picks the franchise scope for the request.
func (h *StockHandler) resolveFranchise(c *gin.Context) (id.ID, bool) {
	ctx := c.Request.Context()

	if !appctx.IsAdmin(ctx) {
		return appctx.GetFranchiseID(ctx), true
	}

	franchiseID, ok := h.ParseIDQuery(c, "franchiseId")
	if !ok {
		return id.ID{}, false
	}
	if franchiseID == nil {
		h.Error(c, apperror.NewValidation("franchiseId is required").WithDetail("field", "franchiseId"))
		return id.ID{}, false
	}
	return *franchiseID, true
}

// Batches handles GET /stock/batches - per-batch balances.
func (h *StockHandler) Batches(c *gin.Context) {
	ctx := c.Request.Context()

	franchiseID, ok := h.resolveFranchise(c)
	if !ok {
		return
	}

	medicineID, ok := h.ParseIDQuery(c, "medicineId")
	if !ok {
		return
	}

	excludeZero := c.DefaultQuery("excludeZero", "true") == "true"

	balances, err := h.ledger.Repo().BatchBalances(ctx, franchiseID, medicineID, excludeZero)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"franchiseId": franchiseID,
		"items":       balances,
	})
}

// Balances handles GET /stock/balances - aggregate per-medicine balances.
func (h *StockHandler) Balances(c *gin.Context) {
	ctx := c.Request.Context()

	franchiseID, ok := h.resolveFranchise(c)
	if !ok {
		return
	}

	balances, err := h.ledger.Repo().AggregateBalances(ctx, franchiseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"franchiseId": franchiseID,
		"items":       balances,
	})
}

// History handles GET /stock/history/:medicineId - ledger entries, newest first.
func (h *StockHandler) History(c *gin.Context) {
	ctx := c.Request.Context()

	medicineID, ok := h.ParseIDParam(c, "medicineId")
	if !ok {
		return
	}

	filter := stockledger.HistoryFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if appctx.IsAdmin(ctx) {
		franchiseID, ok := h.ParseIDQuery(c, "franchiseId")
		if !ok {
			return
		}
		filter.FranchiseID = franchiseID
	} else {
		franchiseID := appctx.GetFranchiseID(ctx)
		filter.FranchiseID = &franchiseID
	}

	if from := c.Query("fromDate"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid fromDate format"))
			return
		}
		filter.FromDate = &parsed
	}
	if to := c.Query("toDate"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid toDate format"))
			return
		}
		filter.ToDate = &parsed
	}

	entries, err := h.ledger.Repo().LedgerHistory(ctx, medicineID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"medicineId": medicineID,
		"items":      entries,
	})
}
