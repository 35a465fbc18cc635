package handler

import (
	"net/http"
	"strconv"

	"sika/internal/middleware"
	"sika/internal/repository"
	"sika/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CommissionHandler serves the agent dashboard reads: balance summary, order
// history and withdrawal history.
type CommissionHandler struct {
	commissions *service.CommissionService
	orders      *repository.CommissionOrderRepository
	withdrawals *repository.WithdrawalRepository
	log         *zap.Logger
}

func NewCommissionHandler(
	commissions *service.CommissionService,
	orders *repository.CommissionOrderRepository,
	withdrawals *repository.WithdrawalRepository,
	log *zap.Logger,
) *CommissionHandler {
	return &CommissionHandler{commissions: commissions, orders: orders, withdrawals: withdrawals, log: log}
}

// GetSummary returns the commission summary. A degraded summary (store read
// failed, cached rollups served) is reported as such, never as authoritative.
func (h *CommissionHandler) GetSummary(c *gin.Context) {
	agentID := middleware.GetAgentID(c)
	summary, err := h.commissions.SummarizeOrFallback(c.Request.Context(), agentID)
	if err != nil {
		h.log.Error("summary unavailable", zap.Uint("agent_id", agentID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "balance temporarily unavailable, try again shortly"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *CommissionHandler) ListOrders(c *gin.Context) {
	agentID := middleware.GetAgentID(c)
	limit, offset := pagination(c)
	list, err := h.orders.ListByAgent(agentID, c.Query("status"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *CommissionHandler) ListWithdrawals(c *gin.Context) {
	agentID := middleware.GetAgentID(c)
	limit, offset := pagination(c)
	list, err := h.withdrawals.HistoryByAgent(agentID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load withdrawals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
