package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"sika/config"
	"sika/internal/domain"
	"sika/internal/middleware"
	"sika/internal/repository"
	"sika/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler exposes the operator surface: order status transitions,
// withdrawal settlement, and policy settings.
type AdminHandler struct {
	cfg         *config.WithdrawalConfig
	orders      *service.OrderService
	settlements *service.SettlementService
	withdrawals *repository.WithdrawalRepository
	agents      *repository.AgentRepository
	settings    *repository.SettingRepository
	log         *zap.Logger
}

func NewAdminHandler(
	cfg *config.WithdrawalConfig,
	orders *service.OrderService,
	settlements *service.SettlementService,
	withdrawals *repository.WithdrawalRepository,
	agents *repository.AgentRepository,
	settings *repository.SettingRepository,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		cfg:         cfg,
		orders:      orders,
		settlements: settlements,
		withdrawals: withdrawals,
		agents:      agents,
		settings:    settings,
		log:         log,
	}
}

type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *AdminHandler) TransitionOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actorID := middleware.GetAgentID(c)
	order, err := h.orders.Transition(c.Request.Context(), orderID, req.Status, &actorID, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		default:
			h.log.Error("transition failed", zap.Uint("order_id", orderID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update order"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

type SettleRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=PAID REJECTED"`
}

// SettleWithdrawal is the hook the external payout system (or an operator)
// calls once money has moved or the payout was declined.
func (h *AdminHandler) SettleWithdrawal(c *gin.Context) {
	withdrawalID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actorID := middleware.GetAgentID(c)
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.OperationTimeout)
	defer cancel()
	w, err := h.settlements.Settle(ctx, withdrawalID, req.Outcome, &actorID, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSettlementConflict):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidOutcome):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "withdrawal not found"})
		default:
			h.log.Error("settlement failed", zap.Uint("withdrawal_id", withdrawalID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to settle withdrawal"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawal": w})
}

func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.withdrawals.ListByStatus(c.Query("status"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load withdrawals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}

func (h *AdminHandler) ListAgents(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.agents.List(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load agents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": list})
}

func (h *AdminHandler) ListSettings(c *gin.Context) {
	list, err := h.settings.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": list})
}

type UpdateSettingRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	var req UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.settings.Set(req.Key, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update setting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": req.Key, "value": req.Value})
}

func idParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || n == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(n), true
}
