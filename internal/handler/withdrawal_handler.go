package handler

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"sika/config"
	"sika/internal/domain"
	"sika/internal/middleware"
	"sika/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type WithdrawalHandler struct {
	cfg *config.WithdrawalConfig
	svc *service.WithdrawalService
	log *zap.Logger
}

func NewWithdrawalHandler(cfg *config.WithdrawalConfig, svc *service.WithdrawalService, log *zap.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{cfg: cfg, svc: svc, log: log}
}

type SubmitWithdrawalRequest struct {
	Amount      string `json:"amount" binding:"required"`
	MomoNumber  string `json:"momo_number" binding:"required"`
	ClientToken string `json:"client_token"` // optional; makes retries idempotent
}

// Create submits a withdrawal request. Every rejection carries the specific
// rule that failed; a pending-withdrawal rejection also reports the blocking
// request's amount and status.
func (h *WithdrawalHandler) Create(c *gin.Context) {
	agentID := middleware.GetAgentID(c)
	var req SubmitWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	momo := normalizeMomoNumber(req.MomoNumber)
	if momo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid momo number"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.OperationTimeout)
	defer cancel()
	w, err := h.svc.Submit(ctx, agentID, amount, momo, req.ClientToken)
	if err != nil {
		if rej, ok := domain.AsRejection(err); ok {
			resp := gin.H{"error": rej.Reason, "code": rej.Code}
			if rej.Code == domain.RejectPendingWithdrawal {
				resp["pending_amount"] = rej.PendingAmount.StringFixed(2)
				resp["pending_status"] = rej.PendingStatus
			}
			c.JSON(http.StatusUnprocessableEntity, resp)
			return
		}
		if errors.Is(err, domain.ErrClientTokenMismatch) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, domain.ErrAggregationUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":     "withdrawals temporarily unavailable, please retry",
				"retryable": true,
			})
			return
		}
		h.log.Error("withdrawal submit failed", zap.Uint("agent_id", agentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit withdrawal"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"withdrawal": w,
		"message":    "Withdrawal request received. You will be paid once it is approved.",
	})
}

var nonDigits = regexp.MustCompile(`\D`)

// normalizeMomoNumber strips non-digits and canonicalizes to the 233 country
// prefix.
func normalizeMomoNumber(s string) string {
	s = nonDigits.ReplaceAllString(s, "")
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "0") {
		s = "233" + s[1:]
	} else if !strings.HasPrefix(s, "233") {
		s = "233" + s
	}
	if len(s) != 12 {
		return ""
	}
	return s
}
