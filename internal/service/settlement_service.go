package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sika/internal/domain"
	"sika/internal/models"
	"sika/internal/repository"
	"sika/internal/ws"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrInvalidOutcome is returned for a settlement outcome outside
// {PAID, REJECTED}.
var ErrInvalidOutcome = errors.New("invalid settlement outcome")

// SettlementService applies the terminal outcome the external payout system
// reports for a withdrawal. Marking paid flips commission_paid on the
// agent's unpaid completed orders oldest-first, whole orders only, until the
// marked sum covers the withdrawn amount. The cached paid-out rollup grows by
// the marked sum, which can exceed the withdrawn amount.
type SettlementService struct {
	db          *gorm.DB
	withdrawals *repository.WithdrawalRepository
	orders      *repository.CommissionOrderRepository
	agents      *repository.AgentRepository
	audit       *repository.AuditLogRepository
	hub         *ws.Hub
	log         *zap.Logger
	now         func() time.Time
}

func NewSettlementService(
	db *gorm.DB,
	withdrawals *repository.WithdrawalRepository,
	orders *repository.CommissionOrderRepository,
	agents *repository.AgentRepository,
	audit *repository.AuditLogRepository,
	hub *ws.Hub,
	log *zap.Logger,
) *SettlementService {
	return &SettlementService{
		db:          db,
		withdrawals: withdrawals,
		orders:      orders,
		agents:      agents,
		audit:       audit,
		hub:         hub,
		log:         log,
		now:         time.Now,
	}
}

// Settle moves the withdrawal to PAID or REJECTED. Both outcomes are terminal
// and guarded by a compare-and-swap on the non-terminal status: of two racing
// settlement calls exactly one applies, the other gets ErrSettlementConflict
// and must re-read before retrying. Side effects of PAID are part of the same
// transaction, so a conflict loser can never double-apply them.
func (s *SettlementService) Settle(ctx context.Context, withdrawalID uint, outcome string, actorID *uint, ip string) (*models.WithdrawalRequest, error) {
	var target string
	switch outcome {
	case domain.SettleOutcomePaid:
		target = domain.WithdrawalStatusPaid
	case domain.SettleOutcomeRejected:
		target = domain.WithdrawalStatusRejected
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}

	processedAt := s.now()
	var settled *models.WithdrawalRequest
	var markedSum decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.withdrawals.GetForUpdate(tx, withdrawalID)
		if err != nil {
			return err
		}
		rows, err := s.withdrawals.CASSettle(tx, withdrawalID, target, processedAt)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: withdrawal %d is %s", domain.ErrSettlementConflict, withdrawalID, w.Status)
		}
		if target == domain.WithdrawalStatusPaid {
			markedSum, err = s.markCommissionsPaid(tx, w, processedAt)
			if err != nil {
				return err
			}
		}
		w.Status = target
		w.ProcessedAt = &processedAt
		w.ActiveKey = nil
		settled = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("withdrawal settled",
		zap.Uint("withdrawal_id", withdrawalID),
		zap.String("outcome", target),
		zap.String("marked_sum", markedSum.StringFixed(2)))
	s.recordAudit(actorID, ip, settled, markedSum)
	s.publish(settled, target)
	return settled, nil
}

// markCommissionsPaid selects the agent's unpaid completed orders oldest
// first and flips them paid until the cumulative commission covers the
// withdrawn amount. Orders are never split: the final order may push the
// marked sum past the amount. Returns the marked sum.
func (s *SettlementService) markCommissionsPaid(tx *gorm.DB, w *models.WithdrawalRequest, at time.Time) (decimal.Decimal, error) {
	unpaid, err := s.orders.UnpaidCompletedForUpdate(tx, w.AgentID)
	if err != nil {
		return decimal.Zero, err
	}
	var ids []uint
	sum := decimal.Zero
	for _, o := range unpaid {
		if sum.GreaterThanOrEqual(w.Amount) {
			break
		}
		ids = append(ids, o.ID)
		sum = sum.Add(o.CommissionAmount)
	}
	if sum.LessThan(w.Amount) {
		// The balance check at submission should make this unreachable;
		// refusing keeps the ledger conservative if it is not.
		return decimal.Zero, fmt.Errorf("unpaid commissions %s do not cover withdrawal %s",
			sum.StringFixed(2), w.Amount.StringFixed(2))
	}
	marked, err := s.orders.MarkPaid(tx, ids, at)
	if err != nil {
		return decimal.Zero, err
	}
	if marked != int64(len(ids)) {
		return decimal.Zero, fmt.Errorf("%w: %d of %d orders already marked paid",
			domain.ErrSettlementConflict, int64(len(ids))-marked, len(ids))
	}
	if err := s.agents.AddTotalPaidOut(tx, w.AgentID, sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (s *SettlementService) recordAudit(actorID *uint, ip string, w *models.WithdrawalRequest, markedSum decimal.Decimal) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		AgentID:    actorID,
		Action:     "withdrawal.settle",
		Resource:   "withdrawal_request",
		ResourceID: fmt.Sprintf("%d", w.ID),
		IP:         ip,
		Metadata: fmt.Sprintf(`{"status":%q,"amount":%q,"marked_sum":%q}`,
			w.Status, w.Amount.StringFixed(2), markedSum.StringFixed(2)),
	}
	if err := s.audit.Create(entry); err != nil {
		s.log.Warn("audit write failed", zap.Error(err))
	}
}

func (s *SettlementService) publish(w *models.WithdrawalRequest, target string) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(ws.Event{
		Type:    domain.EventWithdrawalChanged,
		AgentID: w.AgentID,
		Payload: map[string]interface{}{"withdrawal_id": w.ID, "status": target},
	})
	if target == domain.WithdrawalStatusPaid {
		s.hub.Publish(ws.Event{Type: domain.EventSummaryChanged, AgentID: w.AgentID})
	}
}
