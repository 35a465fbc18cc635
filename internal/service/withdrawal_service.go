package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"sika/config"
	"sika/internal/domain"
	"sika/internal/models"
	"sika/internal/repository"
	"sika/internal/ws"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WithdrawalService validates and records withdrawal requests. Validation and
// insert run in one transaction holding the agent row lock, and the unique
// active-key constraint backs the single-outstanding-request rule across
// process instances.
type WithdrawalService struct {
	db          *gorm.DB
	agents      *repository.AgentRepository
	withdrawals *repository.WithdrawalRepository
	commissions *CommissionService
	settings    *repository.SettingRepository
	cfg         *config.WithdrawalConfig
	hub         *ws.Hub
	log         *zap.Logger
	now         func() time.Time
}

func NewWithdrawalService(
	db *gorm.DB,
	agents *repository.AgentRepository,
	withdrawals *repository.WithdrawalRepository,
	commissions *CommissionService,
	settings *repository.SettingRepository,
	cfg *config.WithdrawalConfig,
	hub *ws.Hub,
	log *zap.Logger,
) *WithdrawalService {
	return &WithdrawalService{
		db:          db,
		agents:      agents,
		withdrawals: withdrawals,
		commissions: commissions,
		settings:    settings,
		cfg:         cfg,
		hub:         hub,
		log:         log,
		now:         time.Now,
	}
}

// MinAmount is the effective minimum withdrawal, settings override first,
// config default otherwise.
func (s *WithdrawalService) MinAmount() decimal.Decimal {
	if s.settings != nil {
		if v, err := s.settings.Get(domain.SettingMinWithdrawalAmount); err == nil && v != "" {
			if d, err := decimal.NewFromString(v); err == nil {
				return d
			}
		}
	}
	d, err := decimal.NewFromString(s.cfg.MinAmount)
	if err != nil {
		return decimal.NewFromInt(10)
	}
	return d
}

// MaxMonthly is the effective per-calendar-month request cap.
func (s *WithdrawalService) MaxMonthly() int {
	if s.settings != nil {
		if v, err := s.settings.Get(domain.SettingMaxMonthlyWithdrawals); err == nil && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return s.cfg.MaxMonthlyRequests
}

// Submit validates the request and, on acceptance, persists it with status
// REQUESTED. Rules run in order: pending withdrawal, minimum amount,
// available balance, monthly cap; the first failure is the reported reason.
// clientToken makes blind retries idempotent: resubmitting a token returns
// the originally created request. Tokens are scoped to the submitting agent,
// and a retry with a different amount is refused rather than silently mapped
// to the old request.
func (s *WithdrawalService) Submit(ctx context.Context, agentID uint, amount decimal.Decimal, momoNumber, clientToken string) (*models.WithdrawalRequest, error) {
	amount = amount.Round(2)
	if clientToken == "" {
		clientToken = uuid.NewString()
	} else if existing, err := s.withdrawals.GetByClientToken(agentID, clientToken); err == nil {
		if !existing.Amount.Equal(amount) {
			return nil, domain.ErrClientTokenMismatch
		}
		return existing, nil
	}

	var created *models.WithdrawalRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.agents.GetForUpdate(tx, agentID); err != nil {
			return err
		}
		active, err := s.withdrawals.GetActive(tx, agentID)
		if err != nil {
			return err
		}
		if active != nil {
			return domain.NewPendingWithdrawalRejection(active.Amount, active.Status)
		}
		min := s.MinAmount()
		if amount.LessThan(min) {
			return domain.NewBelowMinimumRejection(min)
		}
		summary, err := s.commissions.summarizeWith(tx, agentID)
		if err != nil {
			// Never decide against a degraded balance: reject retryable.
			return err
		}
		if amount.GreaterThan(summary.AvailableForWithdrawal) {
			return domain.NewInsufficientBalanceRejection(summary.AvailableForWithdrawal)
		}
		requestedAt := s.now()
		count, err := s.withdrawals.CountInMonth(tx, agentID, requestedAt)
		if err != nil {
			return err
		}
		if count >= int64(s.MaxMonthly()) {
			return domain.NewMonthlyLimitRejection(s.MaxMonthly())
		}
		w := &models.WithdrawalRequest{
			AgentID:     agentID,
			Amount:      amount,
			MomoNumber:  momoNumber,
			Status:      domain.WithdrawalStatusRequested,
			ClientToken: clientToken,
			ActiveKey:   &agentID,
			RequestedAt: requestedAt,
		}
		if err := s.withdrawals.Create(tx, w); err != nil {
			return err
		}
		created = w
		return nil
	})
	if err != nil {
		var rej *domain.WithdrawalRejection
		if errors.As(err, &rej) {
			return nil, rej
		}
		if repository.IsDuplicateKey(err) {
			// Either a blind retry of our own submission (client token hit)
			// or a racing submission that lost to the active-key constraint.
			if existing, tokenErr := s.withdrawals.GetByClientToken(agentID, clientToken); tokenErr == nil {
				if !existing.Amount.Equal(amount) {
					return nil, domain.ErrClientTokenMismatch
				}
				return existing, nil
			}
			if active, activeErr := s.withdrawals.GetActive(s.db, agentID); activeErr == nil && active != nil {
				return nil, domain.NewPendingWithdrawalRejection(active.Amount, active.Status)
			}
		}
		return nil, err
	}

	s.log.Info("withdrawal accepted",
		zap.Uint("agent_id", agentID), zap.String("amount", amount.StringFixed(2)))
	if s.hub != nil {
		s.hub.Publish(ws.Event{
			Type:    domain.EventWithdrawalChanged,
			AgentID: agentID,
			Payload: map[string]interface{}{"withdrawal_id": created.ID, "status": created.Status},
		})
	}
	return created, nil
}
