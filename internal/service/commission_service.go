package service

import (
	"context"
	"fmt"

	"sika/internal/domain"
	"sika/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CommissionSummary is the derived per-agent balance view. Degraded marks a
// fallback read built from cached rollups: the per-source breakdown is zeroed
// and must not be presented as authoritative.
type CommissionSummary struct {
	AgentID                uint            `json:"agent_id"`
	ReferralCommissions    decimal.Decimal `json:"referral_commissions"`
	DataOrderCommissions   decimal.Decimal `json:"data_order_commissions"`
	WholesaleCommissions   decimal.Decimal `json:"wholesale_commissions"`
	TotalCommissions       decimal.Decimal `json:"total_commissions"`
	TotalPaidOut           decimal.Decimal `json:"total_paid_out"`
	AvailableForWithdrawal decimal.Decimal `json:"available_for_withdrawal"`
	Degraded               bool            `json:"degraded"`
}

// CommissionService aggregates commission-bearing events into per-agent
// balances, with a cruder rollup-based fallback when the event store read
// fails.
type CommissionService struct {
	db     *gorm.DB
	orders *repository.CommissionOrderRepository
	agents *repository.AgentRepository
	log    *zap.Logger
}

func NewCommissionService(
	db *gorm.DB,
	orders *repository.CommissionOrderRepository,
	agents *repository.AgentRepository,
	log *zap.Logger,
) *CommissionService {
	return &CommissionService{db: db, orders: orders, agents: agents, log: log}
}

// Summarize computes the authoritative balance breakdown from completed
// commission orders. On a store read failure it returns
// domain.ErrAggregationUnavailable; it never substitutes zeros.
func (s *CommissionService) Summarize(ctx context.Context, agentID uint) (*CommissionSummary, error) {
	return s.summarizeWith(s.db.WithContext(ctx), agentID)
}

// summarizeWith runs the aggregation against the given handle, so withdrawal
// validation can reuse it inside its own transaction and decide on the same
// snapshot it reads.
func (s *CommissionService) summarizeWith(tx *gorm.DB, agentID uint) (*CommissionSummary, error) {
	sums, err := s.orders.SumCompletedBySource(tx, agentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAggregationUnavailable, err)
	}
	summary := &CommissionSummary{
		AgentID:                agentID,
		ReferralCommissions:    decimal.Zero,
		DataOrderCommissions:   decimal.Zero,
		WholesaleCommissions:   decimal.Zero,
		TotalCommissions:       decimal.Zero,
		TotalPaidOut:           decimal.Zero,
		AvailableForWithdrawal: decimal.Zero,
	}
	for _, row := range sums {
		summary.TotalCommissions = summary.TotalCommissions.Add(row.Total)
		if row.CommissionPaid {
			summary.TotalPaidOut = summary.TotalPaidOut.Add(row.Total)
			continue
		}
		switch row.SourceType {
		case domain.SourceReferral:
			summary.ReferralCommissions = summary.ReferralCommissions.Add(row.Total)
		case domain.SourceDataOrder:
			summary.DataOrderCommissions = summary.DataOrderCommissions.Add(row.Total)
		case domain.SourceWholesaleOrder:
			summary.WholesaleCommissions = summary.WholesaleCommissions.Add(row.Total)
		}
		summary.AvailableForWithdrawal = summary.AvailableForWithdrawal.Add(row.Total)
	}
	if summary.AvailableForWithdrawal.IsNegative() {
		summary.AvailableForWithdrawal = decimal.Zero
	}
	return summary, nil
}

// LegacyBalance is the reconciliation fallback: the cached agent rollups with
// an explicitly degraded (zeroed) per-source breakdown.
func (s *CommissionService) LegacyBalance(ctx context.Context, agentID uint) (*CommissionSummary, error) {
	a, err := s.agents.GetByID(agentID)
	if err != nil {
		return nil, err
	}
	return &CommissionSummary{
		AgentID:                agentID,
		ReferralCommissions:    decimal.Zero,
		DataOrderCommissions:   decimal.Zero,
		WholesaleCommissions:   decimal.Zero,
		TotalCommissions:       a.TotalCommissions,
		TotalPaidOut:           a.TotalPaidOut,
		AvailableForWithdrawal: a.CachedBalance(),
		Degraded:               true,
	}, nil
}

// SummarizeOrFallback is the read-path entry point: authoritative aggregation
// first, cached rollups when the store read fails. Callers surface the
// Degraded flag instead of presenting the fallback as exact. Write paths must
// call Summarize directly and propagate its error.
func (s *CommissionService) SummarizeOrFallback(ctx context.Context, agentID uint) (*CommissionSummary, error) {
	summary, err := s.Summarize(ctx, agentID)
	if err == nil {
		return summary, nil
	}
	s.log.Warn("commission aggregation failed, serving cached rollups",
		zap.Uint("agent_id", agentID), zap.Error(err))
	return s.LegacyBalance(ctx, agentID)
}
