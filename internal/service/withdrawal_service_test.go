package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sika/internal/domain"
	"sika/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitBelowMinimum(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCompleted, "150.00", time.Now())

	_, err := e.withdrawSvc.Submit(context.Background(), a.ID, dec(t, "9.99"), "233240000001", "")
	rej, ok := domain.AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, domain.RejectBelowMinimum, rej.Code)
}

func TestSubmitInsufficientBalance(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCompleted, "150.00", time.Now())

	_, err := e.withdrawSvc.Submit(context.Background(), a.ID, dec(t, "150.01"), "233240000001", "")
	rej, ok := domain.AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, domain.RejectInsufficient, rej.Code)
}

func TestSubmitExactBalanceAccepted(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCompleted, "150.00", time.Now())

	w, err := e.withdrawSvc.Submit(context.Background(), a.ID, dec(t, "150.00"), "233240000001", "")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusRequested, w.Status)
	assert.True(t, w.Amount.Equal(dec(t, "150.00")))
	require.NotNil(t, w.ActiveKey)
	assert.Equal(t, a.ID, *w.ActiveKey)
}

func TestSubmitBlockedByPendingWithdrawal(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCompleted, "150.00", time.Now())
	ctx := context.Background()

	first, err := e.withdrawSvc.Submit(ctx, a.ID, dec(t, "50.00"), "233240000001", "")
	require.NoError(t, err)

	_, err = e.withdrawSvc.Submit(ctx, a.ID, dec(t, "20.00"), "233240000001", "")
	rej, ok := domain.AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, domain.RejectPendingWithdrawal, rej.Code)
	// The blocking request's amount and status are reported verbatim.
	assert.True(t, rej.PendingAmount.Equal(first.Amount))
	assert.Equal(t, domain.WithdrawalStatusRequested, rej.PendingStatus)
}

func TestSubmitMonthlyCap(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCompleted, "500.00", time.Now())
	now := time.Now()
	// Five requests this month, all terminal, so no pending-withdrawal block.
	for i := 0; i < 5; i++ {
		e.seedWithdrawal(t, a.ID, "20.00", domain.WithdrawalStatusRejected, now)
	}

	_, err := e.withdrawSvc.Submit(context.Background(), a.ID, dec(t, "20.00"), "233240000001", "")
	rej, ok := domain.AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, domain.RejectMonthlyLimit, rej.Code)
}

func TestSubmitCapIgnoresPreviousMonth(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCompleted, "500.00", time.Now())
	lastMonth := time.Now().AddDate(0, -1, 0)
	for i := 0; i < 5; i++ {
		e.seedWithdrawal(t, a.ID, "20.00", domain.WithdrawalStatusPaid, lastMonth)
	}

	w, err := e.withdrawSvc.Submit(context.Background(), a.ID, dec(t, "20.00"), "233240000001", "")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusRequested, w.Status)
}

func TestSubmitConcurrentSingleWinner(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCompleted, "500.00", time.Now())

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.withdrawSvc.Submit(context.Background(), a.ID, dec(t, "50.00"), "233240000001", fmt.Sprintf("race-%d", i))
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		rej, ok := domain.AsRejection(err)
		require.True(t, ok, "loser should get a rejection, got %v", err)
		assert.Equal(t, domain.RejectPendingWithdrawal, rej.Code)
	}
	assert.Equal(t, 1, accepted)

	var count int64
	require.NoError(t, e.db.Model(&models.WithdrawalRequest{}).Where("agent_id = ?", a.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSubmitClientTokenIdempotent(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCompleted, "150.00", time.Now())
	ctx := context.Background()

	first, err := e.withdrawSvc.Submit(ctx, a.ID, dec(t, "50.00"), "233240000001", "retry-token")
	require.NoError(t, err)
	second, err := e.withdrawSvc.Submit(ctx, a.ID, dec(t, "50.00"), "233240000001", "retry-token")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, e.db.Model(&models.WithdrawalRequest{}).Where("agent_id = ?", a.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSubmitClientTokenScopedPerAgent(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	b := e.seedAgent(t)
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCompleted, "150.00", time.Now())
	e.seedOrder(t, b.ID, domain.SourceDataOrder, domain.OrderStatusCompleted, "20.00", time.Now())
	ctx := context.Background()

	first, err := e.withdrawSvc.Submit(ctx, a.ID, dec(t, "50.00"), "233240000001", "shared-token")
	require.NoError(t, err)

	// Another agent reusing the token starts a fresh submission, never
	// receives the first agent's row, and still runs full validation.
	_, err = e.withdrawSvc.Submit(ctx, b.ID, dec(t, "50.00"), "233240000002", "shared-token")
	rej, ok := domain.AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, domain.RejectInsufficient, rej.Code)

	got, err := e.withdrawSvc.Submit(ctx, b.ID, dec(t, "15.00"), "233240000002", "shared-token")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, got.ID)
	assert.Equal(t, b.ID, got.AgentID)
}

func TestSubmitClientTokenAmountMismatch(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCompleted, "150.00", time.Now())
	ctx := context.Background()

	_, err := e.withdrawSvc.Submit(ctx, a.ID, dec(t, "50.00"), "233240000001", "retry-token")
	require.NoError(t, err)

	_, err = e.withdrawSvc.Submit(ctx, a.ID, dec(t, "60.00"), "233240000001", "retry-token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrClientTokenMismatch))
}

func TestSubmitRejectsDuringAggregatorOutage(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	// Cached rollups show plenty of balance, but the event store is down:
	// the fallback must never approve a withdrawal.
	require.NoError(t, e.db.Model(&models.Agent{}).Where("id = ?", a.ID).
		Update("total_commissions", "500.00").Error)
	require.NoError(t, e.db.Exec("DROP TABLE commission_orders").Error)

	_, err := e.withdrawSvc.Submit(context.Background(), a.ID, dec(t, "50.00"), "233240000001", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAggregationUnavailable))

	var count int64
	require.NoError(t, e.db.Model(&models.WithdrawalRequest{}).Where("agent_id = ?", a.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestSubmitRoundsToCurrencyPrecision(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCompleted, "150.00", time.Now())

	w, err := e.withdrawSvc.Submit(context.Background(), a.ID, dec(t, "49.999"), "233240000001", "")
	require.NoError(t, err)
	assert.True(t, w.Amount.Equal(dec(t, "50.00")))
}
