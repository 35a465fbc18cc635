package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sika/internal/domain"
	"sika/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeBreakdown(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	now := time.Now()
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCompleted, "120.00", now)
	e.seedOrder(t, a.ID, domain.SourceReferral, domain.OrderStatusCompleted, "30.00", now)

	summary, err := e.commissions.Summarize(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, summary.DataOrderCommissions.Equal(dec(t, "120.00")))
	assert.True(t, summary.ReferralCommissions.Equal(dec(t, "30.00")))
	assert.True(t, summary.WholesaleCommissions.IsZero())
	assert.True(t, summary.AvailableForWithdrawal.Equal(dec(t, "150.00")))
	assert.True(t, summary.TotalPaidOut.IsZero())
	assert.False(t, summary.Degraded)
}

func TestSummarizeIgnoresPendingAndCanceled(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	now := time.Now()
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusPending, "50.00", now)
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusProcessing, "60.00", now)
	e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCanceled, "70.00", now)
	e.seedOrder(t, a.ID, domain.SourceWholesaleOrder, domain.OrderStatusCompleted, "25.00", now)

	summary, err := e.commissions.Summarize(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, summary.AvailableForWithdrawal.Equal(dec(t, "25.00")))
	assert.True(t, summary.WholesaleCommissions.Equal(dec(t, "25.00")))
}

func TestSummarizeExcludesPaidFromAvailable(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	now := time.Now()
	paid := e.seedOrder(t, a.ID, domain.SourceReferral, domain.OrderStatusCompleted, "80.00", now)
	require.NoError(t, e.db.Model(paid).Update("commission_paid", true).Error)
	e.seedOrder(t, a.ID, domain.SourceReferral, domain.OrderStatusCompleted, "20.00", now)

	summary, err := e.commissions.Summarize(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, summary.AvailableForWithdrawal.Equal(dec(t, "20.00")))
	assert.True(t, summary.TotalPaidOut.Equal(dec(t, "80.00")))
	assert.True(t, summary.TotalCommissions.Equal(dec(t, "100.00")))
}

func TestLegacyBalanceClampsNegative(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	require.NoError(t, e.db.Model(&models.Agent{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
		"total_commissions": "40.00",
		"total_paid_out":    "55.00",
	}).Error)

	summary, err := e.commissions.LegacyBalance(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, summary.Degraded)
	assert.True(t, summary.AvailableForWithdrawal.IsZero())
	assert.True(t, summary.ReferralCommissions.IsZero())
	assert.True(t, summary.DataOrderCommissions.IsZero())
	assert.True(t, summary.WholesaleCommissions.IsZero())
}

func TestSummarizeOrFallbackDegradesOnStoreFailure(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	require.NoError(t, e.db.Model(&models.Agent{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
		"total_commissions": "90.00",
		"total_paid_out":    "10.00",
	}).Error)
	require.NoError(t, e.db.Exec("DROP TABLE commission_orders").Error)

	_, err := e.commissions.Summarize(context.Background(), a.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAggregationUnavailable))

	summary, err := e.commissions.SummarizeOrFallback(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, summary.Degraded)
	assert.True(t, summary.AvailableForWithdrawal.Equal(dec(t, "80.00")))
}
