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

func TestTransitionLifecycle(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	o := e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusPending, "15.00", time.Now())
	ctx := context.Background()

	got, err := e.orderSvc.Transition(ctx, o.ID, domain.OrderStatusProcessing, nil, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, got.Status)

	got, err = e.orderSvc.Transition(ctx, o.ID, domain.OrderStatusCompleted, nil, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, got.Status)

	var agent models.Agent
	require.NoError(t, e.db.First(&agent, a.ID).Error)
	assert.True(t, agent.TotalCommissions.Equal(dec(t, "15.00")))

	summary, err := e.commissions.Summarize(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, summary.AvailableForWithdrawal.Equal(dec(t, "15.00")))
}

func TestCompletionIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	o := e.seedOrder(t, a.ID, domain.SourceReferral, domain.OrderStatusProcessing, "22.50", time.Now())
	ctx := context.Background()

	_, err := e.orderSvc.Transition(ctx, o.ID, domain.OrderStatusCompleted, nil, "")
	require.NoError(t, err)
	// Second completion is a no-op, not an error, and does not double-count.
	got, err := e.orderSvc.Transition(ctx, o.ID, domain.OrderStatusCompleted, nil, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, got.Status)

	summary, err := e.commissions.Summarize(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, summary.AvailableForWithdrawal.Equal(dec(t, "22.50")))

	var agent models.Agent
	require.NoError(t, e.db.First(&agent, a.ID).Error)
	assert.True(t, agent.TotalCommissions.Equal(dec(t, "22.50")))
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	ctx := context.Background()

	completed := e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCompleted, "10.00", time.Now())
	_, err := e.orderSvc.Transition(ctx, completed.ID, domain.OrderStatusProcessing, nil, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	_, err = e.orderSvc.Transition(ctx, completed.ID, domain.OrderStatusCanceled, nil, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	canceled := e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusCanceled, "10.00", time.Now())
	_, err = e.orderSvc.Transition(ctx, canceled.ID, domain.OrderStatusCompleted, nil, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	// Same-status request against a terminal state is still a no-op.
	got, err := e.orderSvc.Transition(ctx, canceled.ID, domain.OrderStatusCanceled, nil, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCanceled, got.Status)
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	o := e.seedOrder(t, a.ID, domain.SourceDataOrder, domain.OrderStatusPending, "10.00", time.Now())

	_, err := e.orderSvc.Transition(context.Background(), o.ID, "SHIPPED", nil, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidStatus))

	var reloaded models.CommissionOrder
	require.NoError(t, e.db.First(&reloaded, o.ID).Error)
	assert.Equal(t, domain.OrderStatusPending, reloaded.Status)
}

func TestCancelDoesNotAccrue(t *testing.T) {
	e := newTestEnv(t)
	a := e.seedAgent(t)
	o := e.seedOrder(t, a.ID, domain.SourceWholesaleOrder, domain.OrderStatusPending, "33.00", time.Now())
	ctx := context.Background()

	_, err := e.orderSvc.Transition(ctx, o.ID, domain.OrderStatusCanceled, nil, "")
	require.NoError(t, err)

	summary, err := e.commissions.Summarize(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, summary.AvailableForWithdrawal.IsZero())

	var agent models.Agent
	require.NoError(t, e.db.First(&agent, a.ID).Error)
	assert.True(t, agent.TotalCommissions.IsZero())
}
