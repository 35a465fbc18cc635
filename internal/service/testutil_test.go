package service

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"sika/config"
	"sika/internal/domain"
	"sika/internal/models"
	"sika/internal/repository"
	"sika/internal/ws"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var sourceSeq uint64

type testEnv struct {
	db          *gorm.DB
	agents      *repository.AgentRepository
	orders      *repository.CommissionOrderRepository
	withdrawals *repository.WithdrawalRepository
	commissions *CommissionService
	orderSvc    *OrderService
	withdrawSvc *WithdrawalService
	settleSvc   *SettlementService
	hub         *ws.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the shared in-memory database alive and
	// serializes transactions the way a real server's row locks would.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Agent{},
		&models.DataOrder{},
		&models.WholesaleOrder{},
		&models.Referral{},
		&models.CommissionOrder{},
		&models.WithdrawalRequest{},
		&models.SystemSetting{},
		&models.AuditLog{},
	))

	log := zap.NewNop()
	hub := ws.NewHub()
	agents := repository.NewAgentRepository(db)
	orders := repository.NewCommissionOrderRepository(db)
	withdrawals := repository.NewWithdrawalRepository(db)
	audit := repository.NewAuditLogRepository(db)
	commissions := NewCommissionService(db, orders, agents, log)
	cfg := &config.WithdrawalConfig{
		MinAmount:          "10.00",
		MaxMonthlyRequests: 5,
		OperationTimeout:   5 * time.Second,
	}
	return &testEnv{
		db:          db,
		agents:      agents,
		orders:      orders,
		withdrawals: withdrawals,
		commissions: commissions,
		orderSvc:    NewOrderService(db, orders, agents, audit, hub, log),
		withdrawSvc: NewWithdrawalService(db, agents, withdrawals, commissions, nil, cfg, hub, log),
		settleSvc:   NewSettlementService(db, withdrawals, orders, agents, audit, hub, log),
		hub:         hub,
	}
}

func (e *testEnv) seedAgent(t *testing.T) *models.Agent {
	t.Helper()
	a := &models.Agent{
		Name:       "Kofi Mensah",
		Email:      fmt.Sprintf("agent-%d@example.com", atomic.AddUint64(&sourceSeq, 1)),
		Phone:      "233240000001",
		MomoNumber: "233240000001",
		Role:       domain.RoleAgent,
	}
	require.NoError(t, e.db.Create(a).Error)
	return a
}

// seedOrder inserts a commission order directly with the given status and
// commission amount, bumping the agent rollup the way completion would.
func (e *testEnv) seedOrder(t *testing.T, agentID uint, source, status, amount string, createdAt time.Time) *models.CommissionOrder {
	t.Helper()
	amt, err := decimal.NewFromString(amount)
	require.NoError(t, err)
	o := &models.CommissionOrder{
		AgentID:          agentID,
		SourceType:       source,
		SourceID:         uint(atomic.AddUint64(&sourceSeq, 1)),
		Status:           status,
		CommissionAmount: amt,
		CreatedAt:        createdAt,
	}
	require.NoError(t, e.db.Create(o).Error)
	if status == domain.OrderStatusCompleted {
		require.NoError(t, e.db.Model(&models.Agent{}).Where("id = ?", agentID).
			Update("total_commissions", gorm.Expr("total_commissions + ?", amt)).Error)
	}
	return o
}

func (e *testEnv) seedWithdrawal(t *testing.T, agentID uint, amount, status string, requestedAt time.Time) *models.WithdrawalRequest {
	t.Helper()
	amt, err := decimal.NewFromString(amount)
	require.NoError(t, err)
	w := &models.WithdrawalRequest{
		AgentID:     agentID,
		Amount:      amt,
		MomoNumber:  "233240000001",
		Status:      status,
		ClientToken: fmt.Sprintf("tok-%d", atomic.AddUint64(&sourceSeq, 1)),
		RequestedAt: requestedAt,
	}
	if domain.ActiveWithdrawalStatus(status) {
		w.ActiveKey = &agentID
	}
	require.NoError(t, e.db.Create(w).Error)
	return w
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
