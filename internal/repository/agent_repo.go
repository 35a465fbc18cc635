package repository

import (
	"sika/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AgentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

func (r *AgentRepository) Create(a *models.Agent) error {
	return r.db.Create(a).Error
}

func (r *AgentRepository) GetByID(id uint) (*models.Agent, error) {
	var a models.Agent
	if err := r.db.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AgentRepository) GetByEmail(email string) (*models.Agent, error) {
	var a models.Agent
	if err := r.db.Where("email = ?", email).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AgentRepository) List(limit, offset int) ([]models.Agent, error) {
	var list []models.Agent
	err := r.db.Order("id ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// GetForUpdate loads the agent row with a row lock inside tx. Withdrawal
// submission locks here first so concurrent submissions for one agent
// serialize on the database, not on a process-local mutex.
func (r *AgentRepository) GetForUpdate(tx *gorm.DB, id uint) (*models.Agent, error) {
	var a models.Agent
	if err := forUpdate(tx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// AddTotalCommissions bumps the cached lifetime commission rollup. Called in
// the same transaction that completes an order.
func (r *AgentRepository) AddTotalCommissions(tx *gorm.DB, agentID uint, amount decimal.Decimal) error {
	return tx.Model(&models.Agent{}).Where("id = ?", agentID).
		Update("total_commissions", gorm.Expr("total_commissions + ?", amount)).Error
}

// AddTotalPaidOut bumps the cached paid-out rollup. Called in the same
// transaction that flips commission_paid during settlement.
func (r *AgentRepository) AddTotalPaidOut(tx *gorm.DB, agentID uint, amount decimal.Decimal) error {
	return tx.Model(&models.Agent{}).Where("id = ?", agentID).
		Update("total_paid_out", gorm.Expr("total_paid_out + ?", amount)).Error
}
