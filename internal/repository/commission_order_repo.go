package repository

import (
	"time"

	"sika/internal/domain"
	"sika/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CommissionOrderRepository struct {
	db *gorm.DB
}

func NewCommissionOrderRepository(db *gorm.DB) *CommissionOrderRepository {
	return &CommissionOrderRepository{db: db}
}

func (r *CommissionOrderRepository) GetByID(id uint) (*models.CommissionOrder, error) {
	var o models.CommissionOrder
	if err := r.db.First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *CommissionOrderRepository) ListByAgent(agentID uint, status string, limit, offset int) ([]models.CommissionOrder, error) {
	q := r.db.Where("agent_id = ?", agentID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []models.CommissionOrder
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// SourceSum is one row of the grouped commission aggregation.
type SourceSum struct {
	SourceType     string
	CommissionPaid bool
	Total          decimal.Decimal
}

// SumCompletedBySource returns commission totals for the agent's completed
// orders grouped by source type and paid flag. A single grouped SELECT, so
// the result is one consistent snapshot. Runs against tx so withdrawal
// validation can observe the same snapshot it decides on.
func (r *CommissionOrderRepository) SumCompletedBySource(tx *gorm.DB, agentID uint) ([]SourceSum, error) {
	var sums []SourceSum
	err := tx.Model(&models.CommissionOrder{}).
		Select("source_type, commission_paid, COALESCE(SUM(commission_amount), 0) AS total").
		Where("agent_id = ? AND status = ?", agentID, domain.OrderStatusCompleted).
		Group("source_type, commission_paid").
		Scan(&sums).Error
	return sums, err
}

// UnpaidCompletedForUpdate loads the agent's unpaid completed orders oldest
// first, row-locked inside tx, for settlement marking.
func (r *CommissionOrderRepository) UnpaidCompletedForUpdate(tx *gorm.DB, agentID uint) ([]models.CommissionOrder, error) {
	var list []models.CommissionOrder
	err := forUpdate(tx).
		Where("agent_id = ? AND status = ? AND commission_paid = ?", agentID, domain.OrderStatusCompleted, false).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

// MarkPaid flips commission_paid on the given orders. Monotonic: the WHERE
// clause refuses rows already marked, so a double-apply shows up as a short
// rows-affected count instead of silently passing.
func (r *CommissionOrderRepository) MarkPaid(tx *gorm.DB, ids []uint, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := tx.Model(&models.CommissionOrder{}).
		Where("id IN ? AND commission_paid = ?", ids, false).
		Updates(map[string]interface{}{"commission_paid": true, "updated_at": at})
	return res.RowsAffected, res.Error
}

// CASStatus performs the compare-and-swap status update for the order state
// machine. Returns the number of rows changed: zero means another writer got
// there first and the expected status no longer holds.
func (r *CommissionOrderRepository) CASStatus(tx *gorm.DB, orderID uint, expected, target string) (int64, error) {
	res := tx.Model(&models.CommissionOrder{}).
		Where("id = ? AND status = ?", orderID, expected).
		Update("status", target)
	return res.RowsAffected, res.Error
}
