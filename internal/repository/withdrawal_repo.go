package repository

import (
	"errors"
	"strings"
	"time"

	"sika/internal/domain"
	"sika/internal/models"

	"gorm.io/gorm"
)

type WithdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) Create(tx *gorm.DB, w *models.WithdrawalRequest) error {
	return tx.Create(w).Error
}

func (r *WithdrawalRepository) GetByID(id uint) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	if err := r.db.First(&w, id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByClientToken looks up the agent's own request for the token. Tokens are
// scoped per agent; a token another agent used never resolves here.
func (r *WithdrawalRepository) GetByClientToken(agentID uint, token string) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	if err := r.db.Where("agent_id = ? AND client_token = ?", agentID, token).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// GetForUpdate loads a withdrawal row-locked inside tx for settlement.
func (r *WithdrawalRepository) GetForUpdate(tx *gorm.DB, id uint) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	if err := forUpdate(tx).First(&w, id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// GetActive returns the agent's non-terminal withdrawal, if any.
func (r *WithdrawalRepository) GetActive(tx *gorm.DB, agentID uint) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := tx.Where("agent_id = ? AND status IN ?", agentID,
		[]string{domain.WithdrawalStatusRequested, domain.WithdrawalStatusProcessing}).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// CountInMonth counts every request the agent made in t's calendar month,
// terminal or not.
func (r *WithdrawalRepository) CountInMonth(tx *gorm.DB, agentID uint, t time.Time) (int64, error) {
	monthStart := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	nextMonth := monthStart.AddDate(0, 1, 0)
	var count int64
	err := tx.Model(&models.WithdrawalRequest{}).
		Where("agent_id = ? AND requested_at >= ? AND requested_at < ?", agentID, monthStart, nextMonth).
		Count(&count).Error
	return count, err
}

func (r *WithdrawalRepository) HistoryByAgent(agentID uint, limit, offset int) ([]models.WithdrawalRequest, error) {
	var list []models.WithdrawalRequest
	err := r.db.Where("agent_id = ?", agentID).
		Order("requested_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *WithdrawalRepository) ListByStatus(status string, limit, offset int) ([]models.WithdrawalRequest, error) {
	q := r.db.Order("requested_at DESC").Limit(limit).Offset(offset)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []models.WithdrawalRequest
	err := q.Find(&list).Error
	return list, err
}

// CASSettle moves a non-terminal withdrawal to the terminal status and clears
// the active key in one guarded update. Zero rows affected means a concurrent
// settlement already won.
func (r *WithdrawalRepository) CASSettle(tx *gorm.DB, id uint, target string, at time.Time) (int64, error) {
	res := tx.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status IN ?", id,
			[]string{domain.WithdrawalStatusRequested, domain.WithdrawalStatusProcessing}).
		Updates(map[string]interface{}{
			"status":       target,
			"active_key":   nil,
			"processed_at": at,
		})
	return res.RowsAffected, res.Error
}

// IsDuplicateKey reports whether err is a unique-constraint violation, in a
// driver-agnostic way (mysql in production, sqlite in tests).
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") || strings.Contains(msg, "unique constraint")
}
