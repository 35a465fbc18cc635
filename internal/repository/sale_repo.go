package repository

import (
	"sika/internal/models"

	"gorm.io/gorm"
)

// SaleRepository persists the concrete sale records and their commission
// event rows. Each create writes the native row plus its event in one
// transaction so a sale can never exist without its commission fact or vice
// versa.
type SaleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

func (r *SaleRepository) CreateDataOrder(o *models.DataOrder) (*models.CommissionOrder, error) {
	var event models.CommissionOrder
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		event = o.CommissionEvent()
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *SaleRepository) CreateWholesaleOrder(o *models.WholesaleOrder) (*models.CommissionOrder, error) {
	var event models.CommissionOrder
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		event = o.CommissionEvent()
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *SaleRepository) CreateReferral(ref *models.Referral) (*models.CommissionOrder, error) {
	var event models.CommissionOrder
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ref).Error; err != nil {
			return err
		}
		event = ref.CommissionEvent()
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}
