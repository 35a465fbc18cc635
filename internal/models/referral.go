package models

import (
	"time"

	"sika/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Referral is a property referral submitted by an agent. Unlike the priced
// sales, the commission is a flat bonus fixed when the referral is recorded.
type Referral struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	AgentID       uint            `gorm:"not null;index" json:"agent_id"`
	ReferredName  string          `gorm:"size:128;not null" json:"referred_name"`
	ReferredPhone string          `gorm:"size:20;not null" json:"referred_phone"`
	PropertyID    string          `gorm:"size:64" json:"property_id"`
	Bonus         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"bonus"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`

	Agent Agent `gorm:"foreignKey:AgentID" json:"-"`
}

func (Referral) TableName() string { return "referrals" }

func (r *Referral) CommissionEvent() CommissionOrder {
	return CommissionOrder{
		AgentID:          r.AgentID,
		SourceType:       domain.SourceReferral,
		SourceID:         r.ID,
		Status:           domain.OrderStatusPending,
		CommissionAmount: r.Bonus.Round(2),
	}
}
