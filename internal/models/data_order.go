package models

import (
	"time"

	"sika/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DataOrder is a mobile data bundle sale placed by an agent for a customer.
type DataOrder struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	AgentID        uint            `gorm:"not null;index" json:"agent_id"`
	Network        string          `gorm:"size:20;not null" json:"network"` // MTN, VODAFONE, AIRTELTIGO
	BundleMB       int             `gorm:"not null" json:"bundle_mb"`
	CustomerPhone  string          `gorm:"size:20;not null" json:"customer_phone"`
	Price          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"price"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(6,4);not null" json:"commission_rate"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`

	Agent Agent `gorm:"foreignKey:AgentID" json:"-"`
}

func (DataOrder) TableName() string { return "data_orders" }

// CommissionEvent maps the sale to its event store row. The amount is priced
// here, once, at creation time: price x rate rounded to 2dp.
func (o *DataOrder) CommissionEvent() CommissionOrder {
	return CommissionOrder{
		AgentID:          o.AgentID,
		SourceType:       domain.SourceDataOrder,
		SourceID:         o.ID,
		Status:           domain.OrderStatusPending,
		CommissionAmount: o.Price.Mul(o.CommissionRate).Round(2),
	}
}
