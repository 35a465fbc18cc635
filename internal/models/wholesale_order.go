package models

import (
	"time"

	"sika/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WholesaleOrder is a bulk goods sale placed by an agent.
type WholesaleOrder struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	AgentID        uint            `gorm:"not null;index" json:"agent_id"`
	ItemName       string          `gorm:"size:255;not null" json:"item_name"`
	Quantity       int             `gorm:"not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(6,4);not null" json:"commission_rate"`
	DeliveryTown   string          `gorm:"size:128" json:"delivery_town"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`

	Agent Agent `gorm:"foreignKey:AgentID" json:"-"`
}

func (WholesaleOrder) TableName() string { return "wholesale_orders" }

func (o *WholesaleOrder) CommissionEvent() CommissionOrder {
	total := o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
	return CommissionOrder{
		AgentID:          o.AgentID,
		SourceType:       domain.SourceWholesaleOrder,
		SourceID:         o.ID,
		Status:           domain.OrderStatusPending,
		CommissionAmount: total.Mul(o.CommissionRate).Round(2),
	}
}
