package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionOrder is the commission event store row: one per commission-
// eligible referral, data order or wholesale order. CommissionAmount is fixed
// by the originating sale flow at creation and never recomputed; completion
// only changes Status. CommissionPaid goes false->true once, during
// settlement, never back.
type CommissionOrder struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	AgentID          uint            `gorm:"not null;index" json:"agent_id"`
	SourceType       string          `gorm:"size:30;not null;index;uniqueIndex:idx_commission_source,priority:1" json:"source_type"` // REFERRAL, DATA_ORDER, WHOLESALE_ORDER
	SourceID         uint            `gorm:"not null;uniqueIndex:idx_commission_source,priority:2" json:"source_id"`
	Status           string          `gorm:"size:20;not null;index" json:"status"` // PENDING, PROCESSING, COMPLETED, CANCELED
	CommissionAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"commission_amount"`
	CommissionPaid   bool            `gorm:"not null;default:false;index" json:"commission_paid"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`

	Agent Agent `gorm:"foreignKey:AgentID" json:"-"`
}

func (CommissionOrder) TableName() string { return "commission_orders" }

// CommissionSource is implemented by each concrete sale record. It maps the
// source's native shape to the common event store row, keeping the aggregator
// decoupled from the three differently-shaped sale tables.
type CommissionSource interface {
	CommissionEvent() CommissionOrder
}
