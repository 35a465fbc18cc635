package models

import (
	"time"

	"sika/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Agent is a selling agent (or admin). TotalCommissions and TotalPaidOut are
// cached rollups maintained by the settlement path; they back the degraded
// balance read when the per-source aggregation is unavailable and must never
// be written from request handlers directly.
type Agent struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Name             string          `gorm:"size:128;not null" json:"name"`
	Email            string          `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Phone            string          `gorm:"size:20" json:"phone"`
	PasswordHash     string          `gorm:"size:255" json:"-"`
	Role             string          `gorm:"size:20;not null;index" json:"role"` // AGENT | ADMIN
	MomoNumber       string          `gorm:"size:20" json:"momo_number"`
	TotalCommissions decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_commissions"`
	TotalPaidOut     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_paid_out"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Agent) TableName() string { return "agents" }

func (a *Agent) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// CachedBalance is the rollup-derived available balance, clamped to zero.
func (a *Agent) CachedBalance() decimal.Decimal {
	bal := a.TotalCommissions.Sub(a.TotalPaidOut)
	if bal.IsNegative() {
		return decimal.Zero
	}
	return bal
}
