package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WithdrawalRequest records an accepted withdrawal and its settlement status.
//
// ActiveKey holds the agent ID while the request is REQUESTED or PROCESSING
// and is nulled on settlement. The unique index on it enforces "at most one
// non-terminal withdrawal per agent" in the database, so the rule holds across
// process instances without any in-process lock.
//
// ClientToken is supplied by the client; it is unique per agent, so a blind
// retry of the same submission lands on the original row instead of creating
// a duplicate. Tokens are not shared across agents: another agent reusing the
// same string starts a fresh submission of their own.
type WithdrawalRequest struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	AgentID     uint            `gorm:"not null;index;uniqueIndex:idx_withdrawal_agent_token" json:"agent_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	MomoNumber  string          `gorm:"size:20;not null" json:"momo_number"`
	Status      string          `gorm:"size:20;not null;index" json:"status"` // REQUESTED, PROCESSING, PAID, REJECTED
	ClientToken string          `gorm:"size:64;not null;uniqueIndex:idx_withdrawal_agent_token" json:"client_token"`
	ActiveKey   *uint           `gorm:"uniqueIndex" json:"-"`
	RequestedAt time.Time       `gorm:"index;not null" json:"requested_at"`
	ProcessedAt *time.Time      `json:"processed_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`

	Agent Agent `gorm:"foreignKey:AgentID" json:"-"`
}

func (WithdrawalRequest) TableName() string { return "withdrawal_requests" }
