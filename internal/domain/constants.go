package domain

const (
	RoleAgent = "AGENT"
	RoleAdmin = "ADMIN"
)

// Commission-bearing order lifecycle.
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCanceled   = "CANCELED"
)

// Commission source types.
const (
	SourceReferral       = "REFERRAL"
	SourceDataOrder      = "DATA_ORDER"
	SourceWholesaleOrder = "WHOLESALE_ORDER"
)

// Withdrawal request lifecycle.
const (
	WithdrawalStatusRequested  = "REQUESTED"
	WithdrawalStatusProcessing = "PROCESSING"
	WithdrawalStatusPaid       = "PAID"
	WithdrawalStatusRejected   = "REJECTED"
)

// Settlement outcomes.
const (
	SettleOutcomePaid     = "PAID"
	SettleOutcomeRejected = "REJECTED"
)

// Event types broadcast to dashboards after engine mutations.
const (
	EventOrderStatusChanged = "order.status_changed"
	EventSummaryChanged     = "commission.summary_changed"
	EventWithdrawalChanged  = "withdrawal.status_changed"
)

// System setting keys (admin-overridable withdrawal policy).
const (
	SettingMinWithdrawalAmount   = "min_withdrawal_amount"
	SettingMaxMonthlyWithdrawals = "max_monthly_withdrawals"
)

// ValidOrderStatus reports whether s is one of the four enumerated order statuses.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCanceled:
		return true
	}
	return false
}

// TerminalOrderStatus reports whether s has no outgoing transitions.
func TerminalOrderStatus(s string) bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled
}

// ActiveWithdrawalStatus reports whether s is a non-terminal withdrawal status.
func ActiveWithdrawalStatus(s string) bool {
	return s == WithdrawalStatusRequested || s == WithdrawalStatusProcessing
}
