package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Order state machine errors. These indicate caller bugs or unauthorized
// actions and are surfaced as hard errors, never swallowed.
var (
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Engine availability and settlement errors.
var (
	// ErrAggregationUnavailable means the commission store read failed.
	// Read paths fall back to the cached rollups; withdrawal submission
	// must reject with this error instead of deciding against a degraded
	// balance. Retryable.
	ErrAggregationUnavailable = errors.New("commission aggregation temporarily unavailable")

	// ErrSettlementConflict means another settlement call won the
	// compare-and-swap on the same withdrawal. The caller must re-read
	// the withdrawal before retrying.
	ErrSettlementConflict = errors.New("withdrawal already settled or being settled")

	// ErrClientTokenMismatch means a client token was resubmitted with a
	// different amount. A retry must repeat the original request verbatim.
	ErrClientTokenMismatch = errors.New("client token was already used with a different amount")
)

// WithdrawalRejection is an expected business outcome of withdrawal
// validation, not a failure. The Reason string is rendered to the agent
// verbatim.
type WithdrawalRejection struct {
	Code   string
	Reason string

	// Set when Code is RejectPendingWithdrawal: the blocking request.
	PendingAmount decimal.Decimal
	PendingStatus string
}

const (
	RejectPendingWithdrawal = "PENDING_WITHDRAWAL_EXISTS"
	RejectBelowMinimum      = "BELOW_MINIMUM"
	RejectInsufficient      = "INSUFFICIENT_BALANCE"
	RejectMonthlyLimit      = "MONTHLY_LIMIT_REACHED"
)

func (e *WithdrawalRejection) Error() string { return e.Reason }

func NewPendingWithdrawalRejection(amount decimal.Decimal, status string) *WithdrawalRejection {
	return &WithdrawalRejection{
		Code:          RejectPendingWithdrawal,
		Reason:        fmt.Sprintf("you already have a withdrawal of GHS %s in %s status", amount.StringFixed(2), status),
		PendingAmount: amount,
		PendingStatus: status,
	}
}

func NewBelowMinimumRejection(min decimal.Decimal) *WithdrawalRejection {
	return &WithdrawalRejection{
		Code:   RejectBelowMinimum,
		Reason: fmt.Sprintf("minimum withdrawal amount is GHS %s", min.StringFixed(2)),
	}
}

func NewInsufficientBalanceRejection(available decimal.Decimal) *WithdrawalRejection {
	return &WithdrawalRejection{
		Code:   RejectInsufficient,
		Reason: fmt.Sprintf("requested amount exceeds your available balance of GHS %s", available.StringFixed(2)),
	}
}

func NewMonthlyLimitRejection(max int) *WithdrawalRejection {
	return &WithdrawalRejection{
		Code:   RejectMonthlyLimit,
		Reason: fmt.Sprintf("you have reached the limit of %d withdrawal requests this month", max),
	}
}

// AsRejection unwraps err into a WithdrawalRejection if it is one.
func AsRejection(err error) (*WithdrawalRejection, bool) {
	var rej *WithdrawalRejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
