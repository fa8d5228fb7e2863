package models

import (
	"errors"
	"fmt"
	"time"
)

// SettlementStatus is the lifecycle state of a settlement.
//
// pending and paid may move forward or be rejected; confirmed and rejected
// are terminal. Only confirmed settlements affect balances.
type SettlementStatus string

const (
	StatusPending   SettlementStatus = "pending"
	StatusPaid      SettlementStatus = "paid"
	StatusConfirmed SettlementStatus = "confirmed"
	StatusRejected  SettlementStatus = "rejected"
)

// Valid reports whether s is one of the known settlement states.
func (s SettlementStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusConfirmed, StatusRejected:
		return true
	}
	return false
}

var (
	// ErrSelfSettlement indicates a settlement where payer and payee are
	// the same user.
	ErrSelfSettlement = errors.New("payer and payee cannot be the same user")

	// ErrInvalidStateTransition indicates a lifecycle operation invoked
	// from a state that forbids it.
	ErrInvalidStateTransition = errors.New("invalid settlement state transition")
)

// Settlement represents a payment between two members to clear debt.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// From is the user paying (debtor settling up).
	From string

	// To is the user receiving payment (creditor being paid).
	To string

	// Amount is the payment amount. Always positive.
	Amount float64

	// Status is the current lifecycle state.
	Status SettlementStatus

	// UPITransactionID is an optional external payment reference recorded
	// when the payer marks the settlement paid.
	UPITransactionID string

	// Notes is an optional free-form note.
	Notes string

	// PaidAt is set when the payer marks the settlement paid.
	PaidAt *time.Time

	// ConfirmedAt is set when the payee confirms receipt.
	ConfirmedAt *time.Time

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// NewSettlement builds a validated pending settlement. The ID and
// timestamps are assigned by the store on create.
func NewSettlement(groupID, from, to string, amount float64) (*Settlement, error) {
	if from == to {
		return nil, ErrSelfSettlement
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &Settlement{
		GroupID: groupID,
		From:    from,
		To:      to,
		Amount:  amount,
		Status:  StatusPending,
	}, nil
}

func transitionError(from, to SettlementStatus) error {
	return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidStateTransition, from, to)
}

// MarkPaid records that the payer claims to have paid, moving the
// settlement to paid and storing the optional external reference.
// Re-invoking while already paid refreshes the reference and timestamp.
// Terminal states refuse the transition.
func (s *Settlement) MarkPaid(transactionID string) error {
	if s.Status != StatusPending && s.Status != StatusPaid {
		return transitionError(s.Status, StatusPaid)
	}
	now := time.Now()
	s.Status = StatusPaid
	s.PaidAt = &now
	if transactionID != "" {
		s.UPITransactionID = transactionID
	}
	return nil
}

// Confirm records that the payee acknowledges receipt, moving the
// settlement to its terminal confirmed state. Only valid from paid:
// a pending settlement has not been paid yet, and terminal states admit
// no further transitions. Confirmation is the point at which the amount
// starts counting toward balances.
func (s *Settlement) Confirm() error {
	if s.Status != StatusPaid {
		return transitionError(s.Status, StatusConfirmed)
	}
	now := time.Now()
	s.Status = StatusConfirmed
	s.ConfirmedAt = &now
	return nil
}

// Reject records that the payee disputes the payment, clearing any payment
// claim and moving the settlement to its terminal rejected state.
func (s *Settlement) Reject() error {
	if s.Status != StatusPending && s.Status != StatusPaid {
		return transitionError(s.Status, StatusRejected)
	}
	s.Status = StatusRejected
	s.PaidAt = nil
	s.UPITransactionID = ""
	return nil
}
