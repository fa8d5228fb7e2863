package models

import (
	"errors"
	"fmt"
	"math"
)

// amountTolerance is the threshold below which monetary differences are
// treated as rounding noise rather than real discrepancies.
const amountTolerance = 0.01

// SplitType determines how an expense amount is divided among participants.
type SplitType string

const (
	SplitEqual      SplitType = "equal"
	SplitUnequal    SplitType = "unequal"
	SplitPercentage SplitType = "percentage"
)

// Valid reports whether t is one of the known split types.
func (t SplitType) Valid() bool {
	switch t {
	case SplitEqual, SplitUnequal, SplitPercentage:
		return true
	}
	return false
}

// Categories an expense can be tagged with.
var ExpenseCategories = []string{
	"food", "transport", "shopping", "entertainment",
	"utilities", "rent", "travel", "other",
}

// ValidCategory reports whether c is a known expense category.
func ValidCategory(c string) bool {
	for _, known := range ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}

var (
	// ErrInvalidAmount indicates a non-positive expense or settlement amount.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrSplitSumMismatch indicates splits that do not add up to the
	// expense total within tolerance.
	ErrSplitSumMismatch = errors.New("splits total must equal the expense amount")
)

// Split is one member's monetary share of an expense.
type Split struct {
	// UserID identifies the member who owes this share.
	UserID string

	// Amount is this member's share. Never negative.
	Amount float64

	// Percentage is the share as a percentage of the total, set only for
	// percentage-type splits.
	Percentage float64
}

// Expense represents a shared cost paid by one member on behalf of several.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Description is a short human-readable label.
	Description string

	// Amount is the total cost. Always positive.
	Amount float64

	// PaidBy identifies the member who fronted the money.
	PaidBy string

	// SplitType records how Splits were derived.
	SplitType SplitType

	// Splits is the ordered per-member breakdown of Amount.
	Splits []Split

	// Notes is an optional free-form note.
	Notes string

	// Category tags the expense (see ExpenseCategories).
	Category string

	// CreatedBy identifies the member who recorded the expense.
	CreatedBy string

	// Deleted marks the expense as removed. Deleted expenses are kept in
	// storage but excluded from every balance computation.
	Deleted bool

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// NewExpense builds a validated expense. Splits must already be computed
// (see the calculator package). The ID and timestamps are assigned by the
// store on create.
func NewExpense(groupID, description string, amount float64, paidBy string, splitType SplitType, splits []Split, createdBy string) (*Expense, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !splitType.Valid() {
		return nil, fmt.Errorf("invalid split type %q", splitType)
	}
	if err := ValidateSplits(amount, splits); err != nil {
		return nil, err
	}
	return &Expense{
		GroupID:     groupID,
		Description: description,
		Amount:      amount,
		PaidBy:      paidBy,
		SplitType:   splitType,
		Splits:      splits,
		Category:    "other",
		CreatedBy:   createdBy,
	}, nil
}

// ValidateSplits checks that the splits add up to the expense amount within
// tolerance and that no share is negative.
func ValidateSplits(amount float64, splits []Split) error {
	var total float64
	for _, s := range splits {
		if s.Amount < 0 {
			return fmt.Errorf("split amount for %s cannot be negative", s.UserID)
		}
		total += s.Amount
	}
	if math.Abs(total-amount) > amountTolerance {
		return fmt.Errorf("%w: splits sum to %.2f, expense is %.2f", ErrSplitSumMismatch, total, amount)
	}
	return nil
}
