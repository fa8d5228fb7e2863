package calculator

import "github.com/cleardues/cleardues/internal/models"

// GroupBalances folds a group's expense and settlement history into a net
// balance per member. Positive means the member is owed money, negative
// means they owe.
//
// For each non-deleted expense the payer is credited the full amount and
// every split owner (the payer included, if present in the splits) is
// debited their share. Only confirmed settlements move balances: the payer
// is credited and the receiver debited, symmetrically to how the debt was
// created. Pending, paid, and rejected settlements are ignored regardless
// of what the caller passes in, so an unconfirmed claim of payment can
// never alter anyone's balance.
//
// The values sum to zero across all members. They are not rounded here;
// presentation layers round to two decimals.
func GroupBalances(expenses []models.Expense, settlements []models.Settlement) map[string]float64 {
	balances := make(map[string]float64)

	for _, expense := range expenses {
		if expense.Deleted {
			continue
		}
		balances[expense.PaidBy] += expense.Amount
		for _, split := range expense.Splits {
			balances[split.UserID] -= split.Amount
		}
	}

	for _, settlement := range settlements {
		if settlement.Status != models.StatusConfirmed {
			continue
		}
		balances[settlement.From] += settlement.Amount
		balances[settlement.To] -= settlement.Amount
	}

	return balances
}
