package calculator

import (
	"math"
	"sort"
)

// Transfer is a suggested payment that helps zero out group balances.
// It carries no identity and is never persisted; balances may move before
// a caller acts on it, so suggestions must be re-derived before creating
// a settlement from one.
type Transfer struct {
	From   string
	To     string
	Amount float64
}

// party is a member with an outstanding absolute amount.
type party struct {
	userID string
	amount float64
}

// MinimizeSettlements computes a small set of transfers that discharges
// all balances, using greedy largest-debtor-to-largest-creditor matching.
// The result is a heuristic, not a provably minimal solution, but it never
// exceeds one fewer transfer than the number of members with a nonzero
// balance, and it fully clears every balance modulo sub-tolerance rounding
// residue.
//
// Ties on amount are broken by member id so identical inputs always yield
// the identical ordered transfer list.
func MinimizeSettlements(balances map[string]float64) []Transfer {
	var creditors, debtors []party
	for userID, balance := range balances {
		rounded := round2(balance)
		if rounded > epsilon {
			creditors = append(creditors, party{userID, rounded})
		} else if rounded < -epsilon {
			debtors = append(debtors, party{userID, -rounded})
		}
	}

	byAmountDesc := func(parties []party) func(i, j int) bool {
		return func(i, j int) bool {
			if parties[i].amount != parties[j].amount {
				return parties[i].amount > parties[j].amount
			}
			return parties[i].userID < parties[j].userID
		}
	}
	sort.Slice(creditors, byAmountDesc(creditors))
	sort.Slice(debtors, byAmountDesc(debtors))

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		amount := math.Min(debtor.amount, creditor.amount)
		if rounded := round2(amount); rounded > 0 {
			transfers = append(transfers, Transfer{
				From:   debtor.userID,
				To:     creditor.userID,
				Amount: rounded,
			})
		}

		debtor.amount -= amount
		creditor.amount -= amount

		// Anything left below tolerance is rounding residue; drop the party.
		if debtor.amount < epsilon {
			i++
		}
		if creditor.amount < epsilon {
			j++
		}
	}

	return transfers
}
