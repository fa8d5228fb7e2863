package calculator

import (
	"sort"

	"github.com/cleardues/cleardues/internal/models"
)

// BreakdownEntry is one counterparty bucket in a user's breakdown.
type BreakdownEntry struct {
	UserID string
	Amount float64
}

// Breakdown is the pairwise "who owes whom" view for a single member.
type Breakdown struct {
	// Owes lists counterparties this user owes money to.
	Owes []BreakdownEntry

	// OwedBy lists counterparties who owe this user money.
	OwedBy []BreakdownEntry

	// TotalOwed is the sum of Owes; TotalOwedBy the sum of OwedBy.
	TotalOwed   float64
	TotalOwedBy float64

	// NetBalance is TotalOwedBy − TotalOwed, rounded to two decimals.
	NetBalance float64
}

// UserBreakdown derives, for one member, a per-counterparty debt view plus
// totals from the group's expense and confirmed-settlement history.
//
// A confirmed settlement nets against a counterparty bucket only if prior
// expense activity already created that bucket; a settlement with no
// matching bucket is silently not reflected here. GroupBalances remains
// the authoritative source of net balances.
//
// Buckets whose amount falls to the 0.01 tolerance or below are discarded
// as rounding noise. Entries are sorted by counterparty id so the output
// is stable.
func UserBreakdown(expenses []models.Expense, settlements []models.Settlement, userID string) Breakdown {
	owes := make(map[string]float64)   // counterparty -> amount this user owes them
	owedBy := make(map[string]float64) // counterparty -> amount they owe this user

	for _, expense := range expenses {
		if expense.Deleted {
			continue
		}
		for _, split := range expense.Splits {
			if expense.PaidBy == userID && split.UserID != userID {
				owedBy[split.UserID] += split.Amount
			} else if split.UserID == userID && expense.PaidBy != userID {
				owes[expense.PaidBy] += split.Amount
			}
		}
	}

	for _, settlement := range settlements {
		if settlement.Status != models.StatusConfirmed {
			continue
		}
		if settlement.From == userID {
			if _, ok := owes[settlement.To]; ok {
				owes[settlement.To] -= settlement.Amount
			}
		} else if settlement.To == userID {
			if _, ok := owedBy[settlement.From]; ok {
				owedBy[settlement.From] -= settlement.Amount
			}
		}
	}

	b := Breakdown{
		Owes:   collectEntries(owes),
		OwedBy: collectEntries(owedBy),
	}
	for _, e := range b.Owes {
		b.TotalOwed += e.Amount
	}
	for _, e := range b.OwedBy {
		b.TotalOwedBy += e.Amount
	}
	b.TotalOwed = round2(b.TotalOwed)
	b.TotalOwedBy = round2(b.TotalOwedBy)
	b.NetBalance = round2(b.TotalOwedBy - b.TotalOwed)
	return b
}

// collectEntries drops buckets at or below tolerance and returns the rest
// rounded, sorted by counterparty id.
func collectEntries(buckets map[string]float64) []BreakdownEntry {
	entries := make([]BreakdownEntry, 0, len(buckets))
	for id, amount := range buckets {
		if amount > epsilon {
			entries = append(entries, BreakdownEntry{UserID: id, Amount: round2(amount)})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}
