package calculator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cleardues/cleardues/internal/models"
)

func expense(paidBy string, amount float64, splits ...models.Split) models.Expense {
	return models.Expense{
		GroupID:   "g1",
		Amount:    amount,
		PaidBy:    paidBy,
		SplitType: models.SplitEqual,
		Splits:    splits,
	}
}

func TestGroupBalances(t *testing.T) {
	// Alice pays 90 split equally among the three of them.
	expenses := []models.Expense{
		expense("alice", 90,
			models.Split{UserID: "alice", Amount: 30},
			models.Split{UserID: "bob", Amount: 30},
			models.Split{UserID: "carol", Amount: 30},
		),
	}

	balances := GroupBalances(expenses, nil)

	want := map[string]float64{"alice": 60, "bob": -30, "carol": -30}
	for userID, wantBalance := range want {
		if math.Abs(balances[userID]-wantBalance) > 0.001 {
			t.Errorf("balance[%s] = %v, want %v", userID, balances[userID], wantBalance)
		}
	}
}

func TestGroupBalancesIgnoresDeletedExpenses(t *testing.T) {
	deleted := expense("alice", 50,
		models.Split{UserID: "alice", Amount: 25},
		models.Split{UserID: "bob", Amount: 25},
	)
	deleted.Deleted = true

	balances := GroupBalances([]models.Expense{deleted}, nil)
	for userID, balance := range balances {
		if balance != 0 {
			t.Errorf("balance[%s] = %v, want 0 (expense is deleted)", userID, balance)
		}
	}
}

func TestGroupBalancesSettlementStatuses(t *testing.T) {
	expenses := []models.Expense{
		expense("alice", 90,
			models.Split{UserID: "alice", Amount: 30},
			models.Split{UserID: "bob", Amount: 30},
			models.Split{UserID: "carol", Amount: 30},
		),
	}

	tests := []struct {
		status      models.SettlementStatus
		wantBob     float64
		wantAlice   float64
		description string
	}{
		{models.StatusPending, -30, 60, "pending settlement has no ledger effect"},
		{models.StatusPaid, -30, 60, "paid but unconfirmed settlement has no ledger effect"},
		{models.StatusRejected, -30, 60, "rejected settlement has no ledger effect"},
		{models.StatusConfirmed, 0, 30, "confirmed settlement moves both balances"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			settlements := []models.Settlement{
				{GroupID: "g1", From: "bob", To: "alice", Amount: 30, Status: tt.status},
			}
			balances := GroupBalances(expenses, settlements)
			if math.Abs(balances["bob"]-tt.wantBob) > 0.001 {
				t.Errorf("balance[bob] = %v, want %v", balances["bob"], tt.wantBob)
			}
			if math.Abs(balances["alice"]-tt.wantAlice) > 0.001 {
				t.Errorf("balance[alice] = %v, want %v", balances["alice"], tt.wantAlice)
			}
		})
	}
}

func TestGroupBalancesLifecycleFeedback(t *testing.T) {
	expenses := []models.Expense{
		expense("alice", 60,
			models.Split{UserID: "alice", Amount: 30},
			models.Split{UserID: "bob", Amount: 30},
		),
	}
	settlement, err := models.NewSettlement("g1", "bob", "alice", 30)
	if err != nil {
		t.Fatal(err)
	}

	// Pending: no effect.
	balances := GroupBalances(expenses, []models.Settlement{*settlement})
	if math.Abs(balances["bob"]-(-30)) > 0.001 {
		t.Errorf("pending: balance[bob] = %v, want -30", balances["bob"])
	}

	// Paid: still no effect.
	if err := settlement.MarkPaid("upi-txn-1"); err != nil {
		t.Fatal(err)
	}
	balances = GroupBalances(expenses, []models.Settlement{*settlement})
	if math.Abs(balances["bob"]-(-30)) > 0.001 {
		t.Errorf("paid: balance[bob] = %v, want -30", balances["bob"])
	}

	// Confirmed: the amount finally lands in the ledger.
	if err := settlement.Confirm(); err != nil {
		t.Fatal(err)
	}
	balances = GroupBalances(expenses, []models.Settlement{*settlement})
	if math.Abs(balances["bob"]) > 0.001 {
		t.Errorf("confirmed: balance[bob] = %v, want 0", balances["bob"])
	}
	if math.Abs(balances["alice"]) > 0.001 {
		t.Errorf("confirmed: balance[alice] = %v, want 0", balances["alice"])
	}
}

func TestGroupBalancesConservation(t *testing.T) {
	// Every expense credit is matched by equal debits and every settlement
	// moves credit and debit symmetrically, so balances always sum to zero
	// no matter the history.
	rng := rand.New(rand.NewSource(7))
	members := []string{"a", "b", "c", "d", "e"}

	for trial := 0; trial < 200; trial++ {
		var expenses []models.Expense
		var settlements []models.Settlement

		for i := 0; i < 1+rng.Intn(10); i++ {
			amount := round2(1 + rng.Float64()*500)
			n := 1 + rng.Intn(len(members))
			participants := append([]string(nil), members[:n]...)
			reqs := requests(participants...)
			splits, err := ComputeSplits(amount, models.SplitEqual, reqs)
			if err != nil {
				t.Fatal(err)
			}
			e := expense(members[rng.Intn(len(members))], amount, splits...)
			e.Deleted = rng.Intn(4) == 0
			expenses = append(expenses, e)
		}

		statuses := []models.SettlementStatus{
			models.StatusPending, models.StatusPaid,
			models.StatusConfirmed, models.StatusRejected,
		}
		for i := 0; i < rng.Intn(6); i++ {
			from := members[rng.Intn(len(members))]
			to := members[rng.Intn(len(members))]
			if from == to {
				continue
			}
			settlements = append(settlements, models.Settlement{
				GroupID: "g1",
				From:    from,
				To:      to,
				Amount:  round2(1 + rng.Float64()*100),
				Status:  statuses[rng.Intn(len(statuses))],
			})
		}

		balances := GroupBalances(expenses, settlements)
		var sum float64
		for _, b := range balances {
			sum += b
		}
		if math.Abs(sum) > 0.01 {
			t.Fatalf("trial %d: balances sum to %v, want 0 (balances: %v)", trial, sum, balances)
		}
	}
}
