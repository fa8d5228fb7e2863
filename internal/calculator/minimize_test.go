package calculator

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func TestMinimizeSettlements(t *testing.T) {
	// Alice paid 90 split three ways: bob and carol each owe her 30.
	balances := map[string]float64{"alice": 60, "bob": -30, "carol": -30}

	transfers := MinimizeSettlements(balances)

	if len(transfers) != 2 {
		t.Fatalf("got %d transfers, want 2: %v", len(transfers), transfers)
	}
	got := map[string]float64{}
	for _, tr := range transfers {
		if tr.To != "alice" {
			t.Errorf("transfer to %s, want alice", tr.To)
		}
		got[tr.From] = tr.Amount
	}
	for _, from := range []string{"bob", "carol"} {
		if math.Abs(got[from]-30) > 0.001 {
			t.Errorf("transfer from %s = %v, want 30", from, got[from])
		}
	}

	// Applying the transfers zeroes every balance.
	applied := map[string]float64{}
	for userID, b := range balances {
		applied[userID] = b
	}
	for _, tr := range transfers {
		applied[tr.From] += tr.Amount
		applied[tr.To] -= tr.Amount
	}
	for userID, b := range applied {
		if math.Abs(b) > 0.01 {
			t.Errorf("after transfers, balance[%s] = %v, want 0", userID, b)
		}
	}
}

func TestMinimizeSettlementsEmptyAndNoise(t *testing.T) {
	if got := MinimizeSettlements(nil); len(got) != 0 {
		t.Errorf("nil balances: got %v, want none", got)
	}
	if got := MinimizeSettlements(map[string]float64{"a": 0.004, "b": -0.004}); len(got) != 0 {
		t.Errorf("sub-tolerance balances: got %v, want none", got)
	}
}

func TestMinimizeSettlementsTransferBound(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	members := []string{"a", "b", "c", "d", "e", "f"}

	for trial := 0; trial < 200; trial++ {
		balances := map[string]float64{}
		var sum float64
		for _, m := range members[:1+rng.Intn(len(members)-1)] {
			b := round2(rng.Float64()*400 - 200)
			balances[m] = b
			sum += b
		}
		// Force conservation by dumping the residual on one more member.
		balances["z"] = round2(-sum)

		nonzero := 0
		for _, b := range balances {
			if math.Abs(round2(b)) > 0.01 {
				nonzero++
			}
		}

		transfers := MinimizeSettlements(balances)
		if nonzero > 0 && len(transfers) > nonzero-1 {
			t.Fatalf("trial %d: %d transfers for %d nonzero balances (bound is %d): %v",
				trial, len(transfers), nonzero, nonzero-1, transfers)
		}

		// All balances discharged modulo rounding residue.
		for _, tr := range transfers {
			balances[tr.From] += tr.Amount
			balances[tr.To] -= tr.Amount
		}
		for userID, b := range balances {
			if math.Abs(b) > 0.02 {
				t.Fatalf("trial %d: residual balance[%s] = %v", trial, userID, b)
			}
		}
	}
}

func TestMinimizeSettlementsDeterminism(t *testing.T) {
	// Equal amounts everywhere: without an id tie-break the sort order,
	// and therefore the output, would depend on map iteration order.
	balances := map[string]float64{
		"w": 25, "x": 25, "y": -25, "z": -25,
	}

	first := MinimizeSettlements(balances)
	for i := 0; i < 20; i++ {
		again := MinimizeSettlements(balances)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, first, again)
		}
	}

	want := []Transfer{
		{From: "y", To: "w", Amount: 25},
		{From: "z", To: "x", Amount: 25},
	}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("got %v, want %v", first, want)
	}
}
