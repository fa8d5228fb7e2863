package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/cleardues/cleardues/internal/auth"
	"github.com/cleardues/cleardues/internal/storage/sqlite"
)

type testEnv struct {
	t       *testing.T
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jwt := auth.NewJWTManager("test-secret-key-for-tests", time.Hour)
	server := NewServer(store, auth.NewPasswordAuthenticator(store), jwt)
	return &testEnv{t: t, handler: server.Handler()}
}

// do issues a request against the router and returns the recorder plus the
// decoded response envelope.
func (e *testEnv) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		e.t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

// data re-marshals the envelope's Data field into out.
func (e *testEnv) data(env envelope, out any) {
	e.t.Helper()
	raw, err := json.Marshal(env.Data)
	if err != nil {
		e.t.Fatalf("failed to marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		e.t.Fatalf("failed to unmarshal data: %v", err)
	}
}

func (e *testEnv) register(name, email string) (token, userID string) {
	e.t.Helper()

	rec, env := e.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "correct-horse",
	})
	if rec.Code != http.StatusCreated {
		e.t.Fatalf("register %s: got status %d, want %d", email, rec.Code, http.StatusCreated)
	}

	var resp authResponse
	e.data(env, &resp)
	return resp.Token, resp.User.ID
}

func (e *testEnv) createGroup(token, name string) groupView {
	e.t.Helper()

	rec, env := e.do(http.MethodPost, "/api/groups/", token, map[string]string{"name": name})
	if rec.Code != http.StatusCreated {
		e.t.Fatalf("create group: got status %d, body %s", rec.Code, rec.Body.String())
	}

	var group groupView
	e.data(env, &group)
	return group
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	token, _ := env.register("Asha", "asha@example.com")

	t.Run("duplicate email rejected", func(t *testing.T) {
		rec, _ := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
			"name": "Asha Again", "email": "asha@example.com", "password": "correct-horse",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("weak password rejected", func(t *testing.T) {
		rec, _ := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
			"name": "Bo", "email": "bo@example.com", "password": "short",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		rec, _ := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "asha@example.com", "password": "wrong-password",
		})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("login returns token", func(t *testing.T) {
		rec, env2 := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "asha@example.com", "password": "correct-horse",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
		}
		var resp authResponse
		env.data(env2, &resp)
		if resp.Token == "" {
			t.Error("expected a token in the login response")
		}
		if resp.User.Email != "asha@example.com" {
			t.Errorf("got email %q", resp.User.Email)
		}
	})

	t.Run("me requires auth", func(t *testing.T) {
		rec, _ := env.do(http.MethodGet, "/api/users/me", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("me returns profile", func(t *testing.T) {
		rec, env2 := env.do(http.MethodGet, "/api/users/me", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
		}
		var user userView
		env.data(env2, &user)
		if user.Name != "Asha" {
			t.Errorf("got name %q, want Asha", user.Name)
		}
	})

	t.Run("update upi validates format", func(t *testing.T) {
		rec, _ := env.do(http.MethodPut, "/api/users/me/upi", token, map[string]string{"upiId": "not-a-vpa"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
		}

		rec, _ = env.do(http.MethodPut, "/api/users/me/upi", token, map[string]string{"upiId": "asha@bank"})
		if rec.Code != http.StatusOK {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

func TestGroupLifecycle(t *testing.T) {
	env := newTestEnv(t)

	adminToken, adminID := env.register("Asha", "asha@example.com")
	memberToken, memberID := env.register("Bo", "bo@example.com")
	outsiderToken, _ := env.register("Chen", "chen@example.com")

	group := env.createGroup(adminToken, "Flatmates")
	if group.InviteCode == "" {
		t.Fatal("expected an invite code on the new group")
	}
	if group.CreatedBy != adminID {
		t.Errorf("got creator %q, want %q", group.CreatedBy, adminID)
	}

	t.Run("join by invite code", func(t *testing.T) {
		rec, _ := env.do(http.MethodPost, "/api/groups/join/"+group.InviteCode, memberToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}

		rec, _ = env.do(http.MethodPost, "/api/groups/join/"+group.InviteCode, memberToken, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("rejoining: got status %d, want %d", rec.Code, http.StatusBadRequest)
		}

		rec, _ = env.do(http.MethodPost, "/api/groups/join/NOPE1234", outsiderToken, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("bad code: got status %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("non-member cannot view group", func(t *testing.T) {
		rec, _ := env.do(http.MethodGet, "/api/groups/"+group.ID, outsiderToken, nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("add member by email", func(t *testing.T) {
		rec, env2 := env.do(http.MethodPost, "/api/groups/"+group.ID+"/members", adminToken, map[string]string{
			"email": "chen@example.com",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
		var updated groupView
		env.data(env2, &updated)
		if len(updated.Members) != 3 {
			t.Errorf("got %d members, want 3", len(updated.Members))
		}

		rec, _ = env.do(http.MethodPost, "/api/groups/"+group.ID+"/members", adminToken, map[string]string{
			"email": "nobody@example.com",
		})
		if rec.Code != http.StatusNotFound {
			t.Errorf("unknown email: got status %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("only admin removes others", func(t *testing.T) {
		rec, _ := env.do(http.MethodDelete, "/api/groups/"+group.ID+"/members/"+adminID, memberToken, nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusForbidden)
		}

		// The admin cannot be removed even by themselves.
		rec, _ = env.do(http.MethodDelete, "/api/groups/"+group.ID+"/members/"+adminID, adminToken, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
		}

		rec, _ = env.do(http.MethodDelete, "/api/groups/"+group.ID+"/members/"+memberID, adminToken, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("got status %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("deactivation is admin only and hides the group", func(t *testing.T) {
		rec, _ := env.do(http.MethodDelete, "/api/groups/"+group.ID, outsiderToken, nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusForbidden)
		}

		rec, _ = env.do(http.MethodDelete, "/api/groups/"+group.ID, adminToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}

		rec, env2 := env.do(http.MethodGet, "/api/groups/", adminToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d", rec.Code)
		}
		var groups []groupView
		env.data(env2, &groups)
		if len(groups) != 0 {
			t.Errorf("got %d groups after deactivation, want 0", len(groups))
		}
	})
}

// seedTrip registers three users, puts them in one group, and records a 90
// expense paid by the first and split equally, leaving balances
// {a: +60, b: -30, c: -30}.
func seedTrip(t *testing.T, env *testEnv) (tokens [3]string, ids [3]string, group groupView) {
	t.Helper()

	tokens[0], ids[0] = env.register("Asha", "asha@example.com")
	tokens[1], ids[1] = env.register("Bo", "bo@example.com")
	tokens[2], ids[2] = env.register("Chen", "chen@example.com")

	group = env.createGroup(tokens[0], "Goa Trip")
	for _, tok := range tokens[1:] {
		rec, _ := env.do(http.MethodPost, "/api/groups/join/"+group.InviteCode, tok, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("join failed: %d", rec.Code)
		}
	}

	rec, _ := env.do(http.MethodPost, "/api/expenses/", tokens[0], map[string]any{
		"groupId":     group.ID,
		"description": "Dinner",
		"amount":      90.0,
		"splitType":   "equal",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense failed: %d, body %s", rec.Code, rec.Body.String())
	}
	return tokens, ids, group
}

func TestExpensesAndBalances(t *testing.T) {
	env := newTestEnv(t)
	tokens, ids, group := seedTrip(t, env)

	t.Run("equal split covers the whole group", func(t *testing.T) {
		rec, env2 := env.do(http.MethodGet, "/api/expenses/group/"+group.ID, tokens[1], nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d", rec.Code)
		}
		var expenses []expenseView
		env.data(env2, &expenses)
		if len(expenses) != 1 {
			t.Fatalf("got %d expenses, want 1", len(expenses))
		}
		if len(expenses[0].Splits) != 3 {
			t.Errorf("got %d splits, want 3", len(expenses[0].Splits))
		}
	})

	t.Run("balances", func(t *testing.T) {
		rec, env2 := env.do(http.MethodGet, "/api/settlements/balances/"+group.ID, tokens[1], nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Balances  map[string]float64 `json:"balances"`
			Breakdown breakdownView      `json:"breakdown"`
		}
		env.data(env2, &resp)

		want := map[string]float64{ids[0]: 60, ids[1]: -30, ids[2]: -30}
		for userID, wantBalance := range want {
			if got := resp.Balances[userID]; math.Abs(got-wantBalance) > 0.01 {
				t.Errorf("balance[%s] = %.2f, want %.2f", userID, got, wantBalance)
			}
		}
		if math.Abs(resp.Breakdown.NetBalance+30) > 0.01 {
			t.Errorf("caller net balance = %.2f, want -30", resp.Breakdown.NetBalance)
		}
		if len(resp.Breakdown.Owes) != 1 || resp.Breakdown.Owes[0].UserID != ids[0] {
			t.Errorf("unexpected owes buckets: %+v", resp.Breakdown.Owes)
		}
	})

	t.Run("suggestions clear all debt", func(t *testing.T) {
		rec, env2 := env.do(http.MethodGet, "/api/settlements/suggest/"+group.ID, tokens[0], nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d", rec.Code)
		}
		var suggestions []suggestionView
		env.data(env2, &suggestions)
		if len(suggestions) != 2 {
			t.Fatalf("got %d suggestions, want 2: %+v", len(suggestions), suggestions)
		}
		var total float64
		for _, sug := range suggestions {
			if sug.To != ids[0] {
				t.Errorf("suggestion pays %s, want %s", sug.To, ids[0])
			}
			total += sug.Amount
		}
		if math.Abs(total-60) > 0.01 {
			t.Errorf("suggestions total %.2f, want 60", total)
		}
	})

	t.Run("unequal split must sum to the total", func(t *testing.T) {
		rec, _ := env.do(http.MethodPost, "/api/expenses/", tokens[0], map[string]any{
			"groupId":     group.ID,
			"description": "Cab",
			"amount":      50.0,
			"splitType":   "unequal",
			"splits": []map[string]any{
				{"userId": ids[0], "amount": 20.0},
				{"userId": ids[1], "amount": 20.0},
			},
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("outsiders cannot record expenses", func(t *testing.T) {
		outsiderToken, _ := env.register("Dev", "dev@example.com")
		rec, _ := env.do(http.MethodPost, "/api/expenses/", outsiderToken, map[string]any{
			"groupId":     group.ID,
			"description": "Sneaky",
			"amount":      10.0,
			"splitType":   "equal",
		})
		if rec.Code != http.StatusForbidden {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("deleted expenses leave balances", func(t *testing.T) {
		rec, env2 := env.do(http.MethodPost, "/api/expenses/", tokens[2], map[string]any{
			"groupId":     group.ID,
			"description": "Snacks",
			"amount":      30.0,
			"splitType":   "equal",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("got status %d", rec.Code)
		}
		var created expenseView
		env.data(env2, &created)

		rec, _ = env.do(http.MethodDelete, "/api/expenses/"+created.ID, tokens[2], nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("delete: got status %d", rec.Code)
		}

		rec, env2 = env.do(http.MethodGet, "/api/settlements/balances/"+group.ID, tokens[0], nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d", rec.Code)
		}
		var resp struct {
			Balances map[string]float64 `json:"balances"`
		}
		env.data(env2, &resp)
		if got := resp.Balances[ids[0]]; math.Abs(got-60) > 0.01 {
			t.Errorf("balance[%s] = %.2f, want 60 after delete", ids[0], got)
		}
	})
}

func TestSettlementWorkflow(t *testing.T) {
	env := newTestEnv(t)
	tokens, ids, group := seedTrip(t, env)

	// Payee sets up UPI so a link can be generated.
	rec, _ := env.do(http.MethodPut, "/api/users/me/upi", tokens[0], map[string]string{"upiId": "asha@bank"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set upi: got status %d", rec.Code)
	}

	rec, env2 := env.do(http.MethodPost, "/api/settlements/", tokens[1], map[string]any{
		"groupId": group.ID,
		"to":      ids[0],
		"amount":  30.0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create settlement: got status %d, body %s", rec.Code, rec.Body.String())
	}
	var settlement settlementView
	env.data(env2, &settlement)
	if settlement.Status != "pending" {
		t.Fatalf("new settlement status %q, want pending", settlement.Status)
	}

	t.Run("self settlement rejected", func(t *testing.T) {
		rec, _ := env.do(http.MethodPost, "/api/settlements/", tokens[1], map[string]any{
			"groupId": group.ID, "to": ids[1], "amount": 10.0,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("upi link is payer only", func(t *testing.T) {
		rec, _ := env.do(http.MethodGet, "/api/settlements/"+settlement.ID+"/upi-link", tokens[0], nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("payee got status %d, want %d", rec.Code, http.StatusForbidden)
		}

		rec, env2 := env.do(http.MethodGet, "/api/settlements/"+settlement.ID+"/upi-link", tokens[1], nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("payer got status %d, body %s", rec.Code, rec.Body.String())
		}
		var resp map[string]string
		env.data(env2, &resp)
		if resp["upiId"] != "asha@bank" {
			t.Errorf("got upiId %q, want asha@bank", resp["upiId"])
		}
	})

	t.Run("confirm before payment fails", func(t *testing.T) {
		rec, _ := env.do(http.MethodPost, "/api/settlements/"+settlement.ID+"/confirm", tokens[0], nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("only the payer marks paid", func(t *testing.T) {
		rec, _ := env.do(http.MethodPost, "/api/settlements/"+settlement.ID+"/pay", tokens[0], nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusForbidden)
		}

		rec, env2 := env.do(http.MethodPost, "/api/settlements/"+settlement.ID+"/pay", tokens[1], map[string]string{
			"upiTransactionId": "TXN123",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
		var paid settlementView
		env.data(env2, &paid)
		if paid.Status != "paid" || paid.UPITransactionID != "TXN123" || paid.PaidAt == nil {
			t.Errorf("unexpected paid view: %+v", paid)
		}
	})

	t.Run("payee appears in my to-confirm", func(t *testing.T) {
		rec, env2 := env.do(http.MethodGet, "/api/settlements/my/to-confirm", tokens[0], nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d", rec.Code)
		}
		var toConfirm []settlementView
		env.data(env2, &toConfirm)
		if len(toConfirm) != 1 || toConfirm[0].ID != settlement.ID {
			t.Errorf("unexpected to-confirm list: %+v", toConfirm)
		}
	})

	t.Run("only the payee confirms", func(t *testing.T) {
		rec, _ := env.do(http.MethodPost, "/api/settlements/"+settlement.ID+"/confirm", tokens[1], nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusForbidden)
		}

		rec, env2 := env.do(http.MethodPost, "/api/settlements/"+settlement.ID+"/confirm", tokens[0], nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
		var confirmed settlementView
		env.data(env2, &confirmed)
		if confirmed.Status != "confirmed" || confirmed.ConfirmedAt == nil {
			t.Errorf("unexpected confirmed view: %+v", confirmed)
		}
	})

	t.Run("confirmed settlement moves balances", func(t *testing.T) {
		rec, env2 := env.do(http.MethodGet, "/api/settlements/balances/"+group.ID, tokens[1], nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d", rec.Code)
		}
		var resp struct {
			Balances map[string]float64 `json:"balances"`
		}
		env.data(env2, &resp)
		if got := resp.Balances[ids[1]]; math.Abs(got) > 0.01 {
			t.Errorf("payer balance %.2f after confirmation, want 0", got)
		}
		if got := resp.Balances[ids[0]]; math.Abs(got-30) > 0.01 {
			t.Errorf("payee balance %.2f after confirmation, want 30", got)
		}
	})

	t.Run("terminal states refuse further transitions", func(t *testing.T) {
		rec, _ := env.do(http.MethodPost, "/api/settlements/"+settlement.ID+"/reject", tokens[0], nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("rejection clears the payment claim", func(t *testing.T) {
		_, env2 := env.do(http.MethodPost, "/api/settlements/", tokens[2], map[string]any{
			"groupId": group.ID, "to": ids[0], "amount": 30.0,
		})
		var second settlementView
		env.data(env2, &second)

		rec, _ := env.do(http.MethodPost, "/api/settlements/"+second.ID+"/pay", tokens[2], nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("pay: got status %d", rec.Code)
		}

		rec, env2 = env.do(http.MethodPost, "/api/settlements/"+second.ID+"/reject", tokens[0], nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("reject: got status %d, body %s", rec.Code, rec.Body.String())
		}
		var rejected settlementView
		env.data(env2, &rejected)
		if rejected.Status != "rejected" || rejected.PaidAt != nil {
			t.Errorf("unexpected rejected view: %+v", rejected)
		}
	})

	t.Run("dashboard aggregates across groups", func(t *testing.T) {
		rec, env2 := env.do(http.MethodGet, "/api/settlements/dashboard", tokens[2], nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
		var dash dashboardView
		env.data(env2, &dash)
		if len(dash.Groups) != 1 {
			t.Fatalf("got %d dashboard groups, want 1", len(dash.Groups))
		}
		if math.Abs(dash.TotalOwed-30) > 0.01 {
			t.Errorf("total owed %.2f, want 30", dash.TotalOwed)
		}
		// Chen's settlement was rejected, so nothing is pending or
		// awaiting confirmation for them.
		if dash.PendingCount != 0 || dash.ToConfirmCount != 0 {
			t.Errorf("counts = (%d, %d), want (0, 0)", dash.PendingCount, dash.ToConfirmCount)
		}
	})
}
