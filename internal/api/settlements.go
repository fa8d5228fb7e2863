package api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cleardues/cleardues/internal/calculator"
	"github.com/cleardues/cleardues/internal/models"
	"github.com/cleardues/cleardues/internal/upi"
)

type settlementView struct {
	ID               string     `json:"id"`
	GroupID          string     `json:"groupId"`
	From             string     `json:"from"`
	To               string     `json:"to"`
	Amount           float64    `json:"amount"`
	Status           string     `json:"status"`
	UPITransactionID string     `json:"upiTransactionId,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	PaidAt           *time.Time `json:"paidAt,omitempty"`
	ConfirmedAt      *time.Time `json:"confirmedAt,omitempty"`
	CreatedAt        int64      `json:"createdAt"`
	UpdatedAt        int64      `json:"updatedAt"`
}

func viewSettlement(st *models.Settlement) settlementView {
	return settlementView{
		ID:               st.ID,
		GroupID:          st.GroupID,
		From:             st.From,
		To:               st.To,
		Amount:           st.Amount,
		Status:           string(st.Status),
		UPITransactionID: st.UPITransactionID,
		Notes:            st.Notes,
		PaidAt:           st.PaidAt,
		ConfirmedAt:      st.ConfirmedAt,
		CreatedAt:        st.CreatedAt,
		UpdatedAt:        st.UpdatedAt,
	}
}

func viewSettlements(sts []models.Settlement) []settlementView {
	views := make([]settlementView, 0, len(sts))
	for i := range sts {
		views = append(views, viewSettlement(&sts[i]))
	}
	return views
}

type breakdownEntryView struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`
}

type breakdownView struct {
	Owes        []breakdownEntryView `json:"owes"`
	OwedBy      []breakdownEntryView `json:"owedBy"`
	TotalOwed   float64              `json:"totalOwed"`
	TotalOwedBy float64              `json:"totalOwedBy"`
	NetBalance  float64              `json:"netBalance"`
}

func viewBreakdown(b calculator.Breakdown) breakdownView {
	view := breakdownView{
		Owes:        make([]breakdownEntryView, 0, len(b.Owes)),
		OwedBy:      make([]breakdownEntryView, 0, len(b.OwedBy)),
		TotalOwed:   b.TotalOwed,
		TotalOwedBy: b.TotalOwedBy,
		NetBalance:  b.NetBalance,
	}
	for _, e := range b.Owes {
		view.Owes = append(view.Owes, breakdownEntryView{UserID: e.UserID, Amount: e.Amount})
	}
	for _, e := range b.OwedBy {
		view.OwedBy = append(view.OwedBy, breakdownEntryView{UserID: e.UserID, Amount: e.Amount})
	}
	return view
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// groupLedger loads the full expense and settlement history of a group.
// The calculator functions filter deleted expenses and unconfirmed
// settlements themselves.
func (s *Server) groupLedger(ctx context.Context, groupID string) ([]models.Expense, []models.Settlement, error) {
	expenses, err := s.store.ListExpensesByGroup(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	settlements, err := s.store.ListSettlementsByGroup(ctx, groupID, "")
	if err != nil {
		return nil, nil, err
	}
	return expenses, settlements, nil
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	group, status, err := s.groupForMember(r.Context(), chi.URLParam(r, "groupId"), userID)
	if err != nil {
		respondError(w, status, err)
		return
	}

	expenses, settlements, err := s.groupLedger(r.Context(), group.ID)
	if err != nil {
		slog.Error("failed to load group ledger", "group_id", group.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to compute balances"))
		return
	}

	balances := calculator.GroupBalances(expenses, settlements)
	rounded := make(map[string]float64, len(balances))
	for memberID, balance := range balances {
		rounded[memberID] = round2(balance)
	}

	breakdown := calculator.UserBreakdown(expenses, settlements, userID)

	respond(w, http.StatusOK, map[string]any{
		"balances":  rounded,
		"breakdown": viewBreakdown(breakdown),
	})
}

type suggestionView struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Amount   float64 `json:"amount"`
	ToHasUPI bool    `json:"toHasUpi"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	group, status, err := s.groupForMember(r.Context(), chi.URLParam(r, "groupId"), userID)
	if err != nil {
		respondError(w, status, err)
		return
	}

	expenses, settlements, err := s.groupLedger(r.Context(), group.ID)
	if err != nil {
		slog.Error("failed to load group ledger", "group_id", group.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to suggest settlements"))
		return
	}

	transfers := calculator.MinimizeSettlements(calculator.GroupBalances(expenses, settlements))

	suggestions := make([]suggestionView, 0, len(transfers))
	for _, t := range transfers {
		payee, err := s.store.GetUserByID(r.Context(), t.To)
		suggestions = append(suggestions, suggestionView{
			From:     t.From,
			To:       t.To,
			Amount:   t.Amount,
			ToHasUPI: err == nil && payee != nil && payee.UPIID != "",
		})
	}

	respond(w, http.StatusOK, suggestions)
}

func (s *Server) handleCreateSettlement(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	var req struct {
		GroupID string  `json:"groupId"`
		To      string  `json:"to"`
		Amount  float64 `json:"amount"`
		Notes   string  `json:"notes"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequest)
		return
	}

	group, status, err := s.groupForMember(r.Context(), req.GroupID, userID)
	if err != nil {
		respondError(w, status, err)
		return
	}
	if !group.IsMember(req.To) {
		respondError(w, http.StatusBadRequest, errors.New("payee is not a member of this group"))
		return
	}

	settlement, err := models.NewSettlement(group.ID, userID, req.To, req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	settlement.Notes = req.Notes

	if err := s.store.CreateSettlement(r.Context(), settlement); err != nil {
		slog.Error("failed to create settlement", "group_id", group.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to create settlement"))
		return
	}

	respondMessage(w, http.StatusCreated, "settlement created", viewSettlement(settlement))
}

// settlementForParty loads a settlement and checks the caller is its payer
// or payee. On failure it returns the HTTP status and error to respond with.
func (s *Server) settlementForParty(r *http.Request, userID string) (*models.Settlement, int, error) {
	settlement, err := s.store.GetSettlement(r.Context(), chi.URLParam(r, "id"))
	if err != nil || settlement == nil {
		return nil, http.StatusNotFound, errors.New("settlement not found")
	}
	if settlement.From != userID && settlement.To != userID {
		return nil, http.StatusForbidden, errors.New("you are not a party to this settlement")
	}
	return settlement, 0, nil
}

func (s *Server) handleUPILink(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	settlement, status, err := s.settlementForParty(r, userID)
	if err != nil {
		respondError(w, status, err)
		return
	}
	if settlement.From != userID {
		respondError(w, http.StatusForbidden, errors.New("only the payer can request a payment link"))
		return
	}
	if settlement.Status == models.StatusConfirmed || settlement.Status == models.StatusRejected {
		respondError(w, http.StatusBadRequest, errors.New("settlement is already closed"))
		return
	}

	payee, err := s.store.GetUserByID(r.Context(), settlement.To)
	if err != nil || payee == nil {
		respondError(w, http.StatusNotFound, errors.New("payee not found"))
		return
	}

	link, err := upi.DeepLink(payee.UPIID, payee.Name, settlement.Amount, settlement.Notes)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	respond(w, http.StatusOK, map[string]string{
		"link":  link,
		"upiId": payee.UPIID,
	})
}

// transition applies fn to the settlement and persists the result,
// translating domain errors into HTTP responses.
func (s *Server) transition(w http.ResponseWriter, r *http.Request, settlement *models.Settlement, message string, fn func() error) {
	if err := fn(); err != nil {
		if errors.Is(err, models.ErrInvalidStateTransition) {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	if err := s.store.UpdateSettlement(r.Context(), settlement); err != nil {
		slog.Error("failed to update settlement", "settlement_id", settlement.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to update settlement"))
		return
	}

	respondMessage(w, http.StatusOK, message, viewSettlement(settlement))
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	settlement, status, err := s.settlementForParty(r, userID)
	if err != nil {
		respondError(w, status, err)
		return
	}
	if settlement.From != userID {
		respondError(w, http.StatusForbidden, errors.New("only the payer can mark a settlement paid"))
		return
	}

	var req struct {
		UPITransactionID string `json:"upiTransactionId"`
	}
	// The body is optional; a missing or empty body just means no
	// external payment reference.
	_ = decode(r, &req)

	s.transition(w, r, settlement, "marked as paid", func() error {
		return settlement.MarkPaid(req.UPITransactionID)
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	settlement, status, err := s.settlementForParty(r, userID)
	if err != nil {
		respondError(w, status, err)
		return
	}
	if settlement.To != userID {
		respondError(w, http.StatusForbidden, errors.New("only the payee can confirm a settlement"))
		return
	}

	s.transition(w, r, settlement, "settlement confirmed", settlement.Confirm)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	settlement, status, err := s.settlementForParty(r, userID)
	if err != nil {
		respondError(w, status, err)
		return
	}
	if settlement.To != userID {
		respondError(w, http.StatusForbidden, errors.New("only the payee can reject a settlement"))
		return
	}

	s.transition(w, r, settlement, "settlement rejected", settlement.Reject)
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	group, status, err := s.groupForMember(r.Context(), chi.URLParam(r, "groupId"), userID)
	if err != nil {
		respondError(w, status, err)
		return
	}

	filter := models.SettlementStatus(r.URL.Query().Get("status"))
	if filter != "" && !filter.Valid() {
		respondError(w, http.StatusBadRequest, errors.New("unknown settlement status"))
		return
	}

	settlements, err := s.store.ListSettlementsByGroup(r.Context(), group.ID, filter)
	if err != nil {
		slog.Error("failed to list settlements", "group_id", group.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to list settlements"))
		return
	}

	respond(w, http.StatusOK, viewSettlements(settlements))
}

func (s *Server) handleMyPending(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	settlements, err := s.store.ListPendingSettlementsFrom(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list pending settlements", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to list settlements"))
		return
	}

	respond(w, http.StatusOK, viewSettlements(settlements))
}

func (s *Server) handleMyToConfirm(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	settlements, err := s.store.ListSettlementsToConfirm(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list settlements to confirm", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to list settlements"))
		return
	}

	respond(w, http.StatusOK, viewSettlements(settlements))
}

type dashboardGroupView struct {
	GroupID    string  `json:"groupId"`
	GroupName  string  `json:"groupName"`
	NetBalance float64 `json:"netBalance"`
}

type dashboardView struct {
	TotalOwed      float64              `json:"totalOwed"`
	TotalOwedBy    float64              `json:"totalOwedBy"`
	NetBalance     float64              `json:"netBalance"`
	Groups         []dashboardGroupView `json:"groups"`
	PendingCount   int                  `json:"pendingCount"`
	ToConfirmCount int                  `json:"toConfirmCount"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	groups, err := s.store.ListGroupsByMember(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list groups", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to load dashboard"))
		return
	}

	view := dashboardView{Groups: make([]dashboardGroupView, 0, len(groups))}
	for _, group := range groups {
		expenses, settlements, err := s.groupLedger(r.Context(), group.ID)
		if err != nil {
			slog.Error("failed to load group ledger", "group_id", group.ID, "error", err)
			respondError(w, http.StatusInternalServerError, errors.New("failed to load dashboard"))
			return
		}

		breakdown := calculator.UserBreakdown(expenses, settlements, userID)
		view.TotalOwed += breakdown.TotalOwed
		view.TotalOwedBy += breakdown.TotalOwedBy
		view.Groups = append(view.Groups, dashboardGroupView{
			GroupID:    group.ID,
			GroupName:  group.Name,
			NetBalance: breakdown.NetBalance,
		})
	}
	view.TotalOwed = round2(view.TotalOwed)
	view.TotalOwedBy = round2(view.TotalOwedBy)
	view.NetBalance = round2(view.TotalOwedBy - view.TotalOwed)

	pending, toConfirm, err := s.store.CountOpenSettlements(r.Context(), userID)
	if err != nil {
		slog.Error("failed to count open settlements", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to load dashboard"))
		return
	}
	view.PendingCount = pending
	view.ToConfirmCount = toConfirm

	respond(w, http.StatusOK, view)
}
