package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cleardues/cleardues/internal/calculator"
	"github.com/cleardues/cleardues/internal/models"
)

type splitView struct {
	UserID     string  `json:"userId"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage,omitempty"`
}

type expenseView struct {
	ID          string      `json:"id"`
	GroupID     string      `json:"groupId"`
	Description string      `json:"description"`
	Amount      float64     `json:"amount"`
	PaidBy      string      `json:"paidBy"`
	SplitType   string      `json:"splitType"`
	Splits      []splitView `json:"splits"`
	Notes       string      `json:"notes,omitempty"`
	Category    string      `json:"category"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   int64       `json:"createdAt"`
	UpdatedAt   int64       `json:"updatedAt"`
}

func viewExpense(e *models.Expense) expenseView {
	splits := make([]splitView, 0, len(e.Splits))
	for _, s := range e.Splits {
		splits = append(splits, splitView{UserID: s.UserID, Amount: s.Amount, Percentage: s.Percentage})
	}
	return expenseView{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Amount:      e.Amount,
		PaidBy:      e.PaidBy,
		SplitType:   string(e.SplitType),
		Splits:      splits,
		Notes:       e.Notes,
		Category:    e.Category,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	var req struct {
		GroupID     string  `json:"groupId"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		PaidBy      string  `json:"paidBy"`
		SplitType   string  `json:"splitType"`
		Splits      []struct {
			UserID     string  `json:"userId"`
			Amount     float64 `json:"amount"`
			Percentage float64 `json:"percentage"`
		} `json:"splits"`
		Notes    string `json:"notes"`
		Category string `json:"category"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequest)
		return
	}
	if req.Description == "" {
		respondError(w, http.StatusBadRequest, errors.New("description is required"))
		return
	}

	group, status, err := s.groupForMember(r.Context(), req.GroupID, userID)
	if err != nil {
		respondError(w, status, err)
		return
	}

	paidBy := req.PaidBy
	if paidBy == "" {
		paidBy = userID
	}
	if !group.IsMember(paidBy) {
		respondError(w, http.StatusBadRequest, errors.New("payer is not a member of this group"))
		return
	}

	splitType := models.SplitType(req.SplitType)
	if !splitType.Valid() {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid split type %q", req.SplitType))
		return
	}

	requests := make([]calculator.SplitRequest, 0, len(req.Splits))
	for _, sp := range req.Splits {
		if !group.IsMember(sp.UserID) {
			respondError(w, http.StatusBadRequest, fmt.Errorf("split participant %s is not a group member", sp.UserID))
			return
		}
		requests = append(requests, calculator.SplitRequest{
			UserID:     sp.UserID,
			Amount:     sp.Amount,
			Percentage: sp.Percentage,
		})
	}
	// An equal split with no explicit participants covers the whole group.
	if splitType == models.SplitEqual && len(requests) == 0 {
		for _, memberID := range group.Members {
			requests = append(requests, calculator.SplitRequest{UserID: memberID})
		}
	}

	splits, err := calculator.ComputeSplits(req.Amount, splitType, requests)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	expense, err := models.NewExpense(group.ID, req.Description, req.Amount, paidBy, splitType, splits, userID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	expense.Notes = req.Notes
	if req.Category != "" {
		if !models.ValidCategory(req.Category) {
			respondError(w, http.StatusBadRequest, fmt.Errorf("unknown category %q", req.Category))
			return
		}
		expense.Category = req.Category
	}

	if err := s.store.CreateExpense(r.Context(), expense); err != nil {
		slog.Error("failed to create expense", "group_id", group.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to create expense"))
		return
	}

	respondMessage(w, http.StatusCreated, "expense added", viewExpense(expense))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
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

	expenses, err := s.store.ListExpensesByGroup(r.Context(), group.ID)
	if err != nil {
		slog.Error("failed to list expenses", "group_id", group.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to list expenses"))
		return
	}

	views := make([]expenseView, 0, len(expenses))
	for i := range expenses {
		views = append(views, viewExpense(&expenses[i]))
	}
	respond(w, http.StatusOK, views)
}

// expenseForMember loads an expense and checks the caller belongs to its
// group. Deleted expenses are reported as missing.
func (s *Server) expenseForMember(r *http.Request, userID string) (*models.Expense, int, error) {
	expense, err := s.store.GetExpense(r.Context(), chi.URLParam(r, "id"))
	if err != nil || expense == nil || expense.Deleted {
		return nil, http.StatusNotFound, errors.New("expense not found")
	}
	if _, status, err := s.groupForMember(r.Context(), expense.GroupID, userID); err != nil {
		return nil, status, err
	}
	return expense, 0, nil
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	expense, status, err := s.expenseForMember(r, userID)
	if err != nil {
		respondError(w, status, err)
		return
	}

	respond(w, http.StatusOK, viewExpense(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	expense, status, err := s.expenseForMember(r, userID)
	if err != nil {
		respondError(w, status, err)
		return
	}

	var req struct {
		Description string `json:"description"`
		Notes       string `json:"notes"`
		Category    string `json:"category"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequest)
		return
	}

	if req.Description != "" {
		expense.Description = req.Description
	}
	expense.Notes = req.Notes
	if req.Category != "" {
		if !models.ValidCategory(req.Category) {
			respondError(w, http.StatusBadRequest, fmt.Errorf("unknown category %q", req.Category))
			return
		}
		expense.Category = req.Category
	}

	if err := s.store.UpdateExpenseDetails(r.Context(), expense.ID, expense.Description, expense.Notes, expense.Category); err != nil {
		slog.Error("failed to update expense", "expense_id", expense.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to update expense"))
		return
	}

	respondMessage(w, http.StatusOK, "expense updated", viewExpense(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	expense, status, err := s.expenseForMember(r, userID)
	if err != nil {
		respondError(w, status, err)
		return
	}

	// Only whoever recorded or paid for the expense may remove it.
	if expense.CreatedBy != userID && expense.PaidBy != userID {
		respondError(w, http.StatusForbidden, errors.New("only the payer or creator can delete an expense"))
		return
	}

	if err := s.store.SoftDeleteExpense(r.Context(), expense.ID); err != nil {
		slog.Error("failed to delete expense", "expense_id", expense.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to delete expense"))
		return
	}

	respondMessage(w, http.StatusOK, "expense deleted", nil)
}
