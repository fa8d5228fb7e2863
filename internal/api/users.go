package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		slog.Error("failed to load user", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to load profile"))
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, errors.New("user not found"))
		return
	}

	respond(w, http.StatusOK, viewUser(user))
}

func (s *Server) handleUpdateUPI(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	var req struct {
		UPIID string `json:"upiId"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequest)
		return
	}

	// Setting an empty handle clears it; a non-empty one must look like
	// a UPI virtual payment address (user@bank).
	upiID := strings.TrimSpace(req.UPIID)
	if upiID != "" && !strings.Contains(upiID, "@") {
		respondError(w, http.StatusBadRequest, errors.New("upi id must be of the form name@bank"))
		return
	}

	if err := s.store.UpdateUserUPI(r.Context(), userID, upiID); err != nil {
		slog.Error("failed to update upi id", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to update upi id"))
		return
	}

	respondMessage(w, http.StatusOK, "upi id updated", map[string]string{"upiId": upiID})
}
