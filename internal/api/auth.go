package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cleardues/cleardues/internal/auth"
	"github.com/cleardues/cleardues/internal/models"
)

var errInvalidRequest = errors.New("invalid request body")

// userView is the API representation of a user. The password hash never
// leaves the server.
type userView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	UPIID     string `json:"upiId,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

func viewUser(u *models.User) userView {
	return userView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		UPIID:     u.UPIID,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

type authResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequest)
		return
	}
	if req.Name == "" || req.Email == "" {
		respondError(w, http.StatusBadRequest, errors.New("name and email are required"))
		return
	}

	user, err := s.auth.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists), errors.Is(err, auth.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, err)
		default:
			slog.Error("registration failed", "email", req.Email, "error", err)
			respondError(w, http.StatusInternalServerError, errors.New("registration failed"))
		}
		return
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		slog.Error("token generation failed", "user_id", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("registration failed"))
		return
	}

	respondMessage(w, http.StatusCreated, "account created", authResponse{Token: token, User: viewUser(user)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequest)
		return
	}

	user, err := s.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials)
		return
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		slog.Error("token generation failed", "user_id", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("login failed"))
		return
	}

	respond(w, http.StatusOK, authResponse{Token: token, User: viewUser(user)})
}
