// Package api exposes the ClearDues REST surface: authentication, groups,
// expenses, and the settlement workflow.
package api

import (
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cleardues/cleardues/internal/auth"
	"github.com/cleardues/cleardues/internal/invite"
	"github.com/cleardues/cleardues/internal/storage"
)

// Server holds the dependencies shared by all HTTP handlers.
type Server struct {
	store   storage.Store
	auth    auth.Authenticator
	jwt     *auth.JWTManager
	invites *invite.Generator
}

// NewServer creates a Server over the given store and authentication
// components.
func NewServer(store storage.Store, authenticator auth.Authenticator, jwt *auth.JWTManager) *Server {
	return &Server{
		store:   store,
		auth:    authenticator,
		jwt:     jwt,
		invites: invite.NewGenerator(rand.NewSource(time.Now().UnixNano())),
	}
}

// Handler builds the chi router with all routes and middleware mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(instrument)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
		})

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth(s.jwt))

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", s.handleMe)
				r.Put("/me/upi", s.handleUpdateUPI)
			})

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", s.handleCreateGroup)
				r.Get("/", s.handleListGroups)
				r.Post("/join/{code}", s.handleJoinGroup)
				r.Get("/{id}", s.handleGetGroup)
				r.Delete("/{id}", s.handleDeactivateGroup)
				r.Post("/{id}/members", s.handleAddMember)
				r.Delete("/{id}/members/{userId}", s.handleRemoveMember)
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Post("/", s.handleCreateExpense)
				r.Get("/group/{groupId}", s.handleListExpenses)
				r.Get("/{id}", s.handleGetExpense)
				r.Put("/{id}", s.handleUpdateExpense)
				r.Delete("/{id}", s.handleDeleteExpense)
			})

			r.Route("/settlements", func(r chi.Router) {
				r.Get("/balances/{groupId}", s.handleBalances)
				r.Get("/suggest/{groupId}", s.handleSuggest)
				r.Get("/group/{groupId}", s.handleListSettlements)
				r.Get("/my/pending", s.handleMyPending)
				r.Get("/my/to-confirm", s.handleMyToConfirm)
				r.Get("/dashboard", s.handleDashboard)
				r.Post("/", s.handleCreateSettlement)
				r.Get("/{id}/upi-link", s.handleUPILink)
				r.Post("/{id}/pay", s.handleMarkPaid)
				r.Post("/{id}/confirm", s.handleConfirm)
				r.Post("/{id}/reject", s.handleReject)
			})
		})
	})

	return r
}
