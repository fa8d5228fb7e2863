package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cleardues/cleardues/internal/models"
)

var (
	errNotGroupMember = errors.New("you are not a member of this group")
	errNotGroupAdmin  = errors.New("only the group admin can do this")
)

type groupView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Icon        string     `json:"icon,omitempty"`
	Members     []userView `json:"members"`
	CreatedBy   string     `json:"createdBy"`
	InviteCode  string     `json:"inviteCode"`
	CreatedAt   int64      `json:"createdAt"`
}

// viewGroup resolves member IDs into user profiles. Members that no longer
// resolve are skipped rather than failing the whole group.
func (s *Server) viewGroup(ctx context.Context, g *models.Group) groupView {
	view := groupView{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Icon:        g.Icon,
		Members:     make([]userView, 0, len(g.Members)),
		CreatedBy:   g.CreatedBy,
		InviteCode:  g.InviteCode,
		CreatedAt:   g.CreatedAt,
	}
	for _, memberID := range g.Members {
		user, err := s.store.GetUserByID(ctx, memberID)
		if err != nil || user == nil {
			slog.Warn("skipping unresolvable group member", "group_id", g.ID, "user_id", memberID)
			continue
		}
		view.Members = append(view.Members, viewUser(user))
	}
	return view
}

// groupForMember loads a group and checks the caller belongs to it.
// On failure it returns the HTTP status and error to respond with.
func (s *Server) groupForMember(ctx context.Context, groupID, userID string) (*models.Group, int, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, http.StatusNotFound, errors.New("group not found")
	}
	if !group.IsMember(userID) {
		return nil, http.StatusForbidden, errNotGroupMember
	}
	return group, 0, nil
}

// newInviteCode generates a code not already held by an active group.
func (s *Server) newInviteCode(ctx context.Context) (string, error) {
	for range 5 {
		code := s.invites.Code()
		existing, err := s.store.GetGroupByInviteCode(ctx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique invite code")
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequest)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, errors.New("group name is required"))
		return
	}

	code, err := s.newInviteCode(r.Context())
	if err != nil {
		slog.Error("invite code generation failed", "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to create group"))
		return
	}

	group := &models.Group{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		Members:     []string{userID},
		CreatedBy:   userID,
		InviteCode:  code,
		Active:      true,
	}
	if err := s.store.CreateGroup(r.Context(), group); err != nil {
		slog.Error("failed to create group", "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to create group"))
		return
	}

	respondMessage(w, http.StatusCreated, "group created", s.viewGroup(r.Context(), group))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	groups, err := s.store.ListGroupsByMember(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list groups", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to list groups"))
		return
	}

	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, s.viewGroup(r.Context(), g))
	}
	respond(w, http.StatusOK, views)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	group, status, err := s.groupForMember(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondError(w, status, err)
		return
	}

	respond(w, http.StatusOK, s.viewGroup(r.Context(), group))
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	code := chi.URLParam(r, "code")
	group, err := s.store.GetGroupByInviteCode(r.Context(), code)
	if err != nil {
		slog.Error("invite code lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to join group"))
		return
	}
	if group == nil {
		respondError(w, http.StatusNotFound, errors.New("invalid invite code"))
		return
	}
	if group.IsMember(userID) {
		respondError(w, http.StatusBadRequest, errors.New("you are already a member of this group"))
		return
	}

	if err := s.store.AddGroupMember(r.Context(), group.ID, userID); err != nil {
		slog.Error("failed to add member", "group_id", group.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to join group"))
		return
	}
	group.Members = append(group.Members, userID)

	respondMessage(w, http.StatusOK, "joined group", s.viewGroup(r.Context(), group))
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	group, status, err := s.groupForMember(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondError(w, status, err)
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil || req.Email == "" {
		respondError(w, http.StatusBadRequest, errInvalidRequest)
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		slog.Error("failed to look up user", "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to add member"))
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, errors.New("no account with that email"))
		return
	}
	if group.IsMember(user.ID) {
		respondError(w, http.StatusBadRequest, errors.New("user is already a member"))
		return
	}

	if err := s.store.AddGroupMember(r.Context(), group.ID, user.ID); err != nil {
		slog.Error("failed to add member", "group_id", group.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to add member"))
		return
	}
	group.Members = append(group.Members, user.ID)

	respondMessage(w, http.StatusOK, "member added", s.viewGroup(r.Context(), group))
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	group, status, err := s.groupForMember(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondError(w, status, err)
		return
	}

	targetID := chi.URLParam(r, "userId")
	// Members may leave on their own; removing anyone else is admin-only.
	if targetID != userID && !group.IsAdmin(userID) {
		respondError(w, http.StatusForbidden, errNotGroupAdmin)
		return
	}
	if targetID == group.CreatedBy {
		respondError(w, http.StatusBadRequest, errors.New("the group admin cannot be removed"))
		return
	}
	if !group.IsMember(targetID) {
		respondError(w, http.StatusNotFound, errors.New("user is not a member of this group"))
		return
	}

	if err := s.store.RemoveGroupMember(r.Context(), group.ID, targetID); err != nil {
		slog.Error("failed to remove member", "group_id", group.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to remove member"))
		return
	}

	respondMessage(w, http.StatusOK, "member removed", nil)
}

func (s *Server) handleDeactivateGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return
	}

	group, status, err := s.groupForMember(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondError(w, status, err)
		return
	}
	if !group.IsAdmin(userID) {
		respondError(w, http.StatusForbidden, errNotGroupAdmin)
		return
	}

	if err := s.store.DeactivateGroup(r.Context(), group.ID); err != nil {
		slog.Error("failed to deactivate group", "group_id", group.ID, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("failed to delete group"))
		return
	}

	respondMessage(w, http.StatusOK, "group deleted", nil)
}
