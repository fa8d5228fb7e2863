// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/cleardues/cleardues/internal/models"
)

// Store defines the interface for ClearDues storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the API layer.
type Store interface {
	// CreateUser persists a new user. The ID and CreatedAt fields are
	// populated by the store.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by ID. Returns (nil, nil) if not found.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail retrieves a user by email. Returns (nil, nil) if not found.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateUserUPI sets the user's UPI handle.
	UpdateUserUPI(ctx context.Context, userID, upiID string) error

	// CreateGroup persists a new group with its member list.
	// The ID and CreatedAt fields are populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members.
	GetGroup(ctx context.Context, id string) (*models.Group, error)

	// GetGroupByInviteCode retrieves an active group by invite code.
	// Returns (nil, nil) if no group matches.
	GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)

	// ListGroupsByMember retrieves the active groups a user belongs to.
	ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error)

	// AddGroupMember adds a user to a group. Adding an existing member is
	// a no-op.
	AddGroupMember(ctx context.Context, groupID, userID string) error

	// RemoveGroupMember removes a user from a group.
	RemoveGroupMember(ctx context.Context, groupID, userID string) error

	// DeactivateGroup soft-deletes a group. Its history is kept but it
	// disappears from listings and invite-code lookups.
	DeactivateGroup(ctx context.Context, groupID string) error

	// CreateExpense persists a new expense and its splits atomically.
	// The ID and timestamp fields are populated by the store.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its splits, deleted or not.
	GetExpense(ctx context.Context, id string) (*models.Expense, error)

	// UpdateExpenseDetails updates the mutable fields of an expense:
	// description, notes, and category. Amount and splits are immutable.
	UpdateExpenseDetails(ctx context.Context, id, description, notes, category string) error

	// SoftDeleteExpense flags an expense as deleted. The record is kept
	// but excluded from ListExpensesByGroup and all balance computation.
	SoftDeleteExpense(ctx context.Context, id string) error

	// ListExpensesByGroup retrieves the non-deleted expenses of a group,
	// newest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]models.Expense, error)

	// CreateSettlement persists a new settlement.
	// The ID and timestamp fields are populated by the store.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// GetSettlement retrieves a settlement by ID.
	GetSettlement(ctx context.Context, id string) (*models.Settlement, error)

	// UpdateSettlement persists the settlement's status, payment reference,
	// and lifecycle timestamps after a state transition.
	UpdateSettlement(ctx context.Context, settlement *models.Settlement) error

	// ListSettlementsByGroup retrieves a group's settlements, newest first,
	// optionally filtered by status (empty status means all).
	ListSettlementsByGroup(ctx context.Context, groupID string, status models.SettlementStatus) ([]models.Settlement, error)

	// ListPendingSettlementsFrom retrieves the pending and paid settlements
	// where the user is the payer, newest first.
	ListPendingSettlementsFrom(ctx context.Context, userID string) ([]models.Settlement, error)

	// ListSettlementsToConfirm retrieves the paid settlements awaiting the
	// user's confirmation as payee, most recently paid first.
	ListSettlementsToConfirm(ctx context.Context, userID string) ([]models.Settlement, error)

	// CountOpenSettlements returns how many settlements the user still has
	// to pay (pending) and how many they have to confirm (paid, as payee).
	CountOpenSettlements(ctx context.Context, userID string) (pending, toConfirm int, err error)

	// Close releases any resources held by the store.
	Close() error
}
