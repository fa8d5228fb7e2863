package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cleardues/cleardues/internal/models"
)

// CreateUser inserts a new user into the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, upi_id, avatar, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.PasswordHash,
		nullString(user.UPIID), nullString(user.Avatar), user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves a user by their email address.
// Returns (nil, nil) if no user has the email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

// GetUserByID retrieves a user by their ID.
// Returns (nil, nil) if no user has the ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}
	var upiID, avatar sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, upi_id, avatar, created_at
		 FROM users WHERE `+where,
		arg,
	).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &upiID, &avatar, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.UPIID = upiID.String
	user.Avatar = avatar.String
	return user, nil
}

// UpdateUserUPI sets the user's UPI handle.
func (s *SQLiteStore) UpdateUserUPI(ctx context.Context, userID, upiID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET upi_id = ? WHERE id = ?",
		nullString(upiID), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update upi id: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// nullString maps an empty string to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
