package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cleardues/cleardues/internal/models"
)

// CreateExpense persists a new expense and its splits atomically.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if expense.CreatedAt == 0 {
		expense.CreatedAt = now
	}
	expense.UpdatedAt = now
	if expense.Category == "" {
		expense.Category = "other"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, description, amount, paid_by, split_type,
		                       notes, category, created_by, deleted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		expense.ID, expense.GroupID, expense.Description, expense.Amount,
		expense.PaidBy, string(expense.SplitType), nullString(expense.Notes),
		expense.Category, expense.CreatedBy, expense.CreatedAt, expense.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	// Split order matters for equal splits (remainder rides on the first
	// row), so a position column preserves it.
	for i, split := range expense.Splits {
		var pct any
		if split.Percentage != 0 {
			pct = split.Percentage
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expense_splits (expense_id, user_id, amount, percentage, position)
			 VALUES (?, ?, ?, ?, ?)`,
			expense.ID, split.UserID, split.Amount, pct, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetExpense retrieves an expense with its splits, whether deleted or not.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	expense := &models.Expense{}
	var splitType string
	var notes sql.NullString
	var deleted int

	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, description, amount, paid_by, split_type,
		        notes, category, created_by, deleted, created_at, updated_at
		 FROM expenses WHERE id = ?`,
		id,
	).Scan(&expense.ID, &expense.GroupID, &expense.Description, &expense.Amount,
		&expense.PaidBy, &splitType, &notes, &expense.Category,
		&expense.CreatedBy, &deleted, &expense.CreatedAt, &expense.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	expense.SplitType = models.SplitType(splitType)
	expense.Notes = notes.String
	expense.Deleted = deleted == 1

	if expense.Splits, err = s.expenseSplits(ctx, expense.ID); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *SQLiteStore) expenseSplits(ctx context.Context, expenseID string) ([]models.Split, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, amount, percentage FROM expense_splits
		 WHERE expense_id = ? ORDER BY position`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	var splits []models.Split
	for rows.Next() {
		var split models.Split
		var pct sql.NullFloat64
		if err := rows.Scan(&split.UserID, &split.Amount, &pct); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		split.Percentage = pct.Float64
		splits = append(splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return splits, nil
}

// UpdateExpenseDetails updates the mutable fields of an expense.
func (s *SQLiteStore) UpdateExpenseDetails(ctx context.Context, id, description, notes, category string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET description = ?, notes = ?, category = ?, updated_at = ?
		 WHERE id = ?`,
		description, nullString(notes), category, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense not found: %s", id)
	}
	return nil
}

// SoftDeleteExpense flags an expense as deleted without removing it.
func (s *SQLiteStore) SoftDeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE expenses SET deleted = 1, updated_at = ? WHERE id = ?",
		time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense not found: %s", id)
	}
	return nil
}

// ListExpensesByGroup retrieves the non-deleted expenses of a group,
// newest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, description, amount, paid_by, split_type,
		        notes, category, created_by, deleted, created_at, updated_at
		 FROM expenses WHERE group_id = ? AND deleted = 0
		 ORDER BY created_at DESC, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var expense models.Expense
		var splitType string
		var notes sql.NullString
		var deleted int

		if err := rows.Scan(&expense.ID, &expense.GroupID, &expense.Description,
			&expense.Amount, &expense.PaidBy, &splitType, &notes, &expense.Category,
			&expense.CreatedBy, &deleted, &expense.CreatedAt, &expense.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expense.SplitType = models.SplitType(splitType)
		expense.Notes = notes.String
		expense.Deleted = deleted == 1
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for i := range expenses {
		if expenses[i].Splits, err = s.expenseSplits(ctx, expenses[i].ID); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}
