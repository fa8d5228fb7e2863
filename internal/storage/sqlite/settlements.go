package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cleardues/cleardues/internal/models"
)

const settlementColumns = `id, group_id, from_user, to_user, amount, status,
	upi_txn_id, notes, paid_at, confirmed_at, created_at, updated_at`

// CreateSettlement persists a new settlement.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = now
	}
	settlement.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settlements (`+settlementColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.GroupID, settlement.From, settlement.To,
		settlement.Amount, string(settlement.Status),
		nullString(settlement.UPITransactionID), nullString(settlement.Notes),
		nullTime(settlement.PaidAt), nullTime(settlement.ConfirmedAt),
		settlement.CreatedAt, settlement.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	return nil
}

// GetSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, id string) (*models.Settlement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE id = ?`, id,
	)
	settlement, err := scanSettlement(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settlement not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return settlement, nil
}

// UpdateSettlement persists the settlement's lifecycle fields after a
// state transition.
func (s *SQLiteStore) UpdateSettlement(ctx context.Context, settlement *models.Settlement) error {
	settlement.UpdatedAt = time.Now().Unix()

	res, err := s.db.ExecContext(ctx,
		`UPDATE settlements
		 SET status = ?, upi_txn_id = ?, paid_at = ?, confirmed_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(settlement.Status), nullString(settlement.UPITransactionID),
		nullTime(settlement.PaidAt), nullTime(settlement.ConfirmedAt),
		settlement.UpdatedAt, settlement.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update settlement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("settlement not found: %s", settlement.ID)
	}
	return nil
}

// ListSettlementsByGroup retrieves a group's settlements, newest first,
// optionally filtered by status.
func (s *SQLiteStore) ListSettlementsByGroup(ctx context.Context, groupID string, status models.SettlementStatus) ([]models.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE group_id = ?`
	args := []any{groupID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC, id"

	return s.listSettlements(ctx, query, args...)
}

// ListPendingSettlementsFrom retrieves pending and paid settlements where
// the user is the payer, newest first.
func (s *SQLiteStore) ListPendingSettlementsFrom(ctx context.Context, userID string) ([]models.Settlement, error) {
	return s.listSettlements(ctx,
		`SELECT `+settlementColumns+` FROM settlements
		 WHERE from_user = ? AND status IN ('pending', 'paid')
		 ORDER BY created_at DESC, id`,
		userID,
	)
}

// ListSettlementsToConfirm retrieves paid settlements awaiting the user's
// confirmation as payee, most recently paid first.
func (s *SQLiteStore) ListSettlementsToConfirm(ctx context.Context, userID string) ([]models.Settlement, error) {
	return s.listSettlements(ctx,
		`SELECT `+settlementColumns+` FROM settlements
		 WHERE to_user = ? AND status = 'paid'
		 ORDER BY paid_at DESC, id`,
		userID,
	)
}

// CountOpenSettlements returns the user's open settlement counts for the
// dashboard: how many they still have to pay and how many to confirm.
func (s *SQLiteStore) CountOpenSettlements(ctx context.Context, userID string) (pending, toConfirm int, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM settlements WHERE from_user = ? AND status = 'pending'",
		userID,
	).Scan(&pending)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count pending settlements: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM settlements WHERE to_user = ? AND status = 'paid'",
		userID,
	).Scan(&toConfirm)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count settlements to confirm: %w", err)
	}

	return pending, toConfirm, nil
}

func (s *SQLiteStore) listSettlements(ctx context.Context, query string, args ...any) ([]models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []models.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, *settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}

// scanSettlement reads one settlement row via the given Scan function.
func scanSettlement(scan func(...any) error) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var status string
	var txnID, notes sql.NullString
	var paidAt, confirmedAt sql.NullInt64

	err := scan(&settlement.ID, &settlement.GroupID, &settlement.From, &settlement.To,
		&settlement.Amount, &status, &txnID, &notes, &paidAt, &confirmedAt,
		&settlement.CreatedAt, &settlement.UpdatedAt)
	if err != nil {
		return nil, err
	}

	settlement.Status = models.SettlementStatus(status)
	settlement.UPITransactionID = txnID.String
	settlement.Notes = notes.String
	if paidAt.Valid {
		t := time.Unix(paidAt.Int64, 0)
		settlement.PaidAt = &t
	}
	if confirmedAt.Valid {
		t := time.Unix(confirmedAt.Int64, 0)
		settlement.ConfirmedAt = &t
	}
	return settlement, nil
}

// nullTime maps a nil time pointer to SQL NULL, otherwise a Unix timestamp.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}
