package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"

	"github.com/google/uuid"
)

// CreateFlagIfAbsent inserts a flag unless one already exists for the same
// (transaction, flag type) pair; uniqueness is permanent per pair, not just
// while unresolved. The UNIQUE index makes this the sole correctness
// boundary when concurrent detection runs race: exactly one insert wins and
// everyone else reads the winner's id back. Returns the flag id and whether
// this call created it.
func (s *SQLiteStorage) CreateFlagIfAbsent(ctx context.Context, flag *model.TransactionFlag) (string, bool, error) {
	if err := validateContext(ctx); err != nil {
		return "", false, err
	}
	if err := validateFlag(flag); err != nil {
		return "", false, err
	}
	if flag.ID == "" {
		flag.ID = uuid.NewString()
	}

	// Two attempts: a raced insert that loses and then sees its rival's row
	// deleted before the read-back gets one more try.
	for attempt := 0; attempt < 2; attempt++ {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO transaction_flags (id, transaction_id, flag_type, details)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(transaction_id, flag_type) DO NOTHING
		`, flag.ID, flag.TransactionID, string(flag.Type), flag.Details)
		if err != nil {
			return "", false, fmt.Errorf("failed to create flag: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return "", false, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 1 {
			return flag.ID, true, nil
		}

		var existingID string
		err = s.db.QueryRowContext(ctx, `
			SELECT id FROM transaction_flags WHERE transaction_id = ? AND flag_type = ?
		`, flag.TransactionID, string(flag.Type)).Scan(&existingID)
		if err == nil {
			return existingID, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", false, fmt.Errorf("failed to read back flag: %w", err)
		}
	}

	return "", false, fmt.Errorf("%w: flag for transaction %s", common.ErrDuplicateEntry, flag.TransactionID)
}

// GetFlagByID retrieves a single flag.
func (s *SQLiteStorage) GetFlagByID(ctx context.Context, id string) (*model.TransactionFlag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	flag, err := scanFlag(s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, flag_type, details, resolution, resolved_at, created_at
		FROM transaction_flags
		WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: flag %s", common.ErrNotFound, id)
	}
	return flag, err
}

// GetUnresolvedFlags lists open flags, optionally filtered by type, ordered
// by the flagged transaction's date descending.
func (s *SQLiteStorage) GetUnresolvedFlags(ctx context.Context, flagType model.FlagType) ([]model.TransactionFlag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT f.id, f.transaction_id, f.flag_type, f.details, f.resolution, f.resolved_at, f.created_at
		FROM transaction_flags f
		JOIN transactions t ON t.id = f.transaction_id
		WHERE f.resolved_at IS NULL`
	var args []any
	if flagType != "" {
		query += " AND f.flag_type = ?"
		args = append(args, string(flagType))
	}
	query += " ORDER BY t.date DESC, f.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectFlags(rows)
}

// GetFlagsForTransaction lists every flag on a transaction, resolved and
// unresolved.
func (s *SQLiteStorage) GetFlagsForTransaction(ctx context.Context, transactionID string) ([]model.TransactionFlag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, flag_type, details, resolution, resolved_at, created_at
		FROM transaction_flags
		WHERE transaction_id = ?
		ORDER BY created_at ASC
	`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectFlags(rows)
}

// ResolveFlag records the resolution outcome. Resolving an already resolved
// flag is a no-op: the first resolution wins.
func (s *SQLiteStorage) ResolveFlag(ctx context.Context, flagID, resolution string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(flagID, "flagID"); err != nil {
		return err
	}
	if err := validateString(resolution, "resolution"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transaction_flags
		SET resolution = ?, resolved_at = ?
		WHERE id = ? AND resolved_at IS NULL
	`, resolution, time.Now().UTC(), flagID)
	if err != nil {
		return fmt.Errorf("failed to resolve flag: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	// Nothing updated: either resolved already or missing.
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM transaction_flags WHERE id = ?)
	`, flagID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check flag: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: flag %s", common.ErrNotFound, flagID)
	}
	return nil
}

// CountUnresolvedFlags returns the number of open flags.
func (s *SQLiteStorage) CountUnresolvedFlags(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transaction_flags WHERE resolved_at IS NULL
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count flags: %w", err)
	}
	return count, nil
}

// ClearFlagsForDocument bulk-deletes all flags whose transaction belongs to
// the document. Used when a document is deleted or reprocessed.
func (s *SQLiteStorage) ClearFlagsForDocument(ctx context.Context, documentID string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(documentID, "documentID"); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM transaction_flags
		WHERE transaction_id IN (SELECT id FROM transactions WHERE document_id = ?)
	`, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear flags: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return count, nil
}

func scanFlag(row scanner) (*model.TransactionFlag, error) {
	var flag model.TransactionFlag
	var flagType string
	var resolution *string
	var resolvedAt *time.Time

	err := row.Scan(
		&flag.ID,
		&flag.TransactionID,
		&flagType,
		&flag.Details,
		&resolution,
		&resolvedAt,
		&flag.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	flag.Type = model.FlagType(flagType)
	if resolution != nil {
		flag.Resolution = *resolution
	}
	flag.ResolvedAt = resolvedAt
	return &flag, nil
}

func collectFlags(rows *sql.Rows) ([]model.TransactionFlag, error) {
	var flags []model.TransactionFlag
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flag: %w", err)
		}
		flags = append(flags, *flag)
	}
	return flags, rows.Err()
}
