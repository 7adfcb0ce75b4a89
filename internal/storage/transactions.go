package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"

	"github.com/shopspring/decimal"
)

// SaveTransactions saves multiple transactions to the database.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO transactions (
				id, document_id, date, description, normalized_merchant,
				amount, direction, category_name, manual_category, transaction_class
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, txn := range transactions {
			_, err = stmt.ExecContext(ctx,
				txn.ID,
				txn.DocumentID,
				txn.Date,
				txn.Description,
				txn.NormalizedMerchant,
				txn.Amount.String(),
				string(txn.Direction),
				txn.CategoryName,
				txn.ManualCategory,
				string(txn.Class),
			)
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
			}
		}
		return nil
	})
}

// GetTransactions retrieves transactions matching the filter, ordered by
// date ascending.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, document_id, date, description, normalized_merchant,
		       amount, direction, category_name, manual_category, transaction_class
		FROM transactions
		WHERE 1=1`
	var args []any

	if filter.DocumentID != "" {
		query += " AND document_id = ?"
		args = append(args, filter.DocumentID)
	}
	if filter.StartDate != nil {
		query += " AND date >= ?"
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += " AND date <= ?"
		args = append(args, *filter.EndDate)
	}
	if filter.Direction != "" {
		query += " AND direction = ?"
		args = append(args, string(filter.Direction))
	}
	query += " ORDER BY date ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	return transactions, rows.Err()
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, date, description, normalized_merchant,
		       amount, direction, category_name, manual_category, transaction_class
		FROM transactions
		WHERE id = ?
	`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	return txn, err
}

// UpdateTransactionCategory rewrites a transaction's category. The manual
// flag records whether a human made the choice; manual categories are never
// second-guessed by the mismatch detector.
func (s *SQLiteStorage) UpdateTransactionCategory(ctx context.Context, id string, category string, manual bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET category_name = ?, manual_category = ? WHERE id = ?
	`, category, manual, id)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	return nil
}

// MergeMerchants rewrites normalized_merchant on every transaction matching
// any source name to the target name, and deletes commitment status and
// override rows keyed by a source name that is not the target. A status for
// a merchant that no longer exists must not resurrect under the new name
// implicitly. Returns the number of transactions rewritten.
func (s *SQLiteStorage) MergeMerchants(ctx context.Context, names []string, target string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return 0, fmt.Errorf("%w: names", ErrEmptySlice)
	}
	if err := validateString(target, "target"); err != nil {
		return 0, err
	}

	targetKey := model.MerchantKey(target)
	keys := make([]string, 0, len(names))
	var orphans []string
	for _, name := range names {
		key := model.MerchantKey(name)
		if key == "" {
			continue
		}
		keys = append(keys, key)
		if key != targetKey {
			orphans = append(orphans, key)
		}
	}
	if len(keys) == 0 {
		return 0, fmt.Errorf("%w: names", ErrEmptySlice)
	}

	var count int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		placeholders, args := inClause(keys)
		args = append([]any{target}, args...)

		result, err := tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE transactions
			SET normalized_merchant = ?
			WHERE lower(trim(normalized_merchant)) IN (%s)
		`, placeholders), args...)
		if err != nil {
			return fmt.Errorf("failed to rewrite merchants: %w", err)
		}
		count, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if len(orphans) == 0 {
			return nil
		}
		placeholders, orphanArgs := inClause(orphans)
		for _, table := range []string{"commitment_statuses", "commitment_overrides"} {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(
				"DELETE FROM %s WHERE merchant_key IN (%s)", table, placeholders), orphanArgs...); err != nil {
				return fmt.Errorf("failed to clean up %s: %w", table, err)
			}
		}
		return nil
	})
	return count, err
}

// SplitMerchant rewrites normalized_merchant on exactly the given
// transactions, leaving everything else under the original merchant
// untouched. Splitting an empty id set is a no-op returning 0.
func (s *SQLiteStorage) SplitMerchant(ctx context.Context, transactionIDs []string, newName string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(transactionIDs) == 0 {
		return 0, nil
	}
	if err := validateString(newName, "newName"); err != nil {
		return 0, err
	}

	placeholders, args := inClause(transactionIDs)
	args = append([]any{newName}, args...)

	result, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE transactions SET normalized_merchant = ? WHERE id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to split merchant: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return count, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*model.Transaction, error) {
	var txn model.Transaction
	var amount, direction, class string

	err := row.Scan(
		&txn.ID,
		&txn.DocumentID,
		&txn.Date,
		&txn.Description,
		&txn.NormalizedMerchant,
		&amount,
		&direction,
		&txn.CategoryName,
		&txn.ManualCategory,
		&class,
	)
	if err != nil {
		return nil, err
	}

	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: bad amount %q", common.ErrDatabaseCorrupted, amount)
	}
	txn.Direction = model.Direction(direction)
	txn.Class = model.TransactionClass(class)
	return &txn, nil
}

// inClause builds a placeholder list and argument slice for an IN query.
func inClause(values []string) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return strings.Repeat("?, ", len(values)-1) + "?", args
}
