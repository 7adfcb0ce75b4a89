package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"

	"github.com/shopspring/decimal"
)

// GetCommitmentStatuses lists every persisted merchant status. Absence of a
// row means active; active is never stored.
func (s *SQLiteStorage) GetCommitmentStatuses(ctx context.Context) ([]model.CommitmentStatus, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT merchant_key, status, status_changed_at, notes
		FROM commitment_statuses
		ORDER BY merchant_key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query commitment statuses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var statuses []model.CommitmentStatus
	for rows.Next() {
		var st model.CommitmentStatus
		var status string
		if err := rows.Scan(&st.MerchantKey, &status, &st.StatusChangedAt, &st.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan commitment status: %w", err)
		}
		st.Status = model.CommitmentStatusValue(status)
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

// SetCommitmentStatus marks a merchant as ended or not recurring, upserting
// on the lowercase merchant key.
func (s *SQLiteStorage) SetCommitmentStatus(ctx context.Context, merchant string, status model.CommitmentStatusValue, notes string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return err
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commitment_statuses (merchant_key, status, status_changed_at, notes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(merchant_key) DO UPDATE SET
			status = excluded.status,
			status_changed_at = excluded.status_changed_at,
			notes = excluded.notes
	`, model.MerchantKey(merchant), string(status), time.Now().UTC(), notes)
	if err != nil {
		return fmt.Errorf("failed to set commitment status: %w", err)
	}
	return nil
}

// ClearCommitmentStatus returns a merchant to active by deleting its status
// row. Clearing a merchant with no row is a no-op.
func (s *SQLiteStorage) ClearCommitmentStatus(ctx context.Context, merchant string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM commitment_statuses WHERE merchant_key = ?
	`, model.MerchantKey(merchant)); err != nil {
		return fmt.Errorf("failed to clear commitment status: %w", err)
	}
	return nil
}

// GetCommitmentOverrides lists every persisted frequency/amount override.
func (s *SQLiteStorage) GetCommitmentOverrides(ctx context.Context) ([]model.CommitmentOverride, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT merchant_key, frequency, monthly_amount
		FROM commitment_overrides
		ORDER BY merchant_key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query commitment overrides: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var overrides []model.CommitmentOverride
	for rows.Next() {
		var ov model.CommitmentOverride
		var frequency, amount *string
		if err := rows.Scan(&ov.MerchantKey, &frequency, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan commitment override: %w", err)
		}
		if frequency != nil {
			ov.Frequency = model.Frequency(*frequency)
		}
		if amount != nil {
			dec, err := decimal.NewFromString(*amount)
			if err != nil {
				return nil, fmt.Errorf("bad monthly amount override %q: %w", *amount, err)
			}
			ov.MonthlyAmountOverride = &dec
		}
		overrides = append(overrides, ov)
	}
	return overrides, rows.Err()
}

// SetCommitmentOverride upserts a merchant's override row. Either field may
// be unset independently; both unset still stores a row, which Clear removes.
func (s *SQLiteStorage) SetCommitmentOverride(ctx context.Context, override model.CommitmentOverride) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(override.MerchantKey, "override.MerchantKey"); err != nil {
		return err
	}
	if override.Frequency != "" && !override.Frequency.IsValid() {
		return fmt.Errorf("%w: frequency %q", ErrInvalidStatus, override.Frequency)
	}

	var frequency, amount *string
	if override.Frequency != "" {
		f := string(override.Frequency)
		frequency = &f
	}
	if override.MonthlyAmountOverride != nil {
		a := override.MonthlyAmountOverride.String()
		amount = &a
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commitment_overrides (merchant_key, frequency, monthly_amount)
		VALUES (?, ?, ?)
		ON CONFLICT(merchant_key) DO UPDATE SET
			frequency = excluded.frequency,
			monthly_amount = excluded.monthly_amount
	`, model.MerchantKey(override.MerchantKey), frequency, amount)
	if err != nil {
		return fmt.Errorf("failed to set commitment override: %w", err)
	}
	return nil
}

// ClearCommitmentOverride deletes a merchant's override row.
func (s *SQLiteStorage) ClearCommitmentOverride(ctx context.Context, merchant string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM commitment_overrides WHERE merchant_key = ?
	`, model.MerchantKey(merchant)); err != nil {
		return fmt.Errorf("failed to clear commitment override: %w", err)
	}
	return nil
}

// GetExcludedTransactionIDs returns the set of transactions manually pulled
// out of recurrence grouping.
func (s *SQLiteStorage) GetExcludedTransactionIDs(ctx context.Context) (map[string]bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id FROM excluded_commitment_transactions
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query exclusions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	excluded := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan exclusion: %w", err)
		}
		excluded[id] = true
	}
	return excluded, rows.Err()
}

// ExcludeTransaction removes one transaction from grouping consideration.
// Its category and flags are untouched.
func (s *SQLiteStorage) ExcludeTransaction(ctx context.Context, transactionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO excluded_commitment_transactions (transaction_id) VALUES (?)
		ON CONFLICT(transaction_id) DO NOTHING
	`, transactionID); err != nil {
		return fmt.Errorf("failed to exclude transaction: %w", err)
	}
	return nil
}

// IncludeTransaction returns a transaction to grouping consideration.
func (s *SQLiteStorage) IncludeTransaction(ctx context.Context, transactionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM excluded_commitment_transactions WHERE transaction_id = ?
	`, transactionID); err != nil {
		return fmt.Errorf("failed to include transaction: %w", err)
	}
	return nil
}
