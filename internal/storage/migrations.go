package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: documents, transactions, categories",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS documents (
					id TEXT PRIMARY KEY,
					filename TEXT NOT NULL,
					uploaded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
					date DATETIME NOT NULL,
					description TEXT NOT NULL,
					normalized_merchant TEXT NOT NULL DEFAULT '',
					amount TEXT NOT NULL,
					direction TEXT NOT NULL CHECK (direction IN ('debit', 'credit')),
					category_name TEXT NOT NULL DEFAULT '',
					manual_category INTEGER NOT NULL DEFAULT 0,
					transaction_class TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_document ON transactions(document_id)`,
				`CREATE INDEX idx_transactions_merchant ON transactions(normalized_merchant)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					color TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Commitment state: statuses, overrides, exclusions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				// Presence of a row means "exclude or demote this merchant";
				// active merchants have no row.
				`CREATE TABLE IF NOT EXISTS commitment_statuses (
					merchant_key TEXT PRIMARY KEY,
					status TEXT NOT NULL CHECK (status IN ('ended', 'not_recurring')),
					status_changed_at DATETIME NOT NULL,
					notes TEXT NOT NULL DEFAULT ''
				)`,

				`CREATE TABLE IF NOT EXISTS commitment_overrides (
					merchant_key TEXT PRIMARY KEY,
					frequency TEXT,
					monthly_amount TEXT
				)`,

				`CREATE TABLE IF NOT EXISTS excluded_commitment_transactions (
					transaction_id TEXT PRIMARY KEY REFERENCES transactions(id) ON DELETE CASCADE
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Transaction flags with per-pair uniqueness",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				// The UNIQUE(transaction_id, flag_type) index is the sole
				// correctness boundary for concurrent detection runs.
				`CREATE TABLE IF NOT EXISTS transaction_flags (
					id TEXT PRIMARY KEY,
					transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
					flag_type TEXT NOT NULL,
					details TEXT NOT NULL DEFAULT '',
					resolution TEXT,
					resolved_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (transaction_id, flag_type)
				)`,
				`CREATE INDEX idx_flags_open ON transaction_flags(flag_type) WHERE resolved_at IS NULL`,
				`CREATE INDEX idx_flags_transaction ON transaction_flags(transaction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		// PRAGMA doesn't support placeholders.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
