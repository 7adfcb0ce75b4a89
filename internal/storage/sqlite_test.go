package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// newTestStorage creates a migrated SQLite store on a temp file.
func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "lens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

// seedDocument registers a document so transactions can reference it.
func seedDocument(t *testing.T, store *SQLiteStorage, id string) *model.Document {
	t.Helper()

	doc := &model.Document{ID: id, Filename: id + ".csv"}
	require.NoError(t, store.SaveDocument(context.Background(), doc))
	return doc
}

// seedTransaction stores one debit purchase and returns it.
func seedTransaction(t *testing.T, store *SQLiteStorage, id, docID, merchant, date string, amount float64) model.Transaction {
	t.Helper()

	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)

	txn := model.Transaction{
		ID:                 id,
		DocumentID:         docID,
		Date:               d,
		Description:        merchant,
		NormalizedMerchant: merchant,
		Amount:             decimal.NewFromFloat(amount),
		Direction:          model.DirectionDebit,
		Class:              model.ClassPurchase,
	}
	require.NoError(t, store.SaveTransactions(context.Background(), []model.Transaction{txn}))
	return txn
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	// A second run sees user_version already current and applies nothing.
	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	require.Equal(t, ExpectedSchemaVersion, version)
}

func TestNewSQLiteStorageRejectsEmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("")
	require.Error(t, err)
}
