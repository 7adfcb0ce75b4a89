package storage

import (
	"context"
	"testing"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndGetTransactions(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")

	saved := seedTransaction(t, store, "t1", "doc1", "Netflix", "2025-03-15", 15.99)

	got, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, saved.ID, got[0].ID)
	assert.Equal(t, "Netflix", got[0].NormalizedMerchant)
	assert.True(t, saved.Amount.Equal(got[0].Amount))
	assert.Equal(t, model.DirectionDebit, got[0].Direction)
	assert.Equal(t, model.ClassPurchase, got[0].Class)
}

func TestSaveTransactionsIgnoresDuplicateIDs(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")

	seedTransaction(t, store, "t1", "doc1", "Netflix", "2025-03-15", 15.99)
	// Re-saving the same id leaves the original row in place.
	seedTransaction(t, store, "t1", "doc1", "Spotify", "2025-04-01", 9.99)

	got, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Netflix", got[0].NormalizedMerchant)
}

func TestSaveTransactionsRejectsInvalid(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")

	err := store.SaveTransactions(ctx, []model.Transaction{{
		ID:         "", // missing id
		DocumentID: "doc1",
		Date:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Direction:  model.DirectionDebit,
	}})
	require.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestGetTransactionsFilters(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")
	seedDocument(t, store, "doc2")

	seedTransaction(t, store, "t1", "doc1", "Netflix", "2025-01-15", 15.99)
	seedTransaction(t, store, "t2", "doc1", "Spotify", "2025-02-15", 9.99)
	seedTransaction(t, store, "t3", "doc2", "Netflix", "2025-03-15", 15.99)

	byDoc, err := store.GetTransactions(ctx, service.TransactionFilter{DocumentID: "doc2"})
	require.NoError(t, err)
	require.Len(t, byDoc, 1)
	assert.Equal(t, "t3", byDoc[0].ID)

	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	byRange, err := store.GetTransactions(ctx, service.TransactionFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	require.Len(t, byRange, 1)
	assert.Equal(t, "t2", byRange[0].ID)

	debits, err := store.GetTransactions(ctx, service.TransactionFilter{Direction: model.DirectionCredit})
	require.NoError(t, err)
	assert.Empty(t, debits)
}

func TestGetTransactionsOrderedByDate(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")

	seedTransaction(t, store, "t2", "doc1", "Spotify", "2025-03-01", 9.99)
	seedTransaction(t, store, "t1", "doc1", "Netflix", "2025-01-01", 15.99)

	got, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, "t2", got[1].ID)
}

func TestGetTransactionByID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")
	seedTransaction(t, store, "t1", "doc1", "Netflix", "2025-03-15", 15.99)

	got, err := store.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Netflix", got.NormalizedMerchant)

	_, err = store.GetTransactionByID(ctx, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateTransactionCategory(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")
	seedTransaction(t, store, "t1", "doc1", "Netflix", "2025-03-15", 15.99)

	require.NoError(t, store.UpdateTransactionCategory(ctx, "t1", "Entertainment", true))

	got, err := store.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Entertainment", got.CategoryName)
	assert.True(t, got.ManualCategory)

	err = store.UpdateTransactionCategory(ctx, "missing", "Entertainment", true)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestMergeMerchants(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")

	seedTransaction(t, store, "t1", "doc1", "NETFLIX.COM", "2025-01-15", 15.99)
	seedTransaction(t, store, "t2", "doc1", "Netflix Inc", "2025-02-15", 15.99)
	seedTransaction(t, store, "t3", "doc1", "Spotify", "2025-02-20", 9.99)

	count, err := store.MergeMerchants(ctx, []string{"NETFLIX.COM", "Netflix Inc"}, "Netflix")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	got, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	merchants := make(map[string]string)
	for _, txn := range got {
		merchants[txn.ID] = txn.NormalizedMerchant
	}
	assert.Equal(t, "Netflix", merchants["t1"])
	assert.Equal(t, "Netflix", merchants["t2"])
	assert.Equal(t, "Spotify", merchants["t3"])
}

func TestMergeMerchantsDeletesOrphanedState(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")
	seedTransaction(t, store, "t1", "doc1", "NETFLIX.COM", "2025-01-15", 15.99)

	// Status and override keyed by the source merchant must not survive
	// under a key no transaction carries anymore.
	require.NoError(t, store.SetCommitmentStatus(ctx, "NETFLIX.COM", model.StatusEnded, ""))
	require.NoError(t, store.SetCommitmentOverride(ctx, model.CommitmentOverride{
		MerchantKey: "NETFLIX.COM",
		Frequency:   model.FrequencyMonthly,
	}))

	_, err := store.MergeMerchants(ctx, []string{"NETFLIX.COM"}, "Netflix")
	require.NoError(t, err)

	statuses, err := store.GetCommitmentStatuses(ctx)
	require.NoError(t, err)
	assert.Empty(t, statuses)

	overrides, err := store.GetCommitmentOverrides(ctx)
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestMergeMerchantsKeepsTargetState(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")
	seedTransaction(t, store, "t1", "doc1", "netflix", "2025-01-15", 15.99)

	require.NoError(t, store.SetCommitmentStatus(ctx, "Netflix", model.StatusEnded, ""))

	// Merging a name into its own key rewrites casing but keeps the status.
	_, err := store.MergeMerchants(ctx, []string{"netflix"}, "Netflix")
	require.NoError(t, err)

	statuses, err := store.GetCommitmentStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "netflix", statuses[0].MerchantKey)
}

func TestMergeMerchantsRequiresNames(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.MergeMerchants(context.Background(), nil, "Netflix")
	require.ErrorIs(t, err, ErrEmptySlice)
}

func TestSplitMerchant(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")

	seedTransaction(t, store, "t1", "doc1", "Amazon", "2025-01-15", 14.99)
	seedTransaction(t, store, "t2", "doc1", "Amazon", "2025-02-15", 82.10)

	count, err := store.SplitMerchant(ctx, []string{"t1"}, "Amazon Prime")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Amazon Prime", got.NormalizedMerchant)

	untouched, err := store.GetTransactionByID(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "Amazon", untouched.NormalizedMerchant)
}

func TestSplitMerchantEmptyIDsIsNoOp(t *testing.T) {
	store := newTestStorage(t)

	count, err := store.SplitMerchant(context.Background(), nil, "Amazon Prime")
	require.NoError(t, err)
	assert.Zero(t, count)
}
