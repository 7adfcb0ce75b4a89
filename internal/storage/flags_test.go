package storage

import (
	"context"
	"testing"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFlag(t *testing.T, store *SQLiteStorage, transactionID string, flagType model.FlagType) string {
	t.Helper()

	id, created, err := store.CreateFlagIfAbsent(context.Background(), &model.TransactionFlag{
		TransactionID: transactionID,
		Type:          flagType,
		Details:       `{"duplicate_of_id":"t0","duplicate_of_doc":"doc0"}`,
	})
	require.NoError(t, err)
	require.True(t, created)
	return id
}

func TestCreateFlagIfAbsent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")
	seedTransaction(t, store, "t1", "doc1", "Netflix", "2025-03-15", 15.99)

	id := seedFlag(t, store, "t1", model.FlagDuplicate)
	require.NotEmpty(t, id)

	// Same pair again returns the original id without creating.
	again, created, err := store.CreateFlagIfAbsent(ctx, &model.TransactionFlag{
		TransactionID: "t1",
		Type:          model.FlagDuplicate,
		Details:       `{"duplicate_of_id":"other"}`,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)

	// A different type on the same transaction is a distinct flag.
	_, created, err = store.CreateFlagIfAbsent(ctx, &model.TransactionFlag{
		TransactionID: "t1",
		Type:          model.FlagCategoryMismatch,
		Details:       `{"suggested_category":null}`,
	})
	require.NoError(t, err)
	assert.True(t, created)

	count, err := store.CountUnresolvedFlags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCreateFlagIfAbsentUniquenessOutlivesResolution(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")
	seedTransaction(t, store, "t1", "doc1", "Netflix", "2025-03-15", 15.99)

	id := seedFlag(t, store, "t1", model.FlagDuplicate)
	require.NoError(t, store.ResolveFlag(ctx, id, "confirmed_duplicate"))

	// A resolved flag still occupies the pair; detection re-runs create
	// nothing.
	again, created, err := store.CreateFlagIfAbsent(ctx, &model.TransactionFlag{
		TransactionID: "t1",
		Type:          model.FlagDuplicate,
		Details:       "{}",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)
}

func TestGetFlagByID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")
	seedTransaction(t, store, "t1", "doc1", "Netflix", "2025-03-15", 15.99)
	id := seedFlag(t, store, "t1", model.FlagDuplicate)

	flag, err := store.GetFlagByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "t1", flag.TransactionID)
	assert.Equal(t, model.FlagDuplicate, flag.Type)
	assert.False(t, flag.Resolved())
	assert.False(t, flag.CreatedAt.IsZero())

	_, err = store.GetFlagByID(ctx, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestResolveFlag(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")
	seedTransaction(t, store, "t1", "doc1", "Netflix", "2025-03-15", 15.99)
	id := seedFlag(t, store, "t1", model.FlagDuplicate)

	require.NoError(t, store.ResolveFlag(ctx, id, "confirmed_duplicate"))

	flag, err := store.GetFlagByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, flag.Resolved())
	assert.Equal(t, "confirmed_duplicate", flag.Resolution)

	// The first resolution wins; a second attempt is a silent no-op.
	require.NoError(t, store.ResolveFlag(ctx, id, "false_positive"))
	flag, err = store.GetFlagByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "confirmed_duplicate", flag.Resolution)

	err = store.ResolveFlag(ctx, "missing", "confirmed_duplicate")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetUnresolvedFlags(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")
	seedTransaction(t, store, "t1", "doc1", "Netflix", "2025-01-15", 15.99)
	seedTransaction(t, store, "t2", "doc1", "Spotify", "2025-03-15", 9.99)

	oldFlag := seedFlag(t, store, "t1", model.FlagDuplicate)
	newFlag := seedFlag(t, store, "t2", model.FlagDuplicate)
	mismatch := seedFlag(t, store, "t2", model.FlagCategoryMismatch)
	require.NoError(t, store.ResolveFlag(ctx, mismatch, "recategorized"))

	flags, err := store.GetUnresolvedFlags(ctx, "")
	require.NoError(t, err)
	require.Len(t, flags, 2)
	// Newest transaction first.
	assert.Equal(t, newFlag, flags[0].ID)
	assert.Equal(t, oldFlag, flags[1].ID)

	duplicates, err := store.GetUnresolvedFlags(ctx, model.FlagDuplicate)
	require.NoError(t, err)
	assert.Len(t, duplicates, 2)

	mismatches, err := store.GetUnresolvedFlags(ctx, model.FlagCategoryMismatch)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestGetFlagsForTransaction(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")
	seedTransaction(t, store, "t1", "doc1", "Netflix", "2025-03-15", 15.99)
	seedTransaction(t, store, "t2", "doc1", "Spotify", "2025-03-16", 9.99)

	resolved := seedFlag(t, store, "t1", model.FlagDuplicate)
	require.NoError(t, store.ResolveFlag(ctx, resolved, "confirmed_duplicate"))
	seedFlag(t, store, "t1", model.FlagCategoryMismatch)
	seedFlag(t, store, "t2", model.FlagDuplicate)

	flags, err := store.GetFlagsForTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, flags, 2)
}

func TestClearFlagsForDocument(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")
	seedDocument(t, store, "doc2")
	seedTransaction(t, store, "t1", "doc1", "Netflix", "2025-03-15", 15.99)
	seedTransaction(t, store, "t2", "doc2", "Netflix", "2025-03-15", 15.99)
	seedFlag(t, store, "t1", model.FlagDuplicate)
	seedFlag(t, store, "t2", model.FlagDuplicate)

	count, err := store.ClearFlagsForDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	remaining, err := store.GetUnresolvedFlags(ctx, "")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "t2", remaining[0].TransactionID)
}

func TestFlagsCascadeWithDocument(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedDocument(t, store, "doc1")
	seedTransaction(t, store, "t1", "doc1", "Netflix", "2025-03-15", 15.99)
	seedFlag(t, store, "t1", model.FlagDuplicate)

	require.NoError(t, store.DeleteDocument(ctx, "doc1"))

	count, err := store.CountUnresolvedFlags(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
