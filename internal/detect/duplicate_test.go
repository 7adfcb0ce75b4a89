package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryFlagStore implements FlagStore with the same create-if-absent
// semantics as the SQLite store.
type memoryFlagStore struct {
	flags map[string]*model.TransactionFlag
}

func newMemoryFlagStore() *memoryFlagStore {
	return &memoryFlagStore{flags: make(map[string]*model.TransactionFlag)}
}

func (m *memoryFlagStore) CreateFlagIfAbsent(_ context.Context, flag *model.TransactionFlag) (string, bool, error) {
	key := flag.TransactionID + "|" + string(flag.Type)
	if existing, ok := m.flags[key]; ok {
		return existing.ID, false, nil
	}
	flag.ID = fmt.Sprintf("flag-%d", len(m.flags)+1)
	m.flags[key] = flag
	return flag.ID, true, nil
}

func (m *memoryFlagStore) get(transactionID string, flagType model.FlagType) *model.TransactionFlag {
	return m.flags[transactionID+"|"+string(flagType)]
}

func dupTxn(id, doc, date string, amount float64, direction model.Direction) model.Transaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return model.Transaction{
		ID:          id,
		DocumentID:  doc,
		Date:        d,
		Description: "POS PURCHASE",
		Amount:      decimal.NewFromFloat(amount),
		Direction:   direction,
	}
}

var dupDocSeq = map[string]int64{"doc1": 1, "doc2": 2, "doc3": 3}

func decodeDuplicateDetails(t *testing.T, flag *model.TransactionFlag) model.DuplicateDetails {
	t.Helper()
	var details model.DuplicateDetails
	require.NoError(t, json.Unmarshal([]byte(flag.Details), &details))
	return details
}

func TestDuplicateDetector_CrossDocument(t *testing.T) {
	store := newMemoryFlagStore()
	txns := []model.Transaction{
		dupTxn("t1", "doc1", "2025-03-01", 42.50, model.DirectionDebit),
		dupTxn("t2", "doc2", "2025-03-01", 42.50, model.DirectionDebit),
	}

	created, err := NewDuplicateDetector(store).Detect(context.Background(), txns, dupDocSeq, "")
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// The copy in the later-uploaded document carries the flag.
	assert.Nil(t, store.get("t1", model.FlagDuplicate))
	flag := store.get("t2", model.FlagDuplicate)
	require.NotNil(t, flag)

	details := decodeDuplicateDetails(t, flag)
	assert.Equal(t, "t1", details.DuplicateOfID)
	assert.Equal(t, "doc1", details.DuplicateOfDoc)
}

func TestDuplicateDetector_ThreeWayOverlap(t *testing.T) {
	store := newMemoryFlagStore()
	txns := []model.Transaction{
		dupTxn("t1", "doc1", "2025-03-01", 42.50, model.DirectionDebit),
		dupTxn("t2", "doc2", "2025-03-01", 42.50, model.DirectionDebit),
		dupTxn("t3", "doc3", "2025-03-01", 42.50, model.DirectionDebit),
	}

	created, err := NewDuplicateDetector(store).Detect(context.Background(), txns, dupDocSeq, "")
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	// Both later copies point at the earliest one.
	for _, id := range []string{"t2", "t3"} {
		flag := store.get(id, model.FlagDuplicate)
		require.NotNil(t, flag, id)
		assert.Equal(t, "t1", decodeDuplicateDetails(t, flag).DuplicateOfID)
	}
	assert.Nil(t, store.get("t1", model.FlagDuplicate))
}

func TestDuplicateDetector_SameDocumentSameDirectionNotFlagged(t *testing.T) {
	store := newMemoryFlagStore()
	// Two identical coffees on one statement are legitimate repeats.
	txns := []model.Transaction{
		dupTxn("t1", "doc1", "2025-03-01", 4.50, model.DirectionDebit),
		dupTxn("t2", "doc1", "2025-03-01", 4.50, model.DirectionDebit),
	}

	created, err := NewDuplicateDetector(store).Detect(context.Background(), txns, dupDocSeq, "")
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestDuplicateDetector_ReversalFlagsCreditSide(t *testing.T) {
	store := newMemoryFlagStore()
	txns := []model.Transaction{
		dupTxn("t1", "doc1", "2025-03-01", 99.00, model.DirectionDebit),
		dupTxn("t2", "doc1", "2025-03-01", 99.00, model.DirectionCredit),
	}

	created, err := NewDuplicateDetector(store).Detect(context.Background(), txns, dupDocSeq, "")
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	assert.Nil(t, store.get("t1", model.FlagDuplicate))
	flag := store.get("t2", model.FlagDuplicate)
	require.NotNil(t, flag)
	assert.Equal(t, "t1", decodeDuplicateDetails(t, flag).DuplicateOfID)
}

func TestDuplicateDetector_ReversalAcrossDocumentsNotPaired(t *testing.T) {
	store := newMemoryFlagStore()
	txns := []model.Transaction{
		dupTxn("t1", "doc1", "2025-03-01", 99.00, model.DirectionDebit),
		dupTxn("t2", "doc2", "2025-03-01", 99.00, model.DirectionCredit),
	}

	created, err := NewDuplicateDetector(store).Detect(context.Background(), txns, dupDocSeq, "")
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestDuplicateDetector_DifferentAmountsOrDates(t *testing.T) {
	store := newMemoryFlagStore()
	txns := []model.Transaction{
		dupTxn("t1", "doc1", "2025-03-01", 42.50, model.DirectionDebit),
		dupTxn("t2", "doc2", "2025-03-02", 42.50, model.DirectionDebit),
		dupTxn("t3", "doc2", "2025-03-01", 42.51, model.DirectionDebit),
	}

	created, err := NewDuplicateDetector(store).Detect(context.Background(), txns, dupDocSeq, "")
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestDuplicateDetector_Idempotent(t *testing.T) {
	store := newMemoryFlagStore()
	txns := []model.Transaction{
		dupTxn("t1", "doc1", "2025-03-01", 42.50, model.DirectionDebit),
		dupTxn("t2", "doc2", "2025-03-01", 42.50, model.DirectionDebit),
		dupTxn("t3", "doc1", "2025-03-05", 10.00, model.DirectionDebit),
		dupTxn("t4", "doc1", "2025-03-05", 10.00, model.DirectionCredit),
	}
	detector := NewDuplicateDetector(store)

	created, err := detector.Detect(context.Background(), txns, dupDocSeq, "")
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = detector.Detect(context.Background(), txns, dupDocSeq, "")
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestDuplicateDetector_Scoped(t *testing.T) {
	store := newMemoryFlagStore()
	txns := []model.Transaction{
		// doc1/doc2 pair does not touch doc3; must be ignored.
		dupTxn("t1", "doc1", "2025-03-01", 42.50, model.DirectionDebit),
		dupTxn("t2", "doc2", "2025-03-01", 42.50, model.DirectionDebit),
		// doc1/doc3 pair touches the scoped document.
		dupTxn("t3", "doc1", "2025-03-02", 17.00, model.DirectionDebit),
		dupTxn("t4", "doc3", "2025-03-02", 17.00, model.DirectionDebit),
	}

	created, err := NewDuplicateDetector(store).Detect(context.Background(), txns, dupDocSeq, "doc3")
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	assert.Nil(t, store.get("t2", model.FlagDuplicate))
	require.NotNil(t, store.get("t4", model.FlagDuplicate))
}
