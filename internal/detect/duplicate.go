// Package detect flags transactions that need human review: duplicates from
// overlapping statements and category assignments contradicted by structural
// cues. Detectors write through a FlagStore and are idempotent: re-running
// over unchanged data creates nothing new.
package detect

import (
	"context"
	"fmt"
	"sort"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// FlagStore is the sink detectors write findings to. Create-if-absent
// semantics on (transactionID, flagType) are the store's responsibility;
// detectors only count how many creates actually happened.
type FlagStore interface {
	CreateFlagIfAbsent(ctx context.Context, flag *model.TransactionFlag) (id string, created bool, err error)
}

// DuplicateDetector finds transactions that are financially identical
// across or within statements.
type DuplicateDetector struct {
	store FlagStore
}

// NewDuplicateDetector creates a duplicate detector writing to store.
func NewDuplicateDetector(store FlagStore) *DuplicateDetector {
	return &DuplicateDetector{store: store}
}

// Detect scans txns for duplicates and flags the redundant side of each
// pair. docSeq maps document ids to upload order; when the same transaction
// appears in two documents, the copy in the later-uploaded one is flagged.
// scopeDocID limits detection to pairs touching that document ("" means the
// whole dataset); cross-document comparison still sees every document the
// scoped one might duplicate against. Returns the number of flags created by
// this invocation.
func (d *DuplicateDetector) Detect(ctx context.Context, txns []model.Transaction, docSeq map[string]int64, scopeDocID string) (int, error) {
	created := 0

	n, err := d.detectCrossDocument(ctx, txns, docSeq, scopeDocID)
	if err != nil {
		return created, err
	}
	created += n

	n, err = d.detectReversals(ctx, txns, scopeDocID)
	if err != nil {
		return created, err
	}
	created += n

	return created, nil
}

// detectCrossDocument flags transactions sharing date, amount, and direction
// with a transaction in an earlier-uploaded document. The earliest copy is
// canonical and never flagged.
func (d *DuplicateDetector) detectCrossDocument(ctx context.Context, txns []model.Transaction, docSeq map[string]int64, scopeDocID string) (int, error) {
	groups := make(map[string][]model.Transaction)
	for _, txn := range txns {
		key := fmt.Sprintf("%s|%s|%s", txn.Date.Format("2006-01-02"), txn.Amount.String(), txn.Direction)
		groups[key] = append(groups[key], txn)
	}

	created := 0
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			si, sj := docSeq[group[i].DocumentID], docSeq[group[j].DocumentID]
			if si != sj {
				return si < sj
			}
			return group[i].ID < group[j].ID
		})

		canonical := group[0]
		for _, txn := range group[1:] {
			if txn.DocumentID == canonical.DocumentID {
				// Two identical charges on one statement are legitimate
				// repeats, not statement overlap.
				continue
			}
			if scopeDocID != "" && txn.DocumentID != scopeDocID && canonical.DocumentID != scopeDocID {
				continue
			}
			ok, err := d.flag(ctx, txn.ID, canonical)
			if err != nil {
				return created, err
			}
			if ok {
				created++
			}
		}
	}
	return created, nil
}

// detectReversals flags the credit side of a debit/credit pair sharing date
// and amount within one document, the signature of a charge and its
// immediate reversal appearing on the same statement.
func (d *DuplicateDetector) detectReversals(ctx context.Context, txns []model.Transaction, scopeDocID string) (int, error) {
	type pairKey struct {
		date   string
		amount string
		doc    string
	}
	debits := make(map[pairKey][]model.Transaction)
	credits := make(map[pairKey][]model.Transaction)

	for _, txn := range txns {
		if scopeDocID != "" && txn.DocumentID != scopeDocID {
			continue
		}
		key := pairKey{txn.Date.Format("2006-01-02"), txn.Amount.String(), txn.DocumentID}
		switch txn.Direction {
		case model.DirectionDebit:
			debits[key] = append(debits[key], txn)
		case model.DirectionCredit:
			credits[key] = append(credits[key], txn)
		}
	}

	created := 0
	for key, creditSide := range credits {
		debitSide := debits[key]
		if len(debitSide) == 0 {
			continue
		}
		sortByID(debitSide)
		sortByID(creditSide)

		// Each reversal consumes one debit; extra credits stay unflagged.
		pairs := len(creditSide)
		if len(debitSide) < pairs {
			pairs = len(debitSide)
		}
		for i := 0; i < pairs; i++ {
			ok, err := d.flag(ctx, creditSide[i].ID, debitSide[i])
			if err != nil {
				return created, err
			}
			if ok {
				created++
			}
		}
	}
	return created, nil
}

func (d *DuplicateDetector) flag(ctx context.Context, transactionID string, duplicateOf model.Transaction) (bool, error) {
	details, err := model.EncodeDetails(model.DuplicateDetails{
		DuplicateOfID:  duplicateOf.ID,
		DuplicateOfDoc: duplicateOf.DocumentID,
	})
	if err != nil {
		return false, err
	}
	_, created, err := d.store.CreateFlagIfAbsent(ctx, &model.TransactionFlag{
		TransactionID: transactionID,
		Type:          model.FlagDuplicate,
		Details:       details,
	})
	if err != nil {
		return false, fmt.Errorf("failed to flag duplicate %s: %w", transactionID, err)
	}
	return created, nil
}

func sortByID(txns []model.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool { return txns[i].ID < txns[j].ID })
}
