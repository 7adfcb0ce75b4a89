// Package engine orchestrates recurrence analysis and anomaly detection
// over the stored transaction set. Every operation recomputes from source
// data, so re-running any of them is always safe.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/detect"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/recurrence"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// Engine wires the pure detection cores to the persistence layer.
type Engine struct {
	storage service.Storage
}

// New creates an engine backed by the given storage.
func New(storage service.Storage) *Engine {
	return &Engine{storage: storage}
}

// CommitmentGroups recomputes commitment groups from the current transaction
// set and commitment state. now is the reference time for unexpected-activity
// evaluation.
func (e *Engine) CommitmentGroups(ctx context.Context, now time.Time) (recurrence.Result, error) {
	txns, err := e.workingSet(ctx, service.TransactionFilter{})
	if err != nil {
		return recurrence.Result{}, err
	}

	statuses, err := e.storage.GetCommitmentStatuses(ctx)
	if err != nil {
		return recurrence.Result{}, fmt.Errorf("failed to load commitment statuses: %w", err)
	}
	overrides, err := e.storage.GetCommitmentOverrides(ctx)
	if err != nil {
		return recurrence.Result{}, fmt.Errorf("failed to load commitment overrides: %w", err)
	}
	excluded, err := e.storage.GetExcludedTransactionIDs(ctx)
	if err != nil {
		return recurrence.Result{}, fmt.Errorf("failed to load exclusions: %w", err)
	}

	statusMap := make(map[string]model.CommitmentStatus, len(statuses))
	for _, st := range statuses {
		statusMap[st.MerchantKey] = st
	}
	overrideMap := make(map[string]model.CommitmentOverride, len(overrides))
	for _, ov := range overrides {
		overrideMap[ov.MerchantKey] = ov
	}

	return recurrence.Compute(txns, recurrence.Inputs{
		Statuses:  statusMap,
		Overrides: overrideMap,
		Excluded:  excluded,
		Now:       now,
	}), nil
}

// SetCommitmentStatus updates a merchant's status. "active" deletes the
// status row; no active row is ever persisted.
func (e *Engine) SetCommitmentStatus(ctx context.Context, merchant, status, notes string) error {
	if status == "active" {
		return e.storage.ClearCommitmentStatus(ctx, merchant)
	}
	value := model.CommitmentStatusValue(status)
	if !value.IsValid() {
		return fmt.Errorf("unknown commitment status %q (want active, ended, or not_recurring)", status)
	}
	return e.storage.SetCommitmentStatus(ctx, merchant, value, notes)
}

// SetCommitmentOverride stores advisory frequency/amount replacements for a
// merchant.
func (e *Engine) SetCommitmentOverride(ctx context.Context, override model.CommitmentOverride) error {
	return e.storage.SetCommitmentOverride(ctx, override)
}

// ClearCommitmentOverride removes a merchant's override row.
func (e *Engine) ClearCommitmentOverride(ctx context.Context, merchant string) error {
	return e.storage.ClearCommitmentOverride(ctx, merchant)
}

// MergeMerchants folds the named merchant identities into target, cleaning
// up status and override rows orphaned by the rename. Returns the number of
// transactions rewritten.
func (e *Engine) MergeMerchants(ctx context.Context, names []string, target string) (int64, error) {
	count, err := e.storage.MergeMerchants(ctx, names, target)
	if err != nil {
		return 0, err
	}
	slog.Info("Merged merchants", "sources", len(names), "target", target, "transactions", count)
	return count, nil
}

// SplitMerchant moves exactly the given transactions under a new merchant
// name. Returns the number of rows changed; an empty id set is a no-op.
func (e *Engine) SplitMerchant(ctx context.Context, transactionIDs []string, newName string) (int64, error) {
	count, err := e.storage.SplitMerchant(ctx, transactionIDs, newName)
	if err != nil {
		return 0, err
	}
	slog.Info("Split merchant", "new_name", newName, "transactions", count)
	return count, nil
}

// ExcludeTransaction pulls one transaction out of recurrence grouping.
func (e *Engine) ExcludeTransaction(ctx context.Context, transactionID string) error {
	if _, err := e.storage.GetTransactionByID(ctx, transactionID); err != nil {
		return err
	}
	return e.storage.ExcludeTransaction(ctx, transactionID)
}

// IncludeTransaction returns a transaction to recurrence grouping.
func (e *Engine) IncludeTransaction(ctx context.Context, transactionID string) error {
	return e.storage.IncludeTransaction(ctx, transactionID)
}

// DetectDuplicates runs duplicate detection, optionally scoped to one
// document. Returns the number of new flags.
func (e *Engine) DetectDuplicates(ctx context.Context, documentID string) (int, error) {
	txns, err := e.workingSet(ctx, service.TransactionFilter{})
	if err != nil {
		return 0, err
	}
	docs, err := e.storage.GetDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load documents: %w", err)
	}
	docSeq := make(map[string]int64, len(docs))
	for _, doc := range docs {
		docSeq[doc.ID] = doc.Seq
	}

	created, err := detect.NewDuplicateDetector(e.storage).Detect(ctx, txns, docSeq, documentID)
	if err != nil {
		return created, err
	}
	slog.Info("Duplicate detection complete", "document", documentID, "new_flags", created)
	return created, nil
}

// DetectCategoryMismatches runs the category heuristics, optionally scoped
// to one document. Returns the number of new flags.
func (e *Engine) DetectCategoryMismatches(ctx context.Context, documentID string) (int, error) {
	txns, err := e.workingSet(ctx, service.TransactionFilter{DocumentID: documentID})
	if err != nil {
		return 0, err
	}

	created, err := detect.NewMismatchDetector(e.storage).Detect(ctx, txns, documentID)
	if err != nil {
		return created, err
	}
	slog.Info("Mismatch detection complete", "document", documentID, "new_flags", created)
	return created, nil
}

// ResolveFlag records the resolution outcome for a flag. When a category id
// accompanies a category_mismatch resolution, the flagged transaction is
// recategorized and marked manual so detectors stop second-guessing it.
func (e *Engine) ResolveFlag(ctx context.Context, flagID, resolution string, categoryID *int) error {
	flag, err := e.storage.GetFlagByID(ctx, flagID)
	if err != nil {
		return err
	}

	if categoryID != nil {
		if flag.Type != model.FlagCategoryMismatch {
			return fmt.Errorf("category can only be set when resolving a category_mismatch flag, not %s", flag.Type)
		}
		category, err := e.storage.GetCategoryByID(ctx, *categoryID)
		if err != nil {
			return err
		}
		if err := e.storage.UpdateTransactionCategory(ctx, flag.TransactionID, category.Name, true); err != nil {
			return err
		}
	}

	return e.storage.ResolveFlag(ctx, flagID, resolution)
}

// workingSet loads transactions and drops records violating input
// invariants. A malformed record must not abort the whole detection pass.
func (e *Engine) workingSet(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	txns, err := e.storage.GetTransactions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	valid := txns[:0]
	for _, txn := range txns {
		if err := txn.Validate(); err != nil {
			slog.Warn("Dropping invalid transaction", "id", txn.ID, "error", err)
			continue
		}
		valid = append(valid, txn)
	}
	return valid, nil
}
