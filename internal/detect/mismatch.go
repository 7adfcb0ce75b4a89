package detect

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// ATMWithdrawalCategory is the category ATM-pattern transactions should
// carry.
const ATMWithdrawalCategory = "ATM Withdrawal"

// checkReviewReason explains a check flag that suggests no replacement:
// checks are inherently ambiguous, so the detector asks for human review
// rather than guessing.
const checkReviewReason = "Check number - category may be incorrect"

var (
	atmRe        = regexp.MustCompile(`(?i)\batm\b`)
	withdrawalRe = regexp.MustCompile(`(?i)\b(withdrawal|withdraw|wdl|w/?d)\b`)
	checkRe      = regexp.MustCompile(`(?i)\bcheck\s*#?\s*\d+`)
)

// MismatchDetector applies description-pattern heuristics to catch
// transactions whose assigned category contradicts obvious structural cues.
type MismatchDetector struct {
	store FlagStore
}

// NewMismatchDetector creates a category mismatch detector writing to store.
func NewMismatchDetector(store FlagStore) *MismatchDetector {
	return &MismatchDetector{store: store}
}

// Detect evaluates the rule set over txns, optionally scoped to one
// document. Transactions whose category a human set explicitly are never
// second-guessed. Returns the number of flags created by this invocation.
func (m *MismatchDetector) Detect(ctx context.Context, txns []model.Transaction, scopeDocID string) (int, error) {
	created := 0
	for _, txn := range txns {
		if scopeDocID != "" && txn.DocumentID != scopeDocID {
			continue
		}
		if txn.ManualCategory {
			continue
		}

		details, matched, err := evaluateRules(&txn)
		if err != nil {
			return created, err
		}
		if !matched {
			continue
		}

		_, ok, err := m.store.CreateFlagIfAbsent(ctx, &model.TransactionFlag{
			TransactionID: txn.ID,
			Type:          model.FlagCategoryMismatch,
			Details:       details,
		})
		if err != nil {
			return created, fmt.Errorf("failed to flag mismatch %s: %w", txn.ID, err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// evaluateRules runs the pattern rules in order and returns the details
// payload of the first match.
func evaluateRules(txn *model.Transaction) (string, bool, error) {
	if isATMWithdrawal(txn.Description) && txn.CategoryName != ATMWithdrawalCategory {
		suggested := ATMWithdrawalCategory
		details, err := model.EncodeDetails(model.MismatchDetails{SuggestedCategory: &suggested})
		return details, err == nil, err
	}

	if checkRe.MatchString(txn.Description) && txn.CategoryName != "Other" {
		details, err := model.EncodeDetails(model.MismatchDetails{
			SuggestedCategory: nil,
			Reason:            checkReviewReason,
		})
		return details, err == nil, err
	}

	return "", false, nil
}

// isATMWithdrawal reports whether a description reads like an ATM cash
// withdrawal: it must mention ATM together with a withdrawal token
// (withdrawal, w/d, wd, wdl).
func isATMWithdrawal(description string) bool {
	return atmRe.MatchString(description) && withdrawalRe.MatchString(description)
}
