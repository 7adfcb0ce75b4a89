package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlagType identifies why a transaction was flagged for review.
type FlagType string

// Flag type constants.
const (
	FlagDuplicate        FlagType = "duplicate"
	FlagCategoryMismatch FlagType = "category_mismatch"
	FlagSuspicious       FlagType = "suspicious"
)

// IsValid reports whether the flag type is a known value.
func (ft FlagType) IsValid() bool {
	return ft == FlagDuplicate || ft == FlagCategoryMismatch || ft == FlagSuspicious
}

// TransactionFlag asserts that a specific transaction needs human review for
// a specific reason. At most one flag ever exists per (TransactionID, Type)
// pair; repeat detections return the existing flag.
type TransactionFlag struct {
	CreatedAt     time.Time
	ResolvedAt    *time.Time
	ID            string
	TransactionID string
	Details       string // JSON payload, shape depends on Type
	Resolution    string // e.g. removed, kept, fixed, dismissed; empty while open
	Type          FlagType
}

// Resolved reports whether the flag has been through the resolution workflow.
func (f *TransactionFlag) Resolved() bool {
	return f.ResolvedAt != nil
}

// DuplicateDetails is the details payload for duplicate flags, pointing at
// the transaction this one duplicates.
type DuplicateDetails struct {
	DuplicateOfID  string `json:"duplicate_of_id"`
	DuplicateOfDoc string `json:"duplicate_of_doc"`
}

// MismatchDetails is the details payload for category_mismatch flags.
// SuggestedCategory is nil when the detector flags for review without
// guessing a replacement.
type MismatchDetails struct {
	SuggestedCategory *string `json:"suggested_category"`
	Reason            string  `json:"reason,omitempty"`
}

// EncodeDetails serializes a flag payload for storage.
func EncodeDetails(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal flag details: %w", err)
	}
	return string(data), nil
}
