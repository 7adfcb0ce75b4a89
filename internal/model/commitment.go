package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the inferred cadence of a recurring commitment.
type Frequency string

// Frequency constants, shortest cadence first.
const (
	FrequencyWeekly     Frequency = "weekly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiAnnual Frequency = "semi-annual"
	FrequencyYearly     Frequency = "yearly"
	FrequencyIrregular  Frequency = "irregular"
)

// Rank orders frequencies from shortest to longest cadence, with irregular
// sorting last. Used for the frequency sort field.
func (f Frequency) Rank() int {
	switch f {
	case FrequencyWeekly:
		return 0
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 2
	case FrequencySemiAnnual:
		return 3
	case FrequencyYearly:
		return 4
	default:
		return 5
	}
}

// IsValid reports whether the frequency is a known value.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly,
		FrequencySemiAnnual, FrequencyYearly, FrequencyIrregular:
		return true
	}
	return false
}

// CommitmentGroup is a recurring commitment derived from transaction history.
// Groups are recomputed fresh from the current transaction set on every
// request and never cached as ground truth.
type CommitmentGroup struct {
	FirstDate              time.Time
	LastDate               time.Time
	MerchantName           string // canonical display casing
	Category               string // majority category across members
	Frequency              Frequency
	TransactionIDs         []string // ordered by date ascending
	TotalAmount            decimal.Decimal
	AvgAmount              decimal.Decimal
	EstimatedMonthlyAmount decimal.Decimal
	Occurrences            int
}

// EndedCommitment is a commitment whose merchant was marked ended by the
// user. UnexpectedActivity is set when the merchant kept charging after the
// status change.
type EndedCommitment struct {
	CommitmentGroup
	StatusChangedAt    time.Time
	UnexpectedActivity bool
}

// CommitmentStatusValue is the persisted per-merchant status. Absence of a
// status row means the merchant is active; "active" is never stored.
type CommitmentStatusValue string

// Commitment status constants.
const (
	StatusEnded        CommitmentStatusValue = "ended"
	StatusNotRecurring CommitmentStatusValue = "not_recurring"
)

// IsValid reports whether the status is a storable value.
func (s CommitmentStatusValue) IsValid() bool {
	return s == StatusEnded || s == StatusNotRecurring
}

// CommitmentStatus marks a merchant as ended or not recurring, keyed by
// lowercase merchant name.
type CommitmentStatus struct {
	StatusChangedAt time.Time
	MerchantKey     string
	Status          CommitmentStatusValue
	Notes           string
}

// CommitmentOverride carries user-supplied replacements for a merchant's
// computed frequency label and monthly estimate. Either field may be unset
// independently. Overrides affect display and estimation only; the
// recurrence eligibility gate always runs on computed values.
type CommitmentOverride struct {
	MerchantKey           string
	Frequency             Frequency        // empty when not overridden
	MonthlyAmountOverride *decimal.Decimal // nil when not overridden
}
