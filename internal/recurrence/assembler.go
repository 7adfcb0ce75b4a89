package recurrence

import (
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"

	"github.com/shopspring/decimal"
)

// Inputs carries the persisted state a commitment computation depends on.
// Maps are keyed by lowercase merchant name (statuses, overrides) and
// transaction id (excluded). Now is the reference time for evaluating
// activity after an ended status; it is an explicit input so results stay
// deterministic.
type Inputs struct {
	Statuses  map[string]model.CommitmentStatus
	Overrides map[string]model.CommitmentOverride
	Excluded  map[string]bool
	Now       time.Time
}

// Result partitions accepted commitments into active and ended lists. Both
// are sorted by total amount descending on return; callers may re-sort the
// active list with SortGroups.
type Result struct {
	Active []model.CommitmentGroup
	Ended  []model.EndedCommitment
}

// Compute derives commitment groups from the transaction set. It is a pure
// function of its arguments: no ambient lookups, no wall clock.
func Compute(txns []model.Transaction, in Inputs) Result {
	var result Result

	for _, bucket := range groupByMerchant(txns, in.Excluded) {
		status, hasStatus := in.Statuses[bucket.key]
		if hasStatus && status.Status == model.StatusNotRecurring {
			// Excluded merchants never appear, active or ended.
			continue
		}

		group, ok := assembleGroup(bucket, in.Overrides[bucket.key])
		if !ok {
			continue
		}

		if hasStatus && status.Status == model.StatusEnded {
			result.Ended = append(result.Ended, model.EndedCommitment{
				CommitmentGroup:    group,
				StatusChangedAt:    status.StatusChangedAt,
				UnexpectedActivity: group.LastDate.After(status.StatusChangedAt),
			})
			continue
		}
		result.Active = append(result.Active, group)
	}

	SortGroups(result.Active, SortByTotalAmount, true)
	sortEnded(result.Ended)
	return result
}

// assembleGroup runs the cadence classifier over one merchant bucket and
// builds the commitment group. Returns ok=false when the bucket fails the
// eligibility gate.
func assembleGroup(bucket merchantBucket, override model.CommitmentOverride) (model.CommitmentGroup, bool) {
	n := len(bucket.transactions)
	dates := make([]time.Time, n)
	ids := make([]string, n)
	total := decimal.Zero
	for i, txn := range bucket.transactions {
		dates[i] = txn.Date
		ids[i] = txn.ID
		total = total.Add(txn.Amount)
	}

	computed := classifyCadence(averageGapDays(dates))
	if !isCommitment(n, computed) {
		return model.CommitmentGroup{}, false
	}

	avg := total.Div(decimal.NewFromInt(int64(n))).Round(2)
	first, last := dates[0], dates[n-1]

	group := model.CommitmentGroup{
		MerchantName:           bucket.displayName,
		TransactionIDs:         ids,
		Occurrences:            n,
		TotalAmount:            total,
		AvgAmount:              avg,
		FirstDate:              first,
		LastDate:               last,
		Frequency:              computed,
		EstimatedMonthlyAmount: monthlyEquivalent(computed, avg, total, first, last),
		Category:               majorityCategory(bucket.transactions),
	}

	// Overrides replace display values only; the gate above already ran on
	// the computed cadence.
	if override.Frequency != "" {
		group.Frequency = override.Frequency
	}
	if override.MonthlyAmountOverride != nil {
		group.EstimatedMonthlyAmount = override.MonthlyAmountOverride.Round(2)
	}

	return group, true
}

// majorityCategory picks the category assigned to most member transactions.
// Unassigned members do not vote; ties go to the category seen earliest in
// date order. Empty when no member has a category.
func majorityCategory(txns []model.Transaction) string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, txn := range txns {
		if txn.CategoryName == "" {
			continue
		}
		if _, seen := firstSeen[txn.CategoryName]; !seen {
			firstSeen[txn.CategoryName] = i
		}
		counts[txn.CategoryName]++
	}
	return pickDisplayName(counts, firstSeen)
}
