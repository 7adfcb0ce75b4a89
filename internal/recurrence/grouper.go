// Package recurrence infers recurring financial commitments from
// transaction history. All functions are pure: results depend only on the
// transaction set and the explicitly passed status, override, and exclusion
// state, so recomputation is always safe.
package recurrence

import (
	"sort"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// merchantBucket collects one merchant's transactions, ascending by date,
// plus the display name chosen from the members' casing variants.
type merchantBucket struct {
	key          string
	displayName  string
	transactions []model.Transaction
}

// groupByMerchant buckets eligible transactions by lowercase merchant key.
// Credits, transfers, transactions without a normalized merchant, and
// transactions the user excluded never enter recurrence analysis: moving
// money between one's own accounts is not a commitment, and income cannot
// be one either.
func groupByMerchant(txns []model.Transaction, excluded map[string]bool) []merchantBucket {
	ordered := make([]model.Transaction, len(txns))
	copy(ordered, txns)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].ID < ordered[j].ID
	})

	buckets := make(map[string]*merchantBucket)
	// Casing tally per bucket: occurrence count and first chronological
	// position of each exact casing variant.
	counts := make(map[string]map[string]int)
	firstSeen := make(map[string]map[string]int)

	for i, txn := range ordered {
		if txn.Direction != model.DirectionDebit {
			continue
		}
		if txn.Class == model.ClassTransfer {
			continue
		}
		if excluded[txn.ID] {
			continue
		}
		key := txn.MerchantKey()
		if key == "" {
			continue
		}

		b, ok := buckets[key]
		if !ok {
			b = &merchantBucket{key: key}
			buckets[key] = b
			counts[key] = make(map[string]int)
			firstSeen[key] = make(map[string]int)
		}
		b.transactions = append(b.transactions, txn)

		variant := txn.NormalizedMerchant
		if _, seen := firstSeen[key][variant]; !seen {
			firstSeen[key][variant] = i
		}
		counts[key][variant]++
	}

	result := make([]merchantBucket, 0, len(buckets))
	for key, b := range buckets {
		b.displayName = pickDisplayName(counts[key], firstSeen[key])
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].key < result[j].key })
	return result
}

// pickDisplayName selects the casing variant that appears most often; ties
// go to the variant seen earliest in ascending-date order.
func pickDisplayName(counts, firstSeen map[string]int) string {
	var best string
	bestCount := -1
	for variant, count := range counts {
		switch {
		case count > bestCount:
			best, bestCount = variant, count
		case count == bestCount && firstSeen[variant] < firstSeen[best]:
			best = variant
		}
	}
	return best
}
