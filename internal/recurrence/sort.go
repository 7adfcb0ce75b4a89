package recurrence

import (
	"sort"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// SortField selects the primary key for sorting commitment groups.
type SortField string

// Sort field constants.
const (
	SortByMerchant      SortField = "merchant"
	SortByFrequency     SortField = "frequency"
	SortByAvgAmount     SortField = "avg"
	SortByMonthlyAmount SortField = "monthly"
	SortByOccurrences   SortField = "occurrences"
	SortByLastDate      SortField = "last"
	SortByTotalAmount   SortField = "total"
)

// ParseSortField maps a user-supplied field name onto a SortField.
func ParseSortField(s string) (SortField, bool) {
	f := SortField(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case SortByMerchant, SortByFrequency, SortByAvgAmount, SortByMonthlyAmount,
		SortByOccurrences, SortByLastDate, SortByTotalAmount:
		return f, true
	}
	return "", false
}

// SortGroups stably sorts groups in place by the given field. Equal primary
// keys preserve their prior relative order, so chained sorts compose the way
// a user expects.
func SortGroups(groups []model.CommitmentGroup, field SortField, descending bool) {
	cmp := comparator(field)
	sort.SliceStable(groups, func(i, j int) bool {
		c := cmp(&groups[i], &groups[j])
		if descending {
			return c > 0
		}
		return c < 0
	})
}

// comparator returns a three-way compare for the field; 0 keeps prior order.
func comparator(field SortField) func(a, b *model.CommitmentGroup) int {
	switch field {
	case SortByMerchant:
		return func(a, b *model.CommitmentGroup) int {
			return strings.Compare(strings.ToLower(a.MerchantName), strings.ToLower(b.MerchantName))
		}
	case SortByFrequency:
		return func(a, b *model.CommitmentGroup) int {
			return a.Frequency.Rank() - b.Frequency.Rank()
		}
	case SortByAvgAmount:
		return func(a, b *model.CommitmentGroup) int {
			return a.AvgAmount.Cmp(b.AvgAmount)
		}
	case SortByMonthlyAmount:
		return func(a, b *model.CommitmentGroup) int {
			return a.EstimatedMonthlyAmount.Cmp(b.EstimatedMonthlyAmount)
		}
	case SortByOccurrences:
		return func(a, b *model.CommitmentGroup) int {
			return a.Occurrences - b.Occurrences
		}
	case SortByLastDate:
		return func(a, b *model.CommitmentGroup) int {
			switch {
			case a.LastDate.Before(b.LastDate):
				return -1
			case a.LastDate.After(b.LastDate):
				return 1
			default:
				return 0
			}
		}
	default:
		return func(a, b *model.CommitmentGroup) int {
			return a.TotalAmount.Cmp(b.TotalAmount)
		}
	}
}

func sortEnded(groups []model.EndedCommitment) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].TotalAmount.Cmp(groups[j].TotalAmount) > 0
	})
}
