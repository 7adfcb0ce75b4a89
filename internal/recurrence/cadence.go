package recurrence

import (
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"

	"github.com/shopspring/decimal"
)

// avgDaysPerMonth is the mean Gregorian month length, used to normalize
// irregular cadences onto a monthly basis.
const avgDaysPerMonth = 30.44

var (
	daysPerYear   = decimal.NewFromFloat(365.25)
	weeksPerMonth = decimal.NewFromInt(12 * 7) // divisor for weekly -> monthly
	three         = decimal.NewFromInt(3)
	six           = decimal.NewFromInt(6)
	twelve        = decimal.NewFromInt(12)
	one           = decimal.NewFromInt(1)
)

// averageGapDays computes the mean of the day gaps between consecutive
// occurrences. Dates must be ascending. Returns 0 when fewer than two
// occurrences exist.
func averageGapDays(dates []time.Time) float64 {
	if len(dates) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(dates); i++ {
		total += dates[i].Sub(dates[i-1]).Hours() / 24
	}
	return total / float64(len(dates)-1)
}

// classifyCadence maps an average gap in days onto a frequency band. Bands
// are half-open and evaluated narrowest first; anything outside every band
// is irregular. The edges (a 19- or 45-day average) deliberately fall
// through to irregular.
func classifyCadence(avgGapDays float64) model.Frequency {
	switch {
	case avgGapDays >= 5 && avgGapDays < 10:
		return model.FrequencyWeekly
	case avgGapDays >= 20 && avgGapDays < 45:
		return model.FrequencyMonthly
	case avgGapDays >= 75 && avgGapDays < 110:
		return model.FrequencyQuarterly
	case avgGapDays >= 150 && avgGapDays < 220:
		return model.FrequencySemiAnnual
	case avgGapDays >= 330 && avgGapDays < 400:
		return model.FrequencyYearly
	default:
		return model.FrequencyIrregular
	}
}

// isCommitment is the recurrence eligibility gate. Three occurrences always
// qualify. Exactly two qualify only when the computed band is semi-annual or
// yearly: a ~6- or ~12-month gap between two charges is itself strong
// periodic evidence, while a short gap between two charges looks like an
// incidental repeat. The gate always runs on the computed band, never on an
// override.
func isCommitment(occurrences int, computed model.Frequency) bool {
	if occurrences >= 3 {
		return true
	}
	if occurrences == 2 {
		return computed == model.FrequencySemiAnnual || computed == model.FrequencyYearly
	}
	return false
}

// monthlyEquivalent normalizes the average charge onto a monthly basis,
// rounded to cents. Irregular groups spread their total over the months the
// group spans, with a one-month floor.
func monthlyEquivalent(freq model.Frequency, avg, total decimal.Decimal, first, last time.Time) decimal.Decimal {
	switch freq {
	case model.FrequencyWeekly:
		return avg.Mul(daysPerYear).Div(weeksPerMonth).Round(2)
	case model.FrequencyMonthly:
		return avg.Round(2)
	case model.FrequencyQuarterly:
		return avg.Div(three).Round(2)
	case model.FrequencySemiAnnual:
		return avg.Div(six).Round(2)
	case model.FrequencyYearly:
		return avg.Div(twelve).Round(2)
	default:
		days := last.Sub(first).Hours() / 24
		months := decimal.NewFromFloat(days / avgDaysPerMonth)
		if months.LessThan(one) {
			months = one
		}
		return total.Div(months).Round(2)
	}
}
