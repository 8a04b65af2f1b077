package views

import (
	"math"
)

// Tier is a highlight level for an aggregate field value
type Tier string

const (
	TierNone            Tier = ""
	TierExtreme         Tier = "extreme"
	TierDivergent       Tier = "divergent"
	TierBothSignificant Tier = "both-significant"
	TierSignificant     Tier = "significant"
)

// Classification rows of the averages table
const (
	RowOverall  = "Overall"
	RowPositive = "Positive"
	RowNegative = "Negative"
	RowStd      = "Std.Dev."
)

// Classify returns the highlight tier of one field for a classification
// row. Only Positive and Negative rows are highlighted. Tiers are checked in
// order and the first match wins.
func Classify(row string, overall, positive, negative, std float64) Tier {
	if row != RowPositive && row != RowNegative {
		return TierNone
	}

	own := positive
	if row == RowNegative {
		own = negative
	}

	switch {
	case significant(own, 2, overall, std):
		return TierExtreme
	case significant(positive, 1, negative, std):
		return TierDivergent
	case significant(positive, 1, overall, std) && significant(negative, 1, overall, std):
		return TierBothSignificant
	case significant(own, 1.5, overall, std):
		return TierSignificant
	}
	return TierNone
}

// significant reports whether value and comp differ in magnitude by more
// than mult standard deviations. A zero std makes any difference significant.
func significant(value, mult, comp, std float64) bool {
	return math.Abs(math.Abs(value)-math.Abs(comp)) > std*mult
}
