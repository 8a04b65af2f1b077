package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name                            string
		row                             string
		overall, positive, negative, sd float64
		want                            Tier
	}{
		{"positive extreme", RowPositive, 10, 13, 9, 1, TierExtreme},
		{"negative extreme misses at the boundary, divergent", RowNegative, 10, 10.5, 8, 1, TierDivergent},
		{"negative extreme", RowNegative, 10, 10, 6, 1, TierExtreme},
		{"extreme uses the row's own bucket", RowNegative, 10, 13, 9.5, 1, TierDivergent},
		{"divergent", RowPositive, 10, 11.5, 9.5, 1, TierDivergent},
		{"both significant", RowPositive, 10, 11.2, -11.2, 1, TierBothSignificant},
		{"significant", RowPositive, 0, 1.7, 0.9, 1, TierSignificant},
		{"significant needs more than 1.5 std", RowPositive, 0, 1.5, 0.9, 1, TierNone},
		{"nothing notable", RowPositive, 10, 10.4, 10.1, 1, TierNone},
		{"magnitudes are compared, not signs", RowPositive, 10, -10, 10, 1, TierNone},
		{"zero std flags any deviation", RowPositive, 1, 1.0001, 1, 0, TierExtreme},
		{"zero std with equal values", RowPositive, 1, 1, 1, 0, TierNone},
		{"overall row is never highlighted", RowOverall, 10, 13, 9, 1, TierNone},
		{"std row is never highlighted", RowStd, 10, 13, 9, 1, TierNone},
		{"unknown row", "Other", 10, 13, 9, 1, TierNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.row, tt.overall, tt.positive, tt.negative, tt.sd))
		})
	}
}

func TestSignificant(t *testing.T) {
	// |(|13| - |10|)| = 3 > 2
	assert.True(t, significant(13, 2, 10, 1))
	// |(|8| - |10|)| = 2, not > 2
	assert.False(t, significant(8, 2, 10, 1))
	assert.True(t, significant(-14, 2, 10, 1))
}
