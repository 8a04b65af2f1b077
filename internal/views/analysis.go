package views

import (
	"sort"

	"koidash/pkg/contracts/domain"
)

// ExtremesSizeData is the averages of every sequence size, keyed by sequence
// size in the order the analysis lists them
type ExtremesSizeData = domain.OrderedMap[domain.AveragesData]

// SelectExtremesSizeData gathers, for each sequence size of symbol, the
// field averages at the given window and extremes sizes. Sequence sizes
// without window data or without both extremes buckets are skipped. ok is
// false when any selection is missing.
func SelectExtremesSizeData(analysis domain.Analysis, symbol string, window, extremes int) (ExtremesSizeData, bool) {
	var out ExtremesSizeData
	if symbol == "" || window == 0 || extremes == 0 {
		return out, false
	}
	symbolData, ok := analysis.AnalysisData.Get(symbol)
	if !ok {
		return out, false
	}

	windowKey := domain.SizeKey(window)
	extremesKey := domain.SizeKey(extremes)

	out = domain.NewOrderedMap[domain.AveragesData](nil, nil)
	for _, seqSize := range symbolData.Keys() {
		sizeData, _ := symbolData.Get(seqSize)
		wd, ok := sizeData.WindowSizeData[windowKey]
		if !ok {
			continue
		}
		pos, posOK := wd.PositiveExtremesAverages[extremesKey]
		neg, negOK := wd.NegativeExtremesAverages[extremesKey]
		if !posOK || !negOK {
			continue
		}

		out.Set(seqSize, domain.AveragesData{
			Overall:      wd.OverallFieldAverages,
			Std:          wd.OverallFieldStd,
			Positive:     pos.FieldAverages,
			PositiveData: domain.ExtremesSummary{Sum: pos.Sum, Average: pos.Average},
			Negative:     neg.FieldAverages,
			NegativeData: domain.ExtremesSummary{Sum: neg.Sum, Average: neg.Average},
		})
	}
	return out, true
}

// FieldTier classifies one field of data for a classification row. A field
// missing from any of the four value sets is not highlighted.
func FieldTier(row, field string, data domain.AveragesData) Tier {
	overall, ok1 := data.Overall[field]
	positive, ok2 := data.Positive[field]
	negative, ok3 := data.Negative[field]
	std, ok4 := data.Std[field]
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return TierNone
	}
	return Classify(row, overall, positive, negative, std)
}

// HighlightCell is one value of the averages table
type HighlightCell struct {
	Field string   `json:"field"`
	Value *float64 `json:"value"`
	Tier  Tier     `json:"tier,omitempty"`
}

// HighlightRow is one classification row of the averages table
type HighlightRow struct {
	Classification string          `json:"classification"`
	Cells          []HighlightCell `json:"cells"`
}

// HighlightTable is the averages table of one sequence size
type HighlightTable struct {
	SequenceSize string                 `json:"sequence_size"`
	Fields       []string               `json:"fields"`
	PositiveData domain.ExtremesSummary `json:"positive_data"`
	NegativeData domain.ExtremesSummary `json:"negative_data"`
	Rows         []HighlightRow         `json:"rows"`
}

// BuildHighlightTables lays out one table per sequence size. Columns are the
// fields of the positive bucket, sorted by name.
func BuildHighlightTables(sizes ExtremesSizeData) []HighlightTable {
	tables := make([]HighlightTable, 0, sizes.Len())
	for _, seqSize := range sizes.Keys() {
		data, _ := sizes.Get(seqSize)
		tables = append(tables, buildHighlightTable(seqSize, data))
	}
	return tables
}

func buildHighlightTable(seqSize string, data domain.AveragesData) HighlightTable {
	fields := make([]string, 0, len(data.Positive))
	for f := range data.Positive {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	rows := []struct {
		name   string
		values domain.FieldValues
	}{
		{RowOverall, data.Overall},
		{RowPositive, data.Positive},
		{RowNegative, data.Negative},
		{RowStd, data.Std},
	}

	table := HighlightTable{
		SequenceSize: seqSize,
		Fields:       fields,
		PositiveData: data.PositiveData,
		NegativeData: data.NegativeData,
		Rows:         make([]HighlightRow, 0, len(rows)),
	}
	for _, r := range rows {
		row := HighlightRow{Classification: r.name, Cells: make([]HighlightCell, 0, len(fields))}
		for _, f := range fields {
			cell := HighlightCell{Field: f, Tier: FieldTier(r.name, f, data)}
			if v, ok := r.values[f]; ok {
				cell.Value = &v
			}
			row.Cells = append(row.Cells, cell)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
