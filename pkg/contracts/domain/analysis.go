package domain

import (
	"encoding/json"
	"strconv"
)

// FieldValues maps a bar field name to a statistic
type FieldValues map[string]float64

// UnmarshalJSON drops null entries, which is how undefined statistics arrive.
func (f *FieldValues) UnmarshalJSON(data []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*f = nil
		return nil
	}
	out := make(FieldValues, len(raw))
	for k, v := range raw {
		if v != nil {
			out[k] = *v
		}
	}
	*f = out
	return nil
}

// Sequence is a run of bars the analyzer grouped together
type Sequence struct {
	Size           int     `json:"size"`
	StartIndex     int     `json:"start_index"`
	CumulativeDiff float64 `json:"cumulative_diff"`
}

// ExtremesData aggregates the most extreme sequences of one size
type ExtremesData struct {
	Sum           float64     `json:"sum"`
	Average       float64     `json:"average"`
	FieldAverages FieldValues `json:"field_averages"`
}

// WindowSizeData holds the statistics computed for one window size
type WindowSizeData struct {
	PositiveExtremesAverages map[string]ExtremesData `json:"positive_extremes_averages"`
	NegativeExtremesAverages map[string]ExtremesData `json:"negative_extremes_averages"`
	OverallFieldAverages     FieldValues             `json:"overall_field_averages"`
	OverallFieldStd          FieldValues             `json:"overall_field_std"`
}

// AnalysisSizeData holds the sequences of one size and their per-window statistics
type AnalysisSizeData struct {
	Sequences      []Sequence                `json:"sequences"`
	WindowSizeData map[string]WindowSizeData `json:"window_size_data"`
}

// SymbolAnalysis maps sequence size to its data, in the order received
type SymbolAnalysis = OrderedMap[AnalysisSizeData]

// AnalysisData maps symbol to its analysis, in the order received
type AnalysisData = OrderedMap[SymbolAnalysis]

// AnalysisStage is the lifecycle stage of an analysis
type AnalysisStage string

const (
	AnalysisStageInactive   AnalysisStage = "inactive"
	AnalysisStageData       AnalysisStage = "data"
	AnalysisStageSequencing AnalysisStage = "sequencing"
	AnalysisStageAnalysis   AnalysisStage = "analysis"
	AnalysisStageComplete   AnalysisStage = "complete"
)

// Analysis is the statistical analysis of one strategy
type Analysis struct {
	Name          string        `json:"name,omitempty"`
	Stage         AnalysisStage `json:"stage"`
	AnalysisData  AnalysisData  `json:"analysis_data"`
	ExtremesSizes []int         `json:"extremes_sizes"`
	SequenceSizes []int         `json:"sequence_sizes"`
	WindowSizes   []int         `json:"window_sizes"`
}

// AnalysisState maps strategy name to its analysis, in the order received
type AnalysisState = OrderedMap[Analysis]

// ExtremesSummary is the sum and average of one extremes bucket
type ExtremesSummary struct {
	Sum     float64 `json:"sum"`
	Average float64 `json:"average"`
}

// AveragesData is the field statistics for one sequence size at the
// selected window and extremes sizes
type AveragesData struct {
	Overall      FieldValues     `json:"overall"`
	Std          FieldValues     `json:"std"`
	Positive     FieldValues     `json:"positive"`
	PositiveData ExtremesSummary `json:"positiveData"`
	Negative     FieldValues     `json:"negative"`
	NegativeData ExtremesSummary `json:"negativeData"`
}

// SizeKey renders a window, extremes or sequence size as a map key.
func SizeKey(size int) string {
	return strconv.Itoa(size)
}
