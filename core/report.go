package core

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/google/uuid"
)

// SourceReport is the `source` Report section (§6): encoding and dialect
// detection outcomes, carried verbatim from the detector components.
type SourceReport struct {
	Encoding         EncodingTag `json:"encoding"`
	EncodingConf     float64     `json:"encoding_confidence"`
	BOMPresent       bool        `json:"bom_present"`
	ReplacementCount int64       `json:"replacement_count"`

	Delimiter      string  `json:"delimiter"`
	DelimiterConf  float64 `json:"delimiter_confidence"`
	Quote          string  `json:"quote"`
	LineTerminator string  `json:"line_terminator"`
	TerminatorConf float64 `json:"terminator_confidence"`
	HasHeader      bool    `json:"has_header"`
	HeaderConf     float64 `json:"header_confidence"`
}

// StructureReport is the `structure` Report section (§6): row/column
// counts and the malformed-row tally.
type StructureReport struct {
	ColumnCount   int   `json:"column_count"`
	RowsProcessed int64 `json:"rows_processed"`
	RowsMalformed int64 `json:"rows_malformed"`
	DuplicateRows int64 `json:"duplicate_rows"`
}

// MultivariateReport is the `multivariate` Report section (§6, §12): PCA
// and cluster-analysis summaries over the selected numerical columns,
// computed from the Kernel's joint row reservoir, which is sampled
// separately from the pair estimators' reservoirs.
type MultivariateReport struct {
	PCA      *PCAResult      `json:"pca,omitempty"`
	Clusters *ClusterResult  `json:"clusters,omitempty"`
}

// Report is the root JSON contract document (§6): one object per profiled
// input, produced once by Pipeline.Run.
type Report struct {
	RunID       string            `json:"run_id"`
	Source      SourceReport      `json:"source"`
	Structure   StructureReport   `json:"structure"`
	Columns     []ColumnStats     `json:"columns"`
	Pairs       []PairStats       `json:"pairs,omitempty"`
	Multivariate *MultivariateReport `json:"multivariate,omitempty"`
	Quality     QualityScore      `json:"quality"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
	Partial     bool              `json:"partial"`
}

// newRunID generates a per-run correlation id. Not part of reproducible
// statistical output — only used to correlate a report with its log lines.
func newRunID() string {
	return uuid.New().String()
}

// MarshalJSON substitutes `null` for any NaN/Inf floating point field
// instead of failing outright, since encoding/json cannot represent
// IEEE-754 non-finite values and the contract (§6, §9) treats an
// unavailable statistic as JSON null rather than an encoding error.
func (r Report) MarshalJSON() ([]byte, error) {
	type alias Report
	raw, err := json.Marshal(alias(r))
	if err != nil {
		return nil, err
	}
	return sanitizeNonFiniteJSON(raw), nil
}

// sanitizeNonFiniteJSON is a defense-in-depth pass: Go's encoding/json
// already errors on NaN/Inf float64 fields rather than emitting them, so in
// practice every non-finite statistic must be converted to a nullable
// pointer or pre-checked before reaching Marshal. This helper exists for
// the rare literal "NaN"/"Inf" token encoding/json would otherwise refuse,
// normalizing any that slip through custom MarshalJSON implementations
// upstream (e.g. a *float64 left non-nil but pointing at a NaN).
func sanitizeNonFiniteJSON(b []byte) []byte {
	b = bytes.ReplaceAll(b, []byte(`"NaN"`), []byte(`null`))
	b = bytes.ReplaceAll(b, []byte(`"+Inf"`), []byte(`null`))
	b = bytes.ReplaceAll(b, []byte(`"-Inf"`), []byte(`null`))
	return b
}

// nullableFloat renders a float64 as a JSON-safe value: NaN/Inf become nil
// (JSON null), everything else is returned as a pointer to itself. Used by
// components that hold raw float64 statistics before they're assembled
// into a Report.
func nullableFloat(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	v := f
	return &v
}

// MarshalJSON on NormalityResult reports Statistic/PValue as null when the
// test was not computed or produced a value outside its defined range.
func (n NormalityResult) MarshalJSON() ([]byte, error) {
	type out struct {
		Statistic *float64 `json:"statistic"`
		PValue    *float64 `json:"p_value"`
		Available bool     `json:"available"`
	}
	return json.Marshal(out{
		Statistic: nullableFloat(n.Statistic),
		PValue:    nullableFloat(n.PValue),
		Available: n.Available,
	})
}

// MarshalJSON on ColumnStats renders Mean/Std/etc. as null for an
// all-missing column or one where the statistic is mathematically
// undefined (§9), instead of emitting a bogus NaN-derived number.
func (c ColumnStats) MarshalJSON() ([]byte, error) {
	type alias ColumnStats
	a := alias(c)
	type out struct {
		alias
		MinOut      *float64 `json:"min"`
		MaxOut      *float64 `json:"max"`
		MeanOut     *float64 `json:"mean"`
		StdOut      *float64 `json:"std"`
		SkewnessOut *float64 `json:"skewness"`
		KurtosisOut *float64 `json:"kurtosis"`
		MADOut      *float64 `json:"mad"`
		IQROut      *float64 `json:"iqr"`
	}
	var minOut, maxOut *float64
	if c.Min != nil {
		minOut = nullableFloat(*c.Min)
	}
	if c.Max != nil {
		maxOut = nullableFloat(*c.Max)
	}
	return json.Marshal(out{
		alias:       a,
		MinOut:      minOut,
		MaxOut:      maxOut,
		MeanOut:     nullableFloat(c.Mean),
		StdOut:      nullableFloat(c.Std),
		SkewnessOut: nullableFloat(c.Skewness),
		KurtosisOut: nullableFloat(c.Kurtosis),
		MADOut:      nullableFloat(c.MAD),
		IQROut:      nullableFloat(c.IQR),
	})
}

// MarshalJSON on PairStats nulls out Pearson/Spearman when undefined
// (zero-variance column, fewer than two paired observations).
func (p PairStats) MarshalJSON() ([]byte, error) {
	type out struct {
		I        int      `json:"i"`
		J        int      `json:"j"`
		Pearson  *float64 `json:"pearson"`
		Spearman *float64 `json:"spearman"`
		N        int64    `json:"n"`
	}
	return json.Marshal(out{
		I: p.I, J: p.J, N: p.N,
		Pearson:  nullableFloat(p.Pearson),
		Spearman: nullableFloat(p.Spearman),
	})
}
