package core

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// PrimaryType is the column's assigned type after the profiling prefix
// (§4.E). The promotion lattice only ever widens: integer → float → text;
// boolean/date-time/categorical collapse to text on conflict.
type PrimaryType int

const (
	TypeUnknown PrimaryType = iota
	TypeInteger
	TypeBoolean
	TypeFloat
	TypeDateTime
	TypeCategorical
	TypeText
)

func (t PrimaryType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeBoolean:
		return "boolean"
	case TypeFloat:
		return "float"
	case TypeDateTime:
		return "date-time"
	case TypeCategorical:
		return "categorical"
	case TypeText:
		return "text"
	default:
		return "unknown"
	}
}

// SemanticTag is the column's semantic classification (§4.E).
type SemanticTag int

const (
	SemanticUnknown SemanticTag = iota
	SemanticIdentifier
	SemanticAge
	SemanticStatus
	SemanticCategory
)

func (s SemanticTag) String() string {
	switch s {
	case SemanticIdentifier:
		return "identifier"
	case SemanticAge:
		return "age"
	case SemanticStatus:
		return "status"
	case SemanticCategory:
		return "category"
	default:
		return "unknown"
	}
}

// ColumnDescriptor is created after the Type Inferencer finalizes (§3).
type ColumnDescriptor struct {
	Index      int
	Name       string
	Type       PrimaryType
	Semantic   SemanticTag
	Confidence float64
}

var missingTokens = map[string]bool{
	"": true, "null": true, "undefined": true, "na": true, "n/a": true, "nan": true,
}

func isMissingToken(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}

var boolTokens = map[string]bool{
	"true": true, "false": true, "yes": true, "no": true, "y": true, "n": true,
	"0": true, "1": true, "t": true, "f": true,
}

var integerPattern = regexp.MustCompile(`^-?\d+$`)
var floatPattern = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

var datetimePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[-+]\d{2}:?\d{2})?$`), // ISO 8601 / "YYYY-MM-DD HH:MM:SS"
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),                                                    // YYYY-MM-DD
	regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`),                                                    // YYYY/MM/DD
	regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`),                                                    // DD/MM/YYYY or MM/DD/YYYY
	regexp.MustCompile(`^\d{10}$`),                                                               // unix epoch seconds
	regexp.MustCompile(`^\d{13}$`),                                                               // unix epoch ms
}

func looksNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return integerPattern.MatchString(s) || floatPattern.MatchString(s)
}

func looksInteger(s string) bool {
	s = strings.TrimSpace(s)
	if !integerPattern.MatchString(s) {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func looksFloat(s string) bool {
	s = strings.TrimSpace(s)
	if !floatPattern.MatchString(s) {
		return false
	}
	// shopspring/decimal is used only as an extra syntax check: a token it
	// cannot parse is not a float. Its parsed value is discarded.
	if _, err := decimal.NewFromString(s); err != nil {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func looksBoolean(s string) bool {
	return boolTokens[strings.ToLower(strings.TrimSpace(s))]
}

func looksDateTime(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, p := range datetimePatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// columnTally accumulates per-candidate-type parse counts during profiling.
type columnTally struct {
	name                                            string
	nonMissing                                      int64
	integerCount, floatCount, boolCount, dtCount     int64
	distinctValues                                   map[string]struct{}
	maxLabelLen                                       int
	totalLabelLen                                     int64
}

func newColumnTally(name string) *columnTally {
	return &columnTally{name: name, distinctValues: make(map[string]struct{})}
}

func (c *columnTally) observe(raw string) {
	if isMissingToken(raw) {
		return
	}
	c.nonMissing++
	if looksInteger(raw) {
		c.integerCount++
	}
	if looksBoolean(raw) {
		c.boolCount++
	}
	if looksFloat(raw) {
		c.floatCount++
	}
	if looksDateTime(raw) {
		c.dtCount++
	}
	if len(c.distinctValues) < 100000 {
		c.distinctValues[raw] = struct{}{}
	}
	if len(raw) > c.maxLabelLen {
		c.maxLabelLen = len(raw)
	}
	c.totalLabelLen += int64(len(raw))
}

// decide applies the §4.E decision rule: the most specific type for which
// ≥95% of non-missing values parse, with precedence integer > boolean >
// float > date-time > categorical > text on ties.
func (c *columnTally) decide() (PrimaryType, float64) {
	if c.nonMissing == 0 {
		return TypeText, 0
	}
	n := float64(c.nonMissing)
	ratios := []struct {
		t     PrimaryType
		ratio float64
	}{
		{TypeInteger, float64(c.integerCount) / n},
		{TypeBoolean, float64(c.boolCount) / n},
		{TypeFloat, float64(c.floatCount) / n},
		{TypeDateTime, float64(c.dtCount) / n},
	}
	for _, r := range ratios {
		if r.ratio >= 0.95 {
			return r.t, r.ratio
		}
	}
	distinctRatio := float64(len(c.distinctValues)) / n
	if distinctRatio <= 0.1 && c.maxLabelLen <= 64 {
		return TypeCategorical, 1 - distinctRatio
	}
	return TypeText, 1.0
}

// TypeInferencer operates on the first N_PROFILE non-malformed records
// (§4.E), assigning each column a primary type and semantic tag.
type TypeInferencer struct {
	cfg      Config
	header   []string
	tallies  []*columnTally
	rows     int
	done     bool
}

func NewTypeInferencer(cfg Config, header []string) *TypeInferencer {
	ti := &TypeInferencer{cfg: cfg, header: header}
	ti.tallies = make([]*columnTally, len(header))
	for i, h := range header {
		ti.tallies[i] = newColumnTally(h)
	}
	return ti
}

// Observe feeds one non-malformed record into the profile. Returns true
// once N_PROFILE rows have been observed (profiling complete).
func (ti *TypeInferencer) Observe(rec *Record) bool {
	if ti.done {
		return true
	}
	for i := 0; i < len(ti.tallies); i++ {
		var v string
		if i < rec.NumFields() {
			v = rec.Field(i)
		}
		ti.tallies[i].observe(v)
	}
	ti.rows++
	if ti.rows >= ti.cfg.NProfile {
		ti.done = true
	}
	return ti.done
}

// Finalize produces the fixed ColumnDescriptor set. The descriptor set is
// fixed after this call; subsequent type evidence promotes but never
// demotes (enforced by the kernel, not here).
func (ti *TypeInferencer) Finalize() []ColumnDescriptor {
	descs := make([]ColumnDescriptor, len(ti.tallies))
	for i, tl := range ti.tallies {
		typ, conf := tl.decide()
		name := tl.name
		if name == "" {
			name = syntheticColumnName(i)
		}
		sem := inferSemanticTag(name, typ, tl)
		descs[i] = ColumnDescriptor{Index: i, Name: name, Type: typ, Semantic: sem, Confidence: conf}
	}
	return descs
}

func syntheticColumnName(i int) string {
	return "Col_" + strconv.Itoa(i)
}

var idNamePattern = regexp.MustCompile(`(?i)(^id$|_id$|^id_|id$|uuid|key)`)
var agePattern = regexp.MustCompile(`(?i)^age$|_age$|^age_`)

func inferSemanticTag(name string, typ PrimaryType, tl *columnTally) SemanticTag {
	lower := strings.ToLower(name)
	if idNamePattern.MatchString(lower) {
		if tl.nonMissing > 0 && len(tl.distinctValues) >= int(float64(tl.nonMissing)*0.95) {
			return SemanticIdentifier
		}
	}
	if agePattern.MatchString(lower) && typ == TypeInteger {
		return SemanticAge
	}
	if typ == TypeCategorical && len(tl.distinctValues) == 2 {
		return SemanticStatus
	}
	if typ == TypeCategorical {
		return SemanticCategory
	}
	return SemanticUnknown
}

// PromoteType widens a previously-decided type in light of a non-conforming
// value, per the promotion lattice (§9): integer → float → text; a column
// never narrows back.
func PromoteType(current PrimaryType, raw string) PrimaryType {
	switch current {
	case TypeInteger:
		if looksInteger(raw) {
			return current
		}
		if looksFloat(raw) {
			return TypeFloat
		}
		return TypeText
	case TypeFloat:
		if looksFloat(raw) {
			return current
		}
		return TypeText
	case TypeBoolean, TypeDateTime, TypeCategorical:
		return TypeText
	default:
		return current
	}
}
