package core

import (
	"math"
	"strings"
)

// LineTerminator is one of the three terminator shapes the detector
// recognizes (§3).
type LineTerminator int

const (
	LineLF LineTerminator = iota
	LineCRLF
	LineCR
)

func (t LineTerminator) String() string {
	switch t {
	case LineCRLF:
		return "CRLF"
	case LineCR:
		return "CR"
	default:
		return "LF"
	}
}

// ParseContext is immutable after detection (§3).
type ParseContext struct {
	Delimiter         rune
	Quote             rune
	HasQuote          bool
	LineTerminator    LineTerminator
	HasHeader         bool
	DelimiterConf     float64
	TerminatorConf    float64
	HeaderConf        float64
	Diagnostics       []Diagnostic
}

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// DetectDialect runs the §4.C algorithm over the detection budget prefix
// (the smaller of 1 MiB or 1000 lines, already sliced by the caller).
func DetectDialect(budget string, cfg Config) ParseContext {
	lines := splitLinesBudget(budget, cfg.DetectionBudgetLines)

	type candidate struct {
		delim      rune
		mode       int
		score      float64
		confidence float64
	}
	var best candidate
	best.score = -1
	allUnstable := true

	for _, d := range candidateDelimiters {
		counts := make([]int, 0, len(lines))
		for _, ln := range lines {
			if ln == "" {
				continue
			}
			counts = append(counts, countFieldsForDelimiter(ln, d))
		}
		if len(counts) == 0 {
			continue
		}
		mode, modeFreq := modeOf(counts)
		cv := coefficientOfVariation(counts)
		if cv <= 0.5 {
			allUnstable = false
		}
		score := (float64(modeFreq) / float64(len(counts))) * (1 - math.Min(cv, 1))
		if mode == 1 {
			score *= 0.5 // penalize modes of 1
		}
		if score > best.score {
			best = candidate{delim: d, mode: mode, score: score, confidence: normalizeScore(score)}
		}
	}

	pc := ParseContext{Quote: '"', HasQuote: true}
	if best.score < 0 || allUnstable || best.mode == 1 {
		pc.Delimiter = ','
		pc.DelimiterConf = 0.1
		pc.Diagnostics = append(pc.Diagnostics, Diagnostic{Kind: DiagDialectUncertain, Message: "no delimiter produced a stable multi-column count"})
	} else {
		pc.Delimiter = best.delim
		pc.DelimiterConf = best.confidence
	}

	pc.LineTerminator, pc.TerminatorConf = detectLineTerminator(budget)
	pc.HasHeader, pc.HeaderConf = detectHeader(lines, pc.Delimiter)

	return pc
}

func splitLinesBudget(s string, maxLines int) []string {
	// normalize terminators for the purposes of counting fields only; the
	// tokenizer (§4.D) is the source of truth for actual record splitting.
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

func countFieldsForDelimiter(line string, delim rune) int {
	count := 1
	inQuote := false
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c == '"' {
			inQuote = !inQuote
			continue
		}
		if c == delim && !inQuote {
			count++
		}
	}
	return count
}

func modeOf(counts []int) (mode int, freq int) {
	tally := make(map[int]int)
	for _, c := range counts {
		tally[c]++
	}
	for v, f := range tally {
		if f > freq {
			mode, freq = v, f
		}
	}
	return
}

func coefficientOfVariation(counts []int) float64 {
	if len(counts) == 0 {
		return 1
	}
	var sum float64
	for _, c := range counts {
		sum += float64(c)
	}
	mean := sum / float64(len(counts))
	if mean == 0 {
		return 1
	}
	var variance float64
	for _, c := range counts {
		d := float64(c) - mean
		variance += d * d
	}
	variance /= float64(len(counts))
	return math.Sqrt(variance) / mean
}

func normalizeScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func detectLineTerminator(budget string) (LineTerminator, float64) {
	var crlf, lf, cr int
	for i := 0; i < len(budget); i++ {
		switch budget[i] {
		case '\n':
			if i > 0 && budget[i-1] == '\r' {
				crlf++
			} else {
				lf++
			}
		case '\r':
			if i+1 >= len(budget) || budget[i+1] != '\n' {
				cr++
			}
		}
	}
	total := crlf + lf + cr
	if total == 0 {
		return LineLF, 0.5
	}
	if crlf >= lf && crlf >= cr {
		return LineCRLF, float64(crlf) / float64(total)
	}
	if cr >= lf {
		return LineCR, float64(cr) / float64(total)
	}
	return LineLF, float64(lf) / float64(total)
}

func detectHeader(lines []string, delim rune) (bool, float64) {
	var first, second string
	found := 0
	for _, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		if found == 0 {
			first = ln
			found++
		} else {
			second = ln
			found++
			break
		}
	}
	if found < 2 {
		return true, 0.5 // ambiguous: default to present
	}
	firstNumeric := anyFieldNumeric(first, delim)
	secondNumeric := anyFieldNumeric(second, delim)
	if !firstNumeric && secondNumeric {
		return true, 0.9
	}
	return false, 0.5
}

func anyFieldNumeric(line string, delim rune) bool {
	for _, f := range strings.FieldsFunc(line, func(r rune) bool { return r == delim }) {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if looksNumeric(f) {
			return true
		}
	}
	return false
}
