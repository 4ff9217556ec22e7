// Package rules holds deterministic per-issuer statement parsers. A rule
// is an accelerator, not an authority: the pipeline consults the registry
// before the LLM text path and falls through on any miss, so a rule parse
// that succeeds reports zero cost.
package rules

import (
	"regexp"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/chunk"
	"github.com/ledgerlens/ledgerlens/internal/records"
)

// ColumnTag is the semantic role of a declared column.
type ColumnTag int

const (
	TagText ColumnTag = iota
	TagDate
	TagAmountIn
	TagAmountOut
	TagBalance
)

// Column declares one expected output column.
type Column struct {
	Name string
	Tag  ColumnTag
}

// Structure hints how one transaction is laid out in the text.
type Structure int

const (
	// StructureSpaceSeparated: one transaction per line, fields split on
	// whitespace.
	StructureSpaceSeparated Structure = iota

	// StructureLineSeparated: one transaction spans len(Columns) lines,
	// starting at a date line.
	StructureLineSeparated
)

// Rule is a deterministic parser configuration for one issuer format.
type Rule struct {
	Issuer  string
	Aliases []string
	Columns []Column

	Structure Structure

	// Detection heuristics, strongest first.
	Signatures []string         // rare keywords unique to this format
	LineRegex  *regexp.Regexp   // structural match on a transaction line
	DateRegex  *regexp.Regexp   // overrides the default date-start pattern
}

// headerScoreFloor is the layer-4 detection threshold.
const headerScoreFloor = 4

// detectionHead is how much of the document the issuer-name layer reads.
const detectionHead = 1000

// Registry holds the known issuer rules.
type Registry struct {
	rules []*Rule
}

// NewRegistry returns a registry seeded with the built-in rules.
func NewRegistry() *Registry {
	r := &Registry{}
	for _, rule := range builtinRules() {
		r.Register(rule)
	}
	return r
}

// Register appends a rule. Later registrations have lower priority.
func (r *Registry) Register(rule *Rule) {
	r.rules = append(r.rules, rule)
}

// Rules returns the registered rules in priority order.
func (r *Registry) Rules() []*Rule {
	return append([]*Rule(nil), r.rules...)
}

// Detect picks the rule for the text, layered: signature keywords, then
// structural regexes, then issuer names in the document head, then a
// header keyword score of at least four. Returns nil on no match.
func (r *Registry) Detect(text string) *Rule {
	head := text
	if len(head) > detectionHead {
		head = head[:detectionHead]
	}

	for _, rule := range r.rules {
		for _, sig := range rule.Signatures {
			if strings.Contains(text, sig) {
				return rule
			}
		}
	}

	lines := strings.Split(text, "\n")
	if len(lines) > 50 {
		lines = lines[:50]
	}
	for _, rule := range r.rules {
		if rule.LineRegex == nil {
			continue
		}
		for _, line := range lines {
			if rule.LineRegex.MatchString(line) {
				return rule
			}
		}
	}

	for _, rule := range r.rules {
		for _, name := range append([]string{rule.Issuer}, rule.Aliases...) {
			if name != "" && strings.Contains(head, name) {
				return rule
			}
		}
	}

	for _, rule := range r.rules {
		if headerScore(head, rule) >= headerScoreFloor {
			return rule
		}
	}
	return nil
}

// headerScore counts the rule's column names present in the text head.
func headerScore(head string, rule *Rule) int {
	score := 0
	for _, col := range rule.Columns {
		if strings.Contains(head, col.Name) {
			score++
		}
	}
	return score
}

// Parse applies the rule's line walker: transaction starts are found by
// date pattern, then the declared columns are harvested from the line
// (or the following lines, per the structure hint).
func Parse(text string, rule *Rule) []records.Record {
	lines := strings.Split(text, "\n")
	isStart := func(line string) bool {
		if rule.DateRegex != nil {
			return rule.DateRegex.MatchString(line)
		}
		return chunk.StartsWithDate(line)
	}

	var out []records.Record
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || !isStart(line) {
			continue
		}

		var rec records.Record
		switch rule.Structure {
		case StructureLineSeparated:
			span := harvestLines(lines, i, len(rule.Columns), isStart)
			rec = mapLines(span, rule.Columns)
			i += len(span) - 1
		default:
			rec = mapFields(strings.Fields(line), rule.Columns)
		}
		if len(rec.Columns) > 0 {
			out = append(out, rec)
		}
	}
	return out
}

// harvestLines collects up to want lines starting at i, stopping early at
// the next transaction start.
func harvestLines(lines []string, i, want int, isStart func(string) bool) []string {
	span := []string{strings.TrimSpace(lines[i])}
	for j := i + 1; j < len(lines) && len(span) < want; j++ {
		l := strings.TrimSpace(lines[j])
		if l == "" {
			continue
		}
		if isStart(l) {
			break
		}
		span = append(span, l)
	}
	return span
}

// mapLines assigns one line per column, in declared order.
func mapLines(span []string, cols []Column) records.Record {
	rec := records.Record{Values: make(map[string]any, len(cols))}
	for i, col := range cols {
		if i >= len(span) {
			break
		}
		rec.Columns = append(rec.Columns, col.Name)
		rec.Values[col.Name] = span[i]
	}
	return rec
}

// timeToken matches an hh:mm[:ss] token following the date.
var timeToken = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`)

// mapFields maps whitespace-separated fields onto the declared columns.
// The date column absorbs a following time token; trailing numeric-tagged
// columns take the line tail; the text-tagged column takes what remains.
func mapFields(fields []string, cols []Column) records.Record {
	rec := records.Record{Values: make(map[string]any, len(cols))}
	if len(fields) == 0 || len(cols) == 0 {
		return rec
	}

	// Count trailing numeric columns (amounts and balances).
	numericTail := 0
	for i := len(cols) - 1; i >= 0; i-- {
		t := cols[i].Tag
		if t == TagAmountIn || t == TagAmountOut || t == TagBalance {
			numericTail++
		} else {
			break
		}
	}
	if len(fields) < 1+numericTail {
		return records.Record{}
	}

	set := func(col Column, v string) {
		rec.Columns = append(rec.Columns, col.Name)
		rec.Values[col.Name] = v
	}

	pos := 0
	date := fields[pos]
	pos++
	if pos < len(fields)-numericTail && timeToken.MatchString(fields[pos]) {
		date = date + " " + fields[pos]
		pos++
	}
	set(cols[0], date)

	tailStart := len(fields) - numericTail
	headCols := cols[1 : len(cols)-numericTail]
	if len(headCols) > 0 {
		// Everything between the date and the numeric tail joins into
		// the first text column; later text columns stay empty.
		set(headCols[0], strings.Join(fields[pos:tailStart], " "))
	}
	for i, col := range cols[len(cols)-numericTail:] {
		set(col, fields[tailStart+i])
	}
	return rec
}
