// Package chunk cuts long statement text into LLM-sized pieces whose
// boundaries align with the start of a date-prefixed transaction line.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultTarget is the chunk target size in characters.
const DefaultTarget = 2000

// slack is how far past the target the boundary search may look.
const slack = 500

// backScanFloor is the fraction of target below which a boundary is too
// early to use.
const backScanFloor = 0.7

// datePrefix matches a year-month-day at the start of a line with '.',
// '-', or '/' separators. Two-digit years appear in some OCR output.
var datePrefix = regexp.MustCompile(`^\s*\d{2,4}[.\-/]\d{1,2}[.\-/]\d{1,2}`)

// Chunk is one split piece with its ordinal position.
type Chunk struct {
	Index int
	Text  string
}

// StartsWithDate reports whether a line opens with a date pattern.
func StartsWithDate(line string) bool {
	return datePrefix.MatchString(line)
}

// MergeLines collapses OCR row-wrapping: a line that does not begin with
// a date is concatenated onto the previous non-empty line with a single
// space. Leading non-date lines (headers) are kept as their own block.
func MergeLines(text string) string {
	lines := strings.Split(text, "\n")
	var merged []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if len(merged) > 0 && !StartsWithDate(trimmed) {
			merged[len(merged)-1] = merged[len(merged)-1] + " " + trimmed
			continue
		}
		merged = append(merged, trimmed)
	}
	return strings.Join(merged, "\n")
}

// Split cuts text into chunks near target characters. Sizes are
// measured in runes, not bytes, so Korean text chunks at the intended
// size. Each cut lands on the start of a date-prefixed line when one
// exists no earlier than 0.7 x target into the window; otherwise the
// cut falls at exactly target. Chunks are trimmed and empty ones
// dropped.
func Split(text string, target int) []Chunk {
	if target <= 0 {
		target = DefaultTarget
	}
	var out []Chunk
	emit := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, Chunk{Index: len(out), Text: s})
		}
	}

	rest := text
	for utf8.RuneCountInString(rest) > target {
		end := byteOffset(rest, target+slack)
		floor := byteOffset(rest, int(backScanFloor*float64(target)))

		cut := boundaryBefore(rest, end, floor)
		if cut < 0 {
			// Fallback cut at exactly target runes.
			cut = byteOffset(rest, target)
		}
		emit(rest[:cut])
		rest = rest[cut:]
	}
	emit(rest)
	return out
}

// byteOffset returns the byte index just past the first n runes of s,
// or len(s) when s has fewer. Always rune-aligned.
func byteOffset(s string, n int) int {
	i := 0
	for ; n > 0 && i < len(s); n-- {
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
	}
	return i
}

// boundaryBefore scans backward from end for a newline followed by a
// date-start line, no earlier than floor. Returns the index just after
// the newline, or -1.
func boundaryBefore(s string, end, floor int) int {
	for i := end - 1; i > floor; i-- {
		if s[i] != '\n' {
			continue
		}
		if StartsWithDate(s[i+1:]) {
			return i + 1
		}
	}
	return -1
}
