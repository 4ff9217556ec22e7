package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/records"
)

// buildPrompt assembles the extraction prompt for one unit. Once a
// schema exists, its column names and up to two sample records are
// embedded so later units return objects shaped like the first.
func buildPrompt(columns []string, samples []records.Record, body string, vision bool) string {
	var b strings.Builder

	b.WriteString("You are extracting transaction records from a bank statement.\n")
	b.WriteString("Return ONLY a JSON array of objects, one object per transaction row. ")
	b.WriteString("No prose, no Markdown fences, no trailing commentary.\n")
	b.WriteString("Use the table's own column header names, verbatim, as the JSON keys.\n")
	b.WriteString("Write amounts as plain numbers: no thousands separators, no currency symbols.\n")
	b.WriteString("Skip header rows, totals, subtotals, carried-forward balances, page numbers, and footers.\n")

	if len(columns) > 0 {
		b.WriteString("\nEvery object must use exactly these keys, in this order: ")
		for i, c := range columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Write(mustJSON(c))
		}
		b.WriteString(".\n")
	}
	if len(samples) > 0 {
		b.WriteString("Records already extracted from this document, as examples of the expected shape:\n")
		for _, s := range samples {
			b.WriteString(recordJSON(s))
			b.WriteString("\n")
		}
	}

	if vision {
		b.WriteString("\nThe statement page is attached as an image.\n")
	}
	if body != "" {
		b.WriteString("\nStatement text:\n")
		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String()
}

// recordJSON renders a record as a JSON object preserving column order,
// which encoding/json's map marshalling would not.
func recordJSON(r records.Record) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Write(mustJSON(c))
		b.WriteString(": ")
		b.Write(mustJSON(r.Values[c]))
	}
	b.WriteByte('}')
	return b.String()
}

func mustJSON(v any) []byte {
	out, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return out
}
