// Package records holds the transaction record model: column-ordered
// records, numeric coercion, schema brokering, and deduplication. Column
// schemas are data discovered per document, never baked into control flow.
package records

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Record is one extracted transaction. Values are either string or
// float64. Columns preserves the column order reported for this record;
// the document-wide order is owned by the Broker.
type Record struct {
	Columns []string       `json:"columns"`
	Values  map[string]any `json:"values"`
}

// Get returns the value for a column, or nil.
func (r Record) Get(col string) any { return r.Values[col] }

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := Record{
		Columns: append([]string(nil), r.Columns...),
		Values:  make(map[string]any, len(r.Values)),
	}
	for k, v := range r.Values {
		out.Values[k] = v
	}
	return out
}

// Key builds the canonical dedup key: column names sorted, formatted as
// name:value pairs and joined with "|".
func (r Record) Key() string {
	names := make([]string, 0, len(r.Values))
	for name := range r.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+":"+formatValue(r.Values[name]))
	}
	return strings.Join(parts, "|")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Dedup collapses records with identical canonical keys onto the first
// occurrence, preserving first-occurrence order. Running Dedup on its own
// output is a no-op.
func Dedup(recs []Record) []Record {
	seen := make(map[string]struct{}, len(recs))
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		k := r.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
