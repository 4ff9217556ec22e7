package records

import (
	"sync"

	"github.com/ledgerlens/ledgerlens/internal/fault"
)

// Broker owns the column schema for one extraction. The first successful
// unit declares the schema; every later unit is normalized against it.
// Columns unseen so far are appended in first-seen order. The broker is
// single-writer on declaration: a second Declare is an internal fault.
type Broker struct {
	mu       sync.Mutex
	columns  []string
	declared bool
	samples  []Record
}

// NewBroker returns an empty broker.
func NewBroker() *Broker { return &Broker{} }

// Declared reports whether a schema has been established.
func (b *Broker) Declared() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.declared
}

// Columns returns a copy of the current column order.
func (b *Broker) Columns() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.columns...)
}

// Samples returns up to two normalized records from the declaring unit,
// used as prompt hints for later units.
func (b *Broker) Samples() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Record, len(b.samples))
	for i, s := range b.samples {
		out[i] = s.Clone()
	}
	return out
}

// Declare establishes the schema from the first unit's records and
// returns them normalized. Declaring twice is an internal fault.
func (b *Broker) Declare(recs []Record) ([]Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.declared {
		return nil, fault.New(fault.KindInternal, "schema redeclaration attempted")
	}
	if len(recs) == 0 {
		return nil, nil
	}
	b.declared = true

	out := b.normalizeLocked(recs)
	for i := 0; i < len(out) && i < 2; i++ {
		b.samples = append(b.samples, out[i].Clone())
	}
	return out, nil
}

// Normalize conforms a later unit's records to the schema: column names
// are whitespace-collapsed, numeric strings coerced, unseen columns
// appended in first-seen order, and implausible rows dropped.
func (b *Broker) Normalize(recs []Record) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.normalizeLocked(recs)
}

func (b *Broker) normalizeLocked(recs []Record) []Record {
	known := make(map[string]struct{}, len(b.columns))
	for _, c := range b.columns {
		known[c] = struct{}{}
	}

	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		nr := Record{Values: make(map[string]any, len(r.Values))}
		for _, raw := range r.Columns {
			col := CollapseSpaces(raw)
			if col == "" {
				continue
			}
			v := r.Values[raw]
			if s, ok := v.(string); ok {
				if f, numeric := CoerceNumber(s); numeric {
					v = f
				}
			}
			nr.Values[col] = v

			if _, ok := known[col]; !ok {
				known[col] = struct{}{}
				b.columns = append(b.columns, col)
			}
		}
		// Record columns follow the document schema order so every
		// record agrees with the first one.
		for _, c := range b.columns {
			if _, ok := nr.Values[c]; ok {
				nr.Columns = append(nr.Columns, c)
			}
		}
		if Plausible(nr) {
			out = append(out, nr)
		}
	}
	return out
}
