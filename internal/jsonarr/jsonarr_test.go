package jsonarr

import (
	"encoding/json"
	"testing"
)

func TestParseArrayStrict(t *testing.T) {
	in := `[{"date":"2024.03.01","amount":1500000},{"date":"2024.03.02","amount":-500000}]`
	objs := ParseArray(in)
	if len(objs) != 2 {
		t.Fatalf("len = %d, want 2", len(objs))
	}
	if objs[0].Fields["amount"] != float64(1500000) {
		t.Errorf("amount = %v", objs[0].Fields["amount"])
	}
	if got := objs[0].Keys; got[0] != "date" || got[1] != "amount" {
		t.Errorf("key order = %v", got)
	}
}

func TestParseArrayCodeFence(t *testing.T) {
	in := "```json\n[{\"a\":1}]\n```"
	objs := ParseArray(in)
	if len(objs) != 1 {
		t.Fatalf("len = %d, want 1", len(objs))
	}
}

func TestParseArraySurroundingProse(t *testing.T) {
	in := "Here are the rows:\n[{\"a\":1},{\"a\":2}]\nDone."
	if got := len(ParseArray(in)); got != 2 {
		t.Fatalf("len = %d, want 2", got)
	}
}

func TestParseArrayTruncated(t *testing.T) {
	// Three complete objects, fourth half-written.
	in := `[{"a":1},{"a":2},{"a":3},{"a":`
	objs := ParseArray(in)
	if len(objs) != 3 {
		t.Fatalf("len = %d, want 3", len(objs))
	}
	if objs[2].Fields["a"] != float64(3) {
		t.Errorf("last object = %v", objs[2].Fields)
	}
}

func TestParseArrayTruncatedInsideString(t *testing.T) {
	in := `[{"memo":"transfer"},{"memo":"sal`
	objs := ParseArray(in)
	if len(objs) != 1 {
		t.Fatalf("len = %d, want 1", len(objs))
	}
	if objs[0].Fields["memo"] != "transfer" {
		t.Errorf("memo = %v", objs[0].Fields["memo"])
	}
}

func TestParseArrayBracketsInStrings(t *testing.T) {
	in := `[{"memo":"a ] b } c"},{"memo":"x"}]`
	objs := ParseArray(in)
	if len(objs) != 2 {
		t.Fatalf("len = %d, want 2", len(objs))
	}
	if objs[0].Fields["memo"] != "a ] b } c" {
		t.Errorf("memo = %v", objs[0].Fields["memo"])
	}
}

func TestParseArrayEscapedQuote(t *testing.T) {
	in := `[{"memo":"he said \"hi\""},{"memo":"y`
	objs := ParseArray(in)
	if len(objs) != 1 {
		t.Fatalf("len = %d, want 1", len(objs))
	}
}

func TestParseArrayNested(t *testing.T) {
	in := `[{"a":{"b":[1,2]},"c":"x"},{"a":{"b":[]},"c":"y"}]`
	if got := len(ParseArray(in)); got != 2 {
		t.Fatalf("len = %d, want 2", got)
	}
}

func TestParseArrayNoArray(t *testing.T) {
	if got := ParseArray("no rows found"); got != nil {
		t.Fatalf("want nil, got %v", got)
	}
}

func TestParseArrayNothingCompletes(t *testing.T) {
	objs := ParseArray(`[{"a":`)
	if objs == nil || len(objs) != 0 {
		t.Fatalf("want empty non-nil slice, got %v", objs)
	}
}

// Salvage soundness: every truncation of a valid array of objects yields
// a prefix of the original objects, never a spurious one.
func TestSalvagePrefixProperty(t *testing.T) {
	full := `[{"date":"2024.03.01","memo":"급여","amount":1500000},` +
		`{"date":"2024.03.02","memo":"이체 ]","amount":-500000},` +
		`{"date":"2024.03.03","memo":"\"quoted\"","amount":3}]`

	want := ParseArray(full)
	if len(want) != 3 {
		t.Fatalf("full parse len = %d, want 3", len(want))
	}

	for cut := 0; cut <= len(full); cut++ {
		objs := ParseArray(full[:cut])
		if len(objs) > len(want) {
			t.Fatalf("cut %d: %d objects, more than original", cut, len(objs))
		}
		for i, o := range objs {
			a, _ := json.Marshal(o.Fields)
			b, _ := json.Marshal(want[i].Fields)
			if string(a) != string(b) {
				t.Fatalf("cut %d: object %d = %s, want %s", cut, i, a, b)
			}
		}
	}
}
