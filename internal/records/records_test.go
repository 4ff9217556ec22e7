package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/fault"
)

func rec(pairs ...any) Record {
	r := Record{Values: make(map[string]any)}
	for i := 0; i < len(pairs); i += 2 {
		k := pairs[i].(string)
		r.Columns = append(r.Columns, k)
		r.Values[k] = pairs[i+1]
	}
	return r
}

func TestCoerceNumber(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		numeric bool
	}{
		{"1,500,000", 1500000, true},
		{"₩1,500,000", 1500000, true},
		{"-500,000", -500000, true},
		{"+42", 42, true},
		{"1,234.56", 1234.56, true},
		{"0", 0, true},
		{"12000원", 12000, true},
		{"$1,000", 1000, true},
		{"1,23", 0, false},
		{"12,34,56", 0, false},
		{"급여", 0, false},
		{"", 0, false},
		{"2024.03.01", 0, false},
		{"   ", 0, false},
	}
	for _, c := range cases {
		got, ok := CoerceNumber(c.in)
		if ok != c.numeric {
			t.Errorf("CoerceNumber(%q) numeric = %v, want %v", c.in, ok, c.numeric)
			continue
		}
		if ok && got != c.want {
			t.Errorf("CoerceNumber(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestCollapseSpaces(t *testing.T) {
	if got := CollapseSpaces("  거래  일시 "); got != "거래 일시" {
		t.Errorf("CollapseSpaces = %q", got)
	}
}

func TestDedup(t *testing.T) {
	a := rec("날짜", "2024.03.01", "금액", float64(100))
	b := rec("금액", float64(100), "날짜", "2024.03.01") // same content, different order
	c := rec("날짜", "2024.03.02", "금액", float64(100))

	out := Dedup([]Record{a, b, c, a})
	require.Len(t, out, 2)
	assert.Equal(t, "2024.03.01", out[0].Get("날짜"))
	assert.Equal(t, "2024.03.02", out[1].Get("날짜"))

	// Idempotence.
	again := Dedup(out)
	assert.Equal(t, out, again)
}

func TestPlausible(t *testing.T) {
	assert.True(t, Plausible(rec("거래일시", "2024.03.01", "적요", "급여")))
	assert.True(t, Plausible(rec("입금", float64(1500000))))
	assert.False(t, Plausible(rec("적요", "이월"))) // no date, no amount
	assert.False(t, Plausible(rec("입금", float64(0), "거래일시", "")))
}

func TestBrokerDeclareAndNormalize(t *testing.T) {
	b := NewBroker()

	first, err := b.Declare([]Record{
		rec("거래일시 ", "2024.03.01 10:00", "적요", "급여", "입금", "1,500,000"),
	})
	require.NoError(t, err)
	require.Len(t, first, 1)

	assert.Equal(t, []string{"거래일시", "적요", "입금"}, b.Columns())
	assert.Equal(t, float64(1500000), first[0].Get("입금"))

	// Later unit introduces a new column: appended in first-seen order.
	later := b.Normalize([]Record{
		rec("거래일시", "2024.03.02", "적요", "이체", "입금", "0", "잔액", "1,000,000"),
	})
	require.Len(t, later, 1)
	assert.Equal(t, []string{"거래일시", "적요", "입금", "잔액"}, b.Columns())

	// Schema monotonicity: initial columns are a prefix.
	assert.Equal(t, []string{"거래일시", "적요", "입금"}, b.Columns()[:3])
}

func TestBrokerRedeclare(t *testing.T) {
	b := NewBroker()
	_, err := b.Declare([]Record{rec("date", "2024-01-01")})
	require.NoError(t, err)

	_, err = b.Declare([]Record{rec("date", "2024-01-02")})
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindInternal))
}

func TestBrokerSamples(t *testing.T) {
	b := NewBroker()
	_, err := b.Declare([]Record{
		rec("date", "2024-01-01", "amount", "100"),
		rec("date", "2024-01-02", "amount", "200"),
		rec("date", "2024-01-03", "amount", "300"),
	})
	require.NoError(t, err)
	assert.Len(t, b.Samples(), 2)
}
