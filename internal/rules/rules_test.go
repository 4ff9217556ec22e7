package rules

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kbStatement = `KB국민은행 거래내역조회
거래일시 적요 출금 입금 잔액
2024.03.01 10:00 급여 0 1,500,000 1,500,000
2024.03.02 09:30 이체 500,000 0 1,000,000`

func TestDetectBySignature(t *testing.T) {
	reg := NewRegistry()
	rule := reg.Detect(kbStatement)
	require.NotNil(t, rule)
	assert.Equal(t, "KB국민은행", rule.Issuer)
}

func TestDetectByStructuralRegex(t *testing.T) {
	reg := NewRegistry()
	// No signature line, but transaction lines match the KB structure.
	text := "거래내역\n2024.03.01 10:00 급여 0 1,500,000 1,500,000\n"
	rule := reg.Detect(text)
	require.NotNil(t, rule)
	assert.Equal(t, "KB국민은행", rule.Issuer)
}

func TestDetectByIssuerName(t *testing.T) {
	reg := NewRegistry()
	rule := reg.Detect("신한은행 계좌 조회 결과입니다\n...")
	require.NotNil(t, rule)
	assert.Equal(t, "신한은행", rule.Issuer)
}

func TestDetectByHeaderScore(t *testing.T) {
	reg := NewRegistry()
	// Four of the five KB column names, no signature, no issuer name.
	rule := reg.Detect("거래일시 | 적요 | 출금 | 입금\n...")
	require.NotNil(t, rule)
	assert.Equal(t, "KB국민은행", rule.Issuer)
}

func TestDetectMiss(t *testing.T) {
	reg := NewRegistry()
	assert.Nil(t, reg.Detect("completely unrelated text"))
}

func TestParseSpaceSeparated(t *testing.T) {
	reg := NewRegistry()
	rule := reg.Detect(kbStatement)
	require.NotNil(t, rule)

	recs := Parse(kbStatement, rule)
	require.Len(t, recs, 2)

	assert.Equal(t, "2024.03.01 10:00", recs[0].Get("거래일시"))
	assert.Equal(t, "급여", recs[0].Get("적요"))
	assert.Equal(t, "1,500,000", recs[0].Get("입금"))
	assert.Equal(t, "1,000,000", recs[1].Get("잔액"))
	assert.Equal(t, []string{"거래일시", "적요", "출금", "입금", "잔액"}, recs[0].Columns)
}

func TestParseMultiWordDescription(t *testing.T) {
	rule := NewRegistry().Rules()[0]
	recs := Parse("2024.03.05 11:22 카드 대금 자동이체 30,000 0 970,000", rule)
	require.Len(t, recs, 1)
	assert.Equal(t, "카드 대금 자동이체", recs[0].Get("적요"))
}

func TestParseLineSeparated(t *testing.T) {
	text := `신한은행 입출금내역
2024-03-01
급여
0
1,500,000
1,500,000
2024-03-02
이체
500,000
0
1,000,000`

	reg := NewRegistry()
	rule := reg.Detect(text)
	require.NotNil(t, rule)
	require.Equal(t, "신한은행", rule.Issuer)

	recs := Parse(text, rule)
	require.Len(t, recs, 2)
	assert.Equal(t, "2024-03-01", recs[0].Get("거래일자"))
	assert.Equal(t, "급여", recs[0].Get("내용"))
	assert.Equal(t, "1,500,000", recs[0].Get("잔액"))
}

func TestParseSkipsShortLines(t *testing.T) {
	rule := &Rule{
		Columns: []Column{
			{Name: "date", Tag: TagDate},
			{Name: "memo", Tag: TagText},
			{Name: "amount", Tag: TagAmountIn},
		},
		Structure: StructureSpaceSeparated,
		DateRegex: regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`),
	}
	// Second line starts with a date but has no numeric tail.
	recs := Parse("2024-03-01 pay 100\n2024-03-02\n", rule)
	require.Len(t, recs, 1)
}
