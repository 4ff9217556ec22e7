package rules

import "regexp"

// builtinRules returns the issuer rules shipped with the engine. The set
// is intentionally small: a rule only earns its place when its format is
// stable enough that a deterministic walk beats the LLM.
func builtinRules() []*Rule {
	return []*Rule{
		{
			Issuer:  "KB국민은행",
			Aliases: []string{"국민은행", "KB Kookmin"},
			Columns: []Column{
				{Name: "거래일시", Tag: TagDate},
				{Name: "적요", Tag: TagText},
				{Name: "출금", Tag: TagAmountOut},
				{Name: "입금", Tag: TagAmountIn},
				{Name: "잔액", Tag: TagBalance},
			},
			Structure:  StructureSpaceSeparated,
			Signatures: []string{"KB국민은행 거래내역조회"},
			LineRegex: regexp.MustCompile(
				`^\s*\d{4}\.\d{2}\.\d{2} \d{2}:\d{2} .+ [\d,]+ [\d,]+ [\d,]+\s*$`),
		},
		{
			Issuer:  "신한은행",
			Aliases: []string{"Shinhan", "신한 거래내역"},
			Columns: []Column{
				{Name: "거래일자", Tag: TagDate},
				{Name: "내용", Tag: TagText},
				{Name: "출금액", Tag: TagAmountOut},
				{Name: "입금액", Tag: TagAmountIn},
				{Name: "잔액", Tag: TagBalance},
			},
			Structure:  StructureLineSeparated,
			Signatures: []string{"신한은행 입출금내역"},
			DateRegex:  regexp.MustCompile(`^\s*\d{4}-\d{2}-\d{2}`),
		},
	}
}
