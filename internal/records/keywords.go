package records

import "strings"

// Column-name keyword tables. Semantic tagging of columns is a
// name-substring heuristic over these tables; downstream consumers use
// the same tables, so they live here rather than in the pipeline.
var (
	dateKeywords = []string{
		"거래일", "거래일시", "일자", "일시", "날짜",
		"date", "transaction date", "posted",
	}
	amountKeywords = []string{
		"금액", "출금", "입금", "잔액", "출금액", "입금액", "거래금액",
		"amount", "deposit", "withdrawal", "debit", "credit", "balance",
	}
	// HeaderKeywords feed spreadsheet header-row detection and the rule
	// engine's header scoring.
	HeaderKeywords = []string{
		"거래일시", "거래일자", "날짜", "일자", "적요", "내용", "메모",
		"출금", "입금", "잔액", "금액", "거래점", "취급점",
		"date", "description", "memo", "deposit", "withdrawal",
		"debit", "credit", "balance", "amount",
	}
)

// IsDateColumn reports whether a column name looks date-like.
func IsDateColumn(name string) bool {
	return matchesAny(name, dateKeywords)
}

// IsAmountColumn reports whether a column name looks amount-like.
func IsAmountColumn(name string) bool {
	return matchesAny(name, amountKeywords)
}

func matchesAny(name string, keywords []string) bool {
	n := strings.ToLower(CollapseSpaces(name))
	for _, k := range keywords {
		if strings.Contains(n, k) {
			return true
		}
	}
	return false
}

// Plausible reports whether a record passes the acceptance invariant: at
// least one amount-like column carries a non-zero number, or a date-like
// column carries a non-empty value.
func Plausible(r Record) bool {
	for _, col := range r.Columns {
		v := r.Values[col]
		if IsAmountColumn(col) {
			if f, ok := v.(float64); ok && f != 0 {
				return true
			}
		}
		if IsDateColumn(col) {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return true
			}
		}
	}
	return false
}
