package scan

import "sort"

// ExcludeRule drops a result when its field satisfies the comparison.
type ExcludeRule struct {
	Field    string  `json:"field"`
	Operator string  `json:"operator"` // one of < > <= >= == !=
	Value    float64 `json:"value"`
}

// SortRule orders results by a field. Rules are applied in sequence: the
// first is the primary key, later rules break ties.
type SortRule struct {
	Field string `json:"field"`
	Order string `json:"order"` // "asc" or "desc"
}

// lookupField resolves a rule field against a result, checking the summary
// record first and the statistics record second.
//
// A zero summary value falls through to statistics. That quirk is carried
// over from the system this engine stays result-compatible with; tests pin
// it. A field absent from both records reports ok=false.
func lookupField(r *StockResult, field string) (float64, bool) {
	if v, ok := summaryField(r, field); ok && v != 0 {
		return v, true
	}
	if v, ok := statisticsField(r, field); ok {
		return v, true
	}
	return 0, false
}

func summaryField(r *StockResult, field string) (float64, bool) {
	s := r.Summary
	switch field {
	case "initial_balance":
		return s.InitialBalance, true
	case "final_balance":
		return s.FinalBalance, true
	case "total_return":
		return s.TotalReturn, true
	case "return_percentage":
		return s.ReturnPercentage, true
	case "total_trades":
		return float64(s.TotalTrades), true
	case "success_rate":
		return s.SuccessRate, true
	case "avg_days_between_trades":
		return s.AvgDaysBetweenTrades, true
	}
	return 0, false
}

func statisticsField(r *StockResult, field string) (float64, bool) {
	st := r.Statistics
	switch field {
	case "success_rate":
		return st.SuccessRate, true
	case "avg_trade_frequency":
		return st.AvgTradeFrequency, true
	case "total_profit":
		return st.TotalProfit, true
	case "total_loss":
		return st.TotalLoss, true
	case "avg_profit":
		return st.AvgProfit, true
	case "avg_loss":
		return st.AvgLoss, true
	case "max_profit":
		return st.MaxProfit, true
	case "max_loss":
		return st.MaxLoss, true
	case "avg_hold_days":
		return st.AvgHoldDays, true
	}
	return 0, false
}

// applyExcludeRules keeps results matched by no rule. A rule whose field is
// absent from both records has no effect; an unknown operator never matches.
func applyExcludeRules(results []StockResult, rules []ExcludeRule) []StockResult {
	if len(rules) == 0 {
		return results
	}
	kept := make([]StockResult, 0, len(results))
	for i := range results {
		if !excluded(&results[i], rules) {
			kept = append(kept, results[i])
		}
	}
	return kept
}

func excluded(r *StockResult, rules []ExcludeRule) bool {
	for _, rule := range rules {
		v, ok := lookupField(r, rule.Field)
		if !ok {
			continue
		}
		if evalCondition(v, rule.Operator, rule.Value) {
			return true
		}
	}
	return false
}

func evalCondition(fieldValue float64, operator string, value float64) bool {
	switch operator {
	case "<":
		return fieldValue < value
	case ">":
		return fieldValue > value
	case "<=":
		return fieldValue <= value
	case ">=":
		return fieldValue >= value
	case "==":
		return fieldValue == value
	case "!=":
		return fieldValue != value
	}
	return false
}

// applySortRules orders results by the given rules; a field missing from
// both records sorts as 0. Defaults to return_percentage descending.
func applySortRules(results []StockResult, rules []SortRule) {
	if len(rules) == 0 {
		rules = []SortRule{{Field: "return_percentage", Order: "desc"}}
	}
	sort.SliceStable(results, func(i, j int) bool {
		for _, rule := range rules {
			vi, _ := lookupField(&results[i], rule.Field)
			vj, _ := lookupField(&results[j], rule.Field)
			if vi == vj {
				continue
			}
			if rule.Order == "asc" {
				return vi < vj
			}
			return vi > vj
		}
		return false
	})
}
