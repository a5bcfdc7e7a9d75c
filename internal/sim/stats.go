package sim

import "time"

// computeStatistics aggregates the profit/loss distribution over completed
// (SELL) trades. Profitable and losing partitions are strictly positive and
// strictly negative; break-even trades belong to neither.
func computeStatistics(trades []Trade) Statistics {
	var sells []Trade
	for _, t := range trades {
		if t.Type == TradeSell {
			sells = append(sells, t)
		}
	}
	if len(sells) == 0 {
		return Statistics{}
	}

	var (
		profits, losses       []float64
		totalProfit, totalLoss float64
	)
	for _, t := range sells {
		switch {
		case t.ProfitLoss > 0:
			profits = append(profits, t.ProfitLoss)
			totalProfit += t.ProfitLoss
		case t.ProfitLoss < 0:
			losses = append(losses, t.ProfitLoss)
			totalLoss += t.ProfitLoss
		}
	}

	stats := Statistics{
		SuccessRate: round2(float64(len(profits)) / float64(len(sells)) * 100),
		TotalProfit: round2(totalProfit),
		TotalLoss:   round2(totalLoss),
	}

	if len(profits) > 0 {
		stats.AvgProfit = round2(totalProfit / float64(len(profits)))
		stats.MaxProfit = round2(maxOf(profits))
	}
	if len(losses) > 0 {
		stats.AvgLoss = round2(totalLoss / float64(len(losses)))
		stats.MaxLoss = round2(minOf(losses))
	}

	// Average days between trades: span from first to last execution over
	// the number of completed trades.
	if len(trades) >= 2 {
		first, err1 := time.Parse(dateLayout, trades[0].ExecutionDate)
		last, err2 := time.Parse(dateLayout, trades[len(trades)-1].ExecutionDate)
		if err1 == nil && err2 == nil {
			days := int(last.Sub(first).Hours() / 24) // calendar days, truncated
			stats.AvgTradeFrequency = round2(float64(days) / float64(len(sells)))
		}
	}

	var holdSum float64
	var holdCount int
	for _, t := range sells {
		if t.HoldDays > 0 {
			holdSum += float64(t.HoldDays)
			holdCount++
		}
	}
	if holdCount > 0 {
		stats.AvgHoldDays = round1(holdSum / float64(holdCount))
	}

	return stats
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
