package sim

import (
	"fmt"
	"time"

	"stockscan/internal/indicator"
	"stockscan/internal/model"
	"stockscan/internal/signal"
)

// Simulator executes the deferred-fill trade state machine.
type Simulator struct {
	InitialBalance float64
	CommissionRate float64 // per-trade, applied to notional value
}

// New creates a Simulator.
func New(initialBalance, commissionRate float64) *Simulator {
	return &Simulator{InitialBalance: initialBalance, CommissionRate: commissionRate}
}

// Run simulates trading bars under the given signal configuration.
// Returns a wrapped indicator.ErrInsufficientData when fewer than MinBars
// bars are supplied.
func (s *Simulator) Run(bars []model.Bar, cfg signal.Config) (*Result, error) {
	if len(bars) < MinBars {
		return nil, fmt.Errorf("simulate: need at least %d bars, have %d: %w",
			MinBars, len(bars), indicator.ErrInsufficientData)
	}

	buySignals, sellSignals := signal.Generate(bars, cfg)
	trades, finalBalance := s.execute(bars, buySignals, sellSignals)
	stats := computeStatistics(trades)

	return &Result{
		Summary: Summary{
			InitialBalance:       s.InitialBalance,
			FinalBalance:         round2(finalBalance),
			TotalReturn:          round2(finalBalance - s.InitialBalance),
			ReturnPercentage:     round2((finalBalance - s.InitialBalance) / s.InitialBalance * 100),
			TotalTrades:          len(trades),
			SuccessRate:          stats.SuccessRate,
			AvgDaysBetweenTrades: stats.AvgTradeFrequency,
			BuyIndicator:         cfg.BuyIndicator,
			SellIndicator:        cfg.SellIndicator,
		},
		Trades:     trades,
		Statistics: stats,
	}, nil
}

// execute walks the bars in time order. States: flat, pending buy, long,
// pending sell. Signals are checked against the pre-fill state of the bar,
// so a sell signal on the very bar a buy fills is ignored. Fills always use
// the open of the bar after the signal; nothing fills on its own signal bar.
func (s *Simulator) execute(bars []model.Bar, buySignals, sellSignals []bool) ([]Trade, float64) {
	var (
		trades       []Trade
		balance      = s.InitialBalance
		shares       float64
		positionOpen bool
		buyPrice     float64
		buyDate      time.Time
		pendingBuy   bool
		pendingSell  bool
		signalDate   time.Time
	)

	for i := range bars {
		current := bars[i].TS

		if buySignals[i] && !positionOpen && !pendingBuy {
			pendingBuy = true
			signalDate = current
			continue
		}
		if sellSignals[i] && positionOpen && !pendingSell {
			pendingSell = true
			signalDate = current
			continue
		}

		if pendingBuy && i > 0 {
			execPrice := bars[i].Open
			commission := balance * s.CommissionRate
			shares = (balance - commission) / execPrice
			buyPrice = execPrice
			buyDate = current
			positionOpen = true
			pendingBuy = false

			trades = append(trades, Trade{
				Type:           TradeBuy,
				SignalDate:     formatDate(signalDate),
				ExecutionDate:  formatDate(current),
				SignalPrice:    round2(bars[i-1].Close),
				ExecutionPrice: round2(execPrice),
				Shares:         round4(shares),
				Commission:     round2(commission),
				BalanceAfter:   round2(balance - commission),
			})
		} else if pendingSell && i > 0 {
			execPrice := bars[i].Open
			t, net := s.closePosition(shares, execPrice, buyPrice, buyDate, current, trades)
			t.SignalDate = formatDate(signalDate)
			t.SignalPrice = round2(bars[i-1].Close)
			balance = net
			trades = append(trades, t)

			shares = 0
			positionOpen = false
			pendingSell = false
		}
	}

	// Force-close any open position at the final bar's close. This is the
	// one fill not driven by a next-bar open, since no next bar exists.
	if positionOpen {
		last := bars[len(bars)-1]
		t, net := s.closePosition(shares, last.Close, buyPrice, buyDate, last.TS, trades)
		t.SignalDate = EndOfPeriod
		t.SignalPrice = round2(last.Close)
		balance = net
		trades = append(trades, t)
	}

	return trades, balance
}

// closePosition builds a SELL trade at execPrice and returns it with the
// unrounded net proceeds, which become the running balance. Cost basis
// includes the buy-side commission taken from the preceding BUY record.
func (s *Simulator) closePosition(shares, execPrice, buyPrice float64, buyDate, execDate time.Time, trades []Trade) (Trade, float64) {
	sellValue := shares * execPrice
	commission := sellValue * s.CommissionRate
	netProceeds := sellValue - commission

	var buyCommission float64
	if len(trades) > 0 {
		buyCommission = trades[len(trades)-1].Commission
	}
	costBasis := shares*buyPrice + buyCommission
	profitLoss := netProceeds - costBasis
	var profitLossPct float64
	if costBasis > 0 {
		profitLossPct = profitLoss / costBasis * 100
	}

	holdDays := int(execDate.Sub(buyDate).Hours() / 24)

	return Trade{
		Type:           TradeSell,
		ExecutionDate:  formatDate(execDate),
		ExecutionPrice: round2(execPrice),
		Shares:         round4(shares),
		Commission:     round2(commission),
		Proceeds:       round2(sellValue),
		NetProceeds:    round2(netProceeds),
		ProfitLoss:     round2(profitLoss),
		ProfitLossPct:  round2(profitLossPct),
		BalanceAfter:   round2(netProceeds),
		HoldDays:       holdDays,
	}, netProceeds
}
