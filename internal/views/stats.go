package views

import (
	"sort"

	"koidash/pkg/contracts/domain"
)

// StrategyStats compares each strategy against holding its symbols, keyed
// by strategy name. Strategies get zero stats while no ticks have arrived or
// when they hold no portfolios.
func StrategyStats(strategies []domain.StrategyInfo, ticks domain.TickState) map[string]domain.StrategyStats {
	stats := make(map[string]domain.StrategyStats, len(strategies))
	noTicks := len(ticks.Market) == 0 && len(ticks.Crypto) == 0

	for _, s := range strategies {
		if noTicks || len(s.Portfolios) == 0 {
			stats[s.Name] = domain.StrategyStats{}
			continue
		}
		stats[s.Name] = strategyStats(s, ticksFor(s, ticks))
	}
	return stats
}

func strategyStats(s domain.StrategyInfo, ticks domain.Ticks) domain.StrategyStats {
	n := float64(len(s.Portfolios))

	symbols := make([]string, 0, len(s.Portfolios))
	for sym := range s.Portfolios {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var holdProfit, grossProfit float64
	for _, sym := range symbols {
		p := s.Portfolios[sym]
		if p.HoldStartPrice != 0 {
			holdProfit += (s.InitialCapital / p.HoldStartPrice) * ticks[sym].Ask.Float() / n
		}
		grossProfit += p.GrossProfit
	}

	out := domain.StrategyStats{HoldProfit: holdProfit}
	if s.InitialCapital != 0 {
		out.StrategyPerformance = grossProfit / s.InitialCapital * 100
		out.ComparedPerformance = (grossProfit - holdProfit) / s.InitialCapital * 100
	}
	return out
}

// Holdings lists the open positions of a strategy, priced against the
// latest ask and sorted by symbol. A symbol without a quote is valued at its
// purchase price.
func Holdings(s domain.StrategyInfo, ticks domain.TickState) []domain.Holding {
	holdings := []domain.Holding{}
	relevant := ticksFor(s, ticks)
	if len(relevant) == 0 || len(s.Portfolios) == 0 {
		return holdings
	}

	for sym, p := range s.Portfolios {
		if !p.HasStock {
			continue
		}
		ask := p.PurchasePrice
		if t, ok := relevant[sym]; ok && t.Ask.Present() {
			ask = t.Ask.Float()
		}
		holdings = append(holdings, domain.Holding{
			Symbol:   sym,
			Quantity: p.Quantity,
			Price:    p.PurchasePrice,
			PL:       ask - p.PurchasePrice,
		})
	}

	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })
	return holdings
}

func ticksFor(s domain.StrategyInfo, ticks domain.TickState) domain.Ticks {
	if s.Crypto {
		return ticks.Crypto
	}
	return ticks.Market
}
