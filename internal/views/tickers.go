package views

import (
	"sort"
	"strconv"

	"koidash/pkg/contracts/domain"
)

// TickerRows formats each symbol's latest quote for display, sorted by symbol.
func TickerRows(ticks domain.Ticks) []domain.TickerRow {
	rows := make([]domain.TickerRow, 0, len(ticks))
	for symbol, t := range ticks {
		closePrice := t.Close.Float()
		ask, prevAsk := t.Ask.Float(), t.PrevAsk.Float()
		askVol, prevAskVol := t.AskSize.Float(), t.PrevAskSize.Float()
		bidVol, prevBidVol := t.BidSize.Float(), t.PrevBidSize.Float()
		open := t.Open.Float()

		row := domain.TickerRow{
			Symbol: symbol,
			Close:  fixed(closePrice, 3),

			Ask:      fixed(ask, 4),
			RawAsk:   ask,
			AskDiff:  fixed(ask-prevAsk, 3),
			AskTrend: trend(ask, prevAsk),

			AskVol:      fixed(askVol, 3),
			RawAskVol:   askVol,
			AskVolDiff:  fixed(askVol-prevAskVol, 3),
			AskVolTrend: trend(askVol, prevAskVol),

			BidVol:      fixed(bidVol, 3),
			RawBidVol:   bidVol,
			BidVolDiff:  fixed(bidVol-prevBidVol, 3),
			BidVolTrend: trend(bidVol, prevBidVol),

			DayChange: ask - open,
		}
		if open != 0 {
			row.DayChangePct = (ask - open) / open * 100
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
	return rows
}

func trend(cur, prev float64) domain.Trend {
	switch {
	case cur > prev:
		return domain.TrendUp
	case cur < prev:
		return domain.TrendDown
	}
	return domain.TrendFlat
}

func fixed(v float64, places int) string {
	return strconv.FormatFloat(v, 'f', places, 64)
}
