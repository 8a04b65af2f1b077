package views

import (
	"fmt"
	"log/slog"
	"sort"

	"koidash/pkg/contracts/domain"
)

// PairingOptions controls how round trips are reconstructed
type PairingOptions struct {
	// Tracked are the symbols with an open slot before the scan begins.
	// A Buy only opens a position for a symbol that already has a slot.
	Tracked []string

	// OpenOnFirstBuy lets any Buy open a position, tracked or not.
	OpenOnFirstBuy bool
}

// TransactionView is either a flat transaction list or a list of pairs
type TransactionView struct {
	Category     domain.TransactionCategory `json:"category"`
	Transactions []domain.TransactionRecord `json:"transactions"`
	Pairs        []domain.TransactionPair   `json:"pairs"`
}

// Paired reports whether the view holds pairs.
func (v TransactionView) Paired() bool {
	return v.Category.Paired()
}

// Len returns the number of visible entries.
func (v TransactionView) Len() int {
	if v.Paired() {
		return len(v.Pairs)
	}
	return len(v.Transactions)
}

// TrackedSymbols returns the symbols a backtest bought, sorted.
func TrackedSymbols(bt domain.Backtest) []string {
	symbols := make([]string, 0, len(bt.Buys))
	for sym := range bt.Buys {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// PairTransactions scans log in order and pairs each Sell with the open Buy
// of the same symbol. A second Buy before the Sell replaces the first.
// Unmatched Sells and Buys that are never closed produce no pair.
func PairTransactions(log []domain.TransactionRecord, opts PairingOptions) []domain.TransactionPair {
	open := make(map[string]*domain.TransactionRecord, len(opts.Tracked))
	for _, sym := range opts.Tracked {
		open[sym] = nil
	}

	pairs := []domain.TransactionPair{}
	for i := range log {
		t := log[i]
		leg, tracked := open[t.Symbol]
		if !tracked && !(opts.OpenOnFirstBuy && t.TransactionType == domain.TransactionBuy) {
			continue
		}

		switch t.TransactionType {
		case domain.TransactionBuy:
			open[t.Symbol] = &t
		case domain.TransactionSell:
			if leg != nil {
				pairs = append(pairs, domain.TransactionPair{Buy: *leg, Sell: t})
				delete(open, t.Symbol)
			}
		}
	}
	return pairs
}

// VisibleTransactions returns the view of bt's transaction log for category.
// A failure while building the view yields an empty one.
func VisibleTransactions(bt domain.Backtest, category domain.TransactionCategory, opts PairingOptions, logger *slog.Logger) TransactionView {
	return guardView(category, logger, func() TransactionView {
		view := emptyView(category)
		switch category {
		case domain.CategoryAll:
			if bt.AllTransactions != nil {
				view.Transactions = bt.AllTransactions
			}
		case domain.CategoryBuys:
			view.Transactions = filterType(bt.AllTransactions, domain.TransactionBuy)
		case domain.CategorySells:
			view.Transactions = filterType(bt.AllTransactions, domain.TransactionSell)
		case domain.CategoryGood:
			pairs := filterPairs(PairTransactions(bt.AllTransactions, opts), func(pl float64) bool { return pl > 0 })
			sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Sell.TradePL > pairs[j].Sell.TradePL })
			view.Pairs = pairs
		case domain.CategoryBad:
			pairs := filterPairs(PairTransactions(bt.AllTransactions, opts), func(pl float64) bool { return pl < 0 })
			sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Sell.TradePL < pairs[j].Sell.TradePL })
			view.Pairs = pairs
		}
		return view
	})
}

// guardView runs build, substituting an empty view if it panics.
func guardView(category domain.TransactionCategory, logger *slog.Logger, build func() TransactionView) (view TransactionView) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error("failed to build transaction view",
					slog.String("category", string(category)),
					slog.String("error", fmt.Sprint(r)))
			}
			view = emptyView(category)
		}
	}()
	return build()
}

func emptyView(category domain.TransactionCategory) TransactionView {
	if category.Paired() {
		return TransactionView{Category: category, Pairs: []domain.TransactionPair{}}
	}
	return TransactionView{Category: category, Transactions: []domain.TransactionRecord{}}
}

func filterType(log []domain.TransactionRecord, tt domain.TransactionType) []domain.TransactionRecord {
	out := []domain.TransactionRecord{}
	for _, t := range log {
		if t.TransactionType == tt {
			out = append(out, t)
		}
	}
	return out
}

func filterPairs(pairs []domain.TransactionPair, keep func(tradePL float64) bool) []domain.TransactionPair {
	out := []domain.TransactionPair{}
	for _, p := range pairs {
		if keep(p.Sell.TradePL) {
			out = append(out, p)
		}
	}
	return out
}
