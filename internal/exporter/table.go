package exporter

import (
	"koidash/internal/views"
	"koidash/pkg/contracts/domain"
)

// Table is a header row plus records aligned to it
type Table struct {
	Headers []string
	Records [][]string
	// Numeric marks the columns holding numbers
	Numeric map[int]bool
}

var transactionHeaders = []string{
	"Date", "Symbol", "Type", "Strike", "Quantity", "Confidence",
	"Hold Length", "Trade P/L", "Portfolio P/L", "Total P/L", "Reason",
}

var pairHeaders = []string{
	"Symbol", "Buy Date", "Buy Strike", "Sell Date", "Sell Strike",
	"Quantity", "Hold Length", "Trade P/L", "Sell Reason",
}

// TransactionTable flattens view into a table. Paired categories produce
// one row per round trip.
func TransactionTable(view views.TransactionView) Table {
	if view.Paired() {
		return pairTable(view.Pairs)
	}
	return flatTable(view.Transactions)
}

func flatTable(log []domain.TransactionRecord) Table {
	t := Table{
		Headers: transactionHeaders,
		Records: make([][]string, 0, len(log)),
		Numeric: map[int]bool{3: true, 4: true, 5: true, 6: true, 7: true, 8: true, 9: true},
	}
	for _, tx := range log {
		t.Records = append(t.Records, []string{
			tx.Date,
			tx.Symbol,
			string(tx.TransactionType),
			formatFloat(tx.Strike),
			formatFloat(tx.Quantity),
			formatFloat(tx.Confidence),
			formatFloat(tx.HoldLength),
			formatFloat(tx.TradePL),
			formatFloat(tx.PortfolioPL),
			formatFloat(tx.TotalPL),
			tx.Reason,
		})
	}
	return t
}

func pairTable(pairs []domain.TransactionPair) Table {
	t := Table{
		Headers: pairHeaders,
		Records: make([][]string, 0, len(pairs)),
		Numeric: map[int]bool{2: true, 4: true, 5: true, 6: true, 7: true},
	}
	for _, p := range pairs {
		t.Records = append(t.Records, []string{
			p.Sell.Symbol,
			p.Buy.Date,
			formatFloat(p.Buy.Strike),
			p.Sell.Date,
			formatFloat(p.Sell.Strike),
			formatFloat(p.Buy.Quantity),
			formatFloat(p.Sell.HoldLength),
			formatFloat(p.Sell.TradePL),
			p.Sell.Reason,
		})
	}
	return t
}
