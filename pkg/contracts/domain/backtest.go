package domain

// TransactionType is the side of a backtest transaction
type TransactionType string

const (
	TransactionBuy  TransactionType = "Buy"
	TransactionSell TransactionType = "Sell"
)

// TransactionRecord is one entry of a backtest's transaction log
type TransactionRecord struct {
	Date            string          `json:"date"`
	Symbol          string          `json:"symbol"`
	TransactionType TransactionType `json:"transaction_type"`
	Strike          float64         `json:"strike"`
	Quantity        float64         `json:"quantity"`
	Confidence      float64         `json:"confidence"`
	HoldLength      float64         `json:"hold_length"`
	TradePL         float64         `json:"tradePL"`
	PortfolioPL     float64         `json:"portfolioPL"`
	TotalPL         float64         `json:"totalPL"`
	Reason          string          `json:"reason"`
}

// TransactionPair is a reconstructed round trip for one symbol
type TransactionPair struct {
	Buy  TransactionRecord `json:"buy"`
	Sell TransactionRecord `json:"sell"`
}

// TransactionHistory summarises a notable round trip
type TransactionHistory struct {
	PurchaseDate string  `json:"purchase_date"`
	SellDate     string  `json:"sell_date"`
	PL           float64 `json:"pl"`
	Symbol       string  `json:"symbol"`
}

// PredictionStat counts prediction outcomes for one field
type PredictionStat struct {
	Correct    int     `json:"correct"`
	Incorrect  int     `json:"incorrect"`
	Unsure     int     `json:"unsure"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// BacktestStage is the lifecycle stage of a backtest
type BacktestStage string

const (
	BacktestStageInactive BacktestStage = "inactive"
	BacktestStageSetup    BacktestStage = "setup"
	BacktestStageTesting  BacktestStage = "testing"
	BacktestStageComplete BacktestStage = "complete"
)

// Backtest is the performance report of one backtested strategy
type Backtest struct {
	Name                string                               `json:"name"`
	Active              bool                                 `json:"active"`
	Observations        int                                  `json:"observations"`
	InitialCapital      float64                              `json:"initial_capital"`
	Buys                map[string]float64                   `json:"buys"`
	TotalBuys           int                                  `json:"total_buys"`
	TotalSells          int                                  `json:"total_sells"`
	HoldProfit          float64                              `json:"hold_profit"`
	StrategyProfit      float64                              `json:"strategy_profit"`
	LargestProfit       *TransactionHistory                  `json:"largest_profit,omitempty"`
	LargestLoss         *TransactionHistory                  `json:"largest_loss,omitempty"`
	LargestMissedProfit *TransactionHistory                  `json:"largest_missed_profit,omitempty"`
	Stage               BacktestStage                        `json:"stage"`
	GoodBuys            []TransactionRecord                  `json:"good_buys"`
	BadBuys             []TransactionRecord                  `json:"bad_buys"`
	BadSells            []TransactionRecord                  `json:"bad_sells"`
	AllTransactions     []TransactionRecord                  `json:"all_transactions"`
	Portfolios          []Portfolio                          `json:"portfolios"`
	TestSize            float64                              `json:"test_size"`
	PredictionStats     map[string]map[string]PredictionStat `json:"prediction_stats,omitempty"`
}

// BacktestsState maps strategy name to its backtest
type BacktestsState map[string]Backtest
