package domain

import (
	"encoding/json"
)

// KoiState is the top-level snapshot of the trading process
type KoiState struct {
	Strategies           []StrategyInfo                `json:"strategies"`
	MarketData           map[string]map[string]float64 `json:"market_data,omitempty"`
	IBConnected          bool                          `json:"ib_connected"`
	MarketTicksStreaming bool                          `json:"market_ticks_streaming"`
	CryptoTicksStreaming bool                          `json:"crypto_ticks_streaming"`
}

// StrategyInfo describes one running trading strategy
type StrategyInfo struct {
	Name             string               `json:"name"`
	Equity           float64              `json:"equity"`
	AvailableCapital float64              `json:"available_capital"`
	InitialCapital   float64              `json:"initial_capital"`
	Active           bool                 `json:"active"`
	Contracts        json.RawMessage      `json:"contracts,omitempty"` // stock contracts or crypto pairs
	Portfolios       map[string]Portfolio `json:"portfolios"`
	StartDate        string               `json:"start_date"`
	Description      string               `json:"description"`
	Crypto           bool                 `json:"crypto"`
	TradeConfig      TradeConfig          `json:"trade_config"`
	AnalysisConfig   AnalysisConfig       `json:"analysis_config"`
}

// TradeConfig holds a strategy's trading parameters
type TradeConfig struct {
	TradeFrequency     float64 `json:"trade_frequency"`
	StopLossPct        float64 `json:"stop_loss_pct"`
	RecentDataDuration string  `json:"recent_data_duration"`
	TrainPct           float64 `json:"train_pct"`
	TrainDuration      string  `json:"train_duration"`
}

// AnalysisConfig holds a strategy's analysis parameters
type AnalysisConfig struct {
	Duration             string  `json:"duration"`
	CorrelationThreshold float64 `json:"correlation_threshold"`
	AccuracyThreshold    float64 `json:"accuracy_threshold"`
}

// Portfolio is a strategy's position in a single symbol
type Portfolio struct {
	Symbol          string  `json:"symbol,omitempty"`
	HoldStartPrice  float64 `json:"hold_start_price"`
	HoldStartShares float64 `json:"hold_start_shares"`
	HasStock        bool    `json:"has_stock"`
	PurchasePrice   float64 `json:"purchase_price"`
	PurchaseDate    string  `json:"purchase_date,omitempty"`
	Quantity        float64 `json:"quantity"`
	GrossProfit     float64 `json:"gross_profit"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	StopLossPrice   float64 `json:"stop_loss_price"`
	Purchases       int     `json:"purchases"`
}

// ContractData identifies a brokerage contract
type ContractData struct {
	Symbol          string `json:"symbol"`
	Exchange        string `json:"exchange"`
	Currency        string `json:"currency"`
	ContractType    string `json:"contract_type"`
	WhatToShow      string `json:"whatToShow,omitempty"`
	Pair            string `json:"pair,omitempty"`
	PrimaryExchange string `json:"primaryExchange,omitempty"`
}

// CryptoData identifies a crypto market pair
type CryptoData struct {
	Market   string `json:"market"`
	Currency string `json:"currency"`
}

// CryptoContracts decodes Contracts as crypto pairs. ok is false when the
// strategy trades brokerage contracts instead.
func (s StrategyInfo) CryptoContracts() ([]CryptoData, bool) {
	if len(s.Contracts) == 0 {
		return nil, false
	}
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(s.Contracts, &raw); err != nil {
		return nil, false
	}
	for _, c := range raw {
		if _, ok := c["market"]; !ok {
			return nil, false
		}
	}
	var out []CryptoData
	if err := json.Unmarshal(s.Contracts, &out); err != nil {
		return nil, false
	}
	return out, true
}

// StockContracts decodes Contracts as brokerage contracts.
func (s StrategyInfo) StockContracts() ([]ContractData, bool) {
	if len(s.Contracts) == 0 {
		return nil, false
	}
	if _, isCrypto := s.CryptoContracts(); isCrypto {
		return nil, false
	}
	var out []ContractData
	if err := json.Unmarshal(s.Contracts, &out); err != nil {
		return nil, false
	}
	return out, true
}

// StrategyStats compares a strategy's performance against holding its symbols
type StrategyStats struct {
	HoldProfit          float64 `json:"hold_profit"`
	StrategyPerformance float64 `json:"strategy_performance"`
	ComparedPerformance float64 `json:"compared_performance"`
}

// Holding is an open position shown for the selected strategy
type Holding struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	PL       float64 `json:"pl"`
}
