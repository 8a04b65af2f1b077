package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// NumString is a number the trading process sends as a JSON string.
// Plain JSON numbers are accepted too.
type NumString string

// UnmarshalJSON accepts a JSON string, number or null.
func (n *NumString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumString(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = NumString(num.String())
	return nil
}

// Float parses the value, treating empty or unparsable input as zero.
func (n NumString) Float() float64 {
	if n == "" {
		return 0
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0
	}
	return f
}

// Present reports whether a value was sent.
func (n NumString) Present() bool {
	return n != ""
}

// TickData is the latest quote for one symbol
type TickData struct {
	Ask         NumString `json:"ask,omitempty"`
	PrevAsk     NumString `json:"prevAsk,omitempty"`
	AskSize     NumString `json:"askSize,omitempty"`
	PrevAskSize NumString `json:"prevAskSize,omitempty"`
	Bid         NumString `json:"bid,omitempty"`
	PrevBid     NumString `json:"prevBid,omitempty"`
	BidSize     NumString `json:"bidSize,omitempty"`
	PrevBidSize NumString `json:"prevBidSize,omitempty"`
	Close       NumString `json:"close,omitempty"`
	High        NumString `json:"high,omitempty"`
	Low         NumString `json:"low,omitempty"`
	Open        NumString `json:"open,omitempty"`
	Time        NumString `json:"time,omitempty"`
}

// Ticks maps symbol to its latest quote
type Ticks map[string]TickData

// TickState holds the market and crypto halves of the tick snapshot
type TickState struct {
	Market Ticks `json:"market"`
	Crypto Ticks `json:"crypto"`
}

// For returns the half of the state belonging to tab.
func (t TickState) For(tab TickTab) Ticks {
	if tab == TickTabCrypto {
		return t.Crypto
	}
	return t.Market
}

// Trend is the direction a quote metric moved since the previous tick
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// TickerRow is the display form of one symbol's quote
type TickerRow struct {
	Symbol string `json:"symbol"`
	Close  string `json:"close"`

	Ask      string  `json:"ask"`
	RawAsk   float64 `json:"raw_ask"`
	AskDiff  string  `json:"ask_diff"`
	AskTrend Trend   `json:"ask_trend"`

	AskVol      string  `json:"ask_vol"`
	RawAskVol   float64 `json:"raw_ask_vol"`
	AskVolDiff  string  `json:"ask_vol_diff"`
	AskVolTrend Trend   `json:"ask_vol_trend"`

	BidVol      string  `json:"bid_vol"`
	RawBidVol   float64 `json:"raw_bid_vol"`
	BidVolDiff  string  `json:"bid_vol_diff"`
	BidVolTrend Trend   `json:"bid_vol_trend"`

	DayChange    float64 `json:"day_change"`
	DayChangePct float64 `json:"day_change_pct"`
}
