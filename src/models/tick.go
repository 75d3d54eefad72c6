package models

// MTick is one decoded update from the market-data feed.
type MTick struct {
	Symbol           string  `json:"symbol"`
	Price            float64 `json:"ltp"`
	CumulativeVolume int64   `json:"vol_traded_today"`
	ExchangeTime     int64   `json:"exch_feed_time,omitempty"`
}
