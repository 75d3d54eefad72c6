package models

import "time"

// MSymbolState is the per-symbol tracking record of a streaming session.
// A zero LastAlertAt means no alert has fired yet.
type MSymbolState struct {
	Symbol      string
	LastVolume  int64
	LastPrice   float64
	LastAlertAt time.Time
}
