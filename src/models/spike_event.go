package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Severity is the tier assigned to a qualifying volume spike.
type Severity string

const (
	SeverityLarge    Severity = "Large Spike"
	SeverityMedium   Severity = "Medium Spike"
	SeverityIncrease Severity = "Volume Increase"
)

var crore = decimal.New(1, 7)

// -----------------------------------------------------------------------------

// MSpikeEvent is emitted once per qualifying tick outside the cool-down window.
type MSpikeEvent struct {
	Symbol          string    `json:"symbol"`
	Sector          string    `json:"sector"`
	Price           float64   `json:"price"`
	VolumeDelta     int64     `json:"volume_delta"`
	PreviousVolume  int64     `json:"previous_volume"`
	NotionalValue   float64   `json:"notional_value"`
	SpikePercentage float64   `json:"spike_percentage"`
	Severity        Severity  `json:"severity"`
	ObservedAt      time.Time `json:"observed_at"`
}

// ValueCrores returns the notional value in crores rounded to two places.
func (e MSpikeEvent) ValueCrores() decimal.Decimal {
	return decimal.NewFromFloat(e.NotionalValue).Div(crore).Round(2)
}
