package detector

import (
	"time"

	"volume-spike-detector/src/models"
)

// Tier cutoffs, compared with strict greater-than.
const (
	LargeSpikePct  = 50.0
	MediumSpikePct = 20.0
)

// SpikeClassifier decides whether a volume delta is a reportable spike.
// It has no state and performs no I/O.
type SpikeClassifier struct {
	Threshold      float64 // minimum notional value
	MinVolumeSpike int64   // deltas at or below this are noise
}

// -----------------------------------------------------------------------------

func NewSpikeClassifier(cfg models.MDetectorConfig) SpikeClassifier {
	return SpikeClassifier{
		Threshold:      cfg.IndividualTradeThreshold,
		MinVolumeSpike: cfg.MinVolumeSpike,
	}
}

// -----------------------------------------------------------------------------

// Classify returns an event when volumeDelta exceeds the noise floor and its
// notional value reaches the threshold.
func (c SpikeClassifier) Classify(symbol string, price float64, volumeDelta, previousVolume int64, observedAt time.Time) (models.MSpikeEvent, bool) {
	if volumeDelta <= c.MinVolumeSpike {
		return models.MSpikeEvent{}, false
	}

	notional := price * float64(volumeDelta)
	if notional < c.Threshold {
		return models.MSpikeEvent{}, false
	}

	pct := 0.0
	if previousVolume != 0 {
		pct = float64(volumeDelta) / float64(previousVolume) * 100
	}

	return models.MSpikeEvent{
		Symbol:          symbol,
		Price:           price,
		VolumeDelta:     volumeDelta,
		PreviousVolume:  previousVolume,
		NotionalValue:   notional,
		SpikePercentage: pct,
		Severity:        SeverityFor(pct),
		ObservedAt:      observedAt,
	}, true
}

// -----------------------------------------------------------------------------

func SeverityFor(spikePct float64) models.Severity {
	switch {
	case spikePct > LargeSpikePct:
		return models.SeverityLarge
	case spikePct > MediumSpikePct:
		return models.SeverityMedium
	default:
		return models.SeverityIncrease
	}
}
