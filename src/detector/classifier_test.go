package detector

import (
	"testing"
	"time"

	"volume-spike-detector/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClassifier = SpikeClassifier{Threshold: 30_000_000, MinVolumeSpike: 1000}

func TestClassify_NoiseFloor(t *testing.T) {
	// A huge price cannot rescue a delta at the floor
	_, ok := testClassifier.Classify("X", 1e9, 1000, 10, time.Now())
	assert.False(t, ok)

	_, ok = testClassifier.Classify("X", 1e9, 0, 10, time.Now())
	assert.False(t, ok)
}

func TestClassify_BelowThreshold(t *testing.T) {
	// 29,999,999 notional
	_, ok := testClassifier.Classify("X", 1, 29_999_999, 1, time.Now())
	assert.False(t, ok)
}

func TestClassify_AtThreshold(t *testing.T) {
	ev, ok := testClassifier.Classify("X", 1, 30_000_000, 1_000_000_000, time.Now())
	require.True(t, ok)
	assert.Equal(t, 30_000_000.0, ev.NotionalValue)
	assert.Equal(t, models.SeverityIncrease, ev.Severity)
}

func TestClassify_Tiers(t *testing.T) {
	tests := []struct {
		name     string
		delta    int64
		prev     int64
		expected models.Severity
	}{
		{"exactly 50 is medium", 50_000, 100_000, models.SeverityMedium},
		{"above 50 is large", 50_001, 100_000, models.SeverityLarge},
		{"exactly 20 is increase", 20_000, 100_000, models.SeverityIncrease},
		{"above 20 is medium", 20_001, 100_000, models.SeverityMedium},
		{"zero previous volume", 50_000, 0, models.SeverityIncrease},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := testClassifier.Classify("X", 2000, tt.delta, tt.prev, time.Now())
			require.True(t, ok)
			assert.Equal(t, tt.expected, ev.Severity)
			assert.Equal(t, 2000*float64(tt.delta), ev.NotionalValue)
		})
	}
}

func TestClassify_ZeroPreviousVolumePercentage(t *testing.T) {
	ev, ok := testClassifier.Classify("X", 2000, 50_000, 0, time.Now())
	require.True(t, ok)
	assert.Equal(t, 0.0, ev.SpikePercentage)
}

func TestSpikeEvent_ValueCrores(t *testing.T) {
	ev := models.MSpikeEvent{NotionalValue: 499_900_000}
	assert.Equal(t, "49.99", ev.ValueCrores().StringFixed(2))

	ev.NotionalValue = 30_456_789
	assert.Equal(t, "3.05", ev.ValueCrores().StringFixed(2))
}
