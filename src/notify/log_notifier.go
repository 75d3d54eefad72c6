package notify

import (
	"context"
	"time"

	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"
)

// LogNotifier writes alerts to the log. Used when Telegram is disabled.
type LogNotifier struct {
	Logger   *logger.Logger
	Location *time.Location
}

func NewLogNotifier(loc *time.Location, log *logger.Logger) *LogNotifier {
	return &LogNotifier{Logger: log, Location: loc}
}

func (n *LogNotifier) NotifySpike(_ context.Context, ev models.MSpikeEvent) error {
	n.Logger.Info("ALERT %s %s vol=%s price=%.2f value=%s Cr at %s",
		ev.Severity, ev.Symbol, GroupThousands(ev.VolumeDelta), ev.Price,
		ev.ValueCrores().StringFixed(2), ev.ObservedAt.In(n.Location).Format("15:04:05"))
	return nil
}

func (n *LogNotifier) NotifyOperator(_ context.Context, message string) error {
	n.Logger.Info("OPERATOR %s", message)
	return nil
}
