package grpc_control

import (
	"context"
	"errors"
	"time"

	"volume-spike-detector/src/helpers"
	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ControlService implements DetectorControlServer on top of the supervisor
// and the summary scheduler.
type ControlService struct {
	Control       interfaces.IDetectorControl
	Summary       interfaces.ISummaryControl
	MetricsSource interfaces.IMetricsSource
	Logger        *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	control interfaces.IDetectorControl,
	summary interfaces.ISummaryControl,
	metricsSource interfaces.IMetricsSource,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Control:       control,
		Summary:       summary,
		MetricsSource: metricsSource,
		Logger:        log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) Start(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.command("start", s.Control.RequestStart)
}

func (s *ControlService) Stop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.command("stop", s.Control.RequestStop)
}

func (s *ControlService) Restart(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.command("restart", s.Control.RequestRestart)
}

func (s *ControlService) command(name string, fn func() error) (*structpb.Struct, error) {
	if err := fn(); err != nil {
		s.Logger.Warning("gRPC: %s rejected: %v", name, err)
		return nil, toStatus(err)
	}
	s.Logger.Info("gRPC: accepted %s command", name)
	return structpb.NewStruct(map[string]interface{}{"accepted": name})
}

// -----------------------------------------------------------------------------

func (s *ControlService) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st := s.Control.Status()
	fields := map[string]interface{}{
		"state":         st.State,
		"override":      st.Override,
		"held":          st.Held,
		"within_window": st.WithinWindow,
		"restarts":      st.Restarts,
		"last_error":    st.LastError,
	}
	if !st.SessionStartedAt.IsZero() {
		fields["session_started_at"] = st.SessionStartedAt.Format(time.RFC3339)
	}
	if s.MetricsSource != nil {
		fields["processing_metrics"] = metricsFields(s.MetricsSource.ProcessingMetrics())
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode status: %v", err)
	}
	return out, nil
}

func metricsFields(m models.MProcessingMetrics) map[string]interface{} {
	return map[string]interface{}{
		"ticks_processed":   m.TicksProcessed,
		"ticks_malformed":   m.TicksMalformed,
		"spikes_detected":   m.SpikesDetected,
		"spikes_suppressed": m.SpikesSuppressed,
		"persist_succeeded": m.PersistSucceeded,
		"persist_failed":    m.PersistFailed,
		"notify_succeeded":  m.NotifySucceeded,
		"notify_failed":     m.NotifyFailed,
		"dispatch_dropped":  m.DispatchDropped,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) SendSummary(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.Summary == nil {
		return nil, status.Error(codes.Unavailable, "summary disabled")
	}
	s.Summary.SendNow()
	return structpb.NewStruct(map[string]interface{}{"accepted": "send"})
}

func (s *ControlService) StopSummary(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.Summary == nil {
		return nil, status.Error(codes.Unavailable, "summary disabled")
	}
	s.Summary.DoneForToday()
	return structpb.NewStruct(map[string]interface{}{"accepted": "done"})
}

// -----------------------------------------------------------------------------

// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	var validation *helpers.ValidationError
	switch {
	case errors.Is(err, helpers.ErrAlreadyRunning):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, helpers.ErrNotRunning):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &validation):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
