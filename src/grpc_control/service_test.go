package grpc_control

import (
	"context"
	"net"
	"testing"

	"volume-spike-detector/src/helpers"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeControl struct {
	startErr error
	stops    int
}

func (f *fakeControl) RequestStart() error   { return f.startErr }
func (f *fakeControl) RequestStop() error    { f.stops++; return nil }
func (f *fakeControl) RequestRestart() error { return nil }
func (f *fakeControl) Status() models.MSupervisorStatus {
	return models.MSupervisorStatus{State: "WAITING_FOR_WINDOW", Held: true, Restarts: 2}
}

type fakeSummary struct{ sent, done int }

func (f *fakeSummary) SendNow()      { f.sent++ }
func (f *fakeSummary) DoneForToday() { f.done++ }

type fakeMetrics struct{}

func (fakeMetrics) ProcessingMetrics() models.MProcessingMetrics {
	return models.MProcessingMetrics{TicksProcessed: 7, DispatchDropped: 1}
}

func dial(t *testing.T, svc DetectorControlServer) *DetectorControlClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := &Server{Logger: logger.NewNop(), grpcServer: grpc.NewServer()}
	RegisterDetectorControlServer(srv.grpcServer, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewDetectorControlClient(conn)
}

// -----------------------------------------------------------------------------

func TestControl_StartStop(t *testing.T) {
	control := &fakeControl{}
	client := dial(t, NewControlService(control, &fakeSummary{}, fakeMetrics{}, logger.NewNop()))

	out, err := client.Call(t.Context(), "Start")
	require.NoError(t, err)
	assert.Equal(t, "start", out.Fields["accepted"].GetStringValue())

	_, err = client.Call(t.Context(), "Stop")
	require.NoError(t, err)
	assert.Equal(t, 1, control.stops)

	control.startErr = helpers.ErrAlreadyRunning
	_, err = client.Call(t.Context(), "Start")
	require.Error(t, err)
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestControl_Status(t *testing.T) {
	client := dial(t, NewControlService(&fakeControl{}, nil, fakeMetrics{}, logger.NewNop()))

	out, err := client.Call(t.Context(), "Status")
	require.NoError(t, err)

	m := out.AsMap()
	assert.Equal(t, "WAITING_FOR_WINDOW", m["state"])
	assert.Equal(t, true, m["held"])
	assert.Equal(t, float64(2), m["restarts"])
	assert.NotContains(t, m, "session_started_at")

	pm := m["processing_metrics"].(map[string]interface{})
	assert.Equal(t, float64(7), pm["ticks_processed"])
	assert.Equal(t, float64(1), pm["dispatch_dropped"])
}

func TestControl_Summary(t *testing.T) {
	summary := &fakeSummary{}
	client := dial(t, NewControlService(&fakeControl{}, summary, nil, logger.NewNop()))

	_, err := client.Call(t.Context(), "SendSummary")
	require.NoError(t, err)
	_, err = client.Call(t.Context(), "StopSummary")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.sent)
	assert.Equal(t, 1, summary.done)

	disabled := dial(t, NewControlService(&fakeControl{}, nil, nil, logger.NewNop()))
	_, err = disabled.Call(t.Context(), "SendSummary")
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestControl_UnknownMethod(t *testing.T) {
	client := dial(t, NewControlService(&fakeControl{}, nil, nil, logger.NewNop()))
	_, err := client.Call(t.Context(), "Explode")
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.FailedPrecondition, status.Code(toStatus(helpers.ErrNotRunning)))
	assert.Equal(t, codes.InvalidArgument, status.Code(toStatus(helpers.NewValidationError("bad"))))
	assert.Equal(t, codes.Internal, status.Code(toStatus(assert.AnError)))
}
