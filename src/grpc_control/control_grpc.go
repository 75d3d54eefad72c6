package grpc_control

import (
	"context"
	"fmt"
	"net"

	"volume-spike-detector/src/logger"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "volumespike.control.v1.DetectorControl"

// DetectorControlServer is the server side of the control service. Requests
// are Empty and replies are free-form Structs so no generated code is needed.
type DetectorControlServer interface {
	Start(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Stop(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Restart(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SendSummary(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	StopSummary(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var _ DetectorControlServer = (*ControlService)(nil)

// -----------------------------------------------------------------------------

func unaryHandler(method string, call func(DetectorControlServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(emptypb.Empty)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DetectorControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(DetectorControlServer), ctx, req.(*emptypb.Empty))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var DetectorControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DetectorControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Start", DetectorControlServer.Start),
		unaryHandler("Stop", DetectorControlServer.Stop),
		unaryHandler("Restart", DetectorControlServer.Restart),
		unaryHandler("Status", DetectorControlServer.Status),
		unaryHandler("SendSummary", DetectorControlServer.SendSummary),
		unaryHandler("StopSummary", DetectorControlServer.StopSummary),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "volumespike/control/v1/control.proto",
}

func RegisterDetectorControlServer(s grpc.ServiceRegistrar, srv DetectorControlServer) {
	s.RegisterService(&DetectorControlServiceDesc, srv)
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type DetectorControlClient struct {
	cc grpc.ClientConnInterface
}

func NewDetectorControlClient(cc grpc.ClientConnInterface) *DetectorControlClient {
	return &DetectorControlClient{cc: cc}
}

// Call invokes one of the control methods by name, e.g. "Status".
func (c *DetectorControlClient) Call(ctx context.Context, method string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps a grpc.Server bound to the control service.
type Server struct {
	Addr   string
	Logger *logger.Logger

	grpcServer *grpc.Server
}

func NewServer(host string, port int, svc DetectorControlServer, log *logger.Logger) *Server {
	gs := grpc.NewServer()
	RegisterDetectorControlServer(gs, svc)
	return &Server{
		Addr:       fmt.Sprintf("%s:%d", host, port),
		Logger:     log,
		grpcServer: gs,
	}
}

// Serve blocks until Stop is called or the listener fails.
func (s *Server) Serve(lis net.Listener) error {
	s.Logger.Info("gRPC control listening on %s", lis.Addr())
	return s.grpcServer.Serve(lis)
}

// ListenAndServe opens Addr and serves on it.
func (s *Server) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	return s.Serve(lis)
}

func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
