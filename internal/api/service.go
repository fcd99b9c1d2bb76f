package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ReportServiceName is the fully-qualified gRPC service name.
const ReportServiceName = "followledger.v1.ReportService"

// Method names of ReportService.
const (
	MethodGetNotReciprocated = "GetNotReciprocated"
	MethodGetLedger          = "GetLedger"
	MethodGetDailyFollowers  = "GetDailyFollowers"
	MethodGetMonthlySeries   = "GetMonthlySeries"
	MethodRefresh            = "Refresh"
)

// ReportServiceServer is the server API for ReportService. Every method takes
// an empty request and answers with a JSON-like struct.
type ReportServiceServer interface {
	GetNotReciprocated(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetLedger(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetDailyFollowers(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetMonthlySeries(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Refresh(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type reportCall func(ReportServiceServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)

func unaryHandler(method string, call reportCall) grpc.MethodDesc {
	fullMethod := "/" + ReportServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(emptypb.Empty)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ReportServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ReportServiceServer), ctx, req.(*emptypb.Empty))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ReportServiceDesc describes ReportService for grpc.Server.RegisterService.
var ReportServiceDesc = grpc.ServiceDesc{
	ServiceName: ReportServiceName,
	HandlerType: (*ReportServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodGetNotReciprocated, ReportServiceServer.GetNotReciprocated),
		unaryHandler(MethodGetLedger, ReportServiceServer.GetLedger),
		unaryHandler(MethodGetDailyFollowers, ReportServiceServer.GetDailyFollowers),
		unaryHandler(MethodGetMonthlySeries, ReportServiceServer.GetMonthlySeries),
		unaryHandler(MethodRefresh, ReportServiceServer.Refresh),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "followledger/v1/report.proto",
}

// RegisterReportServiceServer attaches srv to s.
func RegisterReportServiceServer(s grpc.ServiceRegistrar, srv ReportServiceServer) {
	s.RegisterService(&ReportServiceDesc, srv)
}

// ReportServiceClient calls ReportService over a client connection.
type ReportServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewReportServiceClient wraps cc.
func NewReportServiceClient(cc grpc.ClientConnInterface) *ReportServiceClient {
	return &ReportServiceClient{cc: cc}
}

// Call invokes one ReportService method by name.
func (c *ReportServiceClient) Call(ctx context.Context, method string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ReportServiceName+"/"+method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
