package wire

import (
	"context"

	"google.golang.org/grpc"
)

// BusServiceServer is the server contract for the bus service.
type BusServiceServer interface {
	Propose(context.Context, *ProposeRequest) (*ProposeResponse, error)
	Poll(context.Context, *PollRequest) (*PollResponse, error)
}

// RegisterBusServiceServer registers srv with the gRPC server.
func RegisterBusServiceServer(s grpc.ServiceRegistrar, srv BusServiceServer) {
	s.RegisterService(&BusService_ServiceDesc, srv)
}

func _BusService_Propose_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ProposeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BusServiceServer).Propose(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/Propose",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BusServiceServer).Propose(ctx, req.(*ProposeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _BusService_Poll_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PollRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BusServiceServer).Poll(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/Poll",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BusServiceServer).Poll(ctx, req.(*PollRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// BusService_ServiceDesc is the hand-maintained service descriptor. The
// method set mirrors the external interface: Propose and Poll only.
var BusService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BusServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Propose", Handler: _BusService_Propose_Handler},
		{MethodName: "Poll", Handler: _BusService_Poll_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agentbus/v1/bus_service",
}
