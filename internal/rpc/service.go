// Package rpc defines the ParamService gRPC contract. Messages travel as
// google.protobuf.Struct and are converted to the Go types below through
// protojson, so the service needs no generated code.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "paramwatch.v1.ParamService"

// Full method names.
const (
	MethodEncode   = "/" + ServiceName + "/Encode"
	MethodDecode   = "/" + ServiceName + "/Decode"
	MethodEvaluate = "/" + ServiceName + "/Evaluate"
	MethodInfo     = "/" + ServiceName + "/Info"
)

// ParamServiceServer is implemented by the policy server.
type ParamServiceServer interface {
	Encode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Decode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Info(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterParamServiceServer registers srv on s.
func RegisterParamServiceServer(s grpc.ServiceRegistrar, srv ParamServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(ParamServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ParamServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(ParamServiceServer), ctx, req.(*structpb.Struct))
		})
	}
}

// ServiceDesc describes ParamService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ParamServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Encode", Handler: handler(MethodEncode, ParamServiceServer.Encode)},
		{MethodName: "Decode", Handler: handler(MethodDecode, ParamServiceServer.Decode)},
		{MethodName: "Evaluate", Handler: handler(MethodEvaluate, ParamServiceServer.Evaluate)},
		{MethodName: "Info", Handler: handler(MethodInfo, ParamServiceServer.Info)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "paramwatch/v1/params.proto",
}

// ParamServiceClient calls ParamService over a client connection.
type ParamServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewParamServiceClient wraps cc.
func NewParamServiceClient(cc grpc.ClientConnInterface) *ParamServiceClient {
	return &ParamServiceClient{cc: cc}
}

func (c *ParamServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ParamServiceClient) Encode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodEncode, in, opts...)
}

func (c *ParamServiceClient) Decode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodDecode, in, opts...)
}

func (c *ParamServiceClient) Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodEvaluate, in, opts...)
}

func (c *ParamServiceClient) Info(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodInfo, in, opts...)
}
