// Package v1 holds the KeyframeService wire contract. Requests and responses
// are google.protobuf.Struct messages whose fields mirror the JSON shape of
// the HTTP API.
package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	KeyframeServiceName = "salesrace.v1.KeyframeService"

	KeyframeService_GetBarRace_FullMethodName = "/salesrace.v1.KeyframeService/GetBarRace"
	KeyframeService_GetTreeMap_FullMethodName = "/salesrace.v1.KeyframeService/GetTreeMap"
)

// Request fields.
const (
	FieldSource = "source"
	FieldWidth  = "width"
	FieldHeight = "height"
)

// KeyframeServer is the server API for KeyframeService.
type KeyframeServer interface {
	// GetBarRace takes {source} and returns every bar-race keyframe.
	GetBarRace(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetTreeMap takes {source, width, height} and returns every laid-out
	// tree-map keyframe.
	GetTreeMap(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterKeyframeServer(s grpc.ServiceRegistrar, srv KeyframeServer) {
	s.RegisterService(&KeyframeService_ServiceDesc, srv)
}

func _KeyframeService_GetBarRace_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyframeServer).GetBarRace(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: KeyframeService_GetBarRace_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeyframeServer).GetBarRace(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _KeyframeService_GetTreeMap_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyframeServer).GetTreeMap(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: KeyframeService_GetTreeMap_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeyframeServer).GetTreeMap(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var KeyframeService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: KeyframeServiceName,
	HandlerType: (*KeyframeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetBarRace",
			Handler:    _KeyframeService_GetBarRace_Handler,
		},
		{
			MethodName: "GetTreeMap",
			Handler:    _KeyframeService_GetTreeMap_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "salesrace/v1/keyframes.proto",
}

// KeyframeClient is the client API for KeyframeService.
type KeyframeClient interface {
	GetBarRace(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetTreeMap(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type keyframeClient struct {
	cc grpc.ClientConnInterface
}

func NewKeyframeClient(cc grpc.ClientConnInterface) KeyframeClient {
	return &keyframeClient{cc}
}

func (c *keyframeClient) GetBarRace(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, KeyframeService_GetBarRace_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *keyframeClient) GetTreeMap(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, KeyframeService_GetTreeMap_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// UnimplementedKeyframeServer can be embedded to have forward compatible
// implementations.
type UnimplementedKeyframeServer struct{}

func (UnimplementedKeyframeServer) GetBarRace(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, errUnimplemented("GetBarRace")
}

func (UnimplementedKeyframeServer) GetTreeMap(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, errUnimplemented("GetTreeMap")
}
