package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	InventoryService_CreateInventory_FullMethodName = "/inventory.v1.InventoryService/CreateInventory"
	InventoryService_GetInventory_FullMethodName    = "/inventory.v1.InventoryService/GetInventory"
	InventoryService_SetAvailable_FullMethodName    = "/inventory.v1.InventoryService/SetAvailable"
	InventoryService_Reserve_FullMethodName         = "/inventory.v1.InventoryService/Reserve"
	InventoryService_Release_FullMethodName         = "/inventory.v1.InventoryService/Release"
)

type InventoryServiceServer interface {
	CreateInventory(context.Context, *CreateInventoryRequest) (*InventoryResponse, error)
	GetInventory(context.Context, *GetInventoryRequest) (*InventoryResponse, error)
	SetAvailable(context.Context, *SetAvailableRequest) (*AckResponse, error)
	Reserve(context.Context, *StockRequest) (*AckResponse, error)
	Release(context.Context, *StockRequest) (*AckResponse, error)
}

// UnimplementedInventoryServiceServer can be embedded to stay forward compatible.
type UnimplementedInventoryServiceServer struct{}

func (UnimplementedInventoryServiceServer) CreateInventory(context.Context, *CreateInventoryRequest) (*InventoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateInventory not implemented")
}

func (UnimplementedInventoryServiceServer) GetInventory(context.Context, *GetInventoryRequest) (*InventoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetInventory not implemented")
}

func (UnimplementedInventoryServiceServer) SetAvailable(context.Context, *SetAvailableRequest) (*AckResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SetAvailable not implemented")
}

func (UnimplementedInventoryServiceServer) Reserve(context.Context, *StockRequest) (*AckResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Reserve not implemented")
}

func (UnimplementedInventoryServiceServer) Release(context.Context, *StockRequest) (*AckResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Release not implemented")
}

func RegisterInventoryServiceServer(s grpc.ServiceRegistrar, srv InventoryServiceServer) {
	s.RegisterService(&InventoryService_ServiceDesc, srv)
}

var InventoryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "inventory.v1.InventoryService",
	HandlerType: (*InventoryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateInventory", Handler: _InventoryService_CreateInventory_Handler},
		{MethodName: "GetInventory", Handler: _InventoryService_GetInventory_Handler},
		{MethodName: "SetAvailable", Handler: _InventoryService_SetAvailable_Handler},
		{MethodName: "Reserve", Handler: _InventoryService_Reserve_Handler},
		{MethodName: "Release", Handler: _InventoryService_Release_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory/v1/inventory.proto",
}

func _InventoryService_CreateInventory_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateInventoryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServiceServer).CreateInventory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InventoryService_CreateInventory_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServiceServer).CreateInventory(ctx, req.(*CreateInventoryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _InventoryService_GetInventory_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetInventoryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServiceServer).GetInventory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InventoryService_GetInventory_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServiceServer).GetInventory(ctx, req.(*GetInventoryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _InventoryService_SetAvailable_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SetAvailableRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServiceServer).SetAvailable(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InventoryService_SetAvailable_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServiceServer).SetAvailable(ctx, req.(*SetAvailableRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _InventoryService_Reserve_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StockRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServiceServer).Reserve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InventoryService_Reserve_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServiceServer).Reserve(ctx, req.(*StockRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _InventoryService_Release_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StockRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServiceServer).Release(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InventoryService_Release_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServiceServer).Release(ctx, req.(*StockRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type InventoryServiceClient interface {
	CreateInventory(ctx context.Context, in *CreateInventoryRequest, opts ...grpc.CallOption) (*InventoryResponse, error)
	GetInventory(ctx context.Context, in *GetInventoryRequest, opts ...grpc.CallOption) (*InventoryResponse, error)
	SetAvailable(ctx context.Context, in *SetAvailableRequest, opts ...grpc.CallOption) (*AckResponse, error)
	Reserve(ctx context.Context, in *StockRequest, opts ...grpc.CallOption) (*AckResponse, error)
	Release(ctx context.Context, in *StockRequest, opts ...grpc.CallOption) (*AckResponse, error)
}

type inventoryServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewInventoryServiceClient returns a client that always speaks the JSON codec.
func NewInventoryServiceClient(cc grpc.ClientConnInterface) InventoryServiceClient {
	return &inventoryServiceClient{cc: cc}
}

func (c *inventoryServiceClient) CreateInventory(ctx context.Context, in *CreateInventoryRequest, opts ...grpc.CallOption) (*InventoryResponse, error) {
	out := new(InventoryResponse)
	if err := c.invoke(ctx, InventoryService_CreateInventory_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inventoryServiceClient) GetInventory(ctx context.Context, in *GetInventoryRequest, opts ...grpc.CallOption) (*InventoryResponse, error) {
	out := new(InventoryResponse)
	if err := c.invoke(ctx, InventoryService_GetInventory_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inventoryServiceClient) SetAvailable(ctx context.Context, in *SetAvailableRequest, opts ...grpc.CallOption) (*AckResponse, error) {
	out := new(AckResponse)
	if err := c.invoke(ctx, InventoryService_SetAvailable_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inventoryServiceClient) Reserve(ctx context.Context, in *StockRequest, opts ...grpc.CallOption) (*AckResponse, error) {
	out := new(AckResponse)
	if err := c.invoke(ctx, InventoryService_Reserve_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inventoryServiceClient) Release(ctx context.Context, in *StockRequest, opts ...grpc.CallOption) (*AckResponse, error) {
	out := new(AckResponse)
	if err := c.invoke(ctx, InventoryService_Release_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inventoryServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
