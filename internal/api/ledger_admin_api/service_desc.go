package ledger_admin_api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	availableSeatsMethod = "/" + ServiceName + "/AvailableSeats"
	expireOverdueMethod  = "/" + ServiceName + "/ExpireOverdue"
	reconcileMethod      = "/" + ServiceName + "/Reconcile"
)

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AvailableSeats", Handler: availableSeatsHandler},
		{MethodName: "ExpireOverdue", Handler: expireOverdueHandler},
		{MethodName: "Reconcile", Handler: reconcileHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "openride/ledger/v1/admin.proto",
}

func availableSeatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerAdminServer).AvailableSeats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: availableSeatsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerAdminServer).AvailableSeats(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func expireOverdueHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerAdminServer).ExpireOverdue(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: expireOverdueMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerAdminServer).ExpireOverdue(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func reconcileHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerAdminServer).Reconcile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: reconcileMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerAdminServer).Reconcile(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls LedgerAdmin over a gRPC connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) AvailableSeats(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.Int32Value, error) {
	out := new(wrapperspb.Int32Value)
	if err := c.cc.Invoke(ctx, availableSeatsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ExpireOverdue(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, expireOverdueMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Reconcile(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, reconcileMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
