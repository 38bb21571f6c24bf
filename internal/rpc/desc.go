// Package rpc exposes a running history over gRPC and HTTP.
//
// The History service is described by hand rather than generated: its
// messages are the structs in package message, carried by the JSON codec in
// package wire. Unary methods cover every history operation; Watch streams
// change events as the history loop applies them.
package rpc

import (
	"context"

	"google.golang.org/grpc"

	"go.klb.dev/recall/internal/message"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "recall.v1.History"

// HistoryServer is implemented by Service.
type HistoryServer interface {
	List(context.Context, *message.ListRequest) (*message.ItemsResponse, error)
	Get(context.Context, *message.IDRequest) (*message.ItemResponse, error)
	Search(context.Context, *message.SearchRequest) (*message.ItemsResponse, error)
	Copy(context.Context, *message.IDRequest) (*message.ItemResponse, error)
	Pin(context.Context, *message.IDRequest) (*message.FoundResponse, error)
	Unpin(context.Context, *message.IDRequest) (*message.FoundResponse, error)
	TogglePin(context.Context, *message.IDRequest) (*message.FoundResponse, error)
	Rename(context.Context, *message.RenameRequest) (*message.FoundResponse, error)
	Remove(context.Context, *message.IDRequest) (*message.FoundResponse, error)
	Clear(context.Context, *message.Empty) (*message.ClearResponse, error)
	Status(context.Context, *message.Empty) (*message.StatusResponse, error)
	Watch(*message.WatchRequest, WatchServer) error
}

// WatchServer is the server side of a Watch stream.
type WatchServer interface {
	Send(*message.WatchResponse) error
	Context() context.Context
}

type watchServer struct{ grpc.ServerStream }

func (s watchServer) Send(m *message.WatchResponse) error { return s.SendMsg(m) }

// ServiceDesc describes the History service to grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HistoryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("List", HistoryServer.List),
		unary("Get", HistoryServer.Get),
		unary("Search", HistoryServer.Search),
		unary("Copy", HistoryServer.Copy),
		unary("Pin", HistoryServer.Pin),
		unary("Unpin", HistoryServer.Unpin),
		unary("TogglePin", HistoryServer.TogglePin),
		unary("Rename", HistoryServer.Rename),
		unary("Remove", HistoryServer.Remove),
		unary("Clear", HistoryServer.Clear),
		unary("Status", HistoryServer.Status),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(message.WatchRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(HistoryServer).Watch(in, watchServer{stream})
			},
		},
	},
	Metadata: "recall/v1/history",
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv HistoryServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

// unary builds the method descriptor for one request/response call.
func unary[Req, Resp any](name string, call func(HistoryServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			h := srv.(HistoryServer)
			if interceptor == nil {
				return call(h, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(h, ctx, req.(*Req))
			})
		},
	}
}
