// Package grpcdesc builds grpc.MethodDesc values for services whose messages are plain Go
// structs carried by the JSON codec.
package grpcdesc

import (
	"context"

	"google.golang.org/grpc"
)

// Unary returns the descriptor for a unary method of service. call is usually a method
// expression on the service's server interface, e.g. FooServer.Bar.
func Unary[S, Req, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			impl := srv.(S)
			if interceptor == nil {
				return call(impl, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(impl, ctx, req.(*Req))
			})
		},
	}
}

// FullMethod returns the "/service/method" name used by interceptors.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}
