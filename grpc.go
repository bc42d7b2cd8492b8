// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

// GRPCCodecName is the gRPC content subtype carrying lcm-encoded messages.
const GRPCCodecName = "lcm"

const grpcPublishMethod = "/lcm.Bus/Publish"

// Built-in messages carried by the gRPC bus service.
var busTypes = MustRegistry([]Schema{
	{Name: "lcm_publish", Fields: []Field{
		Scalar("channel", KindString),
		Scalar("size", KindInt32),
		Array("data", KindByte, "size"),
	}},
	{Name: "lcm_ack", Fields: []Field{
		Scalar("delivered", KindInt32),
	}},
})

var (
	publishType = busTypes.MustType("lcm_publish")
	ackType     = busTypes.MustType("lcm_ack")
)

func init() {
	encoding.RegisterCodec(GRPCCodec{})
	registerTransport(TransportGRPC, dialGRPC)
}

// GRPCCodec lets gRPC marshal *Message values with the binary codec. It is
// registered under GRPCCodecName.
type GRPCCodec struct{}

func (GRPCCodec) Marshal(v any) ([]byte, error) { return Binary.Encode(v) }

func (GRPCCodec) Unmarshal(data []byte, v any) error { return Binary.Decode(data, v) }

func (GRPCCodec) Name() string { return GRPCCodecName }

func dialGRPC(_ context.Context, addr string, o *dialOptions) (Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(GRPCCodecName)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "grpc dial")
	}
	return &grpcClient{conn: conn}, nil
}

// grpcClient publishes through a relay's gRPC service
type grpcClient struct {
	conn *grpc.ClientConn
}

func (c *grpcClient) Publish(ctx context.Context, channel string, payload []byte) error {
	req := &Message{Type: publishType, Value: Value{"channel": channel, "data": payload}}
	ack := &Message{Type: ackType}
	return c.conn.Invoke(ctx, grpcPublishMethod, req, ack)
}

func (c *grpcClient) Subscribe(context.Context, string, Handler) error {
	return ErrNotSupported
}

func (c *grpcClient) Unsubscribe(context.Context, string) error {
	return ErrNotSupported
}

func (c *grpcClient) Close() error {
	return c.conn.Close()
}

// grpcBus is the handler type of the lcm.Bus service
type grpcBus interface {
	publish(ctx context.Context, req *Message) (*Message, error)
}

type grpcBusService struct {
	server *BusServer
}

func (g *grpcBusService) publish(ctx context.Context, req *Message) (*Message, error) {
	channel, _ := req.Value["channel"].(string)
	data, _ := req.Value["data"].([]byte)
	n, err := g.server.Inject(ctx, channel, data)
	switch {
	case errors.Is(err, ErrSchemaMismatch):
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrBusClosed):
		return nil, status.Error(codes.Unavailable, err.Error())
	case err != nil:
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &Message{Type: ackType, Value: Value{"delivered": int32(n)}}, nil
}

func busPublishHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := &Message{Type: publishType}
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(grpcBus).publish(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: grpcPublishMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(grpcBus).publish(ctx, req.(*Message))
	}
	return interceptor(ctx, in, info, handler)
}

var busServiceDesc = grpc.ServiceDesc{
	ServiceName: "lcm.Bus",
	HandlerType: (*grpcBus)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Publish", Handler: busPublishHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lcm/bus",
}

// RegisterGRPC serves the relay's lcm.Bus service on s. Clients must use the
// lcm content subtype, which the grpc transport selects.
func RegisterGRPC(s grpc.ServiceRegistrar, server *BusServer) {
	s.RegisterService(&busServiceDesc, &grpcBusService{server: server})
}
