// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Dial connects to a bus relay using the default transport (TCP).
// Use WithTransport to select another one.
func Dial(ctx context.Context, addr string, opts ...DialOption) (Client, error) {
	o := &dialOptions{
		transport: DefaultTransport,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	dial, ok := lookupTransport(o.transport)
	if !ok {
		return nil, errors.WithMessagef(ErrNotSupported, "unknown transport %q", o.transport)
	}
	return dial(ctx, addr, o)
}

// Listen starts a bus relay listening on addr over TCP. Call Serve to accept
// connections.
func Listen(addr string, opts ...ServerOption) (*BusServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewBusServer(listener, opts...), nil
}

// dialTCP creates a framed TCP client
func dialTCP(ctx context.Context, addr string, o *dialOptions) (Client, error) {
	return BusDial(ctx, addr, o.logger)
}

var _ Server = (*BusServer)(nil)
