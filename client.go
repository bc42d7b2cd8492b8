// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Publisher sends encoded messages on named channels.
type Publisher interface {
	// Publish sends one encoded message on channel
	Publish(ctx context.Context, channel string, payload []byte) error

	// Close closes the connection
	Close() error
}

// Client is the transport-agnostic bus client. Transports that can only
// publish return ErrNotSupported from Subscribe and Unsubscribe.
type Client interface {
	Publisher

	// Subscribe delivers every message published on channel to handler
	Subscribe(ctx context.Context, channel string, handler Handler) error

	// Unsubscribe stops delivery for channel
	Unsubscribe(ctx context.Context, channel string) error
}

// Server relays publications between clients.
type Server interface {
	// Bind restricts channel to messages carrying t's fingerprint
	Bind(channel string, t *Type)

	// Serve accepts connections (blocks until context cancelled or Close)
	Serve(ctx context.Context) error

	// Close stops the server
	Close() error

	// Addr returns the server's listen address
	Addr() string
}

// Handler receives one encoded message. Returned errors are logged by the
// connection that delivered the message.
type Handler func(ctx context.Context, channel string, payload []byte) error

// PublishValue encodes v as t and publishes it on channel.
func PublishValue(ctx context.Context, p Publisher, channel string, t *Type, v Value) error {
	data, err := t.Encode(v)
	if err != nil {
		return errors.WithMessagef(err, "publish %q", channel)
	}
	return p.Publish(ctx, channel, data)
}

// Decoded adapts a value handler into a Handler that decodes each payload as
// t. Payloads that fail to decode, including fingerprint mismatches, are
// reported as errors and never reach fn.
func Decoded(t *Type, fn func(ctx context.Context, channel string, v Value) error) Handler {
	return func(ctx context.Context, channel string, payload []byte) error {
		v, err := t.Decode(payload)
		if err != nil {
			return errors.WithMessagef(err, "channel %q", channel)
		}
		return fn(ctx, channel, v)
	}
}

// DialOption configures client connections
type DialOption func(*dialOptions)

type dialOptions struct {
	transport string // "tcp", "grpc", "http"
	logger    zerolog.Logger
	request   []RequestOption
}

// WithTransport explicitly sets the transport type
func WithTransport(t string) DialOption {
	return func(o *dialOptions) { o.transport = t }
}

// WithDialLogger sets the logger used by the client connection
func WithDialLogger(l zerolog.Logger) DialOption {
	return func(o *dialOptions) { o.logger = l }
}

// WithRequestOptions sets per-request options for the http transport
func WithRequestOptions(opts ...RequestOption) DialOption {
	return func(o *dialOptions) { o.request = append(o.request, opts...) }
}

// ServerOption configures servers
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger     zerolog.Logger
	registerer prometheus.Registerer
}

// WithServerLogger sets the logger used by the server
func WithServerLogger(l zerolog.Logger) ServerOption {
	return func(o *serverOptions) { o.logger = l }
}

// WithRegisterer registers the server's counters with reg
func WithRegisterer(reg prometheus.Registerer) ServerOption {
	return func(o *serverOptions) { o.registerer = reg }
}
