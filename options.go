// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

// RequestOption configures one JSON-RPC request
type RequestOption func(*Options)

// Options holds the resolved request options
type Options struct {
	headers     http.Header
	queryParams url.Values
	logger      zerolog.Logger
}

// NewOptions applies ops over the defaults
func NewOptions(ops []RequestOption) *Options {
	o := &Options{
		headers:     http.Header{},
		queryParams: url.Values{},
		logger:      zerolog.Nop(),
	}
	for _, op := range ops {
		op(o)
	}
	return o
}

// WithHeader adds a request header
func WithHeader(key, value string) RequestOption {
	return func(o *Options) { o.headers.Add(key, value) }
}

// WithQueryParam adds a query parameter to the request URI
func WithQueryParam(key, value string) RequestOption {
	return func(o *Options) { o.queryParams.Add(key, value) }
}

// WithRequestLogger sets the logger used for retry reporting
func WithRequestLogger(l zerolog.Logger) RequestOption {
	return func(o *Options) { o.logger = l }
}
