// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	gorillarpc "github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	publishMethod = "Bus.Publish"

	httpAttempts  = 3
	httpBaseDelay = 500 * time.Millisecond
	httpTimeout   = 30 * time.Second
)

func init() {
	registerTransport(TransportHTTP, dialHTTP)
}

// PublishArgs are the JSON-RPC parameters of Bus.Publish
type PublishArgs struct {
	Channel string `json:"channel"`
	Data    []byte `json:"data"`
}

// PublishReply is the JSON-RPC result of Bus.Publish
type PublishReply struct {
	Delivered int `json:"delivered"`
}

// httpClient publishes through a relay's JSON-RPC endpoint. Connections are
// not reused between calls.
type httpClient struct {
	uri  url.URL
	http *http.Client
	opts *Options
	log  zerolog.Logger
}

func dialHTTP(_ context.Context, addr string, o *dialOptions) (Client, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	uri, err := url.Parse(addr)
	if err != nil {
		return nil, errors.Wrap(err, "http dial")
	}
	opts := NewOptions(append([]RequestOption{WithRequestLogger(o.logger)}, o.request...))
	uri.RawQuery = opts.queryParams.Encode()
	return &httpClient{
		uri: *uri,
		http: &http.Client{
			Timeout:   httpTimeout,
			Transport: &http.Transport{DisableKeepAlives: true},
		},
		opts: opts,
		log:  opts.logger.With().Str("component", "lcm_http_client").Str("uri", uri.String()).Logger(),
	}, nil
}

func (c *httpClient) Publish(ctx context.Context, channel string, payload []byte) error {
	var reply PublishReply
	return c.call(ctx, publishMethod, &PublishArgs{Channel: channel, Data: payload}, &reply)
}

// call issues a JSON-RPC 2.0 request, retrying transport failures that look
// transient with exponential backoff.
func (c *httpClient) call(ctx context.Context, method string, params, reply any) error {
	body, err := json2.EncodeClientRequest(method, params)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	var lastErr error
	for attempt := 0; attempt < httpAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(httpBaseDelay << (attempt - 1)):
			}
		}

		err := c.attempt(ctx, body, reply)
		if err == nil || !transient(err) {
			return err
		}
		lastErr = err
		c.log.Warn().Err(err).Str("method", method).Int("attempt", attempt+1).Msg("request attempt failed")
	}
	return errors.WithMessagef(lastErr, "%s failed after %d attempts", method, httpAttempts)
}

func (c *httpClient) attempt(ctx context.Context, body []byte, reply any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uri.String(), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header = c.opts.headers.Clone()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	// drain before close so the connection shuts down cleanly
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("received status code: %d", resp.StatusCode)
	}
	if err := json2.DecodeClientResponse(resp.Body, reply); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// transient reports whether a failed request is worth retrying.
func transient(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}

func (c *httpClient) Subscribe(context.Context, string, Handler) error {
	return ErrNotSupported
}

func (c *httpClient) Unsubscribe(context.Context, string) error {
	return ErrNotSupported
}

func (c *httpClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// BusService exposes a relay over JSON-RPC
type BusService struct {
	server *BusServer
}

// Publish injects a publication into the relay
func (b *BusService) Publish(r *http.Request, args *PublishArgs, reply *PublishReply) error {
	n, err := b.server.Inject(r.Context(), args.Channel, args.Data)
	if err != nil {
		return err
	}
	reply.Delivered = n
	return nil
}

// HTTPHandler serves the relay's JSON-RPC 2.0 endpoint.
func HTTPHandler(s *BusServer) http.Handler {
	srv := gorillarpc.NewServer()
	srv.RegisterCodec(json2.NewCodec(), "application/json")
	if err := srv.RegisterService(&BusService{server: s}, "Bus"); err != nil {
		panic("lcm: register JSON-RPC service: " + err.Error())
	}
	return srv
}
