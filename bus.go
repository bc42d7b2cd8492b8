// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// FrameType identifies bus frames
type FrameType uint8

const (
	FramePublish     FrameType = 0x01
	FrameSubscribe   FrameType = 0x02
	FrameUnsubscribe FrameType = 0x03
	FrameAck         FrameType = 0x04
	FrameError       FrameType = 0x05
)

// DefaultPort is the bus relay's conventional TCP port.
const DefaultPort = 7667

const (
	maxFrameSize    = 64 * 1024 * 1024 // 64MB max
	frameHeaderSize = 1 + 4 + 2
)

// frame is one bus frame: [4 len][1 type][4 reqID][2 channelLen][channel][payload]
type frame struct {
	typ     FrameType
	reqID   uint32
	channel string
	payload []byte
}

func (f *frame) marshal() ([]byte, error) {
	if len(f.channel) > math.MaxUint16 {
		return nil, errors.Errorf("lcm: channel name is %d bytes", len(f.channel))
	}
	msgLen := frameHeaderSize + len(f.channel) + len(f.payload)
	if msgLen > maxFrameSize {
		return nil, errors.Errorf("lcm: frame of %d bytes exceeds %d", msgLen, maxFrameSize)
	}

	buf := make([]byte, 4+msgLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(msgLen))
	buf[4] = byte(f.typ)
	binary.BigEndian.PutUint32(buf[5:9], f.reqID)
	binary.BigEndian.PutUint16(buf[9:11], uint16(len(f.channel)))
	copy(buf[11:], f.channel)
	copy(buf[11+len(f.channel):], f.payload)
	return buf, nil
}

// readFrame reads one frame. header must hold 4 bytes and is reused.
func readFrame(r io.Reader, header []byte) (*frame, error) {
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	msgLen := binary.BigEndian.Uint32(header)
	if msgLen < frameHeaderSize || msgLen > maxFrameSize {
		return nil, errors.Errorf("lcm: invalid frame length %d", msgLen)
	}

	msg := make([]byte, msgLen)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, err
	}
	chanLen := int(binary.BigEndian.Uint16(msg[5:7]))
	if frameHeaderSize+chanLen > len(msg) {
		return nil, errors.Errorf("lcm: channel length %d exceeds frame", chanLen)
	}
	return &frame{
		typ:     FrameType(msg[0]),
		reqID:   binary.BigEndian.Uint32(msg[1:5]),
		channel: string(msg[frameHeaderSize : frameHeaderSize+chanLen]),
		payload: msg[frameHeaderSize+chanLen:],
	}, nil
}

// deliveryQueue bounds the publications waiting for a client's handlers.
const deliveryQueue = 256

// BusConn is a client connection to a bus relay.
type BusConn struct {
	conn       net.Conn
	writeMu    sync.Mutex
	pending    sync.Map // requestID -> chan error
	handlers   sync.Map // channel -> Handler
	deliveries chan *frame
	nextID     atomic.Uint32
	closed     atomic.Bool
	readDone   chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	log        zerolog.Logger
}

// BusDial connects to a bus relay
func BusDial(ctx context.Context, addr string, logger zerolog.Logger) (*BusConn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "bus dial")
	}

	bctx, cancel := context.WithCancel(context.Background())
	bc := &BusConn{
		conn:       conn,
		deliveries: make(chan *frame, deliveryQueue),
		readDone:   make(chan struct{}),
		ctx:        bctx,
		cancel:     cancel,
		log:        logger.With().Str("component", "lcm_bus_client").Str("remote", addr).Logger(),
	}
	go bc.readLoop()
	go bc.dispatch()
	return bc, nil
}

// Publish sends payload on channel. Delivery is not acknowledged.
func (b *BusConn) Publish(ctx context.Context, channel string, payload []byte) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.write(&frame{typ: FramePublish, channel: channel, payload: payload})
}

// Subscribe registers handler for channel and waits for the relay to
// acknowledge the subscription. Handlers of one connection run one message at
// a time, in arrival order, apart from the read loop, so a handler may call
// Subscribe or Unsubscribe on its own connection. Publications arriving while
// deliveryQueue messages already wait for handlers are dropped.
func (b *BusConn) Subscribe(ctx context.Context, channel string, handler Handler) error {
	b.handlers.Store(channel, handler)
	if err := b.request(ctx, FrameSubscribe, channel); err != nil {
		b.handlers.Delete(channel)
		return err
	}
	return nil
}

// Unsubscribe stops delivery for channel
func (b *BusConn) Unsubscribe(ctx context.Context, channel string) error {
	if err := b.request(ctx, FrameUnsubscribe, channel); err != nil {
		return err
	}
	b.handlers.Delete(channel)
	return nil
}

func (b *BusConn) request(ctx context.Context, typ FrameType, channel string) error {
	if b.closed.Load() {
		return ErrBusClosed
	}

	requestID := b.nextID.Add(1)
	respCh := make(chan error, 1)
	b.pending.Store(requestID, respCh)
	defer b.pending.Delete(requestID)

	if err := b.write(&frame{typ: typ, reqID: requestID, channel: channel}); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-respCh:
		return err
	case <-b.readDone:
		return ErrBusClosed
	}
}

func (b *BusConn) write(f *frame) error {
	buf, err := f.marshal()
	if err != nil {
		return err
	}
	b.writeMu.Lock()
	_, err = b.conn.Write(buf)
	b.writeMu.Unlock()
	if err != nil {
		return errors.Wrap(err, "bus write")
	}
	return nil
}

func (b *BusConn) readLoop() {
	defer close(b.readDone)
	defer close(b.deliveries)

	header := make([]byte, 4)
	for {
		f, err := readFrame(b.conn, header)
		if err != nil {
			if !b.closed.Load() {
				b.log.Debug().Err(err).Msg("read loop stopped")
			}
			return
		}

		switch f.typ {
		case FramePublish:
			if _, ok := b.handlers.Load(f.channel); !ok {
				continue
			}
			select {
			case b.deliveries <- f:
			default:
				b.log.Warn().Str("channel", f.channel).Msg("delivery queue full, dropping publication")
			}
		case FrameAck, FrameError:
			ch, ok := b.pending.Load(f.reqID)
			if !ok {
				continue
			}
			var resp error
			if f.typ == FrameError {
				resp = errors.WithMessage(ErrBusInvalidResp, string(f.payload))
			}
			ch.(chan error) <- resp
		}
	}
}

// dispatch runs handlers for queued publications until the read loop exits.
func (b *BusConn) dispatch() {
	for f := range b.deliveries {
		h, ok := b.handlers.Load(f.channel)
		if !ok {
			continue
		}
		if err := h.(Handler)(b.ctx, f.channel, f.payload); err != nil {
			b.log.Warn().Err(err).Str("channel", f.channel).Msg("handler failed")
		}
	}
}

// Close closes the connection
func (b *BusConn) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.cancel()
	return b.conn.Close()
}

// BusServer relays publications to every connection subscribed to their
// channel.
type BusServer struct {
	listener net.Listener
	peers    sync.Map // *busPeer -> struct{}
	bindings sync.Map // channel -> *Type
	closed   atomic.Bool
	log      zerolog.Logger
	metrics  *busMetrics
}

type busPeer struct {
	conn    net.Conn
	writeMu sync.Mutex
	mu      sync.RWMutex
	subs    map[string]struct{}
}

func (p *busPeer) subscribed(channel string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.subs[channel]
	return ok
}

func (p *busPeer) write(buf []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err := p.conn.Write(buf)
	return err
}

// NewBusServer creates a relay serving connections accepted from listener
func NewBusServer(listener net.Listener, opts ...ServerOption) *BusServer {
	o := &serverOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	return &BusServer{
		listener: listener,
		log:      o.logger.With().Str("component", "lcm_bus").Str("addr", listener.Addr().String()).Logger(),
		metrics:  newBusMetrics(o.registerer),
	}
}

// Bind restricts channel to messages of type t. Publications on a bound
// channel whose fingerprint differs are dropped.
func (s *BusServer) Bind(channel string, t *Type) {
	s.bindings.Store(channel, t)
}

// Serve accepts connections until ctx is cancelled or the server is closed
func (s *BusServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	s.log.Info().Msg("bus relay serving")
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			return errors.Wrap(err, "bus accept")
		}
		go s.handleConn(ctx, conn)
	}
}

// Inject publishes payload on channel as if a connected client had sent it,
// and reports how many subscribers it was delivered to.
func (s *BusServer) Inject(ctx context.Context, channel string, payload []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrBusClosed
	}
	if err := s.checkBinding(channel, payload); err != nil {
		reason := "malformed"
		if errors.Is(err, ErrSchemaMismatch) {
			reason = "schema_mismatch"
		}
		s.metrics.dropped.WithLabelValues(reason).Inc()
		s.log.Warn().Err(err).Str("channel", channel).Msg("dropping publication")
		return 0, err
	}
	s.metrics.published.WithLabelValues(channel).Inc()

	buf, err := (&frame{typ: FramePublish, channel: channel, payload: payload}).marshal()
	if err != nil {
		return 0, err
	}

	delivered := 0
	s.peers.Range(func(key, _ interface{}) bool {
		if ctx.Err() != nil {
			return false
		}
		peer := key.(*busPeer)
		if !peer.subscribed(channel) {
			return true
		}
		if err := peer.write(buf); err != nil {
			s.metrics.dropped.WithLabelValues("write_error").Inc()
			s.log.Debug().Err(err).Str("peer", peer.conn.RemoteAddr().String()).Msg("delivery failed")
			return true
		}
		delivered++
		return true
	})
	s.metrics.delivered.WithLabelValues(channel).Add(float64(delivered))
	return delivered, ctx.Err()
}

func (s *BusServer) checkBinding(channel string, payload []byte) error {
	v, ok := s.bindings.Load(channel)
	if !ok {
		return nil
	}
	t := v.(*Type)
	got, err := PeekFingerprint(payload)
	if err != nil {
		return errors.WithMessagef(err, "channel %q", channel)
	}
	if want := t.Fingerprint(); got != want {
		return errors.WithMessagef(ErrSchemaMismatch, "channel %q bound to %s: got %#016x, want %#016x", channel, t.Name(), got, want)
	}
	return nil
}

func (s *BusServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	peer := &busPeer{conn: conn, subs: make(map[string]struct{})}
	s.peers.Store(peer, struct{}{})
	defer s.peers.Delete(peer)

	log := s.log.With().Str("peer", conn.RemoteAddr().String()).Logger()
	log.Debug().Msg("peer connected")

	header := make([]byte, 4)
	for {
		f, err := readFrame(conn, header)
		if err != nil {
			log.Debug().Err(err).Msg("peer disconnected")
			return
		}

		switch f.typ {
		case FramePublish:
			if _, err := s.Inject(ctx, f.channel, f.payload); err != nil {
				log.Debug().Err(err).Str("channel", f.channel).Msg("publication not relayed")
			}
		case FrameSubscribe:
			peer.mu.Lock()
			peer.subs[f.channel] = struct{}{}
			peer.mu.Unlock()
			s.reply(peer, FrameAck, f.reqID, nil)
		case FrameUnsubscribe:
			peer.mu.Lock()
			delete(peer.subs, f.channel)
			peer.mu.Unlock()
			s.reply(peer, FrameAck, f.reqID, nil)
		default:
			s.reply(peer, FrameError, f.reqID, []byte(fmt.Sprintf("unexpected frame type %#x", f.typ)))
		}
	}
}

func (s *BusServer) reply(peer *busPeer, typ FrameType, reqID uint32, payload []byte) {
	buf, err := (&frame{typ: typ, reqID: reqID, payload: payload}).marshal()
	if err == nil {
		err = peer.write(buf)
	}
	if err != nil {
		s.log.Debug().Err(err).Msg("reply failed")
	}
}

// Close stops accepting connections and closes every open one
func (s *BusServer) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.peers.Range(func(key, _ interface{}) bool {
		key.(*busPeer).conn.Close()
		return true
	})
	return s.listener.Close()
}

// Addr returns the listener address
func (s *BusServer) Addr() string {
	return s.listener.Addr().String()
}
