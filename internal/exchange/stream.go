// Package exchange owns the streaming connection to the market data venue.
package exchange

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quotebot-go/internal/metrics"
	"quotebot-go/internal/signal"
)

// State is the connection lifecycle phase.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Conn is the subset of *websocket.Conn the stream relies on.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens a new transport connection.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// WebsocketDialer dials the venue streaming endpoint with gorilla/websocket.
type WebsocketDialer struct {
	URL              string
	HandshakeTimeout time.Duration
}

// Dial opens the websocket.
func (d WebsocketDialer) Dial(ctx context.Context) (Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(1 << 20)
	return conn, nil
}

// TickSink receives every decoded quote. The market store implements it.
type TickSink interface {
	RecordTick(signal.Tick) error
}

const (
	defaultReadTimeout       = 300 * time.Second
	defaultHeartbeatInterval = 60 * time.Second
	defaultReconnectCooldown = time.Second
	defaultResubscribeGap    = 500 * time.Millisecond
	defaultSubscribeRetry    = 60 * time.Second
	writeTimeout             = 5 * time.Second
)

// Option configures Stream construction parameters.
type Option func(*Stream)

// WithReadTimeout sets how long the receive loop waits for any frame before treating the link as dead.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Stream) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// WithHeartbeat sets the keepalive interval.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Stream) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// WithReconnect tunes the cooldown before resubscribing and the gap between resubscriptions.
func WithReconnect(cooldown, gap time.Duration) Option {
	return func(s *Stream) {
		if cooldown > 0 {
			s.cooldown = cooldown
		}
		if gap >= 0 {
			s.resubscribeGap = gap
		}
	}
}

// WithSubscribeRetry sets the backoff between failed subscription attempts.
func WithSubscribeRetry(d time.Duration) Option {
	return func(s *Stream) {
		if d > 0 {
			s.subscribeRetry = d
		}
	}
}

// Stream is the single long-lived market data connection. It reconnects and resubscribes
// indefinitely until Close is called.
type Stream struct {
	dialer Dialer
	creds  *Credentials
	sink   TickSink
	log    zerolog.Logger

	readTimeout    time.Duration
	heartbeat      time.Duration
	cooldown       time.Duration
	resubscribeGap time.Duration
	subscribeRetry time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	state   atomic.Int32
	dialMu  sync.Mutex
	writeMu sync.Mutex

	mu         sync.Mutex
	conn       Conn
	subscribed map[string]struct{}
}

// NewStream constructs a disconnected stream. Nothing is dialed until Connect or Subscribe.
func NewStream(dialer Dialer, creds *Credentials, sink TickSink, log zerolog.Logger, opts ...Option) *Stream {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Stream{
		dialer:         dialer,
		creds:          creds,
		sink:           sink,
		log:            log.With().Str("component", "stream").Logger(),
		readTimeout:    defaultReadTimeout,
		heartbeat:      defaultHeartbeatInterval,
		cooldown:       defaultReconnectCooldown,
		resubscribeGap: defaultResubscribeGap,
		subscribeRetry: defaultSubscribeRetry,
		ctx:            ctx,
		cancel:         cancel,
		subscribed:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the current connection phase.
func (s *Stream) State() State { return State(s.state.Load()) }

// Subscribed returns the instruments believed subscribed on the live connection, sorted.
func (s *Stream) Subscribed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subscribed))
	for inst := range s.subscribed {
		out = append(out, inst)
	}
	sort.Strings(out)
	return out
}

// Connect opens the transport if needed and starts the receive and keepalive loops.
// It fails fast with a *ConnectionError when the transport cannot be opened.
func (s *Stream) Connect(ctx context.Context) error {
	s.dialMu.Lock()
	defer s.dialMu.Unlock()

	if s.ctx.Err() != nil {
		return ErrClosed
	}
	if s.State() == StateConnected {
		return nil
	}
	s.state.Store(int32(StateConnecting))
	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		s.state.Store(int32(StateDisconnected))
		return &ConnectionError{Err: err}
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.state.Store(int32(StateConnected))
	metrics.StreamConnected.Set(1)

	done := make(chan struct{})
	go s.receive(conn, done)
	go s.keepalive(conn, done)
	s.log.Info().Msg("market data stream connected")
	return nil
}

// Subscribe requests quotes for instrument, connecting first if needed. Failed attempts are
// retried after the subscribe backoff until one succeeds or ctx / the stream ends.
func (s *Stream) Subscribe(ctx context.Context, instrument string) error {
	return s.subscribeLoop(ctx, instrument, false)
}

func (s *Stream) subscribeLoop(ctx context.Context, instrument string, waitFirst bool) error {
	for {
		if waitFirst {
			if err := s.wait(ctx, s.subscribeRetry); err != nil {
				return err
			}
		}
		err := s.trySubscribe(ctx, instrument)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrClosed) {
			return err
		}
		metrics.SubscribeRetriesTotal.WithLabelValues(instrument).Inc()
		s.log.Warn().Err(err).Str("instrument", instrument).Dur("retry_in", s.subscribeRetry).Msg("subscription failed, retrying")
		waitFirst = true
	}
}

func (s *Stream) trySubscribe(ctx context.Context, instrument string) error {
	if s.isSubscribed(instrument) {
		s.log.Debug().Str("instrument", instrument).Msg("already subscribed")
		return nil
	}
	if err := s.Connect(ctx); err != nil {
		return &SubscriptionError{Instrument: instrument, Err: err}
	}
	payload := epicsPayload{Epics: []string{instrument}}
	if err := s.send(destinationSubscribe, payload); err != nil {
		return &SubscriptionError{Instrument: instrument, Err: err}
	}
	s.mu.Lock()
	s.subscribed[instrument] = struct{}{}
	s.mu.Unlock()
	s.log.Info().Str("instrument", instrument).Msg("subscribe sent")
	return nil
}

// Unsubscribe stops quotes for instrument on the live connection.
func (s *Stream) Unsubscribe(instrument string) error {
	if err := s.send(destinationUnsubscribe, epicsPayload{Epics: []string{instrument}}); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.subscribed, instrument)
	s.mu.Unlock()
	return nil
}

// Ping sends a keepalive. A failed send marks the connection as failed; the receive loop then reconnects.
func (s *Stream) Ping() error {
	return s.send(destinationPing, nil)
}

// Close stops reconnecting and tears down the live connection.
func (s *Stream) Close() error {
	s.cancel()
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		s.teardown(conn)
	}
	return nil
}

func (s *Stream) isSubscribed(instrument string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subscribed[instrument]
	return ok
}

func (s *Stream) send(destination string, payload any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil || s.State() != StateConnected {
		return ErrNotConnected
	}
	data, err := encodeControl(destination, uuid.NewString(), s.creds.Get(), payload)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err = conn.WriteMessage(websocket.TextMessage, data)
	s.writeMu.Unlock()
	if err != nil {
		s.log.Warn().Err(err).Str("destination", destination).Msg("stream write failed")
		s.teardown(conn)
		return err
	}
	return nil
}

func (s *Stream) receive(conn Conn, done chan struct{}) {
	defer s.reconnect(conn, done)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("stream receive failed")
			}
			return
		}
		s.handle(data)
	}
}

func (s *Stream) handle(data []byte) {
	msg, err := DecodeMessage(data)
	if err != nil {
		var dataErr *DataError
		reason := "decode"
		if errors.As(err, &dataErr) {
			reason = dataErr.Reason
		}
		metrics.DroppedMessagesTotal.WithLabelValues(reason).Inc()
		s.log.Warn().Err(err).Msg("dropping stream message")
		return
	}
	switch msg.Kind {
	case KindQuote:
		metrics.TicksTotal.WithLabelValues(msg.Tick.Instrument).Inc()
		if err := s.sink.RecordTick(msg.Tick); err != nil {
			s.log.Warn().Err(err).Str("instrument", msg.Tick.Instrument).Msg("tick rejected")
		}
	case KindSubscribed:
		s.log.Info().Str("status", msg.Status).RawJSON("payload", rawOrNull(msg.Payload)).Msg("subscription confirmed")
	case KindUnsubscribed:
		s.log.Info().Str("status", msg.Status).RawJSON("payload", rawOrNull(msg.Payload)).Msg("unsubscription confirmed")
	case KindPing:
		s.log.Debug().Str("status", msg.Status).Msg("keepalive acknowledged")
	}
}

func (s *Stream) keepalive(conn Conn, done chan struct{}) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-s.ctx.Done():
			s.teardown(conn)
			return
		case <-ticker.C:
			if err := s.Ping(); err != nil {
				s.log.Warn().Err(err).Msg("keepalive failed")
				s.teardown(conn)
				return
			}
		}
	}
}

// teardown marks conn as gone and closes it. Closing an already closed transport is not an error.
func (s *Stream) teardown(conn Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
		s.state.Store(int32(StateDisconnected))
		metrics.StreamConnected.Set(0)
	}
	s.mu.Unlock()
	if err := conn.Close(); err != nil {
		s.log.Debug().Err(err).Msg("close transport")
	}
}

// reconnect runs when the receive loop exits: close, cool down, then resubscribe everything.
// Instruments whose resubscription fails continue on their own retry loop.
func (s *Stream) reconnect(conn Conn, done chan struct{}) {
	close(done)
	s.teardown(conn)
	if s.ctx.Err() != nil {
		return
	}
	metrics.ReconnectsTotal.Inc()
	s.log.Warn().Dur("cooldown", s.cooldown).Msg("stream disconnected, reconnecting")
	if err := s.wait(s.ctx, s.cooldown); err != nil {
		return
	}

	s.mu.Lock()
	instruments := make([]string, 0, len(s.subscribed))
	for inst := range s.subscribed {
		instruments = append(instruments, inst)
	}
	s.subscribed = make(map[string]struct{})
	s.mu.Unlock()
	sort.Strings(instruments)

	for i, inst := range instruments {
		if err := s.trySubscribe(s.ctx, inst); err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			metrics.SubscribeRetriesTotal.WithLabelValues(inst).Inc()
			s.log.Warn().Err(err).Str("instrument", inst).Msg("resubscribe failed, retrying in background")
			go func(inst string) { _ = s.subscribeLoop(s.ctx, inst, true) }(inst)
		}
		if i < len(instruments)-1 && s.resubscribeGap > 0 {
			if err := s.wait(s.ctx, s.resubscribeGap); err != nil {
				return
			}
		}
	}
}

func (s *Stream) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrClosed
	}
}

func rawOrNull(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
