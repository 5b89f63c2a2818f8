// Package websocket owns the client side of the realtime channel: a single
// logical connection bound to the logged-in identity, with heartbeat,
// exponential-backoff reconnect and an outbound queue that is replayed in
// FIFO order once the connection is back.
package websocket

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gorilla "github.com/gorilla/websocket"

	"campusmarket/pkg/errors"
	"campusmarket/pkg/logger"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Identity supplies the locally logged-in user and auth token. The session
// never caches credentials beyond the lifetime of one socket.
type Identity interface {
	Current() (userID, token string, ok bool)
}

type Options struct {
	URL                  string
	HeartbeatInterval    time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	MaxReconnectAttempts int
	Dialer               *gorilla.Dialer
}

type outbound struct {
	env        Envelope
	enqueuedAt time.Time
}

// Session maintains at most one live realtime connection per logged-in
// identity. All inbound traffic fans out through the Bus; outbound sends are
// queued while disconnected.
type Session struct {
	opts     Options
	identity Identity
	bus      *Bus

	mu             sync.Mutex
	writeMu        sync.Mutex
	state          State
	conn           *gorilla.Conn
	userID         string
	attempts       int
	queue          []outbound
	activeChat     string
	explicit       bool
	reconnectTimer *time.Timer
	heartbeatStop  chan struct{}
	gen            int
}

func NewSession(opts Options, identity Identity, bus *Bus) *Session {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 30 * time.Second
	}
	if opts.ReconnectBaseDelay <= 0 {
		opts.ReconnectBaseDelay = time.Second
	}
	if opts.ReconnectMaxDelay <= 0 {
		opts.ReconnectMaxDelay = 30 * time.Second
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = 5
	}

	return &Session{
		opts:     opts,
		identity: identity,
		bus:      bus,
		state:    StateDisconnected,
	}
}

// Connect opens the realtime connection for the current identity. It is a
// no-op when already connected as that identity. A missing login or expired
// token is a precondition failure and is never retried automatically;
// transport failures schedule a backoff reconnect.
func (s *Session) Connect(ctx context.Context) error {
	userID, token, ok := s.identity.Current()
	if !ok {
		return errors.Unauthorized("Not logged in", nil)
	}
	if token == "" {
		return errors.Unauthorized("Missing auth token", nil)
	}
	if tokenExpired(token) {
		return errors.Unauthorized("Auth token expired", nil)
	}

	s.mu.Lock()
	if s.state == StateConnected && s.userID == userID {
		s.mu.Unlock()
		return nil
	}
	s.teardownLocked()
	s.explicit = false
	s.state = StateConnecting
	s.mu.Unlock()

	conn, err := s.dial(ctx, token)
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.scheduleReconnectLocked()
		s.mu.Unlock()
		return errors.Unavailable("Failed to reach realtime server", err)
	}

	s.mu.Lock()
	if s.explicit {
		// Disconnected while the dial was in flight; stay down.
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.gen++
	s.conn = conn
	s.state = StateConnected
	s.userID = userID
	s.attempts = 0
	s.cancelReconnectLocked()
	s.heartbeatStop = make(chan struct{})
	pending := s.queue
	s.queue = nil
	gen := s.gen
	stop := s.heartbeatStop
	s.mu.Unlock()

	go s.readLoop(gen, conn)
	go s.heartbeat(stop)

	s.flush(pending)
	s.bus.Publish(mustEnvelope(EventConnected, map[string]string{"user_id": userID}))

	logger.Info("Realtime session connected for user %s", userID)
	return nil
}

// Send transmits immediately when connected, otherwise appends to the
// outbound queue. It reports whether the message was queued. A stale
// identity on the socket forces a disconnect+reconnect cycle before any
// further traffic; the message rides the queue through the cycle.
func (s *Session) Send(event string, data interface{}) (bool, error) {
	env, err := NewEnvelope(event, data)
	if err != nil {
		return false, errors.BadRequest("Failed to encode payload", err)
	}

	s.mu.Lock()
	if s.state != StateConnected {
		s.queue = append(s.queue, outbound{env: env, enqueuedAt: time.Now()})
		s.mu.Unlock()
		return true, nil
	}

	if userID, _, ok := s.identity.Current(); !ok || userID != s.userID {
		s.teardownLocked()
		s.state = StateDisconnected
		s.userID = ""
		s.queue = append(s.queue, outbound{env: env, enqueuedAt: time.Now()})
		s.mu.Unlock()

		s.bus.Publish(mustEnvelope(EventDisconnected, DisconnectPayload{Reason: "identity_changed"}))
		go s.reconnect()
		return true, nil
	}
	s.mu.Unlock()

	if err := s.writeEnvelope(env); err != nil {
		// The read loop will notice the broken socket; keep the message for
		// the replay after reconnect.
		s.mu.Lock()
		s.queue = append(s.queue, outbound{env: env, enqueuedAt: time.Now()})
		s.mu.Unlock()
		return true, nil
	}
	return false, nil
}

// Disconnect is idempotent and terminal: it cancels the heartbeat and any
// pending reconnect, closes the socket, clears the bound identity and
// in-chat state, and suppresses auto-reconnect until the next Connect call.
func (s *Session) Disconnect() {
	s.mu.Lock()
	wasDown := s.state == StateDisconnected && s.conn == nil
	s.explicit = true
	s.teardownLocked()
	s.state = StateDisconnected
	s.userID = ""
	s.activeChat = ""
	s.mu.Unlock()

	if !wasDown {
		s.bus.Publish(mustEnvelope(EventDisconnected, DisconnectPayload{Reason: "client_disconnect"}))
		logger.Info("Realtime session disconnected by client")
	}
}

// JoinChat tells the server which single chat the client is actively
// viewing. Advisory only; delivery does not depend on it.
func (s *Session) JoinChat(chatID string) {
	s.mu.Lock()
	s.activeChat = chatID
	s.mu.Unlock()

	s.Send(EventJoinChat, ChatRoomPayload{ChatID: chatID})
}

func (s *Session) LeaveChat() {
	s.mu.Lock()
	chatID := s.activeChat
	s.activeChat = ""
	s.mu.Unlock()

	if chatID != "" {
		s.Send(EventLeaveChat, ChatRoomPayload{ChatID: chatID})
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) AuthenticatedUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) ActiveChat() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeChat
}

func (s *Session) QueuedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Session) dial(ctx context.Context, token string) (*gorilla.Conn, error) {
	endpoint := s.opts.URL
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	endpoint += sep + "token=" + url.QueryEscape(token)

	dialer := s.opts.Dialer
	if dialer == nil {
		dialer = gorilla.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return conn, nil
}

// flush replays queued messages in enqueue order. On a write failure the
// remainder is put back at the head of the queue for the next connect.
func (s *Session) flush(pending []outbound) {
	for i, item := range pending {
		if err := s.writeEnvelope(item.env); err != nil {
			logger.Warn("Flush interrupted, requeueing %d messages: %v", len(pending)-i, err)
			s.mu.Lock()
			s.queue = append(append([]outbound{}, pending[i:]...), s.queue...)
			s.mu.Unlock()
			return
		}
	}
}

func (s *Session) writeEnvelope(env Envelope) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.Unavailable("Not connected", nil)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(env)
}

func (s *Session) readLoop(gen int, conn *gorilla.Conn) {
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			s.connLost(gen, err)
			return
		}
		s.bus.Publish(env)
	}
}

func (s *Session) heartbeat(stop chan struct{}) {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Pongs are informational only; a silent peer is caught by the
			// read loop, not by a pong timeout.
			if err := s.writeEnvelope(mustEnvelope(EventPing, nil)); err != nil {
				return
			}
		}
	}
}

func (s *Session) connLost(gen int, cause error) {
	s.mu.Lock()
	if gen != s.gen {
		// A newer connection already replaced this one.
		s.mu.Unlock()
		return
	}
	s.teardownLocked()
	s.state = StateDisconnected
	s.userID = ""
	if !s.explicit {
		if _, _, ok := s.identity.Current(); ok {
			s.scheduleReconnectLocked()
		}
	}
	s.mu.Unlock()

	logger.Warn("Realtime connection lost: %v", cause)
	s.bus.Publish(mustEnvelope(EventDisconnected, DisconnectPayload{Reason: "connection_lost"}))
}

// scheduleReconnectLocked arms the single reconnect timer with the next
// backoff delay. Exceeding the attempt cap stops auto-reconnect; a manual
// Connect is required from then on.
func (s *Session) scheduleReconnectLocked() {
	if s.explicit {
		return
	}
	if s.attempts >= s.opts.MaxReconnectAttempts {
		logger.Warn("Giving up on automatic reconnect after %d attempts", s.attempts)
		return
	}

	delay := s.backoffDelay(s.attempts)
	s.attempts++
	s.cancelReconnectLocked()
	s.reconnectTimer = time.AfterFunc(delay, s.reconnect)
	logger.Debug("Reconnect attempt %d scheduled in %s", s.attempts, delay)
}

// backoffDelay returns ReconnectBaseDelay doubled per attempt, capped at
// ReconnectMaxDelay.
func (s *Session) backoffDelay(attempt int) time.Duration {
	if attempt > 30 {
		return s.opts.ReconnectMaxDelay
	}
	delay := s.opts.ReconnectBaseDelay << uint(attempt)
	if delay <= 0 || delay > s.opts.ReconnectMaxDelay {
		delay = s.opts.ReconnectMaxDelay
	}
	return delay
}

func (s *Session) reconnect() {
	s.mu.Lock()
	s.reconnectTimer = nil
	explicit := s.explicit
	s.mu.Unlock()

	if explicit {
		return
	}
	if _, _, ok := s.identity.Current(); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		logger.Warn("Reconnect attempt failed: %v", err)
	}
}

func (s *Session) cancelReconnectLocked() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
}

func (s *Session) teardownLocked() {
	s.cancelReconnectLocked()
	if s.heartbeatStop != nil {
		close(s.heartbeatStop)
		s.heartbeatStop = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.gen++
}

// tokenExpired inspects the token's exp claim without verifying the
// signature; verification is the server's job. Opaque tokens pass through.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

func mustEnvelope(event string, data interface{}) Envelope {
	env, err := NewEnvelope(event, data)
	if err != nil {
		return Envelope{Event: event, Timestamp: time.Now().UnixMilli()}
	}
	return env
}
