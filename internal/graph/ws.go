// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package graph

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	graphql "github.com/graph-gophers/graphql-go"
	qerrors "github.com/graph-gophers/graphql-go/errors"

	"github.com/parleyhq/parley/internal/auth"
)

// Subprotocol is the websocket subprotocol spoken on /graphql/ws.
const Subprotocol = "graphql-transport-ws"

// graphql-transport-ws message types.
const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

// graphql-transport-ws close codes.
const (
	closeBadRequest          = 4400
	closeUnauthorized        = 4401
	closeSubprotocol         = 4406
	closeInitTimeout         = 4408
	closeDuplicateSubscriber = 4409
	closeTooManyInitRequests = 4429
)

const (
	defaultInitTimeout = 3 * time.Second
	defaultPingPeriod  = 54 * time.Second
	pongWait           = 60 * time.Second
	writeWait          = 10 * time.Second
	maxMessageBytes    = 64 << 10
	outboundBuffer     = 64
)

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSOption configures a WSHandler.
type WSOption func(*WSHandler)

// WithInitTimeout sets how long a client has to send connection_init.
func WithInitTimeout(d time.Duration) WSOption {
	return func(h *WSHandler) {
		if d > 0 {
			h.initTimeout = d
		}
	}
}

// WithPingPeriod sets the interval of websocket-level keepalive pings.
func WithPingPeriod(d time.Duration) WSOption {
	return func(h *WSHandler) {
		if d > 0 {
			h.pingPeriod = d
		}
	}
}

// WithCheckOrigin replaces the upgrade origin check. The default accepts
// every origin.
func WithCheckOrigin(fn func(*http.Request) bool) WSOption {
	return func(h *WSHandler) { h.upgrader.CheckOrigin = fn }
}

// WSHandler serves GraphQL operations over graphql-transport-ws.
type WSHandler struct {
	schema      *graphql.Schema
	authn       *auth.Authenticator
	logger      *slog.Logger
	upgrader    websocket.Upgrader
	initTimeout time.Duration
	pingPeriod  time.Duration
}

// NewWSHandler creates a websocket handler for schema.
func NewWSHandler(schema *graphql.Schema, authn *auth.Authenticator, logger *slog.Logger, opts ...WSOption) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &WSHandler{
		schema: schema,
		authn:  authn,
		logger: logger.With("component", "graphql-ws"),
		upgrader: websocket.Upgrader{
			Subprotocols:    []string{Subprotocol},
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		initTimeout: defaultInitTimeout,
		pingPeriod:  defaultPingPeriod,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.logger.DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	s := &wsSession{
		h:        h,
		conn:     conn,
		out:      make(chan wsMessage, outboundBuffer),
		subs:     make(map[string]context.CancelFunc),
		identity: h.identify(r.Context(), r.Header.Get("Authorization")),
	}
	s.ctx, s.cancel = context.WithCancel(r.Context())

	if conn.Subprotocol() != Subprotocol {
		s.close(closeSubprotocol, "Subprotocol not acceptable")
		return
	}
	s.run()
}

// identify resolves an Authorization value. Without an authenticator every
// connection is anonymous.
func (h *WSHandler) identify(ctx context.Context, header string) *auth.Identity {
	if h.authn == nil {
		return nil
	}
	return h.authn.Identify(ctx, header)
}

// wsSession is one websocket connection. Only writePump writes data frames;
// close frames go through WriteControl, which gorilla allows concurrently.
type wsSession struct {
	h      *WSHandler
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	out    chan wsMessage
	wg     sync.WaitGroup

	initialized atomic.Bool
	acked       atomic.Bool

	mu       sync.Mutex
	identity *auth.Identity
	subs     map[string]context.CancelFunc
}

func (s *wsSession) run() {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump()
	}()

	initTimer := time.AfterFunc(s.h.initTimeout, func() {
		if !s.acked.Load() {
			s.close(closeInitTimeout, "Connection initialisation timeout")
		}
	})

	s.readPump()

	initTimer.Stop()
	s.cancel()
	s.wg.Wait()
	<-writerDone
	_ = s.conn.Close()
}

func (s *wsSession) readPump() {
	s.conn.SetReadLimit(maxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.h.logger.DebugContext(s.ctx, "websocket read failed", "error", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			s.close(closeBadRequest, "Invalid message received")
			return
		}
		if !s.handle(msg) {
			return
		}
	}
}

// handle processes one client message and reports whether the connection
// stays open.
func (s *wsSession) handle(msg wsMessage) bool {
	switch msg.Type {
	case msgConnectionInit:
		if s.initialized.Swap(true) {
			s.close(closeTooManyInitRequests, "Too many initialisation requests")
			return false
		}
		if header := initAuthorization(msg.Payload); header != "" {
			s.mu.Lock()
			s.identity = s.h.identify(s.ctx, header)
			s.mu.Unlock()
		}
		s.acked.Store(true)
		s.send(wsMessage{Type: msgConnectionAck})

	case msgPing:
		s.send(wsMessage{Type: msgPong, Payload: msg.Payload})

	case msgPong:

	case msgSubscribe:
		if !s.acked.Load() {
			s.close(closeUnauthorized, "Unauthorized")
			return false
		}
		var req Request
		if msg.ID == "" || json.Unmarshal(msg.Payload, &req) != nil || req.Query == "" {
			s.close(closeBadRequest, "Invalid message received")
			return false
		}
		if !s.start(msg.ID, req) {
			s.close(closeDuplicateSubscriber, "Subscriber for "+msg.ID+" already exists")
			return false
		}

	case msgComplete:
		s.mu.Lock()
		if cancel, ok := s.subs[msg.ID]; ok {
			cancel()
			delete(s.subs, msg.ID)
		}
		s.mu.Unlock()

	default:
		s.close(closeBadRequest, "Invalid message received")
		return false
	}
	return true
}

// start runs req under id. It returns false if id is already in use.
func (s *wsSession) start(id string, req Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.subs[id]; exists {
		return false
	}

	ctx, cancel := context.WithCancel(auth.WithIdentity(s.ctx, s.identity))
	s.subs[id] = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.execute(ctx, id, req)
	}()
	return true
}

func (s *wsSession) execute(ctx context.Context, id string, req Request) {
	responses, err := s.h.schema.Subscribe(ctx, req.Query, req.OperationName, req.Variables)
	if err != nil {
		s.fail(id, []*qerrors.QueryError{qerrors.Errorf("%s", err)})
		return
	}

	first := true
	// responses must be drained until closed, or graphql-go leaks its
	// forwarding goroutine.
	for raw := range responses {
		resp, ok := raw.(*graphql.Response)
		if !ok || ctx.Err() != nil {
			continue
		}
		if first && resp.Data == nil && len(resp.Errors) > 0 {
			s.fail(id, resp.Errors)
			first = false
			continue
		}
		first = false
		s.send(wsMessage{ID: id, Type: msgNext, Payload: encode(resp)})
	}

	if s.finish(id) {
		s.send(wsMessage{ID: id, Type: msgComplete})
	}
}

// fail reports an operation error. No complete follows an error.
func (s *wsSession) fail(id string, errs []*qerrors.QueryError) {
	if s.finish(id) {
		s.send(wsMessage{ID: id, Type: msgError, Payload: encode(errs)})
	}
}

// finish forgets id and reports whether it was still active, meaning the
// client has not completed it already.
func (s *wsSession) finish(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return false
	}
	delete(s.subs, id)
	return true
}

func (s *wsSession) send(msg wsMessage) {
	select {
	case s.out <- msg:
	case <-s.ctx.Done():
	}
}

func (s *wsSession) writePump() {
	ticker := time.NewTicker(s.h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.h.logger.DebugContext(s.ctx, "websocket write failed", "error", err)
				s.cancel()
				_ = s.conn.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.cancel()
				_ = s.conn.Close()
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// close sends a close frame with code and drops the connection, which ends
// readPump.
func (s *wsSession) close(code int, reason string) {
	s.h.logger.DebugContext(s.ctx, "closing websocket", "code", code, "reason", reason)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	_ = s.conn.Close()
}

// initAuthorization extracts an Authorization value from a connection_init
// payload.
func initAuthorization(payload json.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}
	var params map[string]any
	if err := json.Unmarshal(payload, &params); err != nil {
		return ""
	}
	for _, key := range []string{"Authorization", "authorization"} {
		if v, ok := params[key].(string); ok {
			return v
		}
	}
	return ""
}

func encode(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal([]*qerrors.QueryError{qerrors.Errorf("encode response: %s", err)})
	}
	return data
}
