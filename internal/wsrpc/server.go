// Package wsrpc serves the command vocabulary over a WebSocket. Each text
// frame is one request; replies carry the request id and may arrive out of
// order because requests run concurrently.
package wsrpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/starford/knowleague/internal/command"
)

const (
	defaultWriteWait   = 10 * time.Second
	defaultPongWait    = 60 * time.Second
	defaultMaxInFlight = 16
	maxFrameBytes      = 10 << 20
)

// Invoker runs named commands. *command.Dispatcher satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) command.Response
}

// Request is a client frame.
type Request struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Reply answers one Request.
type Reply struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Server upgrades HTTP requests and runs one session per connection.
type Server struct {
	cmd      Invoker
	logger   *slog.Logger
	upgrader websocket.Upgrader

	writeWait   time.Duration
	pongWait    time.Duration
	pingPeriod  time.Duration
	maxInFlight int
}

// Option configures a Server.
type Option func(*Server)

// WithPongWait sets how long a silent peer is tolerated. Pings go out at
// nine tenths of it.
func WithPongWait(d time.Duration) Option {
	return func(s *Server) {
		s.pongWait = d
		s.pingPeriod = d * 9 / 10
	}
}

// WithMaxInFlight bounds concurrent requests per connection.
func WithMaxInFlight(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxInFlight = n
		}
	}
}

// NewServer creates a WebSocket command server.
func NewServer(cmd Invoker, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		cmd:    cmd,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		writeWait:   defaultWriteWait,
		pongWait:    defaultPongWait,
		pingPeriod:  defaultPongWait * 9 / 10,
		maxInFlight: defaultMaxInFlight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP upgrades the connection and blocks until the session ends.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	sess := newSession(uuid.NewString(), conn, s)
	s.logger.Debug("websocket session opened",
		slog.String("session", sess.id),
		slog.String("remote", r.RemoteAddr))

	sess.run()

	s.logger.Debug("websocket session closed", slog.String("session", sess.id))
}
