package wsrpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type session struct {
	id     string
	conn   *websocket.Conn
	srv    *Server
	logger *slog.Logger

	send     chan []byte
	sem      chan struct{}
	inflight sync.WaitGroup
	done     chan struct{} // closed when the write pump exits
}

func newSession(id string, conn *websocket.Conn, srv *Server) *session {
	return &session{
		id:     id,
		conn:   conn,
		srv:    srv,
		logger: srv.logger.With(slog.String("session", id)),
		send:   make(chan []byte, 64),
		sem:    make(chan struct{}, srv.maxInFlight),
		done:   make(chan struct{}),
	}
}

// run drives the session: the write pump in its own goroutine, the read pump
// on the caller's. In-flight requests are cancelled when the peer goes away.
func (s *session) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.writePump()

	s.readPump(ctx)

	cancel()
	s.inflight.Wait()
	close(s.send)
	<-s.done
}

func (s *session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(maxFrameBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.srv.pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.srv.pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}

		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			s.reply(Reply{Error: "invalid frame: " + err.Error()})
			continue
		}

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		s.inflight.Add(1)
		go func() {
			defer func() {
				<-s.sem
				s.inflight.Done()
			}()
			s.handle(ctx, req)
		}()
	}
}

func (s *session) handle(ctx context.Context, req Request) {
	resp := s.srv.cmd.Invoke(ctx, req.Command, req.Args)
	s.reply(Reply{ID: req.ID, OK: resp.OK, Data: resp.Data, Error: resp.Error})
}

func (s *session) reply(r Reply) {
	b, err := json.Marshal(r)
	if err != nil {
		s.logger.Error("encode reply failed", slog.String("id", r.ID), slog.String("error", err.Error()))
		return
	}
	select {
	case s.send <- b:
	case <-s.done:
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(s.srv.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
		close(s.done)
	}()

	for {
		select {
		case message, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.srv.writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.srv.writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
