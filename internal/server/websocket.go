package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"sipc/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	maxClientFrame = 4096
)

// handleWebSocket drains the session channel for token to the client. The
// stream ends after Done; a client that leaves early keeps its undelivered
// events for the next connection with the same token.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		s.writeError(w, http.StatusBadRequest, "token query parameter is required")
		return
	}
	logger := logging.WithContext(r.Context(), s.logger)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ch := s.registry.Acquire(token)
	ping := s.cfg.PingInterval()
	if ping <= 0 {
		ping = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(s.connCtx)
	defer cancel()
	go s.readPump(conn, ping, cancel)

	delivered := 0
	for {
		waitCtx, stop := context.WithTimeout(ctx, ping)
		e, err := ch.Next(waitCtx)
		stop()

		switch {
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.Debug("websocket ping failed", logging.Error(err))
				return
			}
			continue
		case err != nil:
			logger.Debug("websocket stream interrupted", logging.Int("delivered", delivered))
			return
		}

		if e.IsDone() {
			s.registry.Release(token, ch)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			logger.Debug("websocket stream finished", logging.Int("delivered", delivered))
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(e); err != nil {
			logger.Warn("websocket write failed", logging.Error(err))
			return
		}
		delivered++
	}
}

// readPump consumes client frames so pongs and close frames are processed,
// and cancels the stream once the client goes away.
func (s *Server) readPump(conn *websocket.Conn, ping time.Duration, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxClientFrame)
	deadline := func() time.Time { return time.Now().Add(2*ping + writeWait) }
	_ = conn.SetReadDeadline(deadline())
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(deadline())
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.SetReadDeadline(deadline())
	}
}
