package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI shell runs on the device; origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteTimeout = 5 * time.Second
	wsPingPeriod   = 30 * time.Second
)

// handleWS streams refresh-cycle outcomes (fresh snapshot or failure notice)
// and the once-per-second elapsed tick to a connected UI shell.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.refresher.Subscribe()
	defer unsubscribe()

	// Reader goroutine: we never expect client messages, but reading is
	// required to notice the peer closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(u); err != nil {
				slog.Debug("WebSocket write failed", slog.Any("error", err))
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
