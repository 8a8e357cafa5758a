package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/adaptive"
)

const eventBuffer = 16

// handleEvents streams executed switch decisions over a WebSocket. Each
// committed switch is delivered as one JSON message. A consumer that falls
// more than eventBuffer decisions behind loses the oldest events rather than
// blocking the engine's listener callback.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	events := make(chan adaptive.Decision, eventBuffer)
	sub := s.engine.SubscribeSwitches(func(d adaptive.Decision) {
		select {
		case events <- d:
		default:
		}
	})
	defer sub.Unsubscribe()

	// The stream is write-only; CloseRead cancels the context when the
	// client disconnects.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case d := <-events:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, d)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
