package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// watchMessage is the wire shape of a transcript update pushed to watchers.
type watchMessage struct {
	Type   string `json:"type"`
	Order  int    `json:"order,omitempty"`
	Text   string `json:"text,omitempty"`
	Status string `json:"status,omitempty"`
}

// handleWatch upgrades to a websocket and forwards transcript updates until
// the session completes or the client disconnects.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	// Subscribe before upgrading so subscription errors still map to
	// regular HTTP statuses.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe, err := s.controller.Watch(ctx, ownerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// Drain client frames so pings are answered and closes are noticed.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	// The events channel closes once the session can produce no further
	// updates; disconnects surface as ctx cancellation from the drain
	// goroutine.
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "watch closed")
				return
			}
			msg := watchMessage{
				Type:   ev.Type,
				Order:  ev.Order,
				Text:   ev.Text,
				Status: string(ev.Status),
			}
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Debug("watch write failed", "error", err)
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
