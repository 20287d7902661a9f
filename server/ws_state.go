package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DucAnhBoDoi/Music-App/logger"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 5 * time.Second

// WebSocketStateHandler streams engine state snapshots to a client. Each
// connection gets its own subscription; a client that cannot keep up only
// loses intermediate snapshots, never the connection.
func (h *APIHandler) WebSocketStateHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	subID, states := h.engine.Subscribe()
	defer h.engine.Unsubscribe(subID)

	logger.Debug("state stream connected", logger.String("subscriber", subID))

	// Reader goroutine: its only job is noticing the client went away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case state, ok := <-states:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(state); err != nil {
				logger.Debug("state stream write failed",
					logger.String("subscriber", subID),
					logger.ErrorField(err))
				return
			}
		case <-closed:
			logger.Debug("state stream disconnected", logger.String("subscriber", subID))
			return
		}
	}
}
