package api

import (
	"net/http"
	"time"

	"botdeck/config"
	"botdeck/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect cross-origin from the dashboard
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleSessionStream pushes the session snapshot over a websocket on the
// log-poll cadence, so the dashboard stays live without request polling
func (s *Server) handleSessionStream(c *gin.Context) {
	userID := c.GetString("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("⚠️  Websocket upgrade failed for user %s: %v", userID, err)
		return
	}
	defer conn.Close()

	sess := s.sessions.GetOrCreate(userID)

	// Reader goroutine: drains control frames and signals client close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(config.Get().LogPollInterval)
	defer ticker.Stop()

	// Send the first frame immediately
	if err := conn.WriteJSON(sess.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(sess.Snapshot()); err != nil {
				return
			}
		}
	}
}
