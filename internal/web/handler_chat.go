package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vbonduro/betelcare/internal/chat"
	"github.com/vbonduro/betelcare/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// The feed is same-origin only; the default CheckOrigin enforces that.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

func (s *Server) renderChat(w http.ResponseWriter, sess *session.Session) {
	view := chatView{Lang: sess.Language(), Chat: sess.Chat.Snapshot()}
	if err := s.renderPartial(w, view.Lang, "chat", view); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

// handleChatSend appends the user's message and starts the exchange. The
// reply arrives over the feed or a later GET /chat/log.
func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if !sess.Chat.Send(r.FormValue("message")) {
		s.logger.Debug("chat message ignored", "session_id", sess.ID)
	}
	s.renderChat(w, sess)
}

func (s *Server) handleChatLog(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	s.renderChat(w, sess)
}

// handleChatFeed streams the chat snapshot as JSON after every change to the
// log, starting with the current one.
func (s *Server) handleChatFeed(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.existingSession(r)
	if !ok {
		http.Error(w, "no session", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	updates, unsubscribe := sess.Chat.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go s.drainFeed(conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeSnapshot(conn, sess.Chat.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case _, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := writeSnapshot(conn, sess.Chat.Snapshot()); err != nil {
				s.logger.Debug("chat feed write failed", "session_id", sess.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drainFeed reads and discards client frames so pongs and close frames are
// processed. done is closed when the connection goes away.
func (s *Server) drainFeed(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("chat feed read error", "error", err)
			}
			return
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap chat.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snap)
}
