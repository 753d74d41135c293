package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-server/auth"
	"chat-server/domain"
	"chat-server/domain/event"
	"chat-server/sink"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientFrame is what a connected client sends over the socket.
// "join" subscribes the session to a conversation room; "send" posts a
// message through the same pipeline as the REST endpoint.
type clientFrame struct {
	Type    string `json:"type"`
	ChatID  string `json:"chat_id,omitempty"`
	Content string `json:"content,omitempty"`
	FileURL string `json:"file_url,omitempty"`
}

// serverFrame is the delivery format of a fanned-out message.
type serverFrame struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

// HandleWebSocket manages the lifecycle of one live session: upgrade,
// registration in the presence registry, the read/write pumps, and the
// leave-all on disconnect.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	claims, err := auth.ValidateToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	session := domain.Session{ID: uuid.NewString(), UserID: claims.UserID}
	sessionSink := sink.NewSessionSink(h.wsBufferSize)
	h.presence.Connect(session, sessionSink)
	h.log.Info("Session connected", "session_id", session.ID, "user_id", session.UserID)

	done := make(chan struct{})
	go h.writePump(conn, session, sessionSink, done)
	h.readPump(conn, session, done)
}

// readPump consumes client frames until the connection dies. Its exit is the
// single disconnect point: presence is released atomically and the writer is
// signalled to stop.
func (h *Handler) readPump(conn *websocket.Conn, session domain.Session, done chan struct{}) {
	defer func() {
		h.presence.LeaveAll(session.ID)
		close(done)
		_ = conn.Close()
		h.log.Info("Session disconnected", "session_id", session.ID, "user_id", session.UserID)
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("WebSocket read error", "session_id", session.ID, "error", err)
			}
			return
		}

		switch frame.Type {
		case "join":
			if frame.ChatID != "" {
				h.presence.JoinRoom(session.ID, domain.ConversationRoom(frame.ChatID))
			}
		case "send":
			if frame.ChatID == "" || frame.Content == "" {
				continue
			}
			if _, err := h.messages.Send(session.UserID, frame.ChatID, frame.Content, frame.FileURL); err != nil {
				h.log.Warn("Message send over socket failed",
					"session_id", session.ID, "chat_id", frame.ChatID, "error", err)
			}
		default:
			h.log.Debug(fmt.Sprintf("Ignoring unknown frame type %q", frame.Type))
		}
	}
}

// writePump drains the session's sink into the socket and keeps the
// connection alive with pings.
func (h *Handler) writePump(conn *websocket.Conn, session domain.Session,
	sessionSink *sink.SessionSink, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case evt := <-sessionSink.Events:
			sent, ok := evt.(event.MessageSent)
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(serverFrame{Type: "message", Message: sent.Message}); err != nil {
				h.log.Warn("WebSocket write error", "session_id", session.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
