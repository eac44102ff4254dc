package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/auth"
	"chat-relay/domain/event"
	"chat-relay/services"
	"chat-relay/sink"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WSHandler upgrades authenticated clients to a live session. Each
// connection gets its own buffered sink; the relay never writes to the
// socket directly.
type WSHandler struct {
	log        *slog.Logger
	tokens     auth.TokenIssuer
	chat       services.IChatService
	upgrader   websocket.Upgrader
	bufferSize int
}

func NewWSHandler(log *slog.Logger, tokens auth.TokenIssuer,
	chat services.IChatService, bufferSize int) *WSHandler {
	return &WSHandler{
		log:    log,
		tokens: tokens,
		chat:   chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The REST layer owns auth; the handshake carries the same
			// token, so cross-origin upgrades are acceptable here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		bufferSize: bufferSize,
	}
}

// frame is the JSON envelope pushed down the socket.
type frame struct {
	Type        string       `json:"type"`
	OnlineUsers []string     `json:"onlineUsers,omitempty"`
	NewMessage  *messageJSON `json:"newMessage,omitempty"`
}

// Serve authenticates the handshake, upgrades, and runs the session
// until the client goes away. Identity verification failures refuse the
// connection before any session state exists.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	userID, err := h.tokens.Validate(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	session := sink.NewChannelSink(h.bufferSize)
	h.chat.Connect(userID, session)
	defer func() {
		session.Close()
		h.chat.Disconnect(userID, session)
		conn.Close()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readPump(conn, userID)
	}()
	h.writePump(conn, session, done, userID)
}

// readPump only services control traffic. All client actions go through
// the REST API; a read error of any kind ends the session.
func (h *WSHandler) readPump(conn *websocket.Conn, userID string) {
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Debug("Websocket read closed", "user_id", userID, "error", err)
			_ = conn.Close()
			return
		}
	}
}

// writePump drains the session sink and writes frames until the
// connection dies. Ping keepalives detect silent peers.
func (h *WSHandler) writePump(conn *websocket.Conn, session *sink.ChannelSink, done <-chan struct{}, userID string) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case evt := <-session.Events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(toFrame(evt)); err != nil {
				h.log.Debug("Websocket write failed", "user_id", userID, "error", err)
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

func toFrame(evt event.DomainEvent) frame {
	switch e := evt.(type) {
	case event.PresenceChanged:
		return frame{Type: e.Kind(), OnlineUsers: e.Online}
	case event.NewMessage:
		m := toMessageJSON(e.Message)
		return frame{Type: e.Kind(), NewMessage: &m}
	default:
		return frame{Type: evt.Kind()}
	}
}
