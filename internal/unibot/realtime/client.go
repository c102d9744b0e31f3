package realtime

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kart-io/logger"

	"github.com/kart-io/unibot/pkg/auth"
	"github.com/kart-io/unibot/pkg/errors"
	jsonutil "github.com/kart-io/unibot/pkg/utils/json"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024

	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The token inside each event is the credential, not the Origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// client is one WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// ServeWS upgrades the request and runs the connection until it closes.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	cl := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	go cl.writeLoop()
	cl.readLoop()
}

func (cl *client) readLoop() {
	defer func() {
		cl.hub.dropClient(cl)
		close(cl.send)
		_ = cl.conn.Close()
	}()

	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugw("websocket read error", "error", err)
			}
			return
		}

		var event inboundEvent
		if err := jsonutil.Unmarshal(raw, &event); err != nil {
			cl.sendError("Malformed event")
			continue
		}
		cl.hub.handleEvent(cl, &event)
	}
}

func (cl *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue queues a frame, dropping the payload if the client is too slow to
// drain its buffer.
func (cl *client) enqueue(payload []byte) {
	defer func() {
		// Sending on a channel the reader just closed loses the race.
		_ = recover()
	}()
	select {
	case cl.send <- payload:
	default:
		logger.Warnw("websocket client too slow, dropping frame")
	}
}

func (cl *client) sendEvent(event *outboundEvent) {
	payload, err := jsonutil.Marshal(event)
	if err != nil {
		logger.Errorw("websocket marshal failed", "error", err)
		return
	}
	cl.enqueue(payload)
}

func (cl *client) sendError(message string) {
	cl.sendEvent(&outboundEvent{Event: EventError, Error: message})
}

// handleEvent dispatches one client frame. The token is re-verified and the
// thread membership re-checked on every event.
func (h *Hub) handleEvent(cl *client, event *inboundEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := h.authenticate(ctx, cl, event.Token)
	if !ok {
		return
	}

	switch event.Event {
	case EventJoinThread:
		h.handleJoin(ctx, cl, userID, event.ThreadID)
	case EventSendMessage:
		h.handleSend(ctx, cl, userID, event.ThreadID, event.Text)
	default:
		cl.sendError("Unknown event")
	}
}

func (h *Hub) authenticate(ctx context.Context, cl *client, token string) (uint64, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		cl.sendError("Missing token")
		return 0, false
	}

	claims, err := h.authn.Verify(ctx, token)
	if err != nil {
		cl.sendError("Invalid or expired token")
		return 0, false
	}

	userID := auth.UserIDFromContext(auth.ContextWithClaims(ctx, claims))
	if userID == 0 {
		cl.sendError("Invalid or expired token")
		return 0, false
	}
	return userID, true
}

func (h *Hub) handleJoin(ctx context.Context, cl *client, userID, threadID uint64) {
	ok, err := h.support.IsParticipant(ctx, userID, threadID)
	if err != nil {
		cl.sendError("Thread not found")
		return
	}
	if !ok {
		cl.sendError("Not a participant of this thread")
		return
	}

	h.joinRoom(threadID, cl)
	cl.sendEvent(&outboundEvent{Event: EventJoined, ThreadID: threadID})
}

func (h *Hub) handleSend(ctx context.Context, cl *client, userID, threadID uint64, text string) {
	message, err := h.support.PostMessage(ctx, userID, threadID, text)
	if err != nil {
		cl.sendError(errorMessage(err))
		return
	}
	h.BroadcastMessage(message)
}

func errorMessage(err error) string {
	if errno, ok := err.(*errors.Errno); ok {
		return errno.Message
	}
	return "Internal error"
}
