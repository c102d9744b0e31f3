// Package realtime carries support-chat traffic over WebSocket. Clients
// join thread rooms and every event re-proves the caller's token and
// thread membership, so a stolen connection never outlives its token.
package realtime

import (
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/unibot/internal/model"
	"github.com/kart-io/unibot/internal/unibot/biz"
	"github.com/kart-io/unibot/pkg/auth"
	jsonutil "github.com/kart-io/unibot/pkg/utils/json"
)

// Inbound event names.
const (
	EventJoinThread  = "join_thread"
	EventSendMessage = "send_message"
)

// Outbound event names.
const (
	EventJoined     = "joined"
	EventNewMessage = "new_message"
	EventError      = "error"
)

// inboundEvent is the envelope every client frame uses.
type inboundEvent struct {
	Event    string `json:"event"`
	Token    string `json:"token"`
	ThreadID uint64 `json:"threadId"`
	Text     string `json:"text,omitempty"`
}

// outboundEvent is the envelope for frames sent to clients.
type outboundEvent struct {
	Event    string             `json:"event"`
	ThreadID uint64             `json:"threadId,omitempty"`
	Message  *model.ChatMessage `json:"message,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// Hub tracks connected clients and the thread rooms they joined.
type Hub struct {
	authn   auth.Authenticator
	support *biz.SupportService

	mu    sync.RWMutex
	rooms map[uint64]map[*client]struct{}
}

// NewHub creates a new Hub.
func NewHub(authn auth.Authenticator, support *biz.SupportService) *Hub {
	return &Hub{
		authn:   authn,
		support: support,
		rooms:   make(map[uint64]map[*client]struct{}),
	}
}

// BroadcastMessage fans a persisted support message out to every client in
// its thread room. REST-posted messages go through here too, so WebSocket
// listeners see them either way.
func (h *Hub) BroadcastMessage(message *model.ChatMessage) {
	if message == nil {
		return
	}

	payload, err := jsonutil.Marshal(&outboundEvent{
		Event:    EventNewMessage,
		ThreadID: message.ThreadID,
		Message:  message,
	})
	if err != nil {
		logger.Errorw("broadcast marshal failed", "thread_id", message.ThreadID, "error", err)
		return
	}

	h.mu.RLock()
	room := h.rooms[message.ThreadID]
	clients := make([]*client, 0, len(room))
	for cl := range room {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		cl.enqueue(payload)
	}
}

func (h *Hub) joinRoom(threadID uint64, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[threadID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[threadID] = room
	}
	room[cl] = struct{}{}
}

func (h *Hub) dropClient(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for threadID, room := range h.rooms {
		delete(room, cl)
		if len(room) == 0 {
			delete(h.rooms, threadID)
		}
	}
}
