package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/gigbridge/api/internal/model"
)

// PresenceRegistry tracks which users currently hold a live connection.
// Injected so tests can substitute a fake and inspect lifecycle calls.
type PresenceRegistry interface {
	Add(userID string)
	Remove(userID string)
	IsOnline(userID string) bool
	OnlineUsers() []string
}

// MemoryPresence is the default registry. Counts connections per user so a
// second browser tab does not mark the user offline when the first closes.
type MemoryPresence struct {
	mu    sync.RWMutex
	conns map[string]int
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{conns: make(map[string]int)}
}

func (p *MemoryPresence) Add(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[userID]++
}

func (p *MemoryPresence) Remove(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conns[userID] <= 1 {
		delete(p.conns, userID)
		return
	}
	p.conns[userID]--
}

func (p *MemoryPresence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conns[userID] > 0
}

func (p *MemoryPresence) OnlineUsers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	users := make([]string, 0, len(p.conns))
	for id := range p.conns {
		users = append(users, id)
	}
	return users
}

// Client represents a WebSocket client
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	// rooms is owned by the hub's Run loop
	rooms map[string]bool
}

// subscription pairs a client with a room for register/unregister requests
type subscription struct {
	client *Client
	room   string
}

// BroadcastMessage represents a message addressed to one room, or to every
// connected client when Room is empty.
type BroadcastMessage struct {
	Room    string
	Exclude *Client
	Message []byte
}

// Hub maintains active WebSocket connections grouped into rooms. Rooms are
// keyed by "user:{id}" for notification push and by conversation id for
// message and typing relay. All room state is owned by the Run loop.
type Hub struct {
	clients map[string]map[*Client]bool

	register   chan subscription
	unregister chan subscription
	disconnect chan *Client
	broadcast  chan *BroadcastMessage

	presence PresenceRegistry

	mu sync.RWMutex
}

// NewHub creates a new Hub with the given presence registry
func NewHub(presence PresenceRegistry) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan subscription),
		unregister: make(chan subscription),
		disconnect: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		presence:   presence,
	}
}

// UserRoom returns the personal notification room for a user
func UserRoom(userID string) string {
	return "user:" + userID
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			if h.clients[sub.room] == nil {
				h.clients[sub.room] = make(map[*Client]bool)
			}
			h.clients[sub.room][sub.client] = true
			sub.client.rooms[sub.room] = true
			h.mu.Unlock()

		case sub := <-h.unregister:
			h.mu.Lock()
			h.removeFromRoom(sub.client, sub.room)
			h.mu.Unlock()

		case client := <-h.disconnect:
			h.mu.Lock()
			for room := range client.rooms {
				h.removeFromRoom(client, room)
			}
			close(client.Send)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			if msg.Room == "" {
				for _, clients := range h.clients {
					h.deliver(clients, msg)
				}
			} else if clients, ok := h.clients[msg.Room]; ok {
				h.deliver(clients, msg)
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) removeFromRoom(client *Client, room string) {
	if clients, ok := h.clients[room]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			delete(client.rooms, room)
			if len(clients) == 0 {
				delete(h.clients, room)
			}
		}
	}
}

func (h *Hub) deliver(clients map[*Client]bool, msg *BroadcastMessage) {
	for client := range clients {
		if client == msg.Exclude {
			continue
		}
		select {
		case client.Send <- msg.Message:
		default:
			// Slow consumer; drop the frame rather than block the hub.
		}
	}
}

// Join subscribes a client to a room
func (h *Hub) Join(client *Client, room string) {
	h.register <- subscription{client: client, room: room}
}

// Leave unsubscribes a client from a room
func (h *Hub) Leave(client *Client, room string) {
	h.unregister <- subscription{client: client, room: room}
}

// Push sends raw bytes to every client in a room, best-effort
func (h *Hub) Push(room string, data []byte) {
	select {
	case h.broadcast <- &BroadcastMessage{Room: room, Message: data}:
	default:
		log.Printf("Hub broadcast queue full, dropping message for room %s", room)
	}
}

// PushToUser sends raw bytes to a user's personal room
func (h *Hub) PushToUser(userID string, data []byte) {
	h.Push(UserRoom(userID), data)
}

// Presence exposes the injected presence registry
func (h *Hub) Presence() PresenceRegistry {
	return h.presence
}

func (h *Hub) pushJSON(room string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal hub message: %v", err)
		return
	}
	h.Push(room, data)
}

func (h *Hub) broadcastAll(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal hub message: %v", err)
		return
	}
	select {
	case h.broadcast <- &BroadcastMessage{Message: data}:
	default:
	}
}

// HandleConnection handles an authenticated WebSocket connection. The user
// is joined to their personal room; further room membership follows the
// join_room/leave_room protocol.
func (h *Hub) HandleConnection(c *websocket.Conn, userID string) {
	client := &Client{
		UserID: userID,
		Conn:   c,
		Send:   make(chan []byte, 256),
		rooms:  make(map[string]bool),
	}

	h.Join(client, UserRoom(userID))
	h.presence.Add(userID)
	h.broadcastAll(model.WSPresenceMessage{Type: model.WSMessageTypeUserConnected, UserID: userID})

	defer func() {
		h.disconnect <- client
		h.presence.Remove(userID)
		h.broadcastAll(model.WSPresenceMessage{Type: model.WSMessageTypeUserDisconnected, UserID: userID})
	}()

	// Tell the new connection who is online
	if data, err := json.Marshal(model.WSUsersOnlineMessage{
		Type:    model.WSMessageTypeUsersOnline,
		UserIDs: h.presence.OnlineUsers(),
	}); err == nil {
		client.Send <- data
	}

	// Writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				// Send ping for keep-alive
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		h.handleClientMessage(client, &msg)
	}
}

func (h *Hub) handleClientMessage(client *Client, msg *model.WSMessage) {
	switch msg.Type {
	case model.WSMessageTypeJoinRoom:
		if msg.Room != "" {
			h.Join(client, msg.Room)
		}

	case model.WSMessageTypeLeaveRoom:
		if msg.Room != "" {
			h.Leave(client, msg.Room)
		}

	case model.WSMessageTypeSendMessage:
		if msg.ConversationID == "" {
			return
		}
		h.pushJSON(msg.ConversationID, model.WSChatMessage{
			Type:           model.WSMessageTypeMessage,
			ConversationID: msg.ConversationID,
			SenderID:       client.UserID,
			Content:        msg.Content,
			CreatedAt:      time.Now(),
		})

	case model.WSMessageTypeTypingStart, model.WSMessageTypeTypingStop:
		if msg.ConversationID == "" {
			return
		}
		data, err := json.Marshal(model.WSTypingMessage{
			Type:           msg.Type,
			ConversationID: msg.ConversationID,
			UserID:         client.UserID,
		})
		if err != nil {
			return
		}
		select {
		case h.broadcast <- &BroadcastMessage{Room: msg.ConversationID, Exclude: client, Message: data}:
		default:
		}

	case model.WSMessageTypePing:
		data, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
		client.Send <- data
	}
}
