package signaling

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Client represents a connected signaling client
type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Role   string
	Send   chan []byte
	Hub    *Hub
}

// Hub routes signaling messages between clients sharing a room. Room
// membership is delegated to the injected Registry so the relay logic can be
// exercised without a live socket server.
type Hub struct {
	registry *Registry

	// Connected clients keyed by user ID. A user has at most one live
	// signaling connection.
	clients map[uuid.UUID]*Client

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex
}

// NewHub creates a hub backed by the given registry
func NewHub(registry *Registry) *Hub {
	return &Hub{
		registry:   registry,
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's connection lifecycle loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// Register queues a client for registration
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister queues a client for removal
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// registerClient records a client's connection. Room membership starts only
// when the client sends join-room. A reconnect for the same user displaces
// the old connection; closing its Send channel makes its writePump exit.
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[client.UserID]; ok && old != client {
		close(old.Send)
		log.Printf("Signaling: Displacing stale connection for UserID: %s", client.UserID)
	}
	h.clients[client.UserID] = client

	log.Printf("Signaling: Client connected - UserID: %s, Role: %s, Total: %d",
		client.UserID, client.Role, len(h.clients))
}

// unregisterClient removes a client's connection and reclaims its room
// membership. This is the disconnect path: clients can disappear without
// sending leave-room (tab close, network loss), so the same leave sequence
// runs here via the registry's inverse mapping.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.clients[client.UserID]
	if !ok || current != client {
		return
	}

	delete(h.clients, client.UserID)
	close(client.Send)

	log.Printf("Signaling: Client disconnected - UserID: %s", client.UserID)

	if room, ok := h.registry.RoomOf(client.UserID); ok {
		h.leaveRoomLocked(room, client.UserID)
	}
}

// Route dispatches one inbound message. Handlers run synchronously per
// message, so registry mutation and peer notification cannot interleave with
// another message from the same sender.
func (h *Hub) Route(client *Client, msg *Message) {
	switch msg.Type {
	case MessageTypeJoinRoom:
		h.handleJoin(client, msg)

	case MessageTypeOffer, MessageTypeAnswer:
		h.forward(client, msg)

	case MessageTypeICECandidate:
		h.broadcast(client, msg)

	case MessageTypeLeaveRoom:
		h.handleLeave(client, msg)

	case MessageTypeGetRoomInfo:
		h.handleRoomInfo(client, msg)

	default:
		log.Printf("Signaling: Dropping unknown message type %q from %s", msg.Type, client.UserID)
	}
}

// handleJoin records room membership and announces the newcomer to the peers
// already present
func (h *Hub) handleJoin(client *Client, msg *Message) {
	if msg.Room == "" {
		log.Printf("Signaling: Dropping join-room without room from %s", client.UserID)
		return
	}

	role := client.Role
	var payload JoinPayload
	if err := json.Unmarshal(msg.Payload, &payload); err == nil && payload.UserType != "" {
		role = payload.UserType
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Joining a new room implicitly leaves the previous one; its peers get
	// the same user-left notification as an explicit leave.
	if left := h.registry.Join(msg.Room, client.UserID); left != "" {
		h.notifyUserLeft(left, client.UserID)
	}

	log.Printf("Signaling: User %s (%s) joined room %s, members: %d",
		client.UserID, role, msg.Room, h.registry.MemberCount(msg.Room))

	joined := NewMessage(MessageTypeUserJoined, msg.Room, UserJoinedPayload{
		UserID:     client.UserID,
		UserType:   role,
		TotalUsers: h.registry.MemberCount(msg.Room),
	})
	h.broadcastLocked(msg.Room, client.UserID, mustMarshal(joined))
}

// handleLeave removes room membership and notifies remaining peers
func (h *Hub) handleLeave(client *Client, msg *Message) {
	if msg.Room == "" {
		log.Printf("Signaling: Dropping leave-room without room from %s", client.UserID)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(msg.Room, client.UserID)
}

// leaveRoomLocked runs the shared leave sequence: drop membership, notify the
// remaining peers, let the registry delete the room if it became empty.
func (h *Hub) leaveRoomLocked(room string, userID uuid.UUID) {
	if !h.registry.Leave(room, userID) {
		return
	}

	log.Printf("Signaling: User %s left room %s, members: %d",
		userID, room, h.registry.MemberCount(room))

	h.notifyUserLeft(room, userID)
}

func (h *Hub) notifyUserLeft(room string, userID uuid.UUID) {
	left := NewMessage(MessageTypeUserLeft, room, UserLeftPayload{
		UserID:     userID,
		TotalUsers: h.registry.MemberCount(room),
	})
	h.broadcastLocked(room, userID, mustMarshal(left))
}

// forward relays an offer or answer to its addressee, or to the whole room
// (excluding the sender) when no addressee is set. The payload passes through
// untouched.
func (h *Hub) forward(client *Client, msg *Message) {
	if msg.Room == "" {
		log.Printf("Signaling: Dropping %s without room from %s", msg.Type, client.UserID)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	data := mustMarshal(msg)
	if msg.To != uuid.Nil {
		if !h.sendToUserLocked(msg.To, data) {
			// Best-effort relay: the addressee may have disconnected between
			// joining and this message. The sender gets no feedback.
			log.Printf("Signaling: Recipient %s for %s not connected", msg.To, msg.Type)
		}
		return
	}

	h.broadcastLocked(msg.Room, client.UserID, data)
}

// broadcast relays a message to every room member except the sender
func (h *Hub) broadcast(client *Client, msg *Message) {
	if msg.Room == "" {
		log.Printf("Signaling: Dropping %s without room from %s", msg.Type, client.UserID)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	h.broadcastLocked(msg.Room, client.UserID, mustMarshal(msg))
}

// handleRoomInfo replies to the querying client only; it mutates nothing
func (h *Hub) handleRoomInfo(client *Client, msg *Message) {
	if msg.Room == "" {
		log.Printf("Signaling: Dropping get-room-info without room from %s", client.UserID)
		return
	}

	users := h.registry.MembersOf(msg.Room)
	info := NewMessage(MessageTypeRoomInfo, msg.Room, RoomInfoPayload{
		Room:       msg.Room,
		Users:      users,
		TotalUsers: len(users),
	})

	h.mu.RLock()
	defer h.mu.RUnlock()
	h.sendToUserLocked(client.UserID, mustMarshal(info))
}

// broadcastLocked delivers data to every connected member of a room except
// the excluded user. Callers hold h.mu.
func (h *Hub) broadcastLocked(room string, exclude uuid.UUID, data []byte) {
	sent := 0
	for _, userID := range h.registry.MembersOf(room) {
		if userID == exclude {
			continue
		}
		if h.sendToUserLocked(userID, data) {
			sent++
		}
	}
	log.Printf("Signaling: Broadcast to %d clients in room %s", sent, room)
}

// sendToUserLocked delivers data to a single connected user without blocking.
// Callers hold h.mu.
func (h *Hub) sendToUserLocked(userID uuid.UUID, data []byte) bool {
	client, ok := h.clients[userID]
	if !ok {
		return false
	}
	select {
	case client.Send <- data:
		return true
	default:
		log.Printf("Signaling: Client %s buffer full", userID)
		return false
	}
}
