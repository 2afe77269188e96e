package sse

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// EventType represents the type of SSE event
type EventType string

const (
	EventParticipantJoined  EventType = "participant_joined"
	EventParticipantLeft    EventType = "participant_left"
	EventParticipantUpdated EventType = "participant_updated"
	EventSessionStarted     EventType = "session_started"
	EventSessionEnded       EventType = "session_ended"
)

// Event represents an SSE event
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	SessionID uuid.UUID
	Send      chan []byte
}

// Hub maintains the set of active clients and broadcasts events to them
type Hub struct {
	// Clients registered per session
	clients map[uuid.UUID]map[uuid.UUID]*Client
	mu      sync.RWMutex
}

// NewHub creates a new SSE hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[uuid.UUID]*Client),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.SessionID] == nil {
		h.clients[client.SessionID] = make(map[uuid.UUID]*Client)
	}
	h.clients[client.SessionID][client.ID] = client
	log.Printf("SSE: Client registered - UserID: %s, SessionID: %s, Total clients: %d",
		client.UserID, client.SessionID, len(h.clients[client.SessionID]))
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.SessionID]; ok {
		if _, ok := clients[client.ID]; ok {
			delete(clients, client.ID)
			close(client.Send)
		}
		// Clean up empty sessions
		if len(clients) == 0 {
			delete(h.clients, client.SessionID)
		}
	}
}

// BroadcastToSession sends an event to all clients watching a session
func (h *Hub) BroadcastToSession(sessionID uuid.UUID, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.clients[sessionID]
	if !ok {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("SSE: Failed to marshal event: %v", err)
		return
	}

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			// Client buffer full, skip
		}
	}
}

// GetClientCount returns the number of connected clients for a session
func (h *Hub) GetClientCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.clients[sessionID]; ok {
		return len(clients)
	}
	return 0
}

// Global hub instance
var globalHub *Hub
var once sync.Once

// GetHub returns the global hub instance
func GetHub() *Hub {
	once.Do(func() {
		globalHub = NewHub()
	})
	return globalHub
}
