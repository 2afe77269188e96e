package signaling

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
)

// MessageType represents the type of signaling message
type MessageType string

const (
	// Client -> server
	MessageTypeJoinRoom     MessageType = "join-room"
	MessageTypeOffer        MessageType = "offer"
	MessageTypeAnswer       MessageType = "answer"
	MessageTypeICECandidate MessageType = "ice-candidate"
	MessageTypeLeaveRoom    MessageType = "leave-room"
	MessageTypeGetRoomInfo  MessageType = "get-room-info"

	// Server -> client
	MessageTypeUserJoined MessageType = "user-joined"
	MessageTypeUserLeft   MessageType = "user-left"
	MessageTypeRoomInfo   MessageType = "room-info"
)

// Message is the signaling envelope relayed between peers. The server routes
// on Type/Room/From/To and never parses the payload: session descriptions and
// ICE candidates pass through opaque.
type Message struct {
	Type    MessageType     `json:"type"`
	Room    string          `json:"room,omitempty"`
	From    uuid.UUID       `json:"from,omitempty"`
	To      uuid.UUID       `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload carries the sender's role on join-room
type JoinPayload struct {
	UserType string `json:"userType"`
}

// UserJoinedPayload announces a new room member to existing peers
type UserJoinedPayload struct {
	UserID     uuid.UUID `json:"userId"`
	UserType   string    `json:"userType"`
	TotalUsers int       `json:"totalUsers"`
}

// UserLeftPayload announces a departed room member to remaining peers
type UserLeftPayload struct {
	UserID     uuid.UUID `json:"userId"`
	TotalUsers int       `json:"totalUsers"`
}

// RoomInfoPayload is the reply to a get-room-info query
type RoomInfoPayload struct {
	Room       string      `json:"room"`
	Users      []uuid.UUID `json:"users"`
	TotalUsers int         `json:"totalUsers"`
}

// NewMessage builds an envelope with a marshaled payload
func NewMessage(t MessageType, room string, payload interface{}) *Message {
	return &Message{
		Type:    t,
		Room:    room,
		Payload: mustMarshal(payload),
	}
}

// mustMarshal marshals an object to JSON, falling back to an empty object on error
func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Signaling: Failed to marshal payload: %v", err)
		return []byte("{}")
	}
	return data
}
