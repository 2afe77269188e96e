package signaling

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

// newTestClient connects a client straight into the hub, bypassing the Run
// loop so tests stay deterministic. The Send buffer is large enough that no
// test delivery is ever dropped.
func newTestClient(h *Hub, role string) *Client {
	client := &Client{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Role:   role,
		Send:   make(chan []byte, 16),
		Hub:    h,
	}
	h.registerClient(client)
	return client
}

func join(h *Hub, client *Client, room string) {
	h.Route(client, &Message{Type: MessageTypeJoinRoom, Room: room, From: client.UserID})
}

// recv pops the next queued message for a client, failing if none is queued
func recv(t *testing.T, client *Client) *Message {
	t.Helper()
	select {
	case data := <-client.Send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("undecodable message: %v", err)
		}
		return &msg
	default:
		t.Fatal("expected a queued message, got none")
		return nil
	}
}

func assertEmpty(t *testing.T, client *Client) {
	t.Helper()
	select {
	case data := <-client.Send:
		t.Fatalf("unexpected message queued: %s", data)
	default:
	}
}

func TestHubJoinNotifiesExistingMembersOnly(t *testing.T) {
	h := NewHub(NewRegistry())
	counsellor := newTestClient(h, "counsellor")
	student := newTestClient(h, "student")

	join(h, counsellor, "sess-1")
	join(h, student, "sess-1")

	msg := recv(t, counsellor)
	if msg.Type != MessageTypeUserJoined {
		t.Fatalf("expected user-joined, got %s", msg.Type)
	}

	var payload UserJoinedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload.UserID != student.UserID {
		t.Fatalf("expected newcomer %s, got %s", student.UserID, payload.UserID)
	}
	if payload.TotalUsers != 2 {
		t.Fatalf("expected totalUsers 2, got %d", payload.TotalUsers)
	}

	// The joiner itself gets no echo
	assertEmpty(t, student)
}

func TestHubJoinReportsRoleFromPayload(t *testing.T) {
	h := NewHub(NewRegistry())
	a := newTestClient(h, "student")
	b := newTestClient(h, "student")

	join(h, a, "sess-1")
	h.Route(b, &Message{
		Type:    MessageTypeJoinRoom,
		Room:    "sess-1",
		From:    b.UserID,
		Payload: mustMarshal(JoinPayload{UserType: "counsellor"}),
	})

	msg := recv(t, a)
	var payload UserJoinedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload.UserType != "counsellor" {
		t.Fatalf("expected role from payload, got %q", payload.UserType)
	}
}

func TestHubTargetedOfferReachesOnlyAddressee(t *testing.T) {
	h := NewHub(NewRegistry())
	a := newTestClient(h, "counsellor")
	b := newTestClient(h, "student")
	c := newTestClient(h, "student")

	join(h, a, "sess-1")
	join(h, b, "sess-1")
	recv(t, a) // user-joined for b
	join(h, c, "sess-2")

	offer := &Message{
		Type:    MessageTypeOffer,
		Room:    "sess-1",
		From:    a.UserID,
		To:      b.UserID,
		Payload: json.RawMessage(`{"type":"offer","sdp":"v=0"}`),
	}
	h.Route(a, offer)

	got := recv(t, b)
	if got.Type != MessageTypeOffer || got.From != a.UserID {
		t.Fatalf("expected offer from %s, got %s from %s", a.UserID, got.Type, got.From)
	}
	if string(got.Payload) != `{"type":"offer","sdp":"v=0"}` {
		t.Fatalf("payload was not relayed verbatim: %s", got.Payload)
	}

	assertEmpty(t, a)
	assertEmpty(t, c)
}

func TestHubBroadcastExcludesSenderAndOtherRooms(t *testing.T) {
	h := NewHub(NewRegistry())
	x := newTestClient(h, "student")
	y := newTestClient(h, "counsellor")
	z := newTestClient(h, "student")

	join(h, x, "sess-1")
	join(h, y, "sess-1")
	recv(t, x) // user-joined for y
	join(h, z, "sess-other")

	h.Route(x, &Message{
		Type:    MessageTypeICECandidate,
		Room:    "sess-1",
		From:    x.UserID,
		Payload: json.RawMessage(`{"candidate":"candidate:1"}`),
	})

	got := recv(t, y)
	if got.Type != MessageTypeICECandidate {
		t.Fatalf("expected ice-candidate, got %s", got.Type)
	}
	assertEmpty(t, x)
	assertEmpty(t, z)
}

func TestHubLeaveNotifiesRemainingMembers(t *testing.T) {
	registry := NewRegistry()
	h := NewHub(registry)
	a := newTestClient(h, "counsellor")
	b := newTestClient(h, "student")

	join(h, a, "sess-1")
	join(h, b, "sess-1")
	recv(t, a)

	h.Route(b, &Message{Type: MessageTypeLeaveRoom, Room: "sess-1", From: b.UserID})

	msg := recv(t, a)
	if msg.Type != MessageTypeUserLeft {
		t.Fatalf("expected user-left, got %s", msg.Type)
	}
	var payload UserLeftPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload.UserID != b.UserID || payload.TotalUsers != 1 {
		t.Fatalf("expected %s left with 1 remaining, got %s / %d",
			b.UserID, payload.UserID, payload.TotalUsers)
	}

	if got := registry.MemberCount("sess-1"); got != 1 {
		t.Fatalf("expected 1 member after leave, got %d", got)
	}
}

func TestHubDisconnectReclaimsMembership(t *testing.T) {
	registry := NewRegistry()
	h := NewHub(registry)
	a := newTestClient(h, "counsellor")
	b := newTestClient(h, "student")

	join(h, a, "sess-1")
	join(h, b, "sess-1")
	recv(t, a)

	// Abrupt disconnect: no leave-room message was ever sent
	h.unregisterClient(b)

	msg := recv(t, a)
	if msg.Type != MessageTypeUserLeft {
		t.Fatalf("expected user-left on disconnect, got %s", msg.Type)
	}
	var payload UserLeftPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload.UserID != b.UserID || payload.TotalUsers != 1 {
		t.Fatalf("expected %s gone with 1 remaining, got %s / %d",
			b.UserID, payload.UserID, payload.TotalUsers)
	}

	if _, ok := registry.RoomOf(b.UserID); ok {
		t.Fatal("disconnected user must not retain room membership")
	}
}

func TestHubReconnectDisplacesOldConnection(t *testing.T) {
	h := NewHub(NewRegistry())
	old := newTestClient(h, "student")

	// Same user connects again, as after a page reload
	replacement := &Client{
		ID:     uuid.New(),
		UserID: old.UserID,
		Role:   old.Role,
		Send:   make(chan []byte, 16),
		Hub:    h,
	}
	h.registerClient(replacement)

	select {
	case _, ok := <-old.Send:
		if ok {
			t.Fatal("expected the displaced send channel to be closed, got a message")
		}
	default:
		t.Fatal("displaced connection's send channel was left open")
	}

	h.mu.RLock()
	current := h.clients[old.UserID]
	h.mu.RUnlock()
	if current != replacement {
		t.Fatal("expected the replacement connection to be registered")
	}

	// The stale connection's own unregister must not remove the replacement
	h.unregisterClient(old)
	h.mu.RLock()
	current = h.clients[old.UserID]
	h.mu.RUnlock()
	if current != replacement {
		t.Fatal("stale unregister removed the replacement connection")
	}
}

func TestHubRoomInfoRepliesToQuerierOnly(t *testing.T) {
	h := NewHub(NewRegistry())
	a := newTestClient(h, "counsellor")
	b := newTestClient(h, "student")

	join(h, a, "sess-1")
	join(h, b, "sess-1")
	recv(t, a)

	h.Route(b, &Message{Type: MessageTypeGetRoomInfo, Room: "sess-1", From: b.UserID})

	msg := recv(t, b)
	if msg.Type != MessageTypeRoomInfo {
		t.Fatalf("expected room-info, got %s", msg.Type)
	}
	var payload RoomInfoPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload.TotalUsers != 2 || len(payload.Users) != 2 {
		t.Fatalf("expected 2 users, got %d (%d listed)", payload.TotalUsers, len(payload.Users))
	}

	assertEmpty(t, a)
}

func TestHubDropsMessagesWithoutRoom(t *testing.T) {
	registry := NewRegistry()
	h := NewHub(registry)
	a := newTestClient(h, "student")

	h.Route(a, &Message{Type: MessageTypeJoinRoom, From: a.UserID})
	h.Route(a, &Message{Type: MessageTypeOffer, From: a.UserID})
	h.Route(a, &Message{Type: "bogus", From: a.UserID})

	if got := len(registry.Rooms()); got != 0 {
		t.Fatalf("malformed messages must not create rooms, got %d", got)
	}
	assertEmpty(t, a)
}

// TestHubFullSessionExchange walks a complete two-party call through the hub:
// join, offer/answer relay, abrupt disconnect, final leave.
func TestHubFullSessionExchange(t *testing.T) {
	registry := NewRegistry()
	h := NewHub(registry)
	a := newTestClient(h, "counsellor")
	b := newTestClient(h, "student")

	join(h, a, "sess-42")
	assertEmpty(t, a)

	join(h, b, "sess-42")
	joined := recv(t, a)
	if joined.Type != MessageTypeUserJoined {
		t.Fatalf("expected user-joined at a, got %s", joined.Type)
	}

	// The already-present peer offers to the newcomer
	h.Route(a, &Message{
		Type: MessageTypeOffer, Room: "sess-42", From: a.UserID, To: b.UserID,
		Payload: json.RawMessage(`{"type":"offer","sdp":"v=0 a"}`),
	})
	if got := recv(t, b); got.Type != MessageTypeOffer {
		t.Fatalf("expected offer at b, got %s", got.Type)
	}

	h.Route(b, &Message{
		Type: MessageTypeAnswer, Room: "sess-42", From: b.UserID, To: a.UserID,
		Payload: json.RawMessage(`{"type":"answer","sdp":"v=0 b"}`),
	})
	if got := recv(t, a); got.Type != MessageTypeAnswer {
		t.Fatalf("expected answer at a, got %s", got.Type)
	}

	// b's connection dies without a leave-room
	h.unregisterClient(b)
	left := recv(t, a)
	if left.Type != MessageTypeUserLeft {
		t.Fatalf("expected user-left at a, got %s", left.Type)
	}
	var payload UserLeftPayload
	if err := json.Unmarshal(left.Payload, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload.TotalUsers != 1 {
		t.Fatalf("expected 1 remaining member, got %d", payload.TotalUsers)
	}
	members := registry.MembersOf("sess-42")
	if len(members) != 1 || members[0] != a.UserID {
		t.Fatalf("expected only %s left in the room, got %v", a.UserID, members)
	}

	// Last member out deletes the room
	h.Route(a, &Message{Type: MessageTypeLeaveRoom, Room: "sess-42", From: a.UserID})
	if got := len(registry.Rooms()); got != 0 {
		t.Fatalf("expected no rooms after the session ended, got %d", got)
	}
}
