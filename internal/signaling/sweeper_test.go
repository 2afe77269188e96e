package signaling

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSweeperReclaimsLeakedRooms(t *testing.T) {
	registry := NewRegistry()
	registry.Join("sess-live", uuid.New())

	registry.mu.Lock()
	registry.rooms["sess-leaked"] = make(map[uuid.UUID]struct{})
	registry.mu.Unlock()

	sweeper := NewSweeper(registry, 5*time.Millisecond)
	sweeper.Start()
	defer sweeper.Stop()

	deadline := time.After(time.Second)
	for {
		if len(registry.Rooms()) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("leaked room was not swept, rooms: %v", registry.Rooms())
		case <-time.After(5 * time.Millisecond):
		}
	}

	if got := registry.MemberCount("sess-live"); got != 1 {
		t.Fatalf("sweeper must not touch occupied rooms, got %d members", got)
	}
}
