package changefeed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestNewEvent_Fields(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	ev := NewEvent(OpCreate, "alice", "profile", json.RawMessage(`{"age":30}`), at)

	if ev.Op != OpCreate || ev.User != "alice" || ev.Entity != "profile" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.At != at.UnixMilli() {
		t.Errorf("At = %d, want %d", ev.At, at.UnixMilli())
	}

	id, err := ulid.Parse(ev.ID)
	if err != nil {
		t.Fatalf("ID %q is not a ULID: %v", ev.ID, err)
	}
	if got := ulid.Time(id.Time()); !got.Equal(at) {
		t.Errorf("ULID time = %v, want %v", got, at)
	}
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	t.Parallel()

	at := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ev := NewEvent(OpDelete, "u", "e", nil, at)
		if seen[ev.ID] {
			t.Fatalf("duplicate event ID %s", ev.ID)
		}
		seen[ev.ID] = true
	}
}

func TestEvent_JSONOmitsEmpty(t *testing.T) {
	t.Parallel()

	ev := NewEvent(OpDeleteUser, "bob", "", nil, time.Unix(0, 0))
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["entity"]; ok {
		t.Error("entity should be omitted for user-level events")
	}
	if _, ok := decoded["value"]; ok {
		t.Error("value should be omitted when nil")
	}
	if decoded["op"] != "delete_user" {
		t.Errorf("op = %v, want delete_user", decoded["op"])
	}
}

func TestNoopPublisher(t *testing.T) {
	t.Parallel()

	var p Publisher = NewNoop()
	p.PublishAsync(NewEvent(OpClear, "u", "", nil, time.Now()))
}
