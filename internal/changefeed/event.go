// Package changefeed publishes entity mutations to a Redis stream so other
// processes can follow changes to the store.
package changefeed

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Op identifies the kind of mutation.
type Op string

// Mutation kinds.
const (
	OpCreate     Op = "create"
	OpUpdate     Op = "update"
	OpDelete     Op = "delete"
	OpClear      Op = "clear"
	OpDeleteUser Op = "delete_user"
)

// Event describes one successful mutation.
type Event struct {
	ID     string          `json:"id"`
	Op     Op              `json:"op"`
	User   string          `json:"user"`
	Entity string          `json:"entity,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	At     int64           `json:"t"` // Unix milliseconds
}

// NewEvent builds an Event stamped with a fresh ULID and the given time.
func NewEvent(op Op, user, entity string, value json.RawMessage, at time.Time) Event {
	return Event{
		ID:     ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		Op:     op,
		User:   user,
		Entity: entity,
		Value:  value,
		At:     at.UnixMilli(),
	}
}
