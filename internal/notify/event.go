// Package notify delivers best-effort change notifications to users after a
// mutation has committed.
package notify

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/zhusq20/CapybaraChat/internal/entity"
)

// Event types
const (
	TypeFriendRequest     = "friend_request"
	TypeFriendAdded       = "friend_added"
	TypeFriendRemoved     = "friend_removed"
	TypeNewMessage        = "new_message"
	TypeMessageRead       = "message_read"
	TypeGroupRequest      = "group_request"
	TypeGroupJoined       = "group_joined"
	TypeGroupRemoved      = "group_removed"
	TypeGroupNotice       = "group_notice"
	TypeManagerChanged    = "manager_changed"
	TypeMasterTransferred = "master_transferred"
)

// Event is a single notification addressed to one user
type Event struct {
	Type           string `json:"type"`
	Recipient      string `json:"recipient"`
	Actor          string `json:"actor,omitempty"`
	ConversationId string `json:"conversation_id,omitempty"`
	GroupId        string `json:"group_id,omitempty"`
	RequestId      string `json:"request_id,omitempty"`
	MessageId      int64  `json:"message_id,omitempty"`
	Ts             int64  `json:"ts"`
}

// Encode serializes the event for the wire
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses an event received from the wire
func Decode(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Fanout copies tmpl once per recipient, skipping exclude.
func Fanout(tmpl Event, recipients []string, exclude string) []Event {
	if tmpl.Ts == 0 {
		tmpl.Ts = entity.NowUnixMilli()
	}
	events := make([]Event, 0, len(recipients))
	for _, uid := range recipients {
		if uid == exclude {
			continue
		}
		e := tmpl
		e.Recipient = uid
		events = append(events, e)
	}
	return events
}

// Emitter accepts events of a committed mutation
type Emitter interface {
	Emit(ctx context.Context, events ...Event)
}

// Nop drops every event
type Nop struct{}

// Emit implements Emitter
func (Nop) Emit(context.Context, ...Event) {}

// Publisher pushes a single event onto the transport
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
}

// Handler consumes events received from the transport
type Handler func(ctx context.Context, e *Event)

// Bus is a transport able to both publish and relay events
type Bus interface {
	Publisher
	Subscribe(ctx context.Context, h Handler) error
	Close() error
}
