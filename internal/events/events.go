// Package events publishes lobby lifecycle events to interested sinks.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	TypeOpened    = "lobby.opened"
	TypeRestarted = "lobby.restarted"
	TypeCompleted = "lobby.completed"
	TypeCancelled = "lobby.cancelled"
	TypeAbandoned = "lobby.abandoned"
)

// Event is the envelope every sink receives.
type Event struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	LobbyID   string          `json:"lobbyId"`
	ChannelID string          `json:"channelId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// LifecyclePayload is the payload of every lobby.* event.
type LifecyclePayload struct {
	ActorID      string   `json:"actorId,omitempty"`
	Participants []string `json:"participants"`
	Reason       string   `json:"reason,omitempty"`
	Epoch        int      `json:"epoch"`
}

type Sink interface {
	Publish(ctx context.Context, evt Event) error
}

func New(eventType, lobbyID, channelID string, at time.Time, payload LifecyclePayload) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		EventID:   uuid.NewString(),
		EventType: eventType,
		LobbyID:   lobbyID,
		ChannelID: channelID,
		Timestamp: at.UTC(),
		Payload:   raw,
	}, nil
}

func (e Event) Lifecycle() (LifecyclePayload, error) {
	var p LifecyclePayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every sink, even after one fails.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, evt Event) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Publish(ctx, evt))
	}
	return err
}
