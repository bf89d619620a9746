// Package platform describes the messaging platform the ready check is
// hosted in: the operations the bot may perform and the events it reacts to.
package platform

import (
	"context"
	"errors"
	"time"
)

var ErrUnknownMessage = errors.New("unknown message")
var ErrUnknownChannel = errors.New("unknown channel")

// Messenger is every side effect the lobby core performs. Any call may fail
// with a transient I/O error.
type Messenger interface {
	Send(ctx context.Context, channelID string, p Payload) (Message, error)
	Edit(ctx context.Context, channelID, messageID string, p Payload) (Message, error)
	Delete(ctx context.Context, channelID, messageID string) error
	BulkDelete(ctx context.Context, channelID string, messageIDs []string) error
	// React attaches a menu item to a message as the bot.
	React(ctx context.Context, channelID, messageID, emoji string) error
	// RemoveReaction retracts a single user's reaction.
	RemoveReaction(ctx context.Context, channelID, messageID, emoji, userID string) error
	SendDirect(ctx context.Context, userID string, p Payload) (Message, error)
}

type Payload struct {
	Content string `json:"content,omitempty"`
	Embed   *Embed `json:"embed,omitempty"`
}

type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Footer      string  `json:"footer,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id,omitempty"`
	AuthorID  string    `json:"author_id"`
	AuthorBot bool      `json:"author_bot,omitempty"`
	Content   string    `json:"content,omitempty"`
	Embed     *Embed    `json:"embed,omitempty"`
	Mentions  []string  `json:"mentions,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	EditedAt  time.Time `json:"edited_at,omitzero"`
}

type Reaction struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
}

type EventType string

const (
	EventMessageCreated  EventType = "message_created"
	EventMessageUpdated  EventType = "message_updated"
	EventMessageDeleted  EventType = "message_deleted"
	EventReactionAdded   EventType = "reaction_added"
	EventReactionRemoved EventType = "reaction_removed"
	EventDirectMessage   EventType = "direct_message"
)

// Event is one platform notification. Exactly one of Message or Reaction is
// set, matching Type.
type Event struct {
	Type      EventType `json:"type"`
	ChannelID string    `json:"channel_id,omitempty"`
	// RecipientID is set for direct messages.
	RecipientID string    `json:"recipient_id,omitempty"`
	Message     *Message  `json:"message,omitempty"`
	Reaction    *Reaction `json:"reaction,omitempty"`
}
