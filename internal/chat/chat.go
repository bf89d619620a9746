// Package chat is an in-process messaging platform: channels of messages
// with per-emoji reactions, direct messages, and an event stream. It is the
// platform the ready-check bot is hosted in when served over websockets.
package chat

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/DoyleJ11/ready-check/internal/platform"
)

type Service struct {
	selfID string
	clock  clockwork.Clock

	mu        sync.Mutex
	channels  map[string][]string // channel ID -> message IDs, oldest first
	messages  map[string]*platform.Message
	reactions map[string]map[string][]string // message ID -> emoji -> user IDs
	direct    map[string][]platform.Message
	subs      map[*subscriber]struct{}
}

var _ platform.Messenger = (*Service)(nil)

// New creates a platform whose bot user is selfID.
func New(selfID string, clock clockwork.Clock) *Service {
	return &Service{
		selfID:    selfID,
		clock:     clock,
		channels:  make(map[string][]string),
		messages:  make(map[string]*platform.Message),
		reactions: make(map[string]map[string][]string),
		direct:    make(map[string][]platform.Message),
		subs:      make(map[*subscriber]struct{}),
	}
}

func (s *Service) SelfID() string { return s.selfID }

// Post creates a message authored by a user.
func (s *Service) Post(ctx context.Context, channelID, authorID, content string) (platform.Message, error) {
	if err := ctx.Err(); err != nil {
		return platform.Message{}, err
	}
	return s.create(channelID, platform.Message{
		AuthorID:  authorID,
		AuthorBot: authorID == s.selfID,
		Content:   content,
	}), nil
}

func (s *Service) Send(ctx context.Context, channelID string, p platform.Payload) (platform.Message, error) {
	if err := ctx.Err(); err != nil {
		return platform.Message{}, err
	}
	return s.create(channelID, platform.Message{
		AuthorID:  s.selfID,
		AuthorBot: true,
		Content:   p.Content,
		Embed:     p.Embed,
	}), nil
}

func (s *Service) create(channelID string, msg platform.Message) platform.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg.ID = uuid.NewString()
	msg.ChannelID = channelID
	msg.Mentions = ParseMentions(msg.Content)
	msg.CreatedAt = s.clock.Now()

	stored := msg
	s.messages[msg.ID] = &stored
	s.channels[channelID] = append(s.channels[channelID], msg.ID)
	s.publishLocked(platform.Event{Type: platform.EventMessageCreated, ChannelID: channelID, Message: copyMessage(&stored)})
	return *copyMessage(&stored)
}

func (s *Service) Edit(ctx context.Context, channelID, messageID string, p platform.Payload) (platform.Message, error) {
	if err := ctx.Err(); err != nil {
		return platform.Message{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.lookupLocked(channelID, messageID)
	if err != nil {
		return platform.Message{}, err
	}
	msg.Content = p.Content
	msg.Embed = p.Embed
	msg.Mentions = ParseMentions(p.Content)
	msg.EditedAt = s.clock.Now()
	s.publishLocked(platform.Event{Type: platform.EventMessageUpdated, ChannelID: channelID, Message: copyMessage(msg)})
	return *copyMessage(msg), nil
}

func (s *Service) Delete(ctx context.Context, channelID, messageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookupLocked(channelID, messageID); err != nil {
		return err
	}
	s.deleteLocked(channelID, messageID)
	return nil
}

// BulkDelete skips messages that are already gone.
func (s *Service) BulkDelete(ctx context.Context, channelID string, messageIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range messageIDs {
		if _, err := s.lookupLocked(channelID, id); err != nil {
			continue
		}
		s.deleteLocked(channelID, id)
	}
	return nil
}

func (s *Service) deleteLocked(channelID, messageID string) {
	delete(s.messages, messageID)
	delete(s.reactions, messageID)
	s.channels[channelID] = slices.DeleteFunc(s.channels[channelID], func(id string) bool { return id == messageID })
	s.publishLocked(platform.Event{
		Type:      platform.EventMessageDeleted,
		ChannelID: channelID,
		Message:   &platform.Message{ID: messageID, ChannelID: channelID},
	})
}

func (s *Service) React(ctx context.Context, channelID, messageID, emoji string) error {
	return s.AddReaction(ctx, channelID, messageID, emoji, s.selfID)
}

// AddReaction is a no-op when the user already holds that reaction.
func (s *Service) AddReaction(ctx context.Context, channelID, messageID, emoji, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookupLocked(channelID, messageID); err != nil {
		return err
	}
	byEmoji := s.reactions[messageID]
	if byEmoji == nil {
		byEmoji = make(map[string][]string)
		s.reactions[messageID] = byEmoji
	}
	if slices.Contains(byEmoji[emoji], userID) {
		return nil
	}
	byEmoji[emoji] = append(byEmoji[emoji], userID)
	s.publishLocked(platform.Event{
		Type:      platform.EventReactionAdded,
		ChannelID: channelID,
		Reaction:  &platform.Reaction{ChannelID: channelID, MessageID: messageID, UserID: userID, Emoji: emoji},
	})
	return nil
}

// RemoveReaction is a no-op when the user does not hold that reaction.
func (s *Service) RemoveReaction(ctx context.Context, channelID, messageID, emoji, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookupLocked(channelID, messageID); err != nil {
		return err
	}
	users := s.reactions[messageID][emoji]
	if !slices.Contains(users, userID) {
		return nil
	}
	s.reactions[messageID][emoji] = slices.DeleteFunc(users, func(id string) bool { return id == userID })
	s.publishLocked(platform.Event{
		Type:      platform.EventReactionRemoved,
		ChannelID: channelID,
		Reaction:  &platform.Reaction{ChannelID: channelID, MessageID: messageID, UserID: userID, Emoji: emoji},
	})
	return nil
}

func (s *Service) SendDirect(ctx context.Context, userID string, p platform.Payload) (platform.Message, error) {
	if err := ctx.Err(); err != nil {
		return platform.Message{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := platform.Message{
		ID:        uuid.NewString(),
		AuthorID:  s.selfID,
		AuthorBot: true,
		Content:   p.Content,
		Embed:     p.Embed,
		CreatedAt: s.clock.Now(),
	}
	s.direct[userID] = append(s.direct[userID], msg)
	s.publishLocked(platform.Event{Type: platform.EventDirectMessage, RecipientID: userID, Message: copyMessage(&msg)})
	return msg, nil
}

func (s *Service) Message(messageID string) (platform.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[messageID]
	if !ok {
		return platform.Message{}, false
	}
	return *copyMessage(msg), true
}

// History returns a channel's messages, oldest first.
func (s *Service) History(channelID string) []platform.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]platform.Message, 0, len(s.channels[channelID]))
	for _, id := range s.channels[channelID] {
		out = append(out, *copyMessage(s.messages[id]))
	}
	return out
}

// Reactions returns the users holding emoji on a message, in reaction order.
func (s *Service) Reactions(messageID, emoji string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.reactions[messageID][emoji])
}

func (s *Service) DirectMessages(userID string) []platform.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.direct[userID])
}

func (s *Service) lookupLocked(channelID, messageID string) (*platform.Message, error) {
	msg, ok := s.messages[messageID]
	if !ok || msg.ChannelID != channelID {
		return nil, platform.ErrUnknownMessage
	}
	return msg, nil
}

func copyMessage(m *platform.Message) *platform.Message {
	c := *m
	c.Mentions = slices.Clone(m.Mentions)
	if m.Embed != nil {
		e := *m.Embed
		e.Fields = slices.Clone(m.Embed.Fields)
		c.Embed = &e
	}
	return &c
}
