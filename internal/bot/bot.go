// Package bot connects the platform event stream to ready check lobbies:
// it turns prefixed commands into new lobbies and forwards reactions to the
// lobby owning the reacted message.
package bot

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/ready-check/internal/hub"
	"github.com/DoyleJ11/ready-check/internal/lobby"
	"github.com/DoyleJ11/ready-check/internal/platform"
)

// Platform is the messaging platform the bot is hosted in.
type Platform interface {
	platform.Messenger
	SelfID() string
	Subscribe() (<-chan platform.Event, func())
}

type command func(ctx context.Context, msg platform.Message, args []string) error

type Bot struct {
	platform Platform
	hub      *hub.Hub
	deps     lobby.Deps
	prefix   string
	log      *zap.Logger
	commands map[string]command
	wg       sync.WaitGroup

	mu         sync.Mutex
	forwarders map[*lobby.Lobby]*forwarder
}

// New builds a bot. deps is the template every new lobby is opened with;
// its Messenger, Registry and SelfID are filled in from p and h.
func New(p Platform, h *hub.Hub, deps lobby.Deps, prefix string, log *zap.Logger) *Bot {
	deps.Messenger = p
	deps.Registry = h
	deps.SelfID = p.SelfID()
	deps.Log = log

	b := &Bot{
		platform: p,
		hub:      h,
		deps:     deps,
		prefix:     prefix,
		log:        log,
		forwarders: make(map[*lobby.Lobby]*forwarder),
	}
	b.commands = map[string]command{
		"ready": b.readyCheck,
		"rc":    b.readyCheck,
		"r":     b.readyCheck,
	}
	return b
}

// Run consumes platform events until ctx ends, then waits for in-flight
// commands and reaction forwarding.
func (b *Bot) Run(ctx context.Context) error {
	evts, unsubscribe := b.platform.Subscribe()
	defer unsubscribe()
	defer b.wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.log.Info("bot listening", zap.String("prefix", b.prefix), zap.String("self_id", b.deps.SelfID))
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-evts:
			if !ok {
				return nil
			}
			b.handle(ctx, evt)
		}
	}
}

func (b *Bot) handle(ctx context.Context, evt platform.Event) {
	switch evt.Type {
	case platform.EventMessageCreated:
		if evt.Message != nil {
			b.onMessage(ctx, *evt.Message)
		}
	case platform.EventReactionAdded, platform.EventReactionRemoved:
		if evt.Reaction != nil {
			b.onReaction(ctx, *evt.Reaction, evt.Type == platform.EventReactionRemoved)
		}
	}
}

// onMessage runs a command when the first token is exactly the prefix.
// Commands run on their own goroutine; opening a lobby takes several
// platform round trips.
func (b *Bot) onMessage(ctx context.Context, msg platform.Message) {
	if msg.AuthorBot && msg.AuthorID != b.deps.SelfID {
		return
	}
	args, ok := ParseCommand(b.prefix, msg.Content)
	if !ok {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		log := b.log.With(zap.String("channel_id", msg.ChannelID), zap.String("actor_id", msg.AuthorID))

		if err := b.platform.Delete(ctx, msg.ChannelID, msg.ID); err != nil {
			log.Error("delete command message", zap.Error(err))
			return
		}
		if len(args) == 0 {
			return
		}
		name := strings.ToLower(args[0])
		cmd, found := b.commands[name]
		if !found {
			log.Info("unknown command", zap.String("command", name))
			return
		}
		if err := cmd(ctx, msg, args[1:]); err != nil {
			log.Error("command failed", zap.String("command", name), zap.Error(err))
		}
	}()
}

func (b *Bot) readyCheck(ctx context.Context, msg platform.Message, _ []string) error {
	_, err := lobby.Open(ctx, b.deps, msg.ChannelID, msg.AuthorID, b.ResolveMentions(msg))
	return err
}

// ResolveMentions returns the users mentioned in msg, in order, without the
// bot itself.
func (b *Bot) ResolveMentions(msg platform.Message) []string {
	return slices.DeleteFunc(slices.Clone(msg.Mentions), func(id string) bool { return id == b.deps.SelfID })
}

func (b *Bot) onReaction(ctx context.Context, r platform.Reaction, removed bool) {
	if r.UserID == b.deps.SelfID {
		return
	}
	lb, ok := b.hub.Lookup(ctx, r.MessageID)
	if !ok {
		return
	}
	b.forward(ctx, lb, lobby.Interaction{
		Removed:   removed,
		MessageID: r.MessageID,
		ActorID:   r.UserID,
		Emoji:     r.Emoji,
	})
}

// ParseCommand splits content into arguments when its first token is
// exactly prefix.
func ParseCommand(prefix, content string) ([]string, bool) {
	if !strings.HasPrefix(content, prefix) {
		return nil, false
	}
	args := strings.Fields(content)
	if len(args) == 0 || args[0] != prefix {
		return nil, false
	}
	return args[1:], true
}
