package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/ready-check/internal/chat"
	"github.com/DoyleJ11/ready-check/internal/hub"
	"github.com/DoyleJ11/ready-check/internal/lobby"
	"github.com/DoyleJ11/ready-check/internal/platform"
)

type recordingCountdown struct {
	mu   sync.Mutex
	runs []string
}

func (c *recordingCountdown) Run(_ context.Context, _, completion string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = append(c.runs, completion)
	return nil
}

func (c *recordingCountdown) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.runs)
}

type fixture struct {
	ctx  context.Context
	chat *chat.Service
	hub  *hub.Hub
	cd   *recordingCountdown
}

// stallingPlatform holds edits of one message until released.
type stallingPlatform struct {
	*chat.Service
	mu      sync.Mutex
	stalled string
	release chan struct{}
}

func (p *stallingPlatform) stall(messageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stalled = messageID
}

func (p *stallingPlatform) Edit(ctx context.Context, channelID, messageID string, payload platform.Payload) (platform.Message, error) {
	p.mu.Lock()
	stalled := p.stalled == messageID
	p.mu.Unlock()
	if stalled {
		select {
		case <-p.release:
		case <-ctx.Done():
			return platform.Message{}, ctx.Err()
		}
	}
	return p.Service.Edit(ctx, channelID, messageID, payload)
}

func start(t *testing.T) *fixture {
	t.Helper()
	f, _ := startWith(t, nil)
	return f
}

// startWith runs a bot on wrap(chat) when wrap is set.
func startWith(t *testing.T, wrap func(*chat.Service) Platform) (*fixture, Platform) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	clock := clockwork.NewFakeClock()

	f := &fixture{
		ctx:  ctx,
		chat: chat.New("bot", clock),
		hub:  hub.NewHub(ctx),
		cd:   &recordingCountdown{},
	}
	var p Platform = f.chat
	if wrap != nil {
		p = wrap(f.chat)
	}
	// Lobbies outlive the test body, so they cannot log to t.
	b := New(p, f.hub, lobby.Deps{Countdown: f.cd, Clock: clock}, "!rc", zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Run subscribes asynchronously; wait until it is listening.
	require.Eventually(t, func() bool { return f.chat.Subscribers() > 0 }, time.Second, 5*time.Millisecond)
	return f, p
}

func (f *fixture) viewMessage(t *testing.T, channelID string) platform.Message {
	t.Helper()
	var view platform.Message
	require.Eventually(t, func() bool {
		for _, m := range f.chat.History(channelID) {
			if m.Embed != nil && m.Embed.Title == "Ready Check Lobby" {
				// The menu is attached last.
				if len(f.chat.Reactions(m.ID, lobby.KindCancel.Emoji())) == 1 {
					view = m
					return true
				}
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	return view
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		content string
		args    []string
		ok      bool
	}{
		{"!rc ready <@u2>", []string{"ready", "<@u2>"}, true},
		{"!rc   r", []string{"r"}, true},
		{"!rc", []string{}, true},
		{"!rc-test ready", nil, false},
		{"hello !rc ready", nil, false},
		{"", nil, false},
	}
	for _, tc := range cases {
		args, ok := ParseCommand("!rc", tc.content)
		assert.Equal(t, tc.ok, ok, tc.content)
		if tc.ok {
			assert.Equal(t, tc.args, args, tc.content)
		}
	}
}

func TestResolveMentionsSkipsBot(t *testing.T) {
	b := New(chat.New("bot", clockwork.NewFakeClock()), nil, lobby.Deps{}, "!rc", zaptest.NewLogger(t))
	got := b.ResolveMentions(platform.Message{Mentions: []string{"u2", "bot", "u3"}})
	assert.Equal(t, []string{"u2", "u3"}, got)
}

func TestCommandOpensLobby(t *testing.T) {
	f := start(t)

	cmd, err := f.chat.Post(f.ctx, "general", "u1", "!rc ready <@!u2> <@u3>")
	require.NoError(t, err)

	view := f.viewMessage(t, "general")
	assert.Contains(t, view.Embed.Description, "<@!u1>")
	assert.Contains(t, view.Embed.Description, "<@!u2>")
	assert.Contains(t, view.Embed.Description, "<@!u3>")

	_, ok := f.chat.Message(cmd.ID)
	assert.False(t, ok, "command message should be deleted")

	lb, ok := f.hub.Lookup(f.ctx, view.ID)
	require.True(t, ok)
	v, err := lb.State(f.ctx)
	require.NoError(t, err)
	assert.Len(t, v.Participants, 3)
}

func TestIgnoredMessages(t *testing.T) {
	f := start(t)

	_, err := f.chat.Post(f.ctx, "general", "u1", "!rcready")
	require.NoError(t, err)
	_, err = f.chat.Post(f.ctx, "general", "u1", "just chatting")
	require.NoError(t, err)
	// Deleted like any prefixed message, but nothing runs.
	unknown, err := f.chat.Post(f.ctx, "general", "u1", "!rc dance")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := f.chat.Message(unknown.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)

	for _, m := range f.chat.History("general") {
		assert.Nil(t, m.Embed)
		assert.False(t, strings.HasPrefix(m.Content, "!rc "))
	}
	assert.Len(t, f.chat.History("general"), 2)
	assert.Zero(t, f.hub.Count(f.ctx).Lobbies)
}

func TestReactionsDriveLobbyToCountdown(t *testing.T) {
	f := start(t)

	_, err := f.chat.Post(f.ctx, "general", "u1", "!rc r <@u2>")
	require.NoError(t, err)
	view := f.viewMessage(t, "general")

	require.NoError(t, f.chat.AddReaction(f.ctx, "general", view.ID, lobby.KindReady.Emoji(), "u1"))
	require.NoError(t, f.chat.AddReaction(f.ctx, "general", view.ID, lobby.KindReady.Emoji(), "u2"))

	require.Eventually(t, func() bool { return f.cd.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return f.hub.Count(f.ctx) == hub.Counts{} }, time.Second, 5*time.Millisecond)
	_, ok := f.chat.Message(view.ID)
	assert.False(t, ok)
}

func TestNonMemberReactionIsRetracted(t *testing.T) {
	f := start(t)

	_, err := f.chat.Post(f.ctx, "general", "u1", "!rc r")
	require.NoError(t, err)
	view := f.viewMessage(t, "general")

	require.NoError(t, f.chat.AddReaction(f.ctx, "general", view.ID, lobby.KindReady.Emoji(), "u9"))
	require.Eventually(t, func() bool {
		return !slices.Contains(f.chat.Reactions(view.ID, lobby.KindReady.Emoji()), "u9")
	}, time.Second, 5*time.Millisecond)
}

func TestBusyLobbyDoesNotStallOthers(t *testing.T) {
	sp := &stallingPlatform{release: make(chan struct{})}
	f, _ := startWith(t, func(svc *chat.Service) Platform {
		sp.Service = svc
		return sp
	})
	t.Cleanup(func() { close(sp.release) })

	_, err := f.chat.Post(f.ctx, "general", "u1", "!rc r <@u2>")
	require.NoError(t, err)
	busy := f.viewMessage(t, "general")

	// u1 readying re-renders the view, which hangs; the flood overfills its inbox.
	sp.stall(busy.ID)
	require.NoError(t, f.chat.AddReaction(f.ctx, "general", busy.ID, lobby.KindReady.Emoji(), "u1"))
	for i := range 100 {
		require.NoError(t, f.chat.AddReaction(f.ctx, "general", busy.ID, lobby.KindAlert.Emoji(), fmt.Sprintf("x%d", i)))
	}

	_, err = f.chat.Post(f.ctx, "other", "u5", "!rc r")
	require.NoError(t, err)
	view := f.viewMessage(t, "other")

	require.NoError(t, f.chat.AddReaction(f.ctx, "other", view.ID, lobby.KindReady.Emoji(), "u9"))
	require.Eventually(t, func() bool {
		return !slices.Contains(f.chat.Reactions(view.ID, lobby.KindReady.Emoji()), "u9")
	}, time.Second, 5*time.Millisecond)
}
