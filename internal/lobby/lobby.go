package lobby

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ready-check/internal/engine"
	"github.com/DoyleJ11/ready-check/internal/events"
	"github.com/DoyleJ11/ready-check/internal/platform"
)

var ErrClosed = errors.New("lobby closed")

type Msg interface{ isLobbyMsg() }

// Interaction is a reaction added to or removed from a message this lobby
// owns.
type Interaction struct {
	Removed   bool
	MessageID string
	ActorID   string
	Emoji     string
}

func (Interaction) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Shutdown stops the actor without touching any message.
type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

// Registry maps platform message IDs to the lobby that owns them.
type Registry interface {
	Bind(messageID string, l *Lobby)
	Unbind(messageID string)
}

// Countdown runs the final countdown in a channel.
type Countdown interface {
	Run(ctx context.Context, channelID, completion string) error
}

type Deps struct {
	Messenger platform.Messenger
	Registry  Registry
	Countdown Countdown
	Events    events.Sink
	Clock     clockwork.Clock
	Log       *zap.Logger
	// SelfID is the bot's own user; its reactions are never routed.
	SelfID      string
	SettleDelay time.Duration
	GoDelay     time.Duration
}

type View struct {
	LobbyID       string
	ChannelID     string
	Lifecycle     string
	Epoch         int
	ViewID        string
	Participants  []engine.Participant
	PendingAlerts []string
	PendingJoins  []string
}

type Lobby struct {
	id        string
	channelID string
	deps      Deps
	log       *zap.Logger

	inbox     chan Msg
	state     engine.State
	lifecycle *fsm.FSM
	epoch     int
	viewID    string
	alerts    []string
	joins     map[string]*approval // by requester
	prompts   map[string]*approval // by prompt message

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	final  View
}

// Open announces a new lobby in channelID, posts its view and starts the
// actor. The lobby lives until it completes, is cancelled, or ctx ends.
func Open(ctx context.Context, deps Deps, channelID, initiatorID string, invitedIDs []string) (*Lobby, error) {
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	lctx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	l := &Lobby{
		id:        id,
		channelID: channelID,
		deps:      deps,
		log:       deps.Log.With(zap.String("lobby_id", id), zap.String("channel_id", channelID)),
		inbox:     make(chan Msg, 64),
		state:     engine.NewState(initiatorID, invitedIDs),
		lifecycle: newLifecycle(),
		joins:     make(map[string]*approval),
		prompts:   make(map[string]*approval),
		ctx:       lctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	if err := l.initialize(lctx, initiatorID); err != nil {
		l.abandon(err)
		l.finish()
		return nil, fmt.Errorf("open lobby: %w", err)
	}

	go l.loop()
	return l, nil
}

func (l *Lobby) ID() string        { return l.id }
func (l *Lobby) ChannelID() string { return l.channelID }

// Done is closed once the actor has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Deliver queues m for the actor. It fails with ErrClosed once the lobby
// has ended.
func (l *Lobby) Deliver(ctx context.Context, m Msg) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.inbox <- m:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State reports a consistent snapshot. A closed lobby reports how it ended.
func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := l.Deliver(ctx, GetState{Reply: reply}); err != nil {
		if errors.Is(err, ErrClosed) {
			return l.final, nil
		}
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		return l.final, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (l *Lobby) loop() {
	defer l.finish()
	for {
		select {
		case <-l.ctx.Done():
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Interaction:
				if err := l.route(l.ctx, msg); err != nil {
					if l.ctx.Err() == nil {
						l.abandon(err)
					}
					return
				}

			case GetState:
				msg.Reply <- l.view()

			case Shutdown:
				return
			}

			if !l.active() {
				return
			}
		}
	}
}

func (l *Lobby) active() bool { return l.lifecycle.Is(LifecycleActive) }

func (l *Lobby) view() View {
	return View{
		LobbyID:       l.id,
		ChannelID:     l.channelID,
		Lifecycle:     l.lifecycle.Current(),
		Epoch:         l.epoch,
		ViewID:        l.viewID,
		Participants:  slices.Clone(l.state.Participants),
		PendingAlerts: slices.Clone(l.alerts),
		PendingJoins:  slices.Sorted(maps.Keys(l.joins)),
	}
}

// finish releases every registry binding and records the final snapshot.
func (l *Lobby) finish() {
	if l.viewID != "" {
		l.deps.Registry.Unbind(l.viewID)
	}
	for promptID := range l.prompts {
		l.deps.Registry.Unbind(promptID)
	}
	l.final = l.view()
	l.cancel()
	close(l.done)
	l.log.Debug("lobby closed", zap.String("lifecycle", l.final.Lifecycle))
}

// abandon gives up on a lobby whose platform state can no longer be trusted.
func (l *Lobby) abandon(cause error) {
	l.log.Error("abandoning lobby", zap.Error(cause))
	if !l.active() {
		return
	}
	if err := l.lifecycle.Event(context.Background(), eventCancel); err != nil {
		l.log.Warn("lifecycle transition failed", zap.Error(err))
	}
	l.publish(events.TypeAbandoned, "", "abandoned")
}

func (l *Lobby) publish(eventType, actorID, reason string) {
	evt, err := events.New(eventType, l.id, l.channelID, l.deps.Clock.Now(), events.LifecyclePayload{
		ActorID:      actorID,
		Participants: l.state.IDs(),
		Reason:       reason,
		Epoch:        l.epoch,
	})
	if err == nil {
		// Terminal events go out even when the lobby context has ended.
		err = l.deps.Events.Publish(context.WithoutCancel(l.ctx), evt)
	}
	if err != nil {
		l.log.Warn("publish lifecycle event", zap.String("event_type", eventType), zap.Error(err))
	}
}
