package hub

import (
	"context"

	"github.com/DoyleJ11/ready-check/internal/lobby"
)

type HubMsg interface{ isHubMsg() }

// Bind routes signals on MessageID to Lobby.
type Bind struct {
	MessageID string
	Lobby     *lobby.Lobby
}

type Unbind struct {
	MessageID string
}

type Lookup struct {
	MessageID string
	Reply     chan *lobby.Lobby
}

// Count reports bound messages and the distinct lobbies behind them.
type Count struct {
	Reply chan Counts
}

type Counts struct {
	Messages int
	Lobbies  int
}

type ShutdownHub struct{}

func (Bind) isHubMsg()        {}
func (Unbind) isHubMsg()      {}
func (Lookup) isHubMsg()      {}
func (Count) isHubMsg()       {}
func (ShutdownHub) isHubMsg() {}

// Hub maps platform message IDs to the lobby that owns them: every lobby
// view and every open join prompt.
type Hub struct {
	inbox    chan HubMsg
	messages map[string]*lobby.Lobby
	ctx      context.Context
	cancel   context.CancelFunc
}

var _ lobby.Registry = (*Hub)(nil)

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		messages: make(map[string]*lobby.Lobby),
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Bind:
				h.messages[msg.MessageID] = msg.Lobby

			case Unbind:
				delete(h.messages, msg.MessageID)

			case Lookup:
				msg.Reply <- h.messages[msg.MessageID] // may be nil

			case Count:
				lobbies := make(map[*lobby.Lobby]struct{}, len(h.messages))
				for _, lb := range h.messages {
					lobbies[lb] = struct{}{}
				}
				msg.Reply <- Counts{Messages: len(h.messages), Lobbies: len(lobbies)}

			case ShutdownHub:
				seen := make(map[*lobby.Lobby]struct{}, len(h.messages))
				for _, lb := range h.messages {
					if _, ok := seen[lb]; ok {
						continue
					}
					seen[lb] = struct{}{}
					// A lobby may itself be blocked binding with us.
					go lb.Deliver(context.Background(), lobby.Shutdown{})
				}
				clear(h.messages)
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) send(m HubMsg) bool {
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) Bind(messageID string, l *lobby.Lobby) {
	h.send(Bind{MessageID: messageID, Lobby: l})
}

func (h *Hub) Unbind(messageID string) {
	h.send(Unbind{MessageID: messageID})
}

// Lookup finds the lobby owning messageID.
func (h *Hub) Lookup(ctx context.Context, messageID string) (*lobby.Lobby, bool) {
	reply := make(chan *lobby.Lobby, 1)
	if !h.send(Lookup{MessageID: messageID, Reply: reply}) {
		return nil, false
	}
	select {
	case lb := <-reply:
		return lb, lb != nil
	case <-ctx.Done():
		return nil, false
	case <-h.ctx.Done():
		return nil, false
	}
}

func (h *Hub) Count(ctx context.Context) Counts {
	reply := make(chan Counts, 1)
	if !h.send(Count{Reply: reply}) {
		return Counts{}
	}
	select {
	case c := <-reply:
		return c
	case <-ctx.Done():
		return Counts{}
	case <-h.ctx.Done():
		return Counts{}
	}
}

// Shutdown stops every bound lobby and the hub itself.
func (h *Hub) Shutdown() {
	h.send(ShutdownHub{})
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }
