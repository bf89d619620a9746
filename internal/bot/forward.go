package bot

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/ready-check/internal/lobby"
)

// forwarder feeds one lobby its reactions in arrival order. A lobby busy
// with a countdown only ever stalls its own forwarder.
type forwarder struct {
	mu    sync.Mutex
	queue []lobby.Interaction
	wake  chan struct{}
}

func (f *forwarder) push(in lobby.Interaction) {
	f.mu.Lock()
	f.queue = append(f.queue, in)
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *forwarder) take() []lobby.Interaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := f.queue
	f.queue = nil
	return batch
}

func (b *Bot) forward(ctx context.Context, lb *lobby.Lobby, in lobby.Interaction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.forwarders[lb]
	if !ok {
		f = &forwarder{wake: make(chan struct{}, 1)}
		b.forwarders[lb] = f
		b.wg.Add(1)
		go b.drain(ctx, lb, f)
	}
	f.push(in)
}

func (b *Bot) drain(ctx context.Context, lb *lobby.Lobby, f *forwarder) {
	defer b.wg.Done()
	defer func() {
		b.mu.Lock()
		delete(b.forwarders, lb)
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-lb.Done():
			return
		case <-f.wake:
		}
		for _, in := range f.take() {
			err := lb.Deliver(ctx, in)
			switch {
			case err == nil:
			case errors.Is(err, lobby.ErrClosed), errors.Is(err, context.Canceled):
				b.log.Debug("dropped reaction", zap.String("message_id", in.MessageID), zap.Error(err))
				return
			default:
				b.log.Warn("deliver reaction", zap.String("message_id", in.MessageID), zap.Error(err))
				return
			}
		}
	}
}
