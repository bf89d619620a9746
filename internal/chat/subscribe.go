package chat

import (
	"sync"

	"github.com/DoyleJ11/ready-check/internal/platform"
)

// subscriber buffers events without bound so publishing never waits on a
// slow reader. A platform call made while handling an event must not be able
// to block on that same event stream.
type subscriber struct {
	mu    sync.Mutex
	queue []platform.Event
	wake  chan struct{}
	out   chan platform.Event
	done  chan struct{}
	once  sync.Once
}

// Subscribe streams every event published after the call. The returned func
// stops the stream and closes the channel.
func (s *Service) Subscribe() (<-chan platform.Event, func()) {
	sub := &subscriber{
		wake: make(chan struct{}, 1),
		out:  make(chan platform.Event),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	go sub.pump()

	return sub.out, func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		sub.once.Do(func() { close(sub.done) })
	}
}

// Subscribers reports how many streams are open.
func (s *Service) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Service) publishLocked(evt platform.Event) {
	for sub := range s.subs {
		sub.push(evt)
	}
}

func (sub *subscriber) push(evt platform.Event) {
	sub.mu.Lock()
	sub.queue = append(sub.queue, evt)
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *subscriber) pump() {
	defer close(sub.out)
	for {
		sub.mu.Lock()
		if len(sub.queue) == 0 {
			sub.mu.Unlock()
			select {
			case <-sub.wake:
				continue
			case <-sub.done:
				return
			}
		}
		evt := sub.queue[0]
		sub.queue[0] = platform.Event{}
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		select {
		case sub.out <- evt:
		case <-sub.done:
			return
		}
	}
}
