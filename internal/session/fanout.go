package session

import (
	"sync"

	"github.com/Mohsinsiddi/w3token/internal/provider"
)

// subscriber owns one downstream stream. Events are queued without bound so a
// slow reader delays only itself; delivery order is the order of push.
type subscriber struct {
	out  chan provider.Event
	wake chan struct{}
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	queue []provider.Event
}

func newSubscriber() *subscriber {
	s := &subscriber{
		out:  make(chan provider.Event),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *subscriber) push(ev provider.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) run() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
	}
}
