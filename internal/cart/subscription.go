package cart

import "sync"

// Subscription receives a Cart after every change. Updates holds at most one
// pending snapshot; a slow reader only ever sees the newest cart.
type Subscription struct {
	Updates <-chan Cart
	cancel  func()
}

// Close terminates the subscription and closes Updates.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Subscribe registers for cart changes. The channel is closed when the
// subscription or the store is closed.
func (s *Store) Subscribe() Subscription {
	sub := newSubscriber()
	s.mu.Lock()
	if s.closed {
		sub.close()
	} else {
		s.subs[sub] = struct{}{}
	}
	s.mu.Unlock()
	return Subscription{
		Updates: sub.channel(),
		cancel: func() {
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
			sub.close()
		},
	}
}

func (s *Store) publishLocked(c Cart) {
	for sub := range s.subs {
		sub.deliver(c)
	}
}

type subscriber struct {
	ch      chan Cart
	closed  bool
	closeMu sync.Mutex
}

func newSubscriber() *subscriber {
	return &subscriber{ch: make(chan Cart, 1)}
}

func (s *subscriber) channel() <-chan Cart {
	return s.ch
}

// deliver replaces an unread snapshot with c.
func (s *subscriber) deliver(c Cart) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- c:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- c
}

func (s *subscriber) close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
