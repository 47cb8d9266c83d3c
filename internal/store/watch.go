package store

import (
	"context"
	"sync"
)

// Subscription is a live query over the whole tasks table. C receives the
// full task list once on subscribe and again after every write. Pending
// deliveries are coalesced, so a slow reader only ever sees the latest state.
// C is closed when the subscription ends.
type Subscription struct {
	C <-chan []Task

	out   chan []Task
	dirty chan struct{}
	done  chan struct{}
	once  sync.Once

	mu  sync.Mutex
	err error
}

// Watch starts a live query bound to ctx. Cancelling ctx or calling Close
// ends it.
func (s *Store) Watch(ctx context.Context) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &Subscription{
		out:   make(chan []Task),
		dirty: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	sub.C = sub.out
	sub.dirty <- struct{}{}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	go s.serve(ctx, sub)
	return sub, nil
}

func (s *Store) serve(ctx context.Context, sub *Subscription) {
	defer func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		close(sub.out)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case <-sub.dirty:
		}
		select {
		case <-sub.done:
			return
		default:
		}

		tasks, err := s.ListTasks(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			sub.setErr(err)
			s.log.Errorw("live query failed", "error", err)
			continue
		}
		sub.setErr(nil)

		select {
		case sub.out <- tasks:
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		}
	}
}

// changed marks every live subscription for re-delivery.
func (s *Store) changed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		select {
		case sub.dirty <- struct{}{}:
		default:
		}
	}
}

// Close ends the subscription. It is safe to call more than once.
func (sub *Subscription) Close() {
	sub.once.Do(func() { close(sub.done) })
}

// Err reports the error of the most recent re-query, if it failed.
func (sub *Subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

func (sub *Subscription) setErr(err error) {
	sub.mu.Lock()
	sub.err = err
	sub.mu.Unlock()
}
