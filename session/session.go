package session

import (
	"context"
	"sync"
)

// Session is an exclusive access gate with two states, closed and open. At
// most one caller holds it open at any time. Acquire blocks while another
// holder is active; waiters are granted in FIFO order, so a steady stream of
// new callers cannot starve one that is already queued. A holder that never
// releases starves everybody, there is no timeout beyond the caller's context.
type Session struct {
	sync.Mutex

	open    bool
	waiters []chan struct{}
}

// Acquire opens the session for the caller. If another caller holds it, the
// caller is queued and blocks until released to or the context expires.
func (s *Session) Acquire(ctx context.Context) error {
	s.Lock()
	if !s.open {
		s.open = true
		s.Unlock()
		return nil
	}

	grant := make(chan struct{})
	s.waiters = append(s.waiters, grant)
	s.Unlock()

	select {
	case <-grant:
		return nil

	case <-ctx.Done():
		s.Lock()
		for i, w := range s.waiters {
			if w == grant {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				s.Unlock()
				return ctx.Err()
			}
		}
		s.Unlock()

		/* Release raced with the cancellation and already granted us the
		 * session, pass it on to the next waiter */
		s.Release()
		return ctx.Err()
	}
}

// Release closes the session. If callers are queued the oldest one is granted
// immediately. Releasing a session that is not open is a no-op.
func (s *Session) Release() {
	s.Lock()
	defer s.Unlock()

	if !s.open {
		return
	}

	if len(s.waiters) > 0 {
		grant := s.waiters[0]
		s.waiters = s.waiters[1:]

		/* Ownership transfers directly, the session stays open */
		close(grant)
		return
	}

	s.open = false
}
