// Package locker provides per-key mutual exclusion with a bounded wait
// for the booking core.  Local serializes goroutines of one process;
// Redis serializes every replica that shares the Redis server.
package locker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Felicien407/car-rental-system/internal/booking"
)

// Local is an in-process keyed lock.  Keys that nobody holds or waits for
// are dropped, so memory stays proportional to contention, not to fleet
// size.
type Local struct {
	wait  time.Duration
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{} // buffered(1): a value in the channel means held
	refs int           // holder + waiters
}

// NewLocal returns a Local lock that gives up after wait.
func NewLocal(wait time.Duration) *Local {
	if wait <= 0 {
		wait = 3 * time.Second
	}
	return &Local{wait: wait, slots: make(map[string]*slot)}
}

// Lock implements booking.Locker.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.release(key, s)
			})
		}, nil
	case <-timer.C:
		l.release(key, s)
		return nil, fmt.Errorf("%w: waited %s for %s", booking.ErrBusy, l.wait, key)
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}
}

func (l *Local) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
