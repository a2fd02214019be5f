package session

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/restx/pkg/domain"
)

// ErrNoActiveSession is returned when a request context carries no session slot.
var ErrNoActiveSession = errors.New("no active session in context")

type slotKey struct{}

// slot is the per-request holder of the active session.
// Handlers replace its content; the dispatcher installs and clears it.
type slot struct {
	mu      sync.Mutex
	current *Session
}

// Install makes s the active session of the returned context.
// The release function clears the slot and must be called when the request ends,
// on every path.
func Install(ctx context.Context, s *Session) (context.Context, func()) {
	sl := &slot{current: s}
	release := func() {
		sl.mu.Lock()
		sl.current = nil
		sl.mu.Unlock()
	}
	return context.WithValue(ctx, slotKey{}, sl), release
}

func slotFrom(ctx context.Context) *slot {
	sl, _ := ctx.Value(slotKey{}).(*slot)
	return sl
}

// Current returns the active session, or nil if none is installed.
func Current(ctx context.Context) *Session {
	sl := slotFrom(ctx)
	if sl == nil {
		return nil
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.current
}

// Replace makes s the active session. s must not be nil; use Clear to drop values.
func Replace(ctx context.Context, s *Session) error {
	sl := slotFrom(ctx)
	if sl == nil {
		return ErrNoActiveSession
	}
	if s == nil {
		return domain.InvalidArgument("session must not be nil")
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.current == nil {
		return ErrNoActiveSession
	}
	sl.current = s
	return nil
}

// update applies fn to the active session and installs the result.
func update(ctx context.Context, fn func(*Session) (*Session, error)) error {
	sl := slotFrom(ctx)
	if sl == nil {
		return ErrNoActiveSession
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.current == nil {
		return ErrNoActiveSession
	}
	next, err := fn(sl.current)
	if err != nil {
		return err
	}
	sl.current = next
	return nil
}

// Define sets key to valueID on the active session.
func Define(ctx context.Context, key, valueID string) error {
	return update(ctx, func(s *Session) (*Session, error) {
		return s.With(key, valueID)
	})
}

// Set encodes value through entry and stores it on the active session.
func Set[T any](ctx context.Context, entry *TypedEntry[T], value T) error {
	id, err := entry.encode(value)
	if err != nil {
		return err
	}
	return Define(ctx, entry.key, id)
}

// Remove deletes key from the active session.
func Remove(ctx context.Context, key string) error {
	return update(ctx, func(s *Session) (*Session, error) {
		return s.Without(key), nil
	})
}

// Clear empties the active session.
func Clear(ctx context.Context) error {
	return update(ctx, func(s *Session) (*Session, error) {
		return s.Clear(), nil
	})
}
