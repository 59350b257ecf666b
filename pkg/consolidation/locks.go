package consolidation

import (
	"context"
	"errors"
	"sync"
)

// ErrProfileLocked reports that another operation holds the profile's lock.
var ErrProfileLocked = errors.New("profile is locked by another operation")

// ProfileLocks serializes consolidation work per profile. Different profiles
// proceed in parallel; a second writer to the same profile waits until the
// first releases or its context expires.
type ProfileLocks struct {
	mu    sync.Mutex
	locks map[string]*profileLock
}

type profileLock struct {
	ch   chan struct{}
	refs int
}

// NewProfileLocks creates a ProfileLocks.
func NewProfileLocks() *ProfileLocks {
	return &ProfileLocks{locks: map[string]*profileLock{}}
}

// Acquire takes the lock for a profile, blocking until it is free or ctx is
// done. The returned release function must be called exactly once.
func (l *ProfileLocks) Acquire(ctx context.Context, profileID string) (func(), error) {
	lock := l.ref(profileID)

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(profileID)
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-lock.ch
			l.unref(profileID)
		})
	}
	return release, nil
}

// TryAcquire takes the lock only if it is immediately free.
func (l *ProfileLocks) TryAcquire(profileID string) (func(), bool) {
	lock := l.ref(profileID)

	select {
	case lock.ch <- struct{}{}:
	default:
		l.unref(profileID)
		return nil, false
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-lock.ch
			l.unref(profileID)
		})
	}
	return release, true
}

func (l *ProfileLocks) ref(profileID string) *profileLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[profileID]
	if !ok {
		lock = &profileLock{ch: make(chan struct{}, 1)}
		l.locks[profileID] = lock
	}
	lock.refs++
	return lock
}

func (l *ProfileLocks) unref(profileID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[profileID]
	if !ok {
		return
	}
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, profileID)
	}
}
