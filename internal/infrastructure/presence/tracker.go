package presence

import (
	"context"
	"sync"
	"time"

	"griya/pkg/logger"
)

// Tracker debounces per-user activity into online/offline transitions.
// Every activity signal re-arms the user's expiry timer; the user only goes
// offline once the timer fires with no activity in between, which keeps
// rapid reconnects from flapping presence events.
type Tracker struct {
	mu      sync.Mutex
	store   Store
	timeout time.Duration
	timers  map[string]*time.Timer
	online  map[string]bool

	onOnline  func(userID string)
	onOffline func(userID string, lastSeen time.Time)
}

func NewTracker(store Store, timeout time.Duration) *Tracker {
	return &Tracker{
		store:   store,
		timeout: timeout,
		timers:  make(map[string]*time.Timer),
		online:  make(map[string]bool),
	}
}

// SetHooks installs the transition callbacks. Hooks run outside the
// tracker lock, so they may call back into the tracker.
func (t *Tracker) SetHooks(onOnline func(userID string), onOffline func(userID string, lastSeen time.Time)) {
	t.onOnline = onOnline
	t.onOffline = onOffline
}

// MarkActive records activity for the user and returns true when this
// signal flipped them from offline to online.
func (t *Tracker) MarkActive(ctx context.Context, userID string) bool {
	t.mu.Lock()

	wentOnline := !t.online[userID]
	t.online[userID] = true

	if timer, ok := t.timers[userID]; ok {
		timer.Stop()
	}
	t.timers[userID] = time.AfterFunc(t.timeout, func() {
		t.expire(userID)
	})

	t.mu.Unlock()

	if wentOnline {
		if err := t.store.SetOnline(ctx, userID); err != nil {
			logger.Error("Failed to persist online state for %s: %v", userID, err)
		}
		if t.onOnline != nil {
			t.onOnline(userID)
		}
	}

	return wentOnline
}

// ForceOffline takes the user offline immediately, bypassing the debounce
// window. Used when their last socket disconnects.
func (t *Tracker) ForceOffline(ctx context.Context, userID string) {
	t.mu.Lock()
	if !t.online[userID] {
		t.mu.Unlock()
		return
	}
	delete(t.online, userID)
	if timer, ok := t.timers[userID]; ok {
		timer.Stop()
		delete(t.timers, userID)
	}
	t.mu.Unlock()

	t.goOffline(ctx, userID)
}

func (t *Tracker) expire(userID string) {
	t.mu.Lock()
	if !t.online[userID] {
		t.mu.Unlock()
		return
	}
	delete(t.online, userID)
	delete(t.timers, userID)
	t.mu.Unlock()

	t.goOffline(context.Background(), userID)
}

func (t *Tracker) goOffline(ctx context.Context, userID string) {
	lastSeen := time.Now()
	if err := t.store.SetOffline(ctx, userID, lastSeen); err != nil {
		logger.Error("Failed to persist offline state for %s: %v", userID, err)
	}
	if t.onOffline != nil {
		t.onOffline(userID, lastSeen)
	}
}

// IsOnline reports the user's current state plus their last-seen timestamp
// when offline.
func (t *Tracker) IsOnline(ctx context.Context, userID string) (bool, *time.Time, error) {
	t.mu.Lock()
	local := t.online[userID]
	t.mu.Unlock()
	if local {
		return true, nil, nil
	}
	return t.store.IsOnline(ctx, userID)
}
