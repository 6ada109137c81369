package session

import (
	"sort"
	"sync"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
)

// IdentityEvent reports that the identity behind a session changed.
// A nil Identity means the session signed out.
type IdentityEvent struct {
	SessionID string
	Identity  *domain.Identity
}

// ProfileEvent reports that a stored profile or tenant was changed by
// someone other than its owner. Sessions matching any non-empty field
// re-resolve.
type ProfileEvent struct {
	UserID      string
	PhoneNumber string
	TenantID    string
}

// Hub fans identity and profile events out to listeners in registration
// order.
type Hub struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]func(IdentityEvent)
	profiles  map[int]func(ProfileEvent)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		listeners: make(map[int]func(IdentityEvent)),
		profiles:  make(map[int]func(ProfileEvent)),
	}
}

// OnIdentityChanged registers fn and returns a function that removes it.
func (h *Hub) OnIdentityChanged(fn func(IdentityEvent)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.listeners[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers ev synchronously to every listener.
func (h *Hub) Publish(ev IdentityEvent) {
	h.mu.RLock()
	ids := make([]int, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(IdentityEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.listeners[id])
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// OnProfileChanged registers fn and returns a function that removes it.
func (h *Hub) OnProfileChanged(fn func(ProfileEvent)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.profiles[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.profiles, id)
			h.mu.Unlock()
		})
	}
}

// PublishProfile delivers ev synchronously to every profile listener. A
// nil hub drops the event.
func (h *Hub) PublishProfile(ev ProfileEvent) {
	if h == nil {
		return
	}
	h.mu.RLock()
	ids := make([]int, 0, len(h.profiles))
	for id := range h.profiles {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(ProfileEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.profiles[id])
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
