package session

import (
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/cache"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/observability"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/resilience"

	"go.uber.org/zap"
)

// Registry owns one State per session id. Idle sessions are evicted after
// the configured TTL; every access extends it.
type Registry struct {
	sessions *cache.InMemory[*State]
	resolver ProfileResolver
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewRegistry creates a registry. Profile resolutions across all sessions
// are capped at maxConcurrency.
func NewRegistry(resolver ProfileResolver, idleTTL time.Duration, maxConcurrency int, metrics *observability.Metrics, logger *zap.Logger) *Registry {
	r := &Registry{
		resolver: resolver,
		bulkhead: resilience.NewBulkhead(maxConcurrency),
		metrics:  metrics,
		logger:   logger,
	}
	r.sessions = cache.New[*State](idleTTL,
		cache.WithSliding[*State](),
		cache.WithEvictHook(func(sid string, st *State) {
			st.Close()
			r.logger.Debug("session: evicted idle session", zap.String("session_id", sid))
			r.metrics.SetActiveSessions(r.sessions.Len())
		}),
	)
	return r
}

// Attach subscribes the registry to hub.
func (r *Registry) Attach(hub *Hub) (detach func()) {
	offIdentity := hub.OnIdentityChanged(r.Handle)
	offProfile := hub.OnProfileChanged(r.HandleProfile)
	return func() {
		offIdentity()
		offProfile()
	}
}

// Handle applies an identity event to its session.
func (r *Registry) Handle(ev IdentityEvent) {
	if ev.Identity == nil {
		if st, ok := r.sessions.Get(ev.SessionID); ok {
			st.End()
		}
		return
	}
	if _, err := r.Ensure(ev.SessionID, ev.Identity); err != nil {
		r.logger.Warn("session: identity event for ended session",
			zap.String("session_id", ev.SessionID),
			zap.String("user_id", ev.Identity.ID),
		)
	}
}

// HandleProfile re-resolves every live session the event refers to: by uid,
// by phone number, or by the tenant of its current profile.
func (r *Registry) HandleProfile(ev ProfileEvent) {
	var matched []*State
	r.sessions.Range(func(_ string, st *State) bool {
		if st.Ended() {
			return true
		}
		snap := st.Current()
		if snap.Identity == nil {
			return true
		}
		switch {
		case ev.UserID != "" && snap.Identity.ID == ev.UserID,
			ev.PhoneNumber != "" && snap.Identity.PhoneNumber == ev.PhoneNumber,
			ev.TenantID != "" && snap.Profile != nil && snap.Profile.TenantID == ev.TenantID:
			matched = append(matched, st)
		}
		return true
	})
	for _, st := range matched {
		st.Refresh()
	}
	if len(matched) > 0 {
		r.logger.Debug("session: refreshing after profile change",
			zap.String("user_id", ev.UserID),
			zap.String("tenant_id", ev.TenantID),
			zap.Int("sessions", len(matched)),
		)
	}
}

// Ensure returns the session for sid, creating it if needed, and applies
// identity to it. An ended session yields ErrUnauthorized.
func (r *Registry) Ensure(sid string, identity *domain.Identity) (*State, error) {
	st, created := r.sessions.GetOrCreate(sid, func() *State {
		return NewState(r.resolver, r.bulkhead, r.metrics, r.logger)
	})
	if created {
		r.metrics.SetActiveSessions(r.sessions.Len())
	}
	if st.Ended() {
		return nil, &domain.ErrUnauthorized{Message: "session has ended, sign in again"}
	}
	st.Apply(identity)
	return st, nil
}

// Get returns the session for sid.
func (r *Registry) Get(sid string) (*State, bool) {
	return r.sessions.Get(sid)
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Close stops every session and the eviction loop.
func (r *Registry) Close() {
	r.sessions.Range(func(_ string, st *State) bool {
		st.Close()
		return true
	})
	r.sessions.Stop()
}
