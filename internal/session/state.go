// Package session keeps the per-session view of identity, profile and
// onboarding status, driven by identity-change events.
package session

import (
	"context"
	"sync"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/observability"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/resilience"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/policy"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("session")

// Snapshot is one published session value. Status is empty when signed out.
// Profile is shared between readers and must not be modified.
type Snapshot struct {
	Identity *domain.Identity `json:"identity"`
	Profile  *domain.Profile  `json:"profile"`
	Status   domain.Status    `json:"status,omitempty"`
	Loading  bool             `json:"loading"`
	Epoch    uint64           `json:"epoch"`
}

// PolicyState maps the snapshot to the guard's state.
func (s Snapshot) PolicyState() policy.State {
	return policy.StateFor(s.Loading, s.Identity != nil, s.Status)
}

// Role is the profile role, or none when there is no profile.
func (s Snapshot) Role() domain.Role {
	if s.Profile == nil {
		return domain.RoleNone
	}
	return s.Profile.Role
}

// Permissions are the normalized permissions, all false without a profile.
func (s Snapshot) Permissions() domain.Permissions {
	if s.Profile == nil {
		return domain.Permissions{}
	}
	return s.Profile.Permissions
}

// State is the session state of one client session. Apply, Commit and
// Refresh each start a new epoch; a resolution only publishes if its epoch
// is still current when it completes.
type State struct {
	mu      sync.Mutex
	snap    Snapshot
	changed chan struct{}
	ended   bool
	// failed is set while the published snapshot came from a failed lookup.
	failed bool

	resolver ProfileResolver
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewState creates a signed-out session state.
func NewState(resolver ProfileResolver, bulkhead *resilience.Bulkhead, metrics *observability.Metrics, logger *zap.Logger) *State {
	ctx, cancel := context.WithCancel(context.Background())
	return &State{
		changed:  make(chan struct{}),
		resolver: resolver,
		bulkhead: bulkhead,
		metrics:  metrics,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Apply handles an identity-change notification. nil means signed out and
// is published immediately. Repeating the current identity is a no-op.
func (s *State) Apply(identity *domain.Identity) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}

	if identity == nil {
		if s.snap.Identity == nil && !s.snap.Loading {
			s.mu.Unlock()
			return
		}
		s.snap = Snapshot{Epoch: s.snap.Epoch + 1}
		s.publishLocked()
		s.mu.Unlock()
		return
	}

	if s.snap.Identity.Same(identity) {
		s.mu.Unlock()
		return
	}

	id := *identity
	epoch := s.snap.Epoch + 1
	s.snap = Snapshot{Identity: &id, Loading: true, Epoch: epoch}
	s.failed = false
	s.publishLocked()
	s.mu.Unlock()

	go s.resolve(epoch, &id)
}

// Refresh re-resolves the current identity under a new epoch.
func (s *State) Refresh() {
	s.mu.Lock()
	if s.ended || s.snap.Identity == nil {
		s.mu.Unlock()
		return
	}
	epoch, id := s.refreshLocked()
	s.mu.Unlock()

	go s.resolve(epoch, id)
}

// RetryFailed re-resolves once when the settled snapshot came from a failed
// lookup. It reports whether a resolution was started.
func (s *State) RetryFailed() bool {
	s.mu.Lock()
	if !s.failed || s.ended || s.snap.Loading || s.snap.Identity == nil {
		s.mu.Unlock()
		return false
	}
	epoch, id := s.refreshLocked()
	s.mu.Unlock()

	s.logger.Info("session: retrying failed profile lookup", zap.String("user_id", id.ID))
	go s.resolve(epoch, id)
	return true
}

func (s *State) refreshLocked() (uint64, *domain.Identity) {
	id := s.snap.Identity
	epoch := s.snap.Epoch + 1
	s.snap = Snapshot{Identity: id, Profile: s.snap.Profile, Status: s.snap.Status, Loading: true, Epoch: epoch}
	s.failed = false
	s.publishLocked()
	return epoch, id
}

// Commit publishes a profile whose write has been confirmed. It fails with
// ErrConflict if the session changed identity in the meantime.
func (s *State) Commit(identityID string, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.Identity == nil || s.snap.Identity.ID != identityID {
		return &domain.ErrConflict{Message: "session identity changed, sign in again"}
	}
	p := profile
	s.snap = Snapshot{
		Identity: s.snap.Identity,
		Profile:  &p,
		Status:   p.Status,
		Epoch:    s.snap.Epoch + 1,
	}
	s.failed = false
	s.publishLocked()
	return nil
}

// Current returns the latest snapshot.
func (s *State) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Changed returns a channel closed at the next publish.
func (s *State) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Await blocks until the snapshot is not loading or ctx is done. On ctx
// expiry the loading snapshot is returned along with the context error.
func (s *State) Await(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		snap, ch := s.snap, s.changed
		s.mu.Unlock()

		if !snap.Loading {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ch:
		}
	}
}

// End signs the session out for good. Later Apply calls are ignored.
func (s *State) End() {
	s.Apply(nil)
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
	s.cancel()
}

// Ended reports whether End was called.
func (s *State) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Close stops in-flight resolutions without publishing.
func (s *State) Close() {
	s.cancel()
}

func (s *State) publishLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *State) resolve(epoch uint64, identity *domain.Identity) {
	if err := s.bulkhead.Acquire(s.ctx); err != nil {
		return
	}
	res := s.resolver.Resolve(s.ctx, identity)
	s.bulkhead.Release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.Epoch != epoch || s.ended {
		s.metrics.IncrResolution(observability.ResolvedStale)
		s.logger.Debug("session: discarding stale resolution",
			zap.String("user_id", identity.ID),
			zap.Uint64("epoch", epoch),
			zap.Uint64("current_epoch", s.snap.Epoch),
		)
		return
	}

	s.snap = Snapshot{
		Identity: identity,
		Profile:  res.Profile,
		Status:   res.Status,
		Epoch:    epoch,
	}
	s.failed = res.Outcome == observability.ResolvedFailed
	s.publishLocked()
}
