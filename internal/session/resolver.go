package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/observability"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Resolution is the outcome of looking up the profile of an identity.
// Profile is nil when nothing was found or the lookup failed.
type Resolution struct {
	Profile *domain.Profile
	Status  domain.Status
	Outcome string
}

// ProfileResolver turns an identity into a Resolution. It never fails:
// lookup errors resolve to new_user.
type ProfileResolver interface {
	Resolve(ctx context.Context, identity *domain.Identity) Resolution
}

// Resolver looks profiles up by uid, then by phone number.
type Resolver struct {
	store   port.DocumentStore
	timeout time.Duration
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewResolver creates a Resolver. timeout bounds both lookups together.
func NewResolver(store port.DocumentStore, timeout time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, timeout: timeout, metrics: metrics, logger: logger}
}

// Resolve performs at most two lookups. Not found is a terminal new_user.
func (r *Resolver) Resolve(ctx context.Context, identity *domain.Identity) Resolution {
	ctx, span := tracer.Start(ctx, "Resolver.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", identity.ID))

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	start := time.Now()
	defer func() { r.metrics.RecordRequestDuration("session.resolve", time.Since(start)) }()

	profile, err := r.lookup(ctx, identity.ID, identity, domain.SourceUID)
	if err != nil {
		return r.failOpen(identity, err)
	}
	if profile != nil {
		return r.done(profile, observability.ResolvedByUID)
	}

	if identity.PhoneNumber != "" {
		profile, err = r.lookup(ctx, identity.PhoneNumber, identity, domain.SourcePhone)
		if err != nil {
			return r.failOpen(identity, err)
		}
		if profile != nil {
			return r.done(profile, observability.ResolvedByPhone)
		}
	}

	r.metrics.IncrResolution(observability.ResolvedNone)
	return Resolution{Status: domain.StatusNewUser, Outcome: observability.ResolvedNone}
}

func (r *Resolver) lookup(ctx context.Context, key string, identity *domain.Identity, source domain.LookupSource) (*domain.Profile, error) {
	raw, err := r.store.Get(ctx, port.CollectionUsers, key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var doc domain.ProfileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode profile %q: %w", key, err)
	}
	p := domain.NormalizeProfile(doc, source)
	p.UID = identity.ID
	if p.PhoneNumber == "" {
		p.PhoneNumber = identity.PhoneNumber
	}
	return &p, nil
}

func (r *Resolver) done(p *domain.Profile, outcome string) Resolution {
	r.metrics.IncrResolution(outcome)
	return Resolution{Profile: p, Status: p.Status, Outcome: outcome}
}

func (r *Resolver) failOpen(identity *domain.Identity, err error) Resolution {
	r.logger.Warn("session: profile lookup failed, treating as new user",
		zap.String("user_id", identity.ID),
		zap.Error(err),
	)
	r.metrics.IncrResolution(observability.ResolvedFailed)
	return Resolution{Status: domain.StatusNewUser, Outcome: observability.ResolvedFailed}
}
