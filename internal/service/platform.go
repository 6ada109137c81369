package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/port"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/session"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var platformTracer = otel.Tracer("service/platform")

// PlatformService serves the super admin console.
type PlatformService struct {
	store  port.DocumentStore
	hub    *session.Hub
	group  singleflight.Group
	logger *zap.Logger
	now    func() time.Time
}

// NewPlatformService creates a new platform service. hub may be nil.
func NewPlatformService(store port.DocumentStore, hub *session.Hub, logger *zap.Logger) *PlatformService {
	return &PlatformService{store: store, hub: hub, logger: logger, now: time.Now}
}

// ============================================================
// Overview — GET /v1/platform/overview
// ============================================================

// Overview loads users, businesses and leads concurrently. Concurrent
// callers share one computation.
func (s *PlatformService) Overview(ctx context.Context) (*domain.PlatformOverview, error) {
	ctx, span := platformTracer.Start(ctx, "PlatformService.Overview")
	defer span.End()

	v, err, _ := s.group.Do("overview", func() (any, error) {
		return s.computeOverview(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.PlatformOverview), nil
}

func (s *PlatformService) computeOverview(ctx context.Context) (*domain.PlatformOverview, error) {
	var users, businesses, leads []port.Document

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.store.List(gctx, port.CollectionUsers, nil)
		return err
	})
	g.Go(func() error {
		var err error
		businesses, err = s.store.List(gctx, port.CollectionBusinesses, nil)
		return err
	})
	g.Go(func() error {
		var err error
		leads, err = s.store.List(gctx, port.CollectionLeads, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("platform overview: %w", err)
	}

	ov := &domain.PlatformOverview{
		TotalCompanies:  len(businesses),
		TotalLeads:      len(leads),
		UsersByRole:     make(map[domain.Role]int),
		CompaniesByPlan: make(map[domain.Plan]int),
		GeneratedAt:     timestamp(s.now()),
	}
	for _, d := range users {
		if isPhoneKey(d.Key) {
			ov.PendingInvites++
			continue
		}
		doc, err := decodeProfile(d.Data)
		if err != nil {
			continue
		}
		ov.TotalUsers++
		ov.UsersByRole[domain.ParseRole(doc.Role)]++
	}
	for _, d := range businesses {
		b, err := decodeBusiness(d.Data)
		if err != nil {
			continue
		}
		ov.CompaniesByPlan[b.Plan]++
		if b.Status == domain.TenantActive {
			ov.ActiveCompanies++
		}
	}
	return ov, nil
}

// ============================================================
// ListTenants — GET /v1/platform/tenants
// ============================================================

func (s *PlatformService) ListTenants(ctx context.Context, page, pageSize int) (domain.ListResponse[domain.Business], error) {
	ctx, span := platformTracer.Start(ctx, "PlatformService.ListTenants")
	defer span.End()

	docs, err := s.store.List(ctx, port.CollectionBusinesses, nil)
	if err != nil {
		return domain.ListResponse[domain.Business]{}, fmt.Errorf("list tenants: %w", err)
	}
	tenants := make([]domain.Business, 0, len(docs))
	for _, d := range docs {
		b, err := decodeBusiness(d.Data)
		if err != nil {
			s.logger.Warn("platform: skipping unreadable business", zap.String("key", d.Key), zap.Error(err))
			continue
		}
		if b.ID == "" {
			b.ID = d.Key
		}
		tenants = append(tenants, b)
	}
	sort.SliceStable(tenants, func(i, j int) bool { return tenants[i].CreatedAt > tenants[j].CreatedAt })
	return domain.NewListResponse(tenants, page, pageSize), nil
}

// ============================================================
// ListUsers — GET /v1/platform/users
// ============================================================

// ListUsers lists every profile, optionally only those with role.
func (s *PlatformService) ListUsers(ctx context.Context, role domain.Role, page, pageSize int) (domain.ListResponse[domain.Profile], error) {
	ctx, span := platformTracer.Start(ctx, "PlatformService.ListUsers")
	defer span.End()

	var filter map[string]string
	if role != "" {
		filter = map[string]string{"role": string(role)}
	}
	docs, err := s.store.List(ctx, port.CollectionUsers, filter)
	if err != nil {
		return domain.ListResponse[domain.Profile]{}, fmt.Errorf("list users: %w", err)
	}
	users := make([]domain.Profile, 0, len(docs))
	for _, d := range docs {
		doc, err := decodeProfile(d.Data)
		if err != nil {
			continue
		}
		users = append(users, normalizeStored(d.Key, doc))
	}
	return domain.NewListResponse(users, page, pageSize), nil
}

// ============================================================
// SetTenantStatus — PUT /v1/platform/tenants/{id}/status
// ============================================================

func (s *PlatformService) SetTenantStatus(ctx context.Context, actor domain.Profile, tenantID string, req *domain.UpdateTenantStatusRequest) (*domain.Business, error) {
	ctx, span := platformTracer.Start(ctx, "PlatformService.SetTenantStatus")
	defer span.End()

	switch req.Status {
	case domain.TenantActive, domain.TenantSuspended:
	default:
		return nil, &domain.ErrValidation{Field: "status", Message: "must be active or suspended"}
	}

	raw, err := s.store.Get(ctx, port.CollectionBusinesses, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	if raw == nil {
		return nil, &domain.ErrNotFound{Resource: "tenant", ID: tenantID}
	}
	b, err := decodeBusiness(raw)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetMerge(ctx, port.CollectionBusinesses, tenantID, map[string]any{
		"status":    string(req.Status),
		"updatedAt": timestamp(s.now()),
	}); err != nil {
		return nil, fmt.Errorf("update tenant: %w", err)
	}
	s.hub.PublishProfile(session.ProfileEvent{TenantID: tenantID})

	b.Status = req.Status
	if b.ID == "" {
		b.ID = tenantID
	}
	s.logger.Info("tenant status changed",
		zap.String("tenant_id", tenantID),
		zap.String("status", string(req.Status)),
		zap.String("changed_by", actor.UID),
	)
	return &b, nil
}
