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
)

var teamTracer = otel.Tracer("service/team")

// TeamService lets a business owner manage the members of their tenant.
// Live sessions of an affected member are refreshed through hub.
type TeamService struct {
	store    port.DocumentStore
	hub      *session.Hub
	dialCode string
	logger   *zap.Logger
	now      func() time.Time
}

// NewTeamService creates a new team service. hub may be nil.
func NewTeamService(store port.DocumentStore, hub *session.Hub, dialCode string, logger *zap.Logger) *TeamService {
	return &TeamService{store: store, hub: hub, dialCode: dialCode, logger: logger, now: time.Now}
}

func requireTenant(actor domain.Profile) error {
	if actor.TenantID == "" {
		return &domain.ErrForbidden{Action: "manage a team without a business"}
	}
	return nil
}

// ============================================================
// ListMembers — GET /v1/team/members
// ============================================================

// ListMembers returns registered members first, then pending invites, each
// ordered by name.
func (s *TeamService) ListMembers(ctx context.Context, actor domain.Profile) ([]domain.TeamMember, error) {
	ctx, span := teamTracer.Start(ctx, "TeamService.ListMembers")
	defer span.End()

	if err := requireTenant(actor); err != nil {
		return nil, err
	}

	docs, err := s.store.List(ctx, port.CollectionUsers, map[string]string{"tenantId": actor.TenantID})
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]domain.TeamMember, 0, len(docs))
	for _, d := range docs {
		doc, err := decodeProfile(d.Data)
		if err != nil {
			s.logger.Warn("team: skipping unreadable profile", zap.String("key", d.Key), zap.Error(err))
			continue
		}
		members = append(members, domain.TeamMember{
			Profile: normalizeStored(d.Key, doc),
			Pending: isPhoneKey(d.Key),
		})
	}
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Pending != members[j].Pending {
			return !members[i].Pending
		}
		return members[i].Name < members[j].Name
	})
	return members, nil
}

// ============================================================
// Invite — POST /v1/team/invites
// ============================================================

// Invite creates a phone-keyed invited profile in the actor's tenant.
func (s *TeamService) Invite(ctx context.Context, actor domain.Profile, req *domain.InviteMemberRequest) (*domain.TeamMember, error) {
	ctx, span := teamTracer.Start(ctx, "TeamService.Invite")
	defer span.End()

	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	phone, err := domain.NormalizePhone(req.PhoneNumber, s.dialCode)
	if err != nil {
		return nil, err
	}
	if phone == actor.PhoneNumber {
		return nil, &domain.ErrValidation{Field: "phoneNumber", Message: "cannot invite yourself"}
	}
	name, err := cleanText("name", req.Name, maxNameLen, false)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.Get(ctx, port.CollectionUsers, phone)
	if err != nil {
		return nil, fmt.Errorf("check invite: %w", err)
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "this number already has a pending invite"}
	}
	registered, err := s.store.List(ctx, port.CollectionUsers, map[string]string{"phoneNumber": phone})
	if err != nil {
		return nil, fmt.Errorf("check registered user: %w", err)
	}
	for _, d := range registered {
		if !isPhoneKey(d.Key) {
			return nil, &domain.ErrConflict{Message: "this number already belongs to a registered user"}
		}
	}

	perms := domain.RoleDefaults(domain.RoleAgent)
	if req.Permissions != nil {
		perms = *req.Permissions
	}
	fields := map[string]any{
		"phoneNumber": phone,
		"role":        string(domain.RoleAgent),
		"tenantId":    actor.TenantID,
		"name":        name,
		"status":      string(domain.StatusInvited),
		"permissions": perms.Fields(),
		"invitedBy":   actor.UID,
		"createdAt":   timestamp(s.now()),
	}
	if err := s.store.SetMerge(ctx, port.CollectionUsers, phone, fields); err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}

	s.hub.PublishProfile(session.ProfileEvent{PhoneNumber: phone})

	profile, err := profileFromFields(phone, fields)
	if err != nil {
		return nil, err
	}
	s.logger.Info("team member invited",
		zap.String("tenant_id", actor.TenantID),
		zap.String("invited_by", actor.UID),
		zap.String("phone", maskPhone(phone)),
	)
	return &domain.TeamMember{Profile: profile, Pending: true}, nil
}

// ============================================================
// UpdatePermissions — PUT /v1/team/members/{memberID}/permissions
// ============================================================

// UpdatePermissions replaces the explicit permission record of a member of
// the actor's tenant. memberID is a uid, or a phone number for invites.
func (s *TeamService) UpdatePermissions(ctx context.Context, actor domain.Profile, memberID string, req *domain.UpdatePermissionsRequest) (*domain.TeamMember, error) {
	ctx, span := teamTracer.Start(ctx, "TeamService.UpdatePermissions")
	defer span.End()

	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	if memberID == actor.UID {
		return nil, &domain.ErrForbidden{Action: "change your own permissions"}
	}

	raw, err := s.store.Get(ctx, port.CollectionUsers, memberID)
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	if raw == nil {
		return nil, &domain.ErrNotFound{Resource: "member", ID: memberID}
	}
	doc, err := decodeProfile(raw)
	if err != nil {
		return nil, err
	}
	if doc.TenantID != actor.TenantID {
		return nil, &domain.ErrNotFound{Resource: "member", ID: memberID}
	}
	if domain.ParseRole(doc.Role) == domain.RoleBusinessOwner {
		return nil, &domain.ErrForbidden{Action: "change an owner's permissions"}
	}

	if err := s.store.SetMerge(ctx, port.CollectionUsers, memberID, map[string]any{
		"permissions": req.Permissions.Fields(),
		"updatedAt":   timestamp(s.now()),
	}); err != nil {
		return nil, fmt.Errorf("update permissions: %w", err)
	}
	if isPhoneKey(memberID) {
		s.hub.PublishProfile(session.ProfileEvent{PhoneNumber: memberID})
	} else {
		s.hub.PublishProfile(session.ProfileEvent{UserID: memberID})
	}

	member := domain.TeamMember{Profile: normalizeStored(memberID, doc), Pending: isPhoneKey(memberID)}
	member.Permissions = req.Permissions
	s.logger.Info("member permissions updated",
		zap.String("tenant_id", actor.TenantID),
		zap.String("member_id", memberID),
		zap.String("updated_by", actor.UID),
	)
	return &member, nil
}
