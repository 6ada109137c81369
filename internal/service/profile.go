package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/port"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/session"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var profileTracer = otel.Tracer("service/profile")

const (
	maxNameLen = 60
	maxCityLen = 60
)

// ProfileService handles onboarding and self-service profile changes.
// Session state is only advanced after the store confirms the write.
type ProfileService struct {
	store  port.DocumentStore
	logger *zap.Logger
	now    func() time.Time
}

// NewProfileService creates a new profile service.
func NewProfileService(store port.DocumentStore, logger *zap.Logger) *ProfileService {
	return &ProfileService{store: store, logger: logger, now: time.Now}
}

// signedIn returns the identity of st, failing when it is signed out.
func signedIn(st *session.State) (*domain.Identity, session.Snapshot, error) {
	snap := st.Current()
	if snap.Identity == nil {
		return nil, snap, &domain.ErrUnauthorized{Message: "not signed in"}
	}
	return snap.Identity, snap, nil
}

// ============================================================
// CreateBusiness — POST /v1/onboarding/business
// ============================================================

func (s *ProfileService) CreateBusiness(ctx context.Context, st *session.State, req *domain.CreateBusinessRequest) (*domain.Business, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileService.CreateBusiness")
	defer span.End()

	identity, snap, err := signedIn(st)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(snap, domain.StatusNewUser); err != nil {
		return nil, err
	}

	name, err := cleanText("businessName", req.BusinessName, 80, true)
	if err != nil {
		return nil, err
	}
	city, err := cleanText("city", req.City, maxCityLen, false)
	if err != nil {
		return nil, err
	}
	owner, err := cleanText("ownerName", req.OwnerName, maxNameLen, true)
	if err != nil {
		return nil, err
	}
	plan, ok := domain.ParsePlan(strings.ToLower(strings.TrimSpace(req.Plan)))
	if !ok {
		return nil, &domain.ErrValidation{Field: "plan", Message: "must be free, pro or enterprise"}
	}

	now := timestamp(s.now())
	business := domain.Business{
		ID:        uuid.NewString(),
		OwnerID:   identity.ID,
		Name:      name,
		City:      city,
		Plan:      plan,
		Status:    domain.TenantActive,
		CreatedAt: now,
	}
	userFields := map[string]any{
		"uid":         identity.ID,
		"phoneNumber": identity.PhoneNumber,
		"role":        string(domain.RoleBusinessOwner),
		"tenantId":    business.ID,
		"name":        owner,
		"status":      string(domain.StatusActive),
		"is_active":   true,
		"createdAt":   now,
	}

	err = s.onboard(ctx, st, identity.ID, []port.Write{
		{Op: port.OpSet, Collection: port.CollectionBusinesses, Key: business.ID, Data: map[string]any{
			"id":        business.ID,
			"ownerId":   business.OwnerID,
			"name":      business.Name,
			"city":      business.City,
			"plan":      string(business.Plan),
			"status":    string(business.Status),
			"createdAt": business.CreatedAt,
		}},
		{Op: port.OpMerge, Collection: port.CollectionUsers, Key: identity.ID, Data: userFields},
	})
	if err != nil {
		return nil, err
	}

	if err := s.commit(st, identity.ID, userFields); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("tenant.id", business.ID))
	s.logger.Info("business created",
		zap.String("user_id", identity.ID),
		zap.String("tenant_id", business.ID),
	)
	return &business, nil
}

// ============================================================
// JoinTeam — POST /v1/onboarding/join
// ============================================================

func (s *ProfileService) JoinTeam(ctx context.Context, st *session.State, req *domain.JoinTeamRequest) error {
	ctx, span := profileTracer.Start(ctx, "ProfileService.JoinTeam")
	defer span.End()

	identity, snap, err := signedIn(st)
	if err != nil {
		return err
	}
	if err := requireStatus(snap, domain.StatusNewUser); err != nil {
		return err
	}

	code := strings.TrimSpace(req.TeamCode)
	if code == "" {
		return &domain.ErrValidation{Field: "teamCode", Message: "is required"}
	}
	name, err := cleanText("name", req.Name, maxNameLen, true)
	if err != nil {
		return err
	}

	raw, err := s.store.Get(ctx, port.CollectionBusinesses, code)
	if err != nil {
		return fmt.Errorf("get business: %w", err)
	}
	if raw == nil {
		return &domain.ErrNotFound{Resource: "team", ID: code}
	}
	business, err := decodeBusiness(raw)
	if err != nil {
		return err
	}
	if business.Status == domain.TenantSuspended {
		return &domain.ErrForbidden{Action: "join a suspended business"}
	}

	fields := map[string]any{
		"uid":         identity.ID,
		"phoneNumber": identity.PhoneNumber,
		"role":        string(domain.RoleAgent),
		"tenantId":    code,
		"name":        name,
		"status":      string(domain.StatusActive),
		"is_active":   true,
		"createdAt":   timestamp(s.now()),
	}
	if err := s.onboard(ctx, st, identity.ID, []port.Write{
		{Op: port.OpMerge, Collection: port.CollectionUsers, Key: identity.ID, Data: fields},
	}); err != nil {
		return err
	}

	if err := s.commit(st, identity.ID, fields); err != nil {
		return err
	}
	s.logger.Info("user joined team",
		zap.String("user_id", identity.ID),
		zap.String("tenant_id", code),
	)
	return nil
}

// ============================================================
// AcceptInvite — POST /v1/onboarding/invite/accept
// ============================================================

// AcceptInvite re-keys the phone-keyed invite to the user id. The new
// profile and the deletion of the invite are one atomic batch.
func (s *ProfileService) AcceptInvite(ctx context.Context, st *session.State, req *domain.AcceptInviteRequest) error {
	ctx, span := profileTracer.Start(ctx, "ProfileService.AcceptInvite")
	defer span.End()

	identity, snap, err := signedIn(st)
	if err != nil {
		return err
	}
	if err := requireStatus(snap, domain.StatusInvited); err != nil {
		return err
	}

	raw, err := s.store.Get(ctx, port.CollectionUsers, identity.PhoneNumber)
	if err != nil {
		return fmt.Errorf("get invite: %w", err)
	}
	if raw == nil {
		return &domain.ErrNotFound{Resource: "invite", ID: identity.PhoneNumber}
	}
	invite, err := decodeProfile(raw)
	if err != nil {
		return err
	}

	name := invite.Name
	if strings.TrimSpace(req.Name) != "" {
		if name, err = cleanText("name", req.Name, maxNameLen, true); err != nil {
			return err
		}
	}

	role := domain.ParseRole(invite.Role)
	if role == domain.RoleNone {
		role = domain.RoleAgent
	}
	perms := domain.RoleDefaults(role)
	if invite.Permissions != nil {
		perms = domain.NormalizeProfile(invite, domain.SourcePhone).Permissions
	}

	now := timestamp(s.now())
	fields := map[string]any{
		"uid":         identity.ID,
		"phoneNumber": identity.PhoneNumber,
		"role":        string(role),
		"tenantId":    invite.TenantID,
		"name":        name,
		"status":      string(domain.StatusActive),
		"is_active":   true,
		"permissions": perms.Fields(),
		"invitedBy":   invite.InvitedBy,
		"createdAt":   now,
		"acceptedAt":  now,
	}

	err = s.store.RunBatch(ctx, []port.Write{
		{Op: port.OpSet, Collection: port.CollectionUsers, Key: identity.ID, Data: fields},
		{Op: port.OpDelete, Collection: port.CollectionUsers, Key: identity.PhoneNumber},
	})
	if err != nil {
		return fmt.Errorf("accept invite: %w", err)
	}

	if err := s.commit(st, identity.ID, fields); err != nil {
		return err
	}
	s.logger.Info("invite accepted",
		zap.String("user_id", identity.ID),
		zap.String("tenant_id", invite.TenantID),
	)
	return nil
}

// ============================================================
// UpdateProfile — PUT /v1/profile
// ============================================================

func (s *ProfileService) UpdateProfile(ctx context.Context, st *session.State, req *domain.UpdateProfileRequest) error {
	ctx, span := profileTracer.Start(ctx, "ProfileService.UpdateProfile")
	defer span.End()

	identity, snap, err := signedIn(st)
	if err != nil {
		return err
	}
	if snap.Profile == nil || snap.Status != domain.StatusActive {
		return &domain.ErrForbidden{Action: "update profile before onboarding"}
	}
	if req.Name == nil {
		return &domain.ErrValidation{Field: "name", Message: "nothing to update"}
	}
	name, err := cleanText("name", *req.Name, maxNameLen, true)
	if err != nil {
		return err
	}

	if err := s.store.SetMerge(ctx, port.CollectionUsers, identity.ID, map[string]any{
		"name":      name,
		"updatedAt": timestamp(s.now()),
	}); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	s.reload(ctx, st, identity)
	return nil
}

// ============================================================
// SwitchRole — POST /v1/dev/role
// ============================================================

// SwitchRole rewrites the caller's role and resets permissions to the role
// defaults. Only mounted when dev tools are enabled.
func (s *ProfileService) SwitchRole(ctx context.Context, st *session.State, req *domain.SwitchRoleRequest) error {
	ctx, span := profileTracer.Start(ctx, "ProfileService.SwitchRole")
	defer span.End()

	identity, _, err := signedIn(st)
	if err != nil {
		return err
	}
	role := domain.ParseRole(req.Role)
	if role == domain.RoleNone {
		return &domain.ErrValidation{Field: "role", Message: "must be agent, business_owner or super_admin"}
	}

	if err := s.store.SetMerge(ctx, port.CollectionUsers, identity.ID, map[string]any{
		"uid":         identity.ID,
		"phoneNumber": identity.PhoneNumber,
		"role":        string(role),
		"status":      string(domain.StatusActive),
		"permissions": domain.RoleDefaults(role).Fields(),
	}); err != nil {
		return fmt.Errorf("switch role: %w", err)
	}

	s.logger.Warn("dev: role switched",
		zap.String("user_id", identity.ID),
		zap.String("role", string(role)),
	)
	s.reload(ctx, st, identity)
	return nil
}

func requireStatus(snap session.Snapshot, want domain.Status) error {
	if snap.Loading {
		return &domain.ErrConflict{Message: "session is still loading, retry"}
	}
	if snap.Status != want {
		return &domain.ErrConflict{Message: fmt.Sprintf("onboarding not allowed in status %q", snap.Status)}
	}
	return nil
}

// onboard applies writes only if users/{uid} holds no role or tenant yet. A
// session reporting new_user may stem from a failed lookup, so the stored
// document is checked inside the batch. On conflict the session re-resolves.
func (s *ProfileService) onboard(ctx context.Context, st *session.State, uid string, writes []port.Write) error {
	guard := port.Write{
		Op:         port.OpRequireUnset,
		Collection: port.CollectionUsers,
		Key:        uid,
		Fields:     []string{"role", "tenantId"},
	}
	err := s.store.RunBatch(ctx, append([]port.Write{guard}, writes...))
	var conflict *domain.ErrConflict
	if errors.As(err, &conflict) {
		s.logger.Warn("onboarding refused, profile already exists",
			zap.String("user_id", uid),
			zap.Error(err),
		)
		st.Refresh()
		return &domain.ErrConflict{Message: "this account already has a profile, session is reloading"}
	}
	if err != nil {
		return fmt.Errorf("onboard: %w", err)
	}
	return nil
}

func (s *ProfileService) commit(st *session.State, uid string, fields map[string]any) error {
	profile, err := profileFromFields(uid, fields)
	if err != nil {
		return err
	}
	if err := st.Commit(uid, profile); err != nil {
		s.logger.Warn("profile written but session changed",
			zap.String("user_id", uid),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// reload publishes the stored profile after a merge-write. If the read
// fails the session re-resolves in the background instead.
func (s *ProfileService) reload(ctx context.Context, st *session.State, identity *domain.Identity) {
	raw, err := s.store.Get(ctx, port.CollectionUsers, identity.ID)
	if err == nil && raw != nil {
		var doc domain.ProfileDocument
		if doc, err = decodeProfile(raw); err == nil {
			p := normalizeStored(identity.ID, doc)
			if p.PhoneNumber == "" {
				p.PhoneNumber = identity.PhoneNumber
			}
			if cerr := st.Commit(identity.ID, p); cerr != nil {
				s.logger.Warn("profile written but session changed", zap.String("user_id", identity.ID))
			}
			return
		}
	}
	s.logger.Warn("profile reload failed, refreshing session",
		zap.String("user_id", identity.ID),
		zap.Error(err),
	)
	st.Refresh()
}
