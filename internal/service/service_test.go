package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/devauth"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/memstore"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/observability"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/service"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/session"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	devCode    = "123456"
	ownerPhone = "+919876543210"
	agentPhone = "+919811122233"
)

// env wires the services against the in-memory store and dev identity
// provider, the same way the server does without Supabase.
type env struct {
	store    *memstore.Store
	idp      *devauth.Provider
	hub      *session.Hub
	registry *session.Registry
	metrics  *observability.Metrics
	auth     *service.AuthService
	profiles *service.ProfileService
	team     *service.TeamService
	platform *service.PlatformService
	leads    *service.LeadService
	voice    *service.VoiceLogService
}

func testAuthConfig() service.AuthConfig {
	return service.AuthConfig{
		JWTSecret:        "test-secret",
		AccessTTL:        15 * time.Minute,
		RefreshTTL:       time.Hour,
		OTPTTL:           time.Minute,
		OTPRatePerMinute: 60,
		OTPBurst:         10,
		DialCode:         "+91",
	}
}

func newEnv(t *testing.T, cfg service.AuthConfig) *env {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memstore.New()
	idp := devauth.New(cfg.OTPTTL, devCode, logger)
	hub := session.NewHub()
	registry := session.NewRegistry(session.NewResolver(store, time.Second, metrics, logger), time.Hour, 4, metrics, logger)
	detach := registry.Attach(hub)
	auth := service.NewAuthService(idp, store, hub, cfg, metrics, logger)

	t.Cleanup(func() {
		detach()
		auth.Close()
		registry.Close()
		idp.Close()
	})

	return &env{
		store:    store,
		idp:      idp,
		hub:      hub,
		registry: registry,
		metrics:  metrics,
		auth:     auth,
		profiles: service.NewProfileService(store, logger),
		team:     service.NewTeamService(store, hub, cfg.DialCode, logger),
		platform: service.NewPlatformService(store, hub, logger),
		leads:    service.NewLeadService(store, cfg.DialCode, logger),
		voice:    service.NewVoiceLogService(store, logger),
	}
}

// signIn runs the OTP flow for phone and waits for the session to resolve.
func (e *env) signIn(t *testing.T, phone string) (*domain.TokenResponse, *session.State) {
	t.Helper()
	ctx := context.Background()

	challenge, err := e.auth.RequestOTP(ctx, &domain.OTPRequest{PhoneNumber: phone})
	require.NoError(t, err)

	tokens, err := e.auth.VerifyOTP(ctx, &domain.OTPVerifyRequest{VerificationID: challenge.VerificationID, Code: devCode})
	require.NoError(t, err)

	st, ok := e.registry.Get(tokens.SessionID)
	require.True(t, ok, "verify should create a session")
	awaitSettled(t, st)
	return tokens, st
}

func awaitSettled(t *testing.T, st *session.State) session.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := st.Await(ctx)
	require.NoError(t, err)
	return snap
}

// newOwner signs in a fresh user and creates a business for them.
func (e *env) newOwner(t *testing.T, phone, business string) (*domain.Business, *session.State) {
	t.Helper()
	_, st := e.signIn(t, phone)
	b, err := e.profiles.CreateBusiness(context.Background(), st, &domain.CreateBusinessRequest{
		BusinessName: business,
		City:         "Pune",
		OwnerName:    "Owner",
		Plan:         "pro",
	})
	require.NoError(t, err)
	return b, st
}

func profileOf(t *testing.T, st *session.State) domain.Profile {
	t.Helper()
	snap := awaitSettled(t, st)
	require.NotNil(t, snap.Profile)
	return *snap.Profile
}
