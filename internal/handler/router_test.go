package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/handler"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/devauth"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/memstore"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/observability"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/port"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/service"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const devCode = "123456"

func TestHealthz(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, handler.Options{}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, handler.Options{}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestReadyz_DependencyDown(t *testing.T) {
	router := handler.NewRouter(handler.Services{
		Pingers: map[string]port.Pinger{"store": failingPinger{}},
	}, handler.Options{}, observability.NewMetrics(), zap.NewNop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)
}

func TestMetrics(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, handler.Options{}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAPIUnavailableWithoutAuth(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, handler.Options{}, observability.NewMetrics(), zap.NewNop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/session", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// the route table does not depend on any service
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/routes", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ============================================================
// End-to-end flows against the in-memory store
// ============================================================

type server struct {
	t      *testing.T
	router http.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memstore.New()
	idp := devauth.New(time.Minute, devCode, logger)
	hub := session.NewHub()
	registry := session.NewRegistry(session.NewResolver(store, time.Second, metrics, logger), time.Hour, 4, metrics, logger)
	detach := registry.Attach(hub)
	auth := service.NewAuthService(idp, store, hub, service.AuthConfig{
		JWTSecret:        "router-test-secret",
		AccessTTL:        15 * time.Minute,
		RefreshTTL:       time.Hour,
		OTPTTL:           time.Minute,
		OTPRatePerMinute: 60,
		OTPBurst:         10,
		DialCode:         "+91",
	}, metrics, logger)

	t.Cleanup(func() {
		detach()
		auth.Close()
		registry.Close()
		idp.Close()
	})

	router := handler.NewRouter(handler.Services{
		Auth:     auth,
		Profiles: service.NewProfileService(store, logger),
		Team:     service.NewTeamService(store, hub, "+91", logger),
		Platform: service.NewPlatformService(store, hub, logger),
		Leads:    service.NewLeadService(store, "+91", logger),
		Voice:    service.NewVoiceLogService(store, logger),
		Sessions: registry,
		Pingers:  map[string]port.Pinger{"store": store},
	}, handler.Options{AwaitTimeout: 2 * time.Second}, metrics, logger)

	return &server{t: t, router: router}
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// signIn runs the OTP flow over HTTP and returns the access token.
func (s *server) signIn(phone string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/v1/auth/otp", "", domain.OTPRequest{PhoneNumber: phone})
	require.Equal(s.t, http.StatusAccepted, rec.Code, rec.Body.String())
	challenge := decode[domain.OTPChallengeResponse](s.t, rec)

	rec = s.do(http.MethodPost, "/v1/auth/otp/verify", "", domain.OTPVerifyRequest{
		VerificationID: challenge.VerificationID,
		Code:           devCode,
	})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	tokens := decode[domain.TokenResponse](s.t, rec)
	require.NotEmpty(s.t, tokens.AccessToken)
	return tokens.AccessToken
}

type sessionBody struct {
	State      string                  `json:"state"`
	Landing    string                  `json:"landing"`
	Loading    bool                    `json:"loading"`
	Profile    *domain.Profile         `json:"profile"`
	Navigation []domain.NavigationItem `json:"navigation"`
}

type decisionBody struct {
	State     string `json:"state"`
	Canonical string `json:"canonical"`
	Action    struct {
		Kind string `json:"kind"`
		To   string `json:"to"`
	} `json:"action"`
}

type errorBody struct {
	Error      string `json:"error"`
	RedirectTo string `json:"redirectTo"`
}

func navKeys(items []domain.NavigationItem) []string {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys
}

func TestDecide_Anonymous(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodGet, "/v1/routes/decide?path=/app/leads", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[decisionBody](t, rec)
	assert.Equal(t, "UNAUTHENTICATED", d.State)
	assert.Equal(t, "REDIRECT", d.Action.Kind)
	assert.Equal(t, "/login", d.Action.To)

	rec = s.do(http.MethodGet, "/v1/routes/decide?path=/login", "", nil)
	d = decode[decisionBody](t, rec)
	assert.Equal(t, "STAY", d.Action.Kind)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newServer(t)

	for _, path := range []string{"/v1/session", "/v1/leads", "/v1/team/members", "/v1/platform/overview"} {
		rec := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := s.do(http.MethodGet, "/v1/session", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOwnerOnboardingFlow(t *testing.T) {
	s := newServer(t)
	token := s.signIn("9876543210")

	// a fresh identity is a new user and lands on onboarding
	rec := s.do(http.MethodGet, "/v1/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess := decode[sessionBody](t, rec)
	assert.Equal(t, "NEW_USER", sess.State)
	assert.Equal(t, "/onboarding", sess.Landing)
	assert.Empty(t, sess.Navigation)

	rec = s.do(http.MethodGet, "/v1/routes/decide?path=/app/dashboard", token, nil)
	d := decode[decisionBody](t, rec)
	assert.Equal(t, "REDIRECT", d.Action.Kind)
	assert.Equal(t, "/onboarding", d.Action.To)

	// app APIs answer with the same redirect the client would apply
	rec = s.do(http.MethodGet, "/v1/leads", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "/onboarding", decode[errorBody](t, rec).RedirectTo)

	rec = s.do(http.MethodPost, "/v1/onboarding/business", token, domain.CreateBusinessRequest{
		BusinessName: "Sharma Realty",
		City:         "Pune",
		OwnerName:    "Anil Sharma",
		Plan:         "pro",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		Business domain.Business `json:"business"`
		Session  sessionBody     `json:"session"`
	}](t, rec)
	assert.Equal(t, "Sharma Realty", created.Business.Name)
	assert.NotEmpty(t, created.Business.ID)
	assert.Equal(t, "ACTIVE", created.Session.State)
	assert.Equal(t, "/app/dashboard", created.Session.Landing)

	rec = s.do(http.MethodGet, "/v1/navigation", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	nav := decode[domain.NavigationResponse](t, rec)
	assert.Equal(t, domain.RoleBusinessOwner, nav.Role)
	assert.Equal(t, "/app/dashboard", nav.HomePath)
	assert.Equal(t, []string{"HomeDashboard", "SalesInbox", "SiteOps", "GrowthStudio", "TeamManager"}, navKeys(nav.Items))

	// onboarding twice is rejected
	rec = s.do(http.MethodPost, "/v1/onboarding/business", token, domain.CreateBusinessRequest{
		BusinessName: "Second", City: "Pune", OwnerName: "Anil", Plan: "pro",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/v1/leads", token, domain.CreateLeadRequest{
		Name:  "Priya",
		Phone: "9812345678",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lead := decode[domain.Lead](t, rec)
	assert.Equal(t, domain.LeadNew, lead.Status)
	assert.Equal(t, "+919812345678", lead.Phone)

	rec = s.do(http.MethodPut, "/v1/leads/"+lead.ID+"/status", token, domain.UpdateLeadStatusRequest{Status: "negotiation"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.LeadNegotiation, decode[domain.Lead](t, rec).Status)

	rec = s.do(http.MethodGet, "/v1/leads/pipeline", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	columns := decode[[]domain.PipelineColumn](t, rec)
	require.Len(t, columns, len(domain.PipelineColumns))
	assert.Len(t, columns[3].Leads, 1)

	// platform screens belong to super admins
	rec = s.do(http.MethodGet, "/v1/platform/overview", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "/app/dashboard", decode[errorBody](t, rec).RedirectTo)
}

func TestInvitedAgentFlow(t *testing.T) {
	s := newServer(t)
	owner := s.signIn("9876543210")
	rec := s.do(http.MethodPost, "/v1/onboarding/business", owner, domain.CreateBusinessRequest{
		BusinessName: "Sharma Realty", City: "Pune", OwnerName: "Anil Sharma", Plan: "pro",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/v1/team/invites", owner, domain.InviteMemberRequest{
		PhoneNumber: "9811122233",
		Name:        "Ravi",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	agent := s.signIn("9811122233")
	rec = s.do(http.MethodGet, "/v1/session", agent, nil)
	sess := decode[sessionBody](t, rec)
	assert.Equal(t, "INVITED", sess.State)
	assert.Equal(t, "/onboarding", sess.Landing)

	rec = s.do(http.MethodPost, "/v1/onboarding/invite/accept", agent, domain.AcceptInviteRequest{Name: "Ravi Kumar"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess = decode[sessionBody](t, rec)
	assert.Equal(t, "ACTIVE", sess.State)
	assert.Equal(t, "/app/bolkar", sess.Landing)
	assert.Equal(t, []string{"HomeDashboard", "SalesInbox", "SiteOps"}, navKeys(sess.Navigation))

	// team screens are app screens, but the agent lacks the permission
	rec = s.do(http.MethodGet, "/v1/team/members", agent, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "can_manage_team"))

	rec = s.do(http.MethodGet, "/v1/leads", agent, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/v1/site/voice-logs", agent, domain.CreateVoiceLogRequest{
		DurationSeconds: 12,
		Transcript:      "Visited plot 14 with the Mehta family",
		Intent:          "log_visit",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/v1/team/members", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.TeamMember](t, rec), 2)
}

func TestRevokedPermissionReachesLiveSession(t *testing.T) {
	s := newServer(t)
	owner := s.signIn("9876543210")
	rec := s.do(http.MethodPost, "/v1/onboarding/business", owner, domain.CreateBusinessRequest{
		BusinessName: "Sharma Realty", City: "Pune", OwnerName: "Anil Sharma", Plan: "pro",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/v1/team/invites", owner, domain.InviteMemberRequest{PhoneNumber: "9811122233", Name: "Ravi"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	agent := s.signIn("9811122233")
	rec = s.do(http.MethodPost, "/v1/onboarding/invite/accept", agent, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess := decode[sessionBody](t, rec)
	require.NotNil(t, sess.Profile)
	require.Contains(t, navKeys(sess.Navigation), "SalesInbox")

	rec = s.do(http.MethodGet, "/v1/leads", agent, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPut, "/v1/team/members/"+sess.Profile.UID+"/permissions", owner, domain.UpdatePermissionsRequest{
		Permissions: domain.Permissions{CanAccessSite: true},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/v1/leads", agent, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "can_view_leads")

	rec = s.do(http.MethodGet, "/v1/navigation", agent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	nav := decode[domain.NavigationResponse](t, rec)
	assert.NotContains(t, navKeys(nav.Items), "SalesInbox")
	assert.Contains(t, navKeys(nav.Items), "SiteOps")

	// the owner's own session is untouched
	rec = s.do(http.MethodGet, "/v1/leads", owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	s := newServer(t)
	token := s.signIn("9876543210")

	rec := s.do(http.MethodPost, "/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/v1/leads", token, nil)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestDevRoleRouteOnlyWithDevTools(t *testing.T) {
	s := newServer(t)
	token := s.signIn("9876543210")

	rec := s.do(http.MethodPost, "/v1/dev/role", token, domain.SwitchRoleRequest{Role: "super_admin"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
