// Package handler is the HTTP surface of the EasyBiz backend: phone OTP
// auth, session and route decisions, onboarding, team, platform and lead
// endpoints.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/observability"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/policy"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/port"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/service"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services are the dependencies of the router. Any of them may be nil; the
// routes they serve then answer 503.
type Services struct {
	Auth     *service.AuthService
	Profiles *service.ProfileService
	Team     *service.TeamService
	Platform *service.PlatformService
	Leads    *service.LeadService
	Voice    *service.VoiceLogService
	Sessions *session.Registry
	Policy   *policy.Policy
	Routes   *policy.Routes

	// Pingers are probed by /healthz and /readyz, keyed by dependency name.
	Pingers map[string]port.Pinger
}

// Options tune the router.
type Options struct {
	AllowedOrigins []string
	AwaitTimeout   time.Duration
	DevTools       bool
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	if svc.Policy == nil {
		svc.Policy = policy.New(policy.DefaultPaths())
	}
	if svc.Routes == nil {
		svc.Routes = policy.NewRoutes(svc.Policy)
	}
	if opts.AwaitTimeout <= 0 {
		opts.AwaitTimeout = 3 * time.Second
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(observability.MetricsMiddleware(metrics, routePattern))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Pingers, logger))
	r.Get("/readyz", readyzHandler(svc.Pingers, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		// Route table is public: the client needs it before signing in.
		r.Get("/routes", routesHandler(svc.Routes))

		if svc.Auth == nil || svc.Sessions == nil {
			r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "auth service unavailable")
			}))
			return
		}

		sessionMW := SessionMiddleware(svc.Sessions, opts.AwaitTimeout, logger)

		// =============================================
		// Auth
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/otp", requestOTPHandler(svc.Auth, logger))
			r.Post("/otp/verify", verifyOTPHandler(svc.Auth, logger))
			r.Post("/refresh", refreshHandler(svc.Auth, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(svc.Auth, logger))
				r.Post("/logout", logoutHandler(svc.Auth, logger))
			})
		})

		// =============================================
		// Route decision (anonymous callers are UNAUTHENTICATED)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(OptionalAuthMiddleware(svc.Auth, logger))
			r.Use(sessionMW)
			r.Get("/routes/decide", decideHandler(svc.Routes, metrics))
		})

		// =============================================
		// Signed-in endpoints
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svc.Auth, logger))
			r.Use(sessionMW)

			r.Get("/session", sessionHandler(svc.Policy, opts.AwaitTimeout))
			r.Get("/navigation", navigationHandler(svc.Policy))

			r.Route("/onboarding", func(r chi.Router) {
				r.Post("/business", createBusinessHandler(svc.Profiles, svc.Policy, opts.AwaitTimeout, logger))
				r.Post("/join", joinTeamHandler(svc.Profiles, svc.Policy, opts.AwaitTimeout, logger))
				r.Post("/invite/accept", acceptInviteHandler(svc.Profiles, svc.Policy, opts.AwaitTimeout, logger))
			})
			r.Put("/profile", updateProfileHandler(svc.Profiles, svc.Policy, opts.AwaitTimeout, logger))

			if opts.DevTools {
				r.Post("/dev/role", switchRoleHandler(svc.Profiles, svc.Policy, opts.AwaitTimeout, logger))
			}

			// --- Leads & pipeline ---
			r.Group(func(r chi.Router) {
				r.Use(Guard(svc.Routes, "/app/leads", metrics, logger))
				r.Use(RequirePermission(domain.PermViewLeads))
				r.Get("/leads", listLeadsHandler(svc.Leads, logger))
				r.Post("/leads", createLeadHandler(svc.Leads, logger))
				r.Get("/leads/pipeline", pipelineHandler(svc.Leads, logger))
				r.Put("/leads/{leadID}/status", updateLeadStatusHandler(svc.Leads, logger))
			})

			// --- Site operations ---
			r.Group(func(r chi.Router) {
				r.Use(Guard(svc.Routes, "/app/bolkar", metrics, logger))
				r.Use(RequirePermission(domain.PermAccessSite))
				r.Get("/site/voice-logs", listVoiceLogsHandler(svc.Voice, logger))
				r.Post("/site/voice-logs", recordVoiceLogHandler(svc.Voice, logger))
			})

			// --- Team ---
			r.Group(func(r chi.Router) {
				r.Use(Guard(svc.Routes, "/app/team", metrics, logger))
				r.Use(RequirePermission(domain.PermManageTeam))
				r.Get("/team/members", listMembersHandler(svc.Team, logger))
				r.Post("/team/invites", inviteMemberHandler(svc.Team, logger))
				r.Put("/team/members/{memberID}/permissions", updatePermissionsHandler(svc.Team, logger))
			})

			// --- Platform (super admin) ---
			r.Group(func(r chi.Router) {
				r.Use(Guard(svc.Routes, "/platform/overview", metrics, logger))
				r.Get("/platform/overview", platformOverviewHandler(svc.Platform, logger))
				r.Get("/platform/tenants", listTenantsHandler(svc.Platform, logger))
				r.Put("/platform/tenants/{tenantID}/status", setTenantStatusHandler(svc.Platform, logger))
				r.Get("/platform/users", listUsersHandler(svc.Platform, logger))
			})
		})
	})

	return r
}

// routePattern labels request metrics by route template, not raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// unavailable answers 503 for routes whose service is not configured.
func unavailable(w http.ResponseWriter, name string) {
	writeError(w, http.StatusServiceUnavailable, name+" service unavailable")
}

// ============================================================
// Probes
// ============================================================

func probe(ctx context.Context, pingers map[string]port.Pinger) []domain.ServiceHealth {
	now := time.Now().Format(time.RFC3339)
	services := []domain.ServiceHealth{
		{Name: "easybiz-api", Status: "healthy", LastChecked: now},
	}
	for name, p := range pingers {
		start := time.Now()
		err := p.Ping(ctx)
		status := "healthy"
		if err != nil {
			status = "unhealthy"
		}
		services = append(services, domain.ServiceHealth{
			Name:        name,
			Status:      status,
			LatencyMs:   time.Since(start).Milliseconds(),
			LastChecked: now,
		})
	}
	return services
}

func healthzHandler(pingers map[string]port.Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		services := probe(ctx, pingers)
		overall := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overall = "degraded"
				logger.Warn("healthz: dependency unhealthy", zap.String("dependency", s.Name))
			}
		}
		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler(pingers map[string]port.Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, p := range pingers {
			if err := p.Ping(ctx); err != nil {
				logger.Warn("readyz: dependency not ready", zap.String("dependency", name), zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "dependency": name})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
