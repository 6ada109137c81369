package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/observability"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/policy"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/service"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/session"

	"go.uber.org/zap"
)

type contextKey string

const (
	claimsKey   contextKey = "claims"
	sessionKey  contextKey = "session"
	snapshotKey contextKey = "snapshot"
)

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// JWTAuthMiddleware validates Bearer tokens and injects the claims into context.
func JWTAuthMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				logger.Warn("auth: missing or malformed token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := authSvc.ValidateAccessToken(tokenString)
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware injects claims when a valid token is present and
// lets the request through anonymously otherwise.
func OptionalAuthMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString, ok := bearerToken(r); ok {
				claims, err := authSvc.ValidateAccessToken(tokenString)
				if err == nil {
					r = r.WithContext(context.WithValue(r.Context(), claimsKey, claims))
				} else {
					logger.Debug("auth: ignoring invalid token", zap.String("path", r.URL.Path))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionMiddleware attaches the caller's session state. It waits up to
// awaitTimeout for an in-flight profile resolution; if that runs out the
// loading snapshot is attached and guards answer 503.
func SessionMiddleware(registry *session.Registry, awaitTimeout time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				next.ServeHTTP(w, r)
				return
			}

			st, err := registry.Ensure(claims.SessionID, claims.Identity())
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}

			snap := awaitSnapshot(r.Context(), st, awaitTimeout)
			ctx := context.WithValue(r.Context(), sessionKey, st)
			ctx = context.WithValue(ctx, snapshotKey, snap)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func awaitSnapshot(ctx context.Context, st *session.State, timeout time.Duration) session.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	snap, _ := st.Await(ctx)
	return snap
}

// Guard protects an API group with the same decision the client applies to
// screen. A redirect becomes 401 (signed out) or 403, carrying the target.
func Guard(routes *policy.Routes, screen string, metrics *observability.Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := SnapshotFromContext(r.Context())
			state := snap.PolicyState()
			decision := routes.Evaluate(state, screen, snap.Role())
			metrics.IncrDecision(string(state), string(decision.Action.Kind))

			switch {
			case state == policy.StateLoading:
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusServiceUnavailable, "session is still loading, retry")
			case decision.Action.Kind == policy.Stay:
				next.ServeHTTP(w, r)
			default:
				status := http.StatusForbidden
				if state == policy.StateUnauthenticated {
					status = http.StatusUnauthorized
				}
				logger.Debug("guard: request redirected",
					zap.String("path", r.URL.Path),
					zap.String("state", string(state)),
					zap.String("redirect_to", decision.Action.To),
				)
				writeJSON(w, status, errorResponse{
					Error:      "not allowed in the current session state",
					RedirectTo: decision.Action.To,
				})
			}
		})
	}
}

// RequirePermission rejects callers whose normalized permissions lack perm.
func RequirePermission(perm domain.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := SnapshotFromContext(r.Context())
			if !snap.Permissions().Has(perm) {
				writeError(w, http.StatusForbidden, "missing permission "+string(perm))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns the validated token claims, or nil.
func ClaimsFromContext(ctx context.Context) *service.JWTClaims {
	c, _ := ctx.Value(claimsKey).(*service.JWTClaims)
	return c
}

// SessionFromContext returns the caller's session state, or nil.
func SessionFromContext(ctx context.Context) *session.State {
	st, _ := ctx.Value(sessionKey).(*session.State)
	return st
}

// SnapshotFromContext returns the snapshot taken when the request entered.
// Anonymous requests get the signed-out zero snapshot.
func SnapshotFromContext(ctx context.Context) session.Snapshot {
	snap, _ := ctx.Value(snapshotKey).(session.Snapshot)
	return snap
}

// actorFromContext returns the caller's profile for tenant-scoped services.
func actorFromContext(ctx context.Context) (domain.Profile, bool) {
	snap := SnapshotFromContext(ctx)
	if snap.Profile == nil {
		return domain.Profile{}, false
	}
	return *snap.Profile, true
}
