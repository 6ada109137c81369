package handler

import (
	"net/http"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Platform — GET /v1/platform/overview
// ============================================================

func platformOverviewHandler(platformSvc *service.PlatformService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/platform/overview")
		defer span.End()

		if platformSvc == nil {
			unavailable(w, "platform")
			return
		}

		ov, err := platformSvc.Overview(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, ov)
	}
}

// ============================================================
// Platform — GET /v1/platform/tenants
// ============================================================

func listTenantsHandler(platformSvc *service.PlatformService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/platform/tenants")
		defer span.End()

		if platformSvc == nil {
			unavailable(w, "platform")
			return
		}
		page, pageSize := parsePagination(r)

		resp, err := platformSvc.ListTenants(ctx, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Platform — PUT /v1/platform/tenants/{tenantID}/status
// ============================================================

func setTenantStatusHandler(platformSvc *service.PlatformService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/platform/tenants/{tenantID}/status")
		defer span.End()

		if platformSvc == nil {
			unavailable(w, "platform")
			return
		}
		actor, ok := actorFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req domain.UpdateTenantStatusRequest
		if !decodeBody(w, r, &req) {
			return
		}

		business, err := platformSvc.SetTenantStatus(ctx, actor, chi.URLParam(r, "tenantID"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, business)
	}
}

// ============================================================
// Platform — GET /v1/platform/users?role=
// ============================================================

func listUsersHandler(platformSvc *service.PlatformService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/platform/users")
		defer span.End()

		if platformSvc == nil {
			unavailable(w, "platform")
			return
		}

		var role domain.Role
		if q := r.URL.Query().Get("role"); q != "" {
			role = domain.ParseRole(q)
			if role == domain.RoleNone {
				writeError(w, http.StatusBadRequest, "unknown role: "+q)
				return
			}
		}
		page, pageSize := parsePagination(r)

		resp, err := platformSvc.ListUsers(ctx, role, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
