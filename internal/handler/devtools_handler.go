package handler

import (
	"net/http"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/policy"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Dev Tools — POST /v1/dev/role
// ============================================================

// switchRoleHandler is only mounted when DEV_TOOLS is enabled.
func switchRoleHandler(profiles *service.ProfileService, pol *policy.Policy, awaitTimeout time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/dev/role")
		defer span.End()

		if profiles == nil {
			unavailable(w, "profile")
			return
		}
		var req domain.SwitchRoleRequest
		if !decodeBody(w, r, &req) {
			return
		}

		st := SessionFromContext(ctx)
		if err := profiles.SwitchRole(ctx, st, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, afterWrite(r, pol, st, awaitTimeout))
	}
}
