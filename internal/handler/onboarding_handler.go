package handler

import (
	"net/http"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/policy"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/service"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/session"

	"go.uber.org/zap"
)

// createBusinessResponse is the body of POST /v1/onboarding/business.
type createBusinessResponse struct {
	Business *domain.Business `json:"business"`
	Session  sessionResponse  `json:"session"`
}

// afterWrite returns the session as published once the write settled.
func afterWrite(r *http.Request, pol *policy.Policy, st *session.State, awaitTimeout time.Duration) sessionResponse {
	return newSessionResponse(pol, awaitSnapshot(r.Context(), st, awaitTimeout))
}

// ============================================================
// Onboarding — POST /v1/onboarding/business
// ============================================================

func createBusinessHandler(profiles *service.ProfileService, pol *policy.Policy, awaitTimeout time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/business")
		defer span.End()

		if profiles == nil {
			unavailable(w, "profile")
			return
		}
		var req domain.CreateBusinessRequest
		if !decodeBody(w, r, &req) {
			return
		}

		st := SessionFromContext(ctx)
		business, err := profiles.CreateBusiness(ctx, st, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, createBusinessResponse{
			Business: business,
			Session:  afterWrite(r, pol, st, awaitTimeout),
		})
	}
}

// ============================================================
// Onboarding — POST /v1/onboarding/join
// ============================================================

func joinTeamHandler(profiles *service.ProfileService, pol *policy.Policy, awaitTimeout time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/join")
		defer span.End()

		if profiles == nil {
			unavailable(w, "profile")
			return
		}
		var req domain.JoinTeamRequest
		if !decodeBody(w, r, &req) {
			return
		}

		st := SessionFromContext(ctx)
		if err := profiles.JoinTeam(ctx, st, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, afterWrite(r, pol, st, awaitTimeout))
	}
}

// ============================================================
// Onboarding — POST /v1/onboarding/invite/accept
// ============================================================

func acceptInviteHandler(profiles *service.ProfileService, pol *policy.Policy, awaitTimeout time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/invite/accept")
		defer span.End()

		if profiles == nil {
			unavailable(w, "profile")
			return
		}
		var req domain.AcceptInviteRequest
		// the body is optional
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}

		st := SessionFromContext(ctx)
		if err := profiles.AcceptInvite(ctx, st, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, afterWrite(r, pol, st, awaitTimeout))
	}
}

// ============================================================
// Profile — PUT /v1/profile
// ============================================================

func updateProfileHandler(profiles *service.ProfileService, pol *policy.Policy, awaitTimeout time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/profile")
		defer span.End()

		if profiles == nil {
			unavailable(w, "profile")
			return
		}
		var req domain.UpdateProfileRequest
		if !decodeBody(w, r, &req) {
			return
		}

		st := SessionFromContext(ctx)
		if err := profiles.UpdateProfile(ctx, st, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, afterWrite(r, pol, st, awaitTimeout))
	}
}
