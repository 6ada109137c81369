package handler

import (
	"net/http"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Auth — POST /v1/auth/otp
// ============================================================

func requestOTPHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/otp")
		defer span.End()

		var req domain.OTPRequest
		if !decodeBody(w, r, &req) {
			return
		}

		resp, err := authSvc.RequestOTP(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusAccepted, resp)
	}
}

// ============================================================
// Auth — POST /v1/auth/otp/verify
// ============================================================

func verifyOTPHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/otp/verify")
		defer span.End()

		var req domain.OTPVerifyRequest
		if !decodeBody(w, r, &req) {
			return
		}

		resp, err := authSvc.VerifyOTP(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Auth — POST /v1/auth/refresh
// ============================================================

func refreshHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/refresh")
		defer span.End()

		var req domain.RefreshRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, "refreshToken is required")
			return
		}

		resp, err := authSvc.Refresh(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Auth — POST /v1/auth/logout
// ============================================================

func logoutHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/logout")
		defer span.End()

		claims := ClaimsFromContext(ctx)
		if claims == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if err := authSvc.Logout(ctx, claims); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
