// Package service holds the application use cases: phone OTP auth,
// onboarding, team and platform administration, leads and voice logs.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/cache"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/observability"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/port"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/session"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

// AuthConfig holds token and OTP settings.
type AuthConfig struct {
	JWTSecret        string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	OTPTTL           time.Duration
	OTPRatePerMinute float64
	OTPBurst         int
	DialCode         string
}

// AuthService runs the phone OTP flow and issues session tokens. Every
// sign-in and sign-out is published on the identity hub.
type AuthService struct {
	idp     port.IdentityProvider
	store   port.DocumentStore
	hub     *session.Hub
	pending *cache.InMemory[*domain.PendingConfirmation]
	limiter *phoneLimiter
	cfg     AuthConfig
	secret  []byte
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(idp port.IdentityProvider, store port.DocumentStore, hub *session.Hub, cfg AuthConfig, metrics *observability.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		idp:     idp,
		store:   store,
		hub:     hub,
		pending: cache.New[*domain.PendingConfirmation](cfg.OTPTTL),
		limiter: newPhoneLimiter(cfg.OTPRatePerMinute, cfg.OTPBurst, 5*time.Minute),
		cfg:     cfg,
		secret:  []byte(cfg.JWTSecret),
		metrics: metrics,
		logger:  logger,
	}
}

// Close stops background cleanup.
func (s *AuthService) Close() {
	s.pending.Stop()
	s.limiter.stop()
}

// ============================================================
// RequestOTP — POST /v1/auth/otp
// ============================================================

func (s *AuthService) RequestOTP(ctx context.Context, req *domain.OTPRequest) (*domain.OTPChallengeResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.RequestOTP")
	defer span.End()

	phone, err := domain.NormalizePhone(req.PhoneNumber, s.cfg.DialCode)
	if err != nil {
		return nil, err
	}

	if ok, retryAfter := s.limiter.allow(phone); !ok {
		s.metrics.IncrOTP("send", "rate_limited")
		s.logger.Warn("otp: rate limit exceeded", zap.String("phone", maskPhone(phone)))
		return nil, &domain.ErrRateLimited{Key: phone, RetryAfter: retryAfter}
	}

	verificationID := uuid.NewString()
	pending, err := s.idp.SignInWithPhone(ctx, phone, verificationID)
	if err != nil {
		s.metrics.IncrOTP("send", "error")
		return nil, fmt.Errorf("send otp: %w", err)
	}
	s.pending.Set(pending.VerificationID, pending)
	s.metrics.IncrOTP("send", "ok")

	s.logger.Info("otp sent",
		zap.String("phone", maskPhone(phone)),
		zap.String("verification_id", pending.VerificationID),
	)

	return &domain.OTPChallengeResponse{
		VerificationID: pending.VerificationID,
		PhoneNumber:    phone,
		ExpiresIn:      int(time.Until(pending.ExpiresAt).Seconds()),
	}, nil
}

// ============================================================
// VerifyOTP — POST /v1/auth/otp/verify
// ============================================================

func (s *AuthService) VerifyOTP(ctx context.Context, req *domain.OTPVerifyRequest) (*domain.TokenResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.VerifyOTP")
	defer span.End()

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, &domain.ErrValidation{Field: "code", Message: "is required"}
	}

	pending, ok := s.pending.Get(req.VerificationID)
	if !ok {
		s.metrics.IncrOTP("verify", "expired")
		return nil, &domain.ErrInvalidCode{Expired: true}
	}

	identity, err := s.idp.Confirm(ctx, pending, code)
	if err != nil {
		var ic *domain.ErrInvalidCode
		if errors.As(err, &ic) {
			if ic.Expired {
				s.pending.Delete(req.VerificationID)
			}
			s.metrics.IncrOTP("verify", "invalid")
			return nil, err
		}
		s.metrics.IncrOTP("verify", "error")
		return nil, fmt.Errorf("confirm otp: %w", err)
	}
	s.pending.Delete(req.VerificationID)
	span.SetAttributes(attribute.String("user.id", identity.ID))

	sessionID := uuid.NewString()
	resp, err := s.issueTokens(ctx, identity.ID, identity.PhoneNumber, sessionID, nil)
	if err != nil {
		return nil, err
	}

	s.hub.Publish(session.IdentityEvent{SessionID: sessionID, Identity: identity})
	s.metrics.IncrOTP("verify", "ok")

	s.logger.Info("user signed in",
		zap.String("user_id", identity.ID),
		zap.String("session_id", sessionID),
	)
	return resp, nil
}

// ============================================================
// Refresh — POST /v1/auth/refresh
// ============================================================

func (s *AuthService) Refresh(ctx context.Context, req *domain.RefreshRequest) (*domain.TokenResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	tokenHash := hashToken(req.RefreshToken)
	stored, err := s.getRefreshToken(ctx, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	if stored == nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid refresh token"}
	}

	if stored.ExpiresAt.Before(time.Now()) {
		s.logger.Warn("refresh: expired token used", zap.String("user_id", stored.UserID))
		_ = s.store.RunBatch(ctx, []port.Write{{Op: port.OpDelete, Collection: port.CollectionRefreshTokens, Key: tokenHash}})
		return nil, &domain.ErrUnauthorized{Message: "refresh token expired"}
	}

	// Rotation: the old hash is consumed in the same batch that stores the
	// new one, so of two concurrent refreshes only one can succeed.
	resp, err := s.issueTokens(ctx, stored.UserID, stored.PhoneNumber, stored.SessionID, []port.Write{
		{Op: port.OpConsume, Collection: port.CollectionRefreshTokens, Key: tokenHash},
	})
	var conflict *domain.ErrConflict
	if errors.As(err, &conflict) {
		s.logger.Warn("refresh: token already rotated",
			zap.String("user_id", stored.UserID),
			zap.String("session_id", stored.SessionID),
		)
		return nil, &domain.ErrUnauthorized{Message: "invalid refresh token"}
	}
	return resp, err
}

// ============================================================
// Logout — POST /v1/auth/logout
// ============================================================

func (s *AuthService) Logout(ctx context.Context, claims *JWTClaims) error {
	ctx, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	docs, err := s.store.List(ctx, port.CollectionRefreshTokens, map[string]string{"sessionId": claims.SessionID})
	if err != nil {
		return fmt.Errorf("list refresh tokens: %w", err)
	}
	if len(docs) > 0 {
		writes := make([]port.Write, 0, len(docs))
		for _, d := range docs {
			writes = append(writes, port.Write{Op: port.OpDelete, Collection: port.CollectionRefreshTokens, Key: d.Key})
		}
		if err := s.store.RunBatch(ctx, writes); err != nil {
			return fmt.Errorf("revoke refresh tokens: %w", err)
		}
	}

	identity := &domain.Identity{ID: claims.Sub, PhoneNumber: claims.Phone}
	if err := s.idp.SignOut(ctx, identity); err != nil {
		s.logger.Warn("logout: identity provider sign out failed",
			zap.String("user_id", claims.Sub),
			zap.Error(err),
		)
	}

	s.hub.Publish(session.IdentityEvent{SessionID: claims.SessionID})
	s.logger.Info("user signed out",
		zap.String("user_id", claims.Sub),
		zap.String("session_id", claims.SessionID),
	)
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
