package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/port"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "easybiz-api"

// ============================================================
// ValidateAccessToken — used by middleware
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub       string `json:"sub"`
	Phone     string `json:"phone"`
	SessionID string `json:"sid"`
	Type      string `json:"type"`
	jwt.RegisteredClaims
}

// Identity returns the identity the token was issued to.
func (c *JWTClaims) Identity() *domain.Identity {
	return &domain.Identity{ID: c.Sub, PhoneNumber: c.Phone, Verified: true}
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != "access" || claims.SessionID == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	return claims, nil
}

// ============================================================
// Internal token helpers
// ============================================================

// issueTokens signs an access token and stores a new refresh token hash in
// one batch together with extra.
func (s *AuthService) issueTokens(ctx context.Context, userID, phone, sessionID string, extra []port.Write) (*domain.TokenResponse, error) {
	accessToken, err := s.signAccessToken(userID, phone, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, refreshHash, err := generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := time.Now().UTC()
	writes := append(extra, port.Write{
		Op:         port.OpSet,
		Collection: port.CollectionRefreshTokens,
		Key:        refreshHash,
		Data: map[string]any{
			"tokenHash":   refreshHash,
			"userId":      userID,
			"phoneNumber": phone,
			"sessionId":   sessionID,
			"expiresAt":   now.Add(s.cfg.RefreshTTL).Format(time.RFC3339Nano),
			"createdAt":   now.Format(time.RFC3339Nano),
		},
	})
	if err := s.store.RunBatch(ctx, writes); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.cfg.AccessTTL.Seconds()),
		UserID:       userID,
		SessionID:    sessionID,
		PhoneNumber:  phone,
	}, nil
}

func (s *AuthService) getRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	raw, err := s.store.Get(ctx, port.CollectionRefreshTokens, tokenHash)
	if err != nil || raw == nil {
		return nil, err
	}
	var rt domain.RefreshToken
	if err := json.Unmarshal(raw, &rt); err != nil {
		return nil, fmt.Errorf("decode refresh token: %w", err)
	}
	return &rt, nil
}

func (s *AuthService) signAccessToken(userID, phone, sessionID string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:       userID,
		Phone:     phone,
		SessionID: sessionID,
		Type:      "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func generateRefreshToken() (raw string, hashed string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	hashed = hashToken(raw)
	return raw, hashed, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
