package domain

import "time"

// ============================================================
// Auth — Request / Response types
// ============================================================

// OTPRequest is the body for POST /v1/auth/otp.
type OTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

// OTPChallengeResponse is returned after an OTP has been sent.
type OTPChallengeResponse struct {
	VerificationID string `json:"verificationId"`
	PhoneNumber    string `json:"phoneNumber"`
	ExpiresIn      int    `json:"expiresIn"`
}

// OTPVerifyRequest is the body for POST /v1/auth/otp/verify.
type OTPVerifyRequest struct {
	VerificationID string `json:"verificationId"`
	Code           string `json:"code"`
}

// TokenResponse is returned by verify and refresh.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	UserID       string `json:"userId"`
	SessionID    string `json:"sessionId"`
	PhoneNumber  string `json:"phoneNumber"`
}

// RefreshRequest is the body for POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken is a stored refresh token. Only the hash is persisted.
type RefreshToken struct {
	TokenHash   string    `json:"tokenHash"`
	UserID      string    `json:"userId"`
	PhoneNumber string    `json:"phoneNumber"`
	SessionID   string    `json:"sessionId"`
	ExpiresAt   time.Time `json:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt"`
}
