package domain

import (
	"strings"
	"time"
)

// Identity is an authenticated principal issued by the identity provider.
// It carries no application role.
type Identity struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phoneNumber"`
	Verified    bool   `json:"verified"`
}

// Same reports whether two identities denote the same principal.
func (i *Identity) Same(other *Identity) bool {
	if i == nil || other == nil {
		return i == other
	}
	return i.ID == other.ID && i.PhoneNumber == other.PhoneNumber
}

// PendingConfirmation is an outstanding phone challenge awaiting its code.
type PendingConfirmation struct {
	VerificationID string    `json:"verificationId"`
	PhoneNumber    string    `json:"phoneNumber"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// NormalizePhone converts user input to E.164. A bare ten-digit national
// number gets dialCode prepended.
func NormalizePhone(raw, dialCode string) (string, error) {
	s := strings.TrimSpace(raw)
	plus := strings.HasPrefix(s, "+")

	var digits strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", &ErrValidation{Field: "phoneNumber", Message: "phone number may only contain digits"}
		}
	}

	d := digits.String()
	switch {
	case plus && len(d) >= 8 && len(d) <= 15:
		return "+" + d, nil
	case !plus && len(d) == 10:
		return dialCode + d, nil
	default:
		return "", &ErrValidation{Field: "phoneNumber", Message: "enter a valid 10-digit mobile number"}
	}
}
