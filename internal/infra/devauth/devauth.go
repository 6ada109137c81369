// Package devauth is a local phone identity provider for development.
// Codes are printed to the log instead of being sent by SMS.
package devauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/infra/cache"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/port"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MaxAttempts is how many wrong codes a challenge tolerates.
const MaxAttempts = 5

type challenge struct {
	phone     string
	codeHash  []byte
	attempts  int
	expiresAt time.Time
}

// Provider implements port.IdentityProvider without an external service.
type Provider struct {
	mu        sync.Mutex
	pending   *cache.InMemory[*challenge]
	fixedCode string
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

var _ port.IdentityProvider = (*Provider)(nil)

// New creates a provider. When fixedCode is empty a random six-digit code
// is generated per challenge.
func New(ttl time.Duration, fixedCode string, logger *zap.Logger) *Provider {
	return &Provider{
		pending:   cache.New[*challenge](ttl),
		fixedCode: fixedCode,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// Close stops the challenge cache.
func (p *Provider) Close() {
	p.pending.Stop()
}

// SignInWithPhone creates a challenge and logs its code.
func (p *Provider) SignInWithPhone(ctx context.Context, phoneNumber, challengeHandle string) (*domain.PendingConfirmation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	code := p.fixedCode
	if code == "" {
		n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
		if err != nil {
			return nil, fmt.Errorf("devauth: generate code: %w", err)
		}
		code = fmt.Sprintf("%06d", n.Int64())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("devauth: hash code: %w", err)
	}

	expiresAt := p.now().Add(p.ttl)
	p.pending.Set(challengeHandle, &challenge{phone: phoneNumber, codeHash: hash, expiresAt: expiresAt})

	p.logger.Info("devauth: verification code issued",
		zap.String("verification_id", challengeHandle),
		zap.String("phone", phoneNumber),
		zap.String("code", code),
	)

	return &domain.PendingConfirmation{
		VerificationID: challengeHandle,
		PhoneNumber:    phoneNumber,
		ExpiresAt:      expiresAt,
	}, nil
}

// Confirm checks code against the stored challenge. A challenge is consumed
// on success and dropped after MaxAttempts failures.
func (p *Provider) Confirm(ctx context.Context, pending *domain.PendingConfirmation, code string) (*domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, &domain.ErrValidation{Field: "verificationId", Message: "no pending confirmation"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, ok := p.pending.Get(pending.VerificationID)
	if !ok || p.now().After(ch.expiresAt) {
		p.pending.Delete(pending.VerificationID)
		return nil, &domain.ErrInvalidCode{Expired: true}
	}
	if ch.phone != pending.PhoneNumber {
		return nil, &domain.ErrInvalidCode{}
	}

	if err := bcrypt.CompareHashAndPassword(ch.codeHash, []byte(code)); err != nil {
		ch.attempts++
		if ch.attempts >= MaxAttempts {
			p.pending.Delete(pending.VerificationID)
			p.logger.Warn("devauth: challenge dropped after too many attempts",
				zap.String("verification_id", pending.VerificationID),
			)
			return nil, &domain.ErrInvalidCode{Expired: true}
		}
		return nil, &domain.ErrInvalidCode{}
	}

	p.pending.Delete(pending.VerificationID)
	return &domain.Identity{
		ID:          UserID(ch.phone),
		PhoneNumber: ch.phone,
		Verified:    true,
	}, nil
}

// SignOut has nothing to revoke.
func (p *Provider) SignOut(context.Context, *domain.Identity) error {
	return nil
}

// UserID derives a stable identity id from a phone number.
func UserID(phone string) string {
	sum := sha256.Sum256([]byte(phone))
	return "dev_" + hex.EncodeToString(sum[:])[:20]
}
