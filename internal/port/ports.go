// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"encoding/json"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
)

// Collections used in the document store.
const (
	CollectionUsers         = "users"
	CollectionBusinesses    = "businesses"
	CollectionLeads         = "leads"
	CollectionVoiceLogs     = "voice_logs"
	CollectionRefreshTokens = "refresh_tokens"
)

// WriteOp is the kind of a batched write.
type WriteOp string

// OpConsume and OpRequireUnset are preconditions. They are checked against
// the stored state before any write of the batch is applied, and a failed
// check aborts the whole batch with domain.ErrConflict.
const (
	OpSet    WriteOp = "set"
	OpMerge  WriteOp = "merge"
	OpDelete WriteOp = "delete"
	// OpConsume deletes the document and requires it to exist.
	OpConsume WriteOp = "consume"
	// OpRequireUnset writes nothing. It requires that the document is absent
	// or that every field in Fields is missing or empty.
	OpRequireUnset WriteOp = "require_unset"
)

// Write is one operation in an atomic batch.
type Write struct {
	Op         WriteOp        `json:"op"`
	Collection string         `json:"collection"`
	Key        string         `json:"key"`
	Data       map[string]any `json:"data,omitempty"`
	Fields     []string       `json:"fields,omitempty"`
}

// Document is a stored document and its key.
type Document struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// DocumentStore is the hosted profile/document database.
type DocumentStore interface {
	// Get returns the document, or nil when absent.
	Get(ctx context.Context, collection, key string) (json.RawMessage, error)
	// SetMerge shallow-merges fields into the document, creating it if needed.
	SetMerge(ctx context.Context, collection, key string, fields map[string]any) error
	// RunBatch applies all writes atomically.
	RunBatch(ctx context.Context, writes []Write) error
	// List returns documents whose top-level string fields equal filter.
	List(ctx context.Context, collection string, filter map[string]string) ([]Document, error)
}

// IdentityProvider issues identities after phone OTP verification.
type IdentityProvider interface {
	SignInWithPhone(ctx context.Context, phoneNumber, challengeHandle string) (*domain.PendingConfirmation, error)
	Confirm(ctx context.Context, pending *domain.PendingConfirmation, code string) (*domain.Identity, error)
	SignOut(ctx context.Context, identity *domain.Identity) error
}

// Pinger is implemented by backends that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}
