package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DocumentStore implements port.DocumentStore on top of the `documents`
// table (collection, id, data jsonb) and its stored procedures.
type DocumentStore struct {
	c *Client
}

var _ port.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates a PostgREST-backed document store.
func NewDocumentStore(c *Client) *DocumentStore {
	return &DocumentStore{c: c}
}

type documentRow struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Get returns the document, or nil when absent.
func (s *DocumentStore) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetDocument")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection))
	start := time.Now()

	q := url.Values{}
	q.Set("collection", "eq."+collection)
	q.Set("id", "eq."+key)
	q.Set("select", "data")
	q.Set("limit", "1")

	var rows []documentRow
	err := s.c.call(ctx, "supabase/documents", func() error {
		body, err := s.c.doGet(ctx, "documents?"+q.Encode())
		if err != nil {
			return err
		}
		rows = nil
		if body == nil {
			return nil
		}
		return json.Unmarshal(body, &rows)
	})
	s.observe("get", start)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].Data, nil
}

// SetMerge shallow-merges fields into the document via doc_set_merge.
func (s *DocumentStore) SetMerge(ctx context.Context, collection, key string, fields map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.SetMergeDocument")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection))
	start := time.Now()

	if fields == nil {
		fields = map[string]any{}
	}
	err := s.c.call(ctx, "supabase/documents", func() error {
		_, err := s.c.doRPC(ctx, "doc_set_merge", map[string]any{
			"p_collection": collection,
			"p_id":         key,
			"p_data":       fields,
		})
		return err
	})
	s.observe("set_merge", start)
	return err
}

// RunBatch applies all writes in one database transaction via doc_apply_batch.
// A failed precondition is answered with 409 and maps to domain.ErrConflict.
func (s *DocumentStore) RunBatch(ctx context.Context, writes []port.Write) error {
	ctx, span := tracer.Start(ctx, "Supabase.RunBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("writes", len(writes)))
	start := time.Now()

	for i, w := range writes {
		if w.Collection == "" || w.Key == "" {
			return &domain.ErrValidation{Field: "write", Message: fmt.Sprintf("write %d has no collection or key", i)}
		}
	}

	err := s.c.call(ctx, "supabase/documents", func() error {
		_, err := s.c.doRPC(ctx, "doc_apply_batch", map[string]any{"p_writes": writes})
		return err
	})
	s.observe("batch", start)
	var se *statusError
	if errors.As(err, &se) && se.Status == http.StatusConflict {
		s.c.logger.Debug("supabase: batch precondition failed", zap.String("detail", se.Body))
		return &domain.ErrConflict{Message: "batch precondition failed"}
	}
	if err != nil {
		s.c.logger.Error("supabase: batch failed", zap.Int("writes", len(writes)), zap.Error(err))
	}
	return err
}

// List returns documents whose top-level fields equal filter, ordered by id.
func (s *DocumentStore) List(ctx context.Context, collection string, filter map[string]string) ([]port.Document, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListDocuments")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection))
	start := time.Now()

	q := url.Values{}
	q.Set("collection", "eq."+collection)
	q.Set("select", "id,data")
	q.Set("order", "id.asc")
	for field, value := range filter {
		q.Set("data->>"+field, "eq."+value)
	}

	var rows []documentRow
	err := s.c.call(ctx, "supabase/documents", func() error {
		body, err := s.c.doGet(ctx, "documents?"+q.Encode())
		if err != nil {
			return err
		}
		rows = nil
		if body == nil {
			return nil
		}
		return json.Unmarshal(body, &rows)
	})
	s.observe("list", start)
	if err != nil {
		return nil, err
	}

	docs := make([]port.Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, port.Document{Key: r.ID, Data: r.Data})
	}
	return docs, nil
}

// Ping checks that PostgREST answers.
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.c.call(ctx, "supabase/documents", func() error {
		_, err := s.c.doGet(ctx, "documents?select=id&limit=1")
		return err
	})
}

func (s *DocumentStore) observe(op string, start time.Time) {
	if s.c.metrics != nil {
		s.c.metrics.RecordRequestDuration("documents."+op, time.Since(start))
	}
}
