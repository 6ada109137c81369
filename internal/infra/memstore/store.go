// Package memstore is an in-process DocumentStore used for local
// development and tests.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/port"
)

// Store keeps documents as decoded JSON objects guarded by one mutex.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]any
}

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string]map[string]map[string]any)}
}

// Get returns the document encoded as JSON, or nil when absent.
func (s *Store) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[collection][key]
	if !ok {
		return nil, nil
	}
	return json.Marshal(doc)
}

// SetMerge shallow-merges fields into the document.
func (s *Store) SetMerge(ctx context.Context, collection, key string, fields map[string]any) error {
	return s.RunBatch(ctx, []port.Write{{Op: port.OpMerge, Collection: collection, Key: key, Data: fields}})
}

// RunBatch validates every write, then applies all of them under one lock.
func (s *Store) RunBatch(ctx context.Context, writes []port.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prepared := make([]port.Write, len(writes))
	for i, w := range writes {
		if w.Collection == "" || w.Key == "" {
			return &domain.ErrValidation{Field: "write", Message: fmt.Sprintf("write %d has no collection or key", i)}
		}
		switch w.Op {
		case port.OpSet, port.OpMerge:
			data, err := clone(w.Data)
			if err != nil {
				return fmt.Errorf("memstore: write %d: %w", i, err)
			}
			w.Data = data
		case port.OpDelete, port.OpConsume:
		case port.OpRequireUnset:
			if len(w.Fields) == 0 {
				return &domain.ErrValidation{Field: "fields", Message: fmt.Sprintf("write %d names no fields", i)}
			}
		default:
			return &domain.ErrValidation{Field: "op", Message: fmt.Sprintf("unknown op %q", w.Op)}
		}
		prepared[i] = w
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range prepared {
		doc, exists := s.data[w.Collection][w.Key]
		switch w.Op {
		case port.OpConsume:
			if !exists {
				return &domain.ErrConflict{Message: fmt.Sprintf("%s/%s was already consumed", w.Collection, w.Key)}
			}
		case port.OpRequireUnset:
			for _, f := range w.Fields {
				if v, ok := doc[f]; ok && v != nil && fmt.Sprint(v) != "" {
					return &domain.ErrConflict{Message: fmt.Sprintf("%s/%s already has %s set", w.Collection, w.Key, f)}
				}
			}
		}
	}

	for _, w := range prepared {
		coll := s.data[w.Collection]
		if coll == nil {
			coll = make(map[string]map[string]any)
			s.data[w.Collection] = coll
		}
		switch w.Op {
		case port.OpSet:
			coll[w.Key] = w.Data
		case port.OpMerge:
			doc := coll[w.Key]
			if doc == nil {
				doc = make(map[string]any, len(w.Data))
				coll[w.Key] = doc
			}
			for k, v := range w.Data {
				doc[k] = v
			}
		case port.OpDelete, port.OpConsume:
			delete(coll, w.Key)
		}
	}
	return nil
}

// List returns matching documents ordered by key.
func (s *Store) List(ctx context.Context, collection string, filter map[string]string) ([]port.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]port.Document, 0)
	for key, doc := range s.data[collection] {
		if !matches(doc, filter) {
			continue
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, port.Document{Key: key, Data: raw})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func matches(doc map[string]any, filter map[string]string) bool {
	for field, want := range filter {
		v, ok := doc[field]
		if !ok {
			return false
		}
		if fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

func clone(in map[string]any) (map[string]any, error) {
	if in == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(in))
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
