package docstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests. Documents are
// round-tripped through JSON so values come back with the same types the
// Redis store would produce.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document

	// FailWrites makes every write return ErrUnavailable, for tests of
	// the dispatcher's failure path.
	FailWrites bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]Document)}
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (s *MemoryStore) Set(_ context.Context, collection, id string, doc Document) error {
	if s.FailWrites {
		return ErrUnavailable
	}
	normalized, err := normalize(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]Document)
	}
	s.collections[collection][id] = normalized
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	if s.FailWrites {
		return ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, collection string, doc Document) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) List(_ context.Context, collection string) (map[string]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Document, len(s.collections[collection]))
	for id, doc := range s.collections[collection] {
		if id == MetadataID {
			continue
		}
		out[id] = doc
	}
	return out, nil
}

func (s *MemoryStore) FindByField(ctx context.Context, collection, field string, value any) ([]string, error) {
	docs, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	var ids []string
	for id, doc := range docs {
		if doc[field] == value {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Len reports the number of real documents in a collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for id := range s.collections[collection] {
		if id != MetadataID {
			n++
		}
	}
	return n
}

func normalize(doc Document) (Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
