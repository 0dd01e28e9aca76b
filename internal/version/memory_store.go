package version

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and local tooling. A
// single mutex plays the role of the database row lock: close-then-open is
// atomic per call, which is all the invariant needs.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string][]Row
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string][]Row)}
}

func key(kind string, subject uuid.UUID) string {
	return kind + "/" + subject.String()
}

func (s *MemoryStore) Open(_ context.Context, kind string, subject uuid.UUID, payload map[string]any, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.append(kind, subject, payload, at)
	return nil
}

func (s *MemoryStore) Close(_ context.Context, kind string, subject uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	open := s.openIndexes(kind, subject)
	switch len(open) {
	case 0:
		return ErrNoOpenVersion
	case 1:
		t := at
		s.rows[key(kind, subject)][open[0]].ValidTo = &t
		return nil
	default:
		return fmt.Errorf("%w: %d open rows for %s/%s", ErrConsistency, len(open), kind, subject)
	}
}

func (s *MemoryStore) Current(_ context.Context, kind string, subject uuid.UUID) (*Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	open := s.openIndexes(kind, subject)
	switch len(open) {
	case 0:
		return nil, nil
	case 1:
		r := s.rows[key(kind, subject)][open[0]]
		return &r, nil
	default:
		return nil, fmt.Errorf("%w: %d open rows for %s/%s", ErrConsistency, len(open), kind, subject)
	}
}

func (s *MemoryStore) Supersede(_ context.Context, kind string, subject uuid.UUID, payload map[string]any, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	open := s.openIndexes(kind, subject)
	switch len(open) {
	case 0:
		// First assignment for this subject.
	case 1:
		t := at
		s.rows[key(kind, subject)][open[0]].ValidTo = &t
	default:
		return fmt.Errorf("%w: %d open rows for %s/%s", ErrConsistency, len(open), kind, subject)
	}
	s.append(kind, subject, payload, at)
	return nil
}

func (s *MemoryStore) History(_ context.Context, kind string, subject uuid.UUID) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.rows[key(kind, subject)]
	out := make([]Row, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *MemoryStore) append(kind string, subject uuid.UUID, payload map[string]any, at time.Time) {
	k := key(kind, subject)
	s.rows[k] = append(s.rows[k], Row{
		SubjectID: subject,
		Kind:      kind,
		Payload:   payload,
		ValidFrom: at,
	})
}

func (s *MemoryStore) openIndexes(kind string, subject uuid.UUID) []int {
	var idx []int
	for i, r := range s.rows[key(kind, subject)] {
		if r.ValidTo == nil {
			idx = append(idx, i)
		}
	}
	return idx
}
