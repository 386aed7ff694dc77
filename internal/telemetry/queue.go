package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Request is one queued heartbeat.
type Request struct {
	ID        string
	Bucket    string
	Pulse     time.Duration
	Event     Event
	CreatedAt time.Time
}

// NewRequest stamps a heartbeat with a fresh id.
func NewRequest(bucket string, pulse time.Duration, ev Event) Request {
	return Request{
		ID:        uuid.NewString(),
		Bucket:    bucket,
		Pulse:     pulse,
		Event:     ev,
		CreatedAt: time.Now(),
	}
}

// Store holds heartbeats until they are delivered, oldest first.
type Store interface {
	Push(ctx context.Context, req Request) error
	// Peek returns the oldest request without removing it.
	Peek(ctx context.Context) (Request, bool, error)
	Remove(ctx context.Context, id string) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// MemoryStore is a Store that does not survive restarts.
type MemoryStore struct {
	mu   sync.Mutex
	reqs []Request
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Push(_ context.Context, req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	return nil
}

func (s *MemoryStore) Peek(_ context.Context) (Request, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reqs) == 0 {
		return Request{}, false, nil
	}
	return s.reqs[0], true, nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.reqs[:0]
	for _, r := range s.reqs {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.reqs = kept
	return nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
