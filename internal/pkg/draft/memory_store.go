package draft

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store for tests and single-instance dev runs.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
	now  func() time.Time
}

// NewMemoryStore creates an empty store; now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{data: map[string][]byte{}, now: now}
}

func (s *MemoryStore) Save(_ context.Context, scope string, d *RegistrationDraft) error {
	return s.put(PendingKey(scope), d)
}

func (s *MemoryStore) SaveWizard(_ context.Context, scope string, d *RegistrationDraft) error {
	return s.put(WizardKey(scope), d)
}

func (s *MemoryStore) Load(_ context.Context, scope string) (*RegistrationDraft, error) {
	return s.get(PendingKey(scope))
}

func (s *MemoryStore) LoadWizard(_ context.Context, scope string) (*RegistrationDraft, error) {
	return s.get(WizardKey(scope))
}

func (s *MemoryStore) Clear(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, PendingKey(scope))
	delete(s.data, WizardKey(scope))
	return nil
}

// PutRaw stores an arbitrary payload under key, bypassing encoding.
func (s *MemoryStore) PutRaw(key string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
}

func (s *MemoryStore) put(key string, d *RegistrationDraft) error {
	raw, err := encode(d, s.now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return nil
}

func (s *MemoryStore) get(key string) (*RegistrationDraft, error) {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return nil, ErrDraftNotFound
	}
	return decode(raw)
}
