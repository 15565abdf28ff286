package consultation

import (
	"context"
	"sync"
	"time"
)

// memoryStore keeps everything in process. It is the default backing when no
// database or Redis is configured, which doubles as the demo deployment mode.
type memoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	entries   map[string][]Entry
	diagnoses map[string][]DiagnosisCandidate
}

func NewMemoryStore() Store {
	return &memoryStore{
		sessions:  make(map[string]*Session),
		entries:   make(map[string][]Entry),
		diagnoses: make(map[string][]DiagnosisCandidate),
	}
}

func (m *memoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[s.ID]; ok {
		s.CreatedAt = existing.CreatedAt
	} else if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.UpdatedAt = time.Now()

	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memoryStore) AppendEntry(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.entries[e.SessionID] = append(m.entries[e.SessionID], e)
	return nil
}

func (m *memoryStore) Conversation(ctx context.Context, sessionID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.entries[sessionID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

func (m *memoryStore) SaveDiagnoses(ctx context.Context, sessionID string, ds []DiagnosisCandidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.diagnoses[sessionID] = append(m.diagnoses[sessionID], ds...)
	return nil
}

func (m *memoryStore) Diagnoses(ctx context.Context, sessionID string) ([]DiagnosisCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ds := m.diagnoses[sessionID]
	out := make([]DiagnosisCandidate, len(ds))
	copy(out, ds)
	return out, nil
}

func (m *memoryStore) Ping(ctx context.Context) error { return nil }

func (m *memoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = nil
	m.entries = nil
	m.diagnoses = nil
	return nil
}
