package consultation

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")
)

// Store is the session persistence boundary. It has no behavior beyond
// storage: writes are last-write-wins by session ID, the conversation log is
// append-only and ordered by insertion.
type Store interface {
	// Save upserts a session by ID.
	Save(ctx context.Context, s *Session) error

	// Get returns ErrNotFound if the session does not exist.
	Get(ctx context.Context, id string) (*Session, error)

	// AppendEntry appends one conversation log entry.
	AppendEntry(ctx context.Context, e Entry) error

	// Conversation returns the session's log in append order.
	Conversation(ctx context.Context, sessionID string) ([]Entry, error)

	// SaveDiagnoses records the candidates produced by one analysis run.
	SaveDiagnoses(ctx context.Context, sessionID string, ds []DiagnosisCandidate) error

	// Diagnoses returns every candidate recorded for the session.
	Diagnoses(ctx context.Context, sessionID string) ([]DiagnosisCandidate, error)

	Ping(ctx context.Context) error
	Close() error
}
