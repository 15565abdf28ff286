package consultation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db}
}

func (r *postgresStore) Save(ctx context.Context, s *Session) error {
	patientJSON, err := json.Marshal(s.Patient)
	if err != nil {
		return err
	}
	var analysisJSON []byte
	if s.Analysis != nil {
		analysisJSON, err = json.Marshal(s.Analysis)
		if err != nil {
			return err
		}
	}

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.UpdatedAt = time.Now()

	query := `
		INSERT INTO sessions (id, mode, patient, symptoms, analysis, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			mode = $2,
			patient = $3,
			symptoms = $4,
			analysis = $5,
			state = $6,
			updated_at = $8
	`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.Mode, patientJSON, s.Symptoms, analysisJSON, s.State, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *postgresStore) Get(ctx context.Context, id string) (*Session, error) {
	query := `SELECT id, mode, patient, symptoms, analysis, state, created_at, updated_at FROM sessions WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	var s Session
	var patientJSON, analysisJSON []byte

	err := row.Scan(
		&s.ID,
		&s.Mode,
		&patientJSON,
		&s.Symptoms,
		&analysisJSON,
		&s.State,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if len(patientJSON) > 0 {
		if err := json.Unmarshal(patientJSON, &s.Patient); err != nil {
			return nil, fmt.Errorf("failed to unmarshal patient info: %w", err)
		}
	}
	if len(analysisJSON) > 0 {
		s.Analysis = &AnalysisResult{}
		if err := json.Unmarshal(analysisJSON, s.Analysis); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
		}
	}

	return &s, nil
}

func (r *postgresStore) AppendEntry(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	query := `INSERT INTO conversation_entries (id, session_id, role, message, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, e.ID, e.SessionID, e.Role, e.Message, e.CreatedAt)
	return err
}

func (r *postgresStore) Conversation(ctx context.Context, sessionID string) ([]Entry, error) {
	query := `SELECT id, session_id, role, message, created_at FROM conversation_entries WHERE session_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Role, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *postgresStore) SaveDiagnoses(ctx context.Context, sessionID string, ds []DiagnosisCandidate) error {
	query := `
		INSERT INTO diagnoses (id, session_id, name, description, confidence, category, red_flags, recommended_tests, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, d := range ds {
		redFlags, err := json.Marshal(d.RedFlags)
		if err != nil {
			return err
		}
		tests, err := json.Marshal(d.RecommendedTests)
		if err != nil {
			return err
		}
		_, err = r.db.ExecContext(ctx, query,
			uuid.NewString(), sessionID, d.Name, d.Description, d.Confidence, d.Category, redFlags, tests, time.Now())
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresStore) Diagnoses(ctx context.Context, sessionID string) ([]DiagnosisCandidate, error) {
	query := `SELECT name, description, confidence, category, red_flags, recommended_tests FROM diagnoses WHERE session_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DiagnosisCandidate
	for rows.Next() {
		var d DiagnosisCandidate
		var redFlags, tests []byte
		if err := rows.Scan(&d.Name, &d.Description, &d.Confidence, &d.Category, &redFlags, &tests); err != nil {
			return nil, err
		}
		if len(redFlags) > 0 {
			if err := json.Unmarshal(redFlags, &d.RedFlags); err != nil {
				return nil, fmt.Errorf("failed to unmarshal red flags: %w", err)
			}
		}
		if len(tests) > 0 {
			if err := json.Unmarshal(tests, &d.RecommendedTests); err != nil {
				return nil, fmt.Errorf("failed to unmarshal recommended tests: %w", err)
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *postgresStore) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *postgresStore) Close() error { return r.db.Close() }
