package consultation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrValidation marks request errors that must be rejected before any model
// or store call is made.
var ErrValidation = errors.New("validation failed")

const minSymptomLen = 10

// AgentClient is the model-facing boundary. Implementations never surface
// remote failures for questions or analysis: they degrade to canned content
// and report it through the degraded flag. Only MCQ generation may fail,
// which triggers the cross-type fallback to descriptive questions.
type AgentClient interface {
	GenerateQuestions(ctx context.Context, symptoms string, mode Mode) ([]string, bool)
	GenerateMCQs(ctx context.Context, symptoms string, mode Mode) ([]MCQ, bool, error)
	Analyze(ctx context.Context, symptoms string, mode Mode, patient PatientInfo) AnalysisResult
	TreatmentPathway(ctx context.Context, symptoms string, diagnoses []DiagnosisCandidate) (string, error)
	RiskAssessment(ctx context.Context, symptoms string, diagnoses []DiagnosisCandidate) (string, error)
	ModelStatus() ModelStatus
}

type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "mcq"
	QuestionTypeDescriptive QuestionType = "descriptive"
)

type QuestionsRequest struct {
	SessionID    string       `json:"sessionId"`
	Symptoms     string       `json:"symptoms"`
	Mode         Mode         `json:"mode"`
	QuestionType QuestionType `json:"questionType"`
}

// QuestionsResponse carries exactly one of Questions or FollowUpMCQs,
// selected by the requested question type (after any cross-type fallback).
type QuestionsResponse struct {
	Questions    []string `json:"questions,omitempty"`
	FollowUpMCQs []MCQ    `json:"followUpMCQs,omitempty"`
	Degraded     bool     `json:"degraded"`
}

type AnalyzeRequest struct {
	SessionID       string           `json:"sessionId"`
	Symptoms        string           `json:"symptoms"`
	Mode            Mode             `json:"mode"`
	FollowUpAnswers []FollowUpAnswer `json:"followUpAnswers,omitempty"`
}

type ExportBundle struct {
	Session      *Session             `json:"session"`
	Diagnoses    []DiagnosisCandidate `json:"diagnoses"`
	Conversation []Entry              `json:"conversation"`
	ExportedAt   time.Time            `json:"exportedAt"`
}

type HealthStatus struct {
	Status   string      `json:"status"`
	Models   ModelStatus `json:"models"`
	Database string      `json:"database"`
}

type Service interface {
	UpsertSession(ctx context.Context, id string, mode Mode, patient *PatientInfo) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	PatchSession(ctx context.Context, id string, patch SessionPatch) (*Session, error)
	ClearSession(ctx context.Context, id string) (*Session, error)
	GenerateQuestions(ctx context.Context, req QuestionsRequest) (*QuestionsResponse, error)
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error)
	Conversation(ctx context.Context, sessionID string) ([]Entry, error)
	Export(ctx context.Context, sessionID string) (*ExportBundle, error)
	Health(ctx context.Context) HealthStatus
}

// SessionPatch holds the updatable session fields; nil means "leave as is".
type SessionPatch struct {
	Mode     *Mode        `json:"mode"`
	Patient  *PatientInfo `json:"patientInfo"`
	Symptoms *string      `json:"symptoms"`
}

type service struct {
	store    Store
	aiClient AgentClient
}

func NewService(store Store, ai AgentClient) Service {
	return &service{store: store, aiClient: ai}
}

func (s *service) UpsertSession(ctx context.Context, id string, mode Mode, patient *PatientInfo) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrValidation)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrValidation, mode)
	}

	session, err := s.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		session = &Session{ID: id, State: StateAwaitingSymptoms}
	}

	session.Mode = mode
	if patient != nil {
		session.Patient = *patient
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) GetSession(ctx context.Context, id string) (*Session, error) {
	return s.store.Get(ctx, id)
}

func (s *service) PatchSession(ctx context.Context, id string, patch SessionPatch) (*Session, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Mode != nil {
		if !patch.Mode.Valid() {
			return nil, fmt.Errorf("%w: unknown mode %q", ErrValidation, *patch.Mode)
		}
		session.Mode = *patch.Mode
	}
	if patch.Patient != nil {
		session.Patient = *patch.Patient
	}
	if patch.Symptoms != nil {
		session.Symptoms = *patch.Symptoms
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ClearSession resets the consultation: symptoms and analysis are dropped and
// a fresh session identifier is issued, keeping mode and patient context.
func (s *service) ClearSession(ctx context.Context, id string) (*Session, error) {
	old, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fresh := &Session{
		ID:      uuid.NewString(),
		Mode:    old.Mode,
		Patient: old.Patient,
		State:   StateAwaitingSymptoms,
	}
	if err := s.store.Save(ctx, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

func (s *service) GenerateQuestions(ctx context.Context, req QuestionsRequest) (*QuestionsResponse, error) {
	if err := validateIntake(req.SessionID, req.Symptoms, req.Mode); err != nil {
		return nil, err
	}
	qt := req.QuestionType
	if qt == "" {
		qt = QuestionTypeDescriptive
	}
	if qt != QuestionTypeMCQ && qt != QuestionTypeDescriptive {
		return nil, fmt.Errorf("%w: unknown questionType %q", ErrValidation, qt)
	}

	session, err := s.loadOrCreate(ctx, req.SessionID, req.Mode)
	if err != nil {
		return nil, err
	}
	session.Symptoms = req.Symptoms
	session.State = StateAwaitingAnswers
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	s.appendEntry(ctx, session.ID, RoleUser, "Symptoms: "+req.Symptoms)

	resp := &QuestionsResponse{}
	if qt == QuestionTypeMCQ {
		mcqs, degraded, err := s.aiClient.GenerateMCQs(ctx, req.Symptoms, session.Mode)
		if err == nil {
			resp.FollowUpMCQs = mcqs
			resp.Degraded = degraded
			return resp, nil
		}
		// Cross-type fallback: unusable MCQ output degrades to descriptive
		// questions rather than an error.
		log.Printf("MCQ generation failed for session %s, falling back to descriptive: %v", session.ID, err)
	}

	questions, degraded := s.aiClient.GenerateQuestions(ctx, req.Symptoms, session.Mode)
	resp.Questions = questions
	resp.Degraded = degraded || qt == QuestionTypeMCQ
	return resp, nil
}

func (s *service) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error) {
	if err := validateIntake(req.SessionID, req.Symptoms, req.Mode); err != nil {
		return nil, err
	}

	session, err := s.loadOrCreate(ctx, req.SessionID, req.Mode)
	if err != nil {
		return nil, err
	}

	// Fold follow-up answers into the symptom text. The skip path (zero
	// answers) analyzes the original symptoms unchanged.
	comprehensive := foldAnswers(req.Symptoms, req.FollowUpAnswers)
	if len(req.FollowUpAnswers) > 0 {
		s.appendEntry(ctx, session.ID, RoleUser, answersTranscript(req.FollowUpAnswers))
	}

	session.Symptoms = comprehensive
	session.State = StateAnalyzing
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}

	result := s.aiClient.Analyze(ctx, comprehensive, session.Mode, session.Patient)
	s.enhance(ctx, comprehensive, &result)

	session.Analysis = &result
	session.State = StateComplete
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	if err := s.store.SaveDiagnoses(ctx, session.ID, result.Diagnoses); err != nil {
		log.Printf("failed to record diagnoses for session %s: %v", session.ID, err)
	}
	s.appendEntry(ctx, session.ID, RoleSystem,
		fmt.Sprintf("Analysis completed with %d diagnosis candidates.", len(result.Diagnoses)))

	return &result, nil
}

// enhance runs the optional decision-support features. Each one fails in
// isolation: a failed enhancement is omitted, never aborting the base result.
func (s *service) enhance(ctx context.Context, symptoms string, result *AnalysisResult) {
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		pathway, err := s.aiClient.TreatmentPathway(ctx, symptoms, result.Diagnoses)
		if err != nil {
			log.Printf("treatment pathway enhancement failed: %v", err)
			return
		}
		result.TreatmentPathway = pathway
	}()
	go func() {
		defer wg.Done()
		risk, err := s.aiClient.RiskAssessment(ctx, symptoms, result.Diagnoses)
		if err != nil {
			log.Printf("risk assessment enhancement failed: %v", err)
			return
		}
		result.RiskAssessment = risk
	}()
	wg.Wait()
}

func (s *service) Conversation(ctx context.Context, sessionID string) ([]Entry, error) {
	if _, err := s.store.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.Conversation(ctx, sessionID)
}

func (s *service) Export(ctx context.Context, sessionID string) (*ExportBundle, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	diagnoses, err := s.store.Diagnoses(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	conversation, err := s.store.Conversation(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &ExportBundle{
		Session:      session,
		Diagnoses:    diagnoses,
		Conversation: conversation,
		ExportedAt:   time.Now(),
	}, nil
}

func (s *service) Health(ctx context.Context) HealthStatus {
	database := StatusConnected
	if err := s.store.Ping(ctx); err != nil {
		database = StatusDisconnected
	}
	return HealthStatus{
		Status:   "ok",
		Models:   s.aiClient.ModelStatus(),
		Database: database,
	}
}

// loadOrCreate fetches the session, creating it on the fly when the client
// supplied an id that has not been registered yet. Session ids are
// client-generated, so intake endpoints treat an unknown id as a new
// consultation rather than an error.
func (s *service) loadOrCreate(ctx context.Context, id string, mode Mode) (*Session, error) {
	session, err := s.store.Get(ctx, id)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	session = &Session{ID: id, Mode: mode, State: StateAwaitingSymptoms}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) appendEntry(ctx context.Context, sessionID, role, message string) {
	err := s.store.AppendEntry(ctx, Entry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Message:   message,
	})
	if err != nil {
		log.Printf("failed to append conversation entry for session %s: %v", sessionID, err)
	}
}

func validateIntake(sessionID, symptoms string, mode Mode) error {
	if sessionID == "" {
		return fmt.Errorf("%w: sessionId is required", ErrValidation)
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrValidation, mode)
	}
	if len(strings.TrimSpace(symptoms)) < minSymptomLen {
		return fmt.Errorf("%w: symptoms must be at least %d characters", ErrValidation, minSymptomLen)
	}
	return nil
}

func foldAnswers(symptoms string, answers []FollowUpAnswer) string {
	if len(answers) == 0 {
		return symptoms
	}
	var b strings.Builder
	b.WriteString(symptoms)
	b.WriteString("\n\nAdditional Information:")
	for _, a := range answers {
		if strings.TrimSpace(a.Answer) == "" {
			continue
		}
		b.WriteString("\nQ: ")
		b.WriteString(a.Question)
		b.WriteString("\nA: ")
		b.WriteString(a.Answer)
	}
	return b.String()
}

func answersTranscript(answers []FollowUpAnswer) string {
	var b strings.Builder
	b.WriteString("Follow-up answers:")
	for _, a := range answers {
		fmt.Fprintf(&b, "\nQ: %s\nA: %s", a.Question, a.Answer)
	}
	return b.String()
}
