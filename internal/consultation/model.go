package consultation

import (
	"time"
)

// Mode selects the consultation persona the AI is prompted with.
type Mode string

const (
	ModePatient Mode = "patient"
	ModeDoctor  Mode = "doctor"
	ModeStudent Mode = "student"
)

func (m Mode) Valid() bool {
	switch m {
	case ModePatient, ModeDoctor, ModeStudent:
		return true
	}
	return false
}

// State tracks where a session is in the consultation flow.
type State string

const (
	StateAwaitingSymptoms     State = "awaiting_symptoms"
	StateAwaitingQuestionType State = "awaiting_question_type"
	StateAwaitingAnswers      State = "awaiting_followup_answers"
	StateAnalyzing            State = "analyzing"
	StateComplete             State = "complete"
)

type PatientInfo struct {
	Name    string `json:"name,omitempty"`
	Age     int    `json:"age,omitempty"`
	Gender  string `json:"gender,omitempty"`
	History string `json:"history,omitempty"`
}

// Session is the aggregate root for one consultation attempt. The ID is
// client-generated; re-posting the same ID updates the existing record.
type Session struct {
	ID       string          `json:"sessionId" db:"id"`
	Mode     Mode            `json:"mode" db:"mode"`
	Patient  PatientInfo     `json:"patientInfo" db:"patient"`
	Symptoms string          `json:"symptoms" db:"symptoms"`
	Analysis *AnalysisResult `json:"aiAnalysis,omitempty" db:"analysis"`
	State    State           `json:"state" db:"state"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Entry is one line of the append-only conversation log. Entries are never
// mutated after append.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"` // "user" or "system"
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	RoleUser   = "user"
	RoleSystem = "system"
)

// DiagnosisCandidate is one entry of a differential diagnosis. Candidates are
// created once per analysis run and never updated.
type DiagnosisCandidate struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Confidence       int      `json:"confidence"` // 0-100
	Category         string   `json:"category"`
	RedFlags         []string `json:"redFlags"`
	RecommendedTests []string `json:"recommendedTests"`
}

type MCQOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

type MCQ struct {
	Question string      `json:"question"`
	Options  []MCQOption `json:"options"`
}

// FollowUpAnswer pairs a generated question with the user's reply. It only
// lives inside a single /analyze round-trip; it is folded into the session's
// symptom text, never persisted on its own.
type FollowUpAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AnalysisResult is the structured output of the diagnostic step.
// Degraded is true when any part of it came from a fallback path rather than
// a successfully parsed model response.
type AnalysisResult struct {
	Diagnoses         []DiagnosisCandidate `json:"diagnoses"`
	RedFlags          []string             `json:"redFlags"`
	RecommendedTests  []string             `json:"recommendedTests"`
	OverallConfidence int                  `json:"overallConfidence"`
	FollowUpQuestions []string             `json:"followUpQuestions"`
	TreatmentPathway  string               `json:"treatmentPathway,omitempty"`
	RiskAssessment    string               `json:"riskAssessment,omitempty"`
	Degraded          bool                 `json:"degraded"`
}

// ModelStatus reports backing-model availability for the health endpoint.
type ModelStatus struct {
	Reasoner string `json:"reasoner"`
	Chat     string `json:"chat"`
}

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDemoMode     = "demo_mode"
)
