package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"consult-ai-backend/internal/consultation"
)

// Client composes prompt building, the gateway call and response
// interpretation into the operations the consultation service needs.
// Diagnostic tasks go to the reasoning model; lighter decision-support tasks
// go to the chat model.
type Client struct {
	gw Gateway
}

func NewClient(gw Gateway) *Client {
	return &Client{gw: gw}
}

// GenerateQuestions returns descriptive follow-up questions. The bool reports
// whether the result is degraded (canned gateway output or parse fallback).
func (c *Client) GenerateQuestions(ctx context.Context, symptoms string, mode consultation.Mode) ([]string, bool) {
	completion := c.gw.Complete(ctx, buildQuestionsPrompt(symptoms, mode), true)
	questions, fellBack := ParseQuestions(completion.Text)
	return questions, completion.Degraded || fellBack
}

// GenerateMCQs returns multiple-choice follow-up questions. An error means
// the model output was unusable; the caller falls back to descriptive
// questions.
func (c *Client) GenerateMCQs(ctx context.Context, symptoms string, mode consultation.Mode) ([]consultation.MCQ, bool, error) {
	completion := c.gw.Complete(ctx, buildMCQPrompt(symptoms, mode), true)
	mcqs, err := ParseMCQs(completion.Text)
	if err != nil {
		return nil, false, err
	}
	return mcqs, completion.Degraded, nil
}

// Analyze produces the full diagnostic bundle. It always returns a
// structurally valid result; Degraded marks fallback content.
func (c *Client) Analyze(ctx context.Context, symptoms string, mode consultation.Mode, patient consultation.PatientInfo) consultation.AnalysisResult {
	completion := c.gw.Complete(ctx, buildAnalysisPrompt(symptoms, mode, patient), true)
	result := ParseAnalysis(completion.Text, symptoms)
	if completion.Degraded {
		result.Degraded = true
	}
	return result
}

// TreatmentPathway is an analysis enhancement served by the chat model.
func (c *Client) TreatmentPathway(ctx context.Context, symptoms string, diagnoses []consultation.DiagnosisCandidate) (string, error) {
	completion := c.gw.Complete(ctx, buildTreatmentPrompt(symptoms, diagnoses), false)
	return extractTextField(completion.Text, "treatmentPathway")
}

// RiskAssessment is an analysis enhancement served by the chat model.
func (c *Client) RiskAssessment(ctx context.Context, symptoms string, diagnoses []consultation.DiagnosisCandidate) (string, error) {
	completion := c.gw.Complete(ctx, buildRiskPrompt(symptoms, diagnoses), false)
	return extractTextField(completion.Text, "riskAssessment")
}

func (c *Client) ModelStatus() consultation.ModelStatus {
	return c.gw.Status()
}

// extractTextField pulls a single string field out of a JSON response,
// accepting the raw text when it is not JSON but still non-empty.
func extractTextField(text, field string) (string, error) {
	if raw, ok := extractJSON(text); ok {
		var m map[string]string
		if err := json.Unmarshal([]byte(raw), &m); err == nil && m[field] != "" {
			return m[field], nil
		}
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("empty %s response", field)
	}
	return trimmed, nil
}
