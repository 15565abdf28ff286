package agent

import (
	"fmt"
	"strings"

	"consult-ai-backend/internal/consultation"
)

// Prompt builders for the two backing models. Each prompt asks for strict
// JSON so the interpreter's structured decode has a chance before the
// degradation ladder kicks in.

func modeContext(mode consultation.Mode) string {
	switch mode {
	case consultation.ModeDoctor:
		return "The reader is a physician; use precise clinical terminology."
	case consultation.ModeStudent:
		return "The reader is a medical student; explain reasoning and include teaching points."
	default:
		return "The reader is a patient; use plain, non-alarmist language."
	}
}

func buildQuestionsPrompt(symptoms string, mode consultation.Mode) string {
	var b strings.Builder
	b.WriteString("You are a clinical triage assistant. ")
	b.WriteString(modeContext(mode))
	b.WriteString("\n\nPatient-reported symptoms:\n")
	b.WriteString(symptoms)
	b.WriteString("\n\nGenerate 3-5 follow-up questions that would most improve a differential diagnosis. ")
	b.WriteString(`Return ONLY valid JSON: {"questions": ["...", "..."]}`)
	return b.String()
}

func buildMCQPrompt(symptoms string, mode consultation.Mode) string {
	var b strings.Builder
	b.WriteString("You are a clinical triage assistant. ")
	b.WriteString(modeContext(mode))
	b.WriteString("\n\nPatient-reported symptoms:\n")
	b.WriteString(symptoms)
	b.WriteString("\n\nGenerate 3-5 multiple-choice (mcq) follow-up questions. Each option needs an id, a label and a value. ")
	b.WriteString(`Return ONLY valid JSON: {"followUpMCQs": [{"question": "...", "options": [{"id": "a", "label": "...", "value": "..."}]}]}`)
	return b.String()
}

func buildAnalysisPrompt(symptoms string, mode consultation.Mode, patient consultation.PatientInfo) string {
	var b strings.Builder
	b.WriteString("You are a diagnostic reasoning assistant. ")
	b.WriteString(modeContext(mode))
	b.WriteString("\n\nPatient-reported symptoms:\n")
	b.WriteString(symptoms)
	if patient.Age > 0 || patient.Gender != "" || patient.History != "" {
		b.WriteString("\n\nPatient context:")
		if patient.Age > 0 {
			fmt.Fprintf(&b, " age %d.", patient.Age)
		}
		if patient.Gender != "" {
			fmt.Fprintf(&b, " gender %s.", patient.Gender)
		}
		if patient.History != "" {
			fmt.Fprintf(&b, " history: %s.", patient.History)
		}
	}
	b.WriteString("\n\nProduce a ranked differential diagnosis. Confidence values are integers 0-100. ")
	b.WriteString(`Return ONLY valid JSON: {"diagnoses": [{"name": "...", "description": "...", "confidence": 70, "category": "...", "redFlags": ["..."], "recommendedTests": ["..."]}], "redFlags": ["..."], "recommendedTests": ["..."], "followUpQuestions": ["..."]}`)
	return b.String()
}

func buildTreatmentPrompt(symptoms string, diagnoses []consultation.DiagnosisCandidate) string {
	var b strings.Builder
	b.WriteString("You are a clinical decision-support assistant. Given the symptoms and the working differential below, outline a first-line treatment pathway in 3-5 short steps.\n\nSymptoms:\n")
	b.WriteString(symptoms)
	b.WriteString("\n\nDifferential:\n")
	for _, d := range diagnoses {
		fmt.Fprintf(&b, "- %s (%d%%)\n", d.Name, d.Confidence)
	}
	b.WriteString("\n")
	b.WriteString(`Return ONLY valid JSON: {"treatmentPathway": "..."}`)
	return b.String()
}

func buildRiskPrompt(symptoms string, diagnoses []consultation.DiagnosisCandidate) string {
	var b strings.Builder
	b.WriteString("You are a clinical decision-support assistant. Given the symptoms and the working differential below, write a short risk stratification (low/moderate/high) with the single most important reason.\n\nSymptoms:\n")
	b.WriteString(symptoms)
	b.WriteString("\n\nDifferential:\n")
	for _, d := range diagnoses {
		fmt.Fprintf(&b, "- %s (%d%%)\n", d.Name, d.Confidence)
	}
	b.WriteString("\n")
	b.WriteString(`Return ONLY valid JSON: {"riskAssessment": "..."}`)
	return b.String()
}
