package agent

import "strings"

// Canned demo payloads. When a model credential is missing or the remote call
// fails, the gateway degrades to these instead of surfacing an error, so the
// rest of the flow keeps working against plausible content.

const cannedMCQs = `{
  "followUpMCQs": [
    {
      "question": "How long have you had these symptoms?",
      "options": [
        {"id": "a", "label": "Less than 24 hours", "value": "under 1 day"},
        {"id": "b", "label": "1-3 days", "value": "1-3 days"},
        {"id": "c", "label": "4-7 days", "value": "4-7 days"},
        {"id": "d", "label": "More than a week", "value": "over a week"}
      ]
    },
    {
      "question": "How severe is the discomfort at its worst?",
      "options": [
        {"id": "a", "label": "Mild, I can carry on normally", "value": "mild"},
        {"id": "b", "label": "Moderate, it limits some activity", "value": "moderate"},
        {"id": "c", "label": "Severe, I cannot do my usual tasks", "value": "severe"}
      ]
    },
    {
      "question": "Have you taken any medication for this?",
      "options": [
        {"id": "a", "label": "No", "value": "none"},
        {"id": "b", "label": "Over-the-counter medicines", "value": "otc"},
        {"id": "c", "label": "Prescription medicines", "value": "prescription"}
      ]
    }
  ]
}`

const cannedQuestions = `{
  "questions": [
    "When did the symptoms start, and have they been getting better or worse?",
    "Have you measured a fever, and if so how high?",
    "Does anything make the symptoms noticeably better or worse?",
    "Have you had similar episodes before?",
    "Are you currently taking any regular medication?"
  ]
}`

const cannedTreatment = `{"treatmentPathway": "1. Rest and adequate hydration. 2. Symptomatic relief with paracetamol as directed on the pack. 3. Monitor temperature twice daily. 4. Review in 48 hours, or sooner if symptoms worsen. 5. Seek in-person care if any red-flag symptom appears."}`

const cannedRisk = `{"riskAssessment": "Moderate risk: the reported symptoms are most consistent with a self-limiting illness, but persistence beyond 48-72 hours or the appearance of any red-flag symptom warrants in-person assessment."}`

const cannedAnalysis = `{
  "diagnoses": [
    {
      "name": "Viral upper respiratory infection",
      "description": "A self-limiting viral illness affecting the nose and throat, typically resolving within a week.",
      "confidence": 62,
      "category": "Infectious",
      "redFlags": ["Difficulty breathing", "Fever above 39.5C for more than 3 days"],
      "recommendedTests": ["None routinely required", "Throat swab if symptoms persist"]
    },
    {
      "name": "Seasonal influenza",
      "description": "Influenza virus infection with abrupt onset of fever, body aches and fatigue.",
      "confidence": 48,
      "category": "Infectious",
      "redFlags": ["Chest pain", "Confusion or drowsiness"],
      "recommendedTests": ["Rapid influenza antigen test"]
    }
  ],
  "redFlags": ["Difficulty breathing", "Persistent high fever", "Confusion or drowsiness"],
  "recommendedTests": ["Complete blood count if symptoms persist beyond 5 days"],
  "followUpQuestions": ["Has anyone around you been unwell recently?", "Are your vaccinations up to date?"]
}`

// cannedResponse picks a demo payload by keyword-matching the prompt. Match
// order matters: the analysis prompt also mentions follow-up questions in its
// schema, so the more specific markers are checked first.
func cannedResponse(prompt string) string {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "mcq"):
		return cannedMCQs
	case strings.Contains(p, "treatment"):
		return cannedTreatment
	case strings.Contains(p, "risk stratification"):
		return cannedRisk
	case strings.Contains(p, "follow-up questions"):
		return cannedQuestions
	default:
		return cannedAnalysis
	}
}
