package agent

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"consult-ai-backend/internal/consultation"
)

// The interpreter turns raw model text into typed results. Every function
// terminates in a well-formed value: structured decode is attempted first,
// then an explicit ladder of degradation strategies. Nothing here panics or
// returns a half-parsed shape.

const maxQuestions = 5

// extractJSON returns the first balanced {...} or [...] substring in text.
// Models routinely wrap their JSON in prose or markdown fences, so scanning
// for a balanced block is more reliable than decoding the whole body.
func extractJSON(text string) (string, bool) {
	start := -1
	var opener, closer byte
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			start = i
			opener = text[i]
			closer = '}'
			if opener == '[' {
				closer = ']'
			}
			break
		}
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseQuestions extracts follow-up questions from raw model text. The
// returned bool reports whether the result came from a fallback path.
func ParseQuestions(text string) ([]string, bool) {
	if raw, ok := extractJSON(text); ok {
		var wrapped struct {
			Questions []string `json:"questions"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && len(wrapped.Questions) > 0 {
			return capQuestions(wrapped.Questions), false
		}
		var plain []string
		if err := json.Unmarshal([]byte(raw), &plain); err == nil && len(plain) > 0 {
			return capQuestions(plain), false
		}
	}

	// Line scan: keep lines that look like questions, strip list numbering.
	var questions []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "?") {
			continue
		}
		line = stripListPrefix(line)
		if line != "" {
			questions = append(questions, line)
		}
		if len(questions) == maxQuestions {
			break
		}
	}
	if len(questions) > 0 {
		return questions, true
	}

	return []string{
		"When did the symptoms start?",
		"Have the symptoms been getting better, worse, or staying the same?",
		"Do you have any other symptoms you have not mentioned yet?",
	}, true
}

func capQuestions(qs []string) []string {
	out := make([]string, 0, maxQuestions)
	for _, q := range qs {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == maxQuestions {
			break
		}
	}
	return out
}

// stripListPrefix removes leading "1.", "2)", "-", "*" style markers.
func stripListPrefix(line string) string {
	i := 0
	for i < len(line) && (line[i] >= '0' && line[i] <= '9') {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		i++
	} else if len(line) > 0 && (line[0] == '-' || line[0] == '*') {
		i = 1
	} else {
		i = 0
	}
	return strings.TrimSpace(line[i:])
}

// ParseMCQs extracts multiple-choice questions. Unlike the other parsers it
// can fail: the caller falls back to descriptive questions, so there is no
// sensible synthetic MCQ result here.
func ParseMCQs(text string) ([]consultation.MCQ, error) {
	raw, ok := extractJSON(text)
	if !ok {
		return nil, fmt.Errorf("no JSON block in model output")
	}

	var wrapped struct {
		FollowUpMCQs []rawMCQ `json:"followUpMCQs"`
	}
	var items []rawMCQ
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && len(wrapped.FollowUpMCQs) > 0 {
		items = wrapped.FollowUpMCQs
	} else if err := json.Unmarshal([]byte(raw), &items); err != nil || len(items) == 0 {
		return nil, fmt.Errorf("model output is not an MCQ list")
	}

	mcqs := make([]consultation.MCQ, 0, len(items))
	for _, item := range items {
		mcq, ok := item.toMCQ()
		if ok {
			mcqs = append(mcqs, mcq)
		}
	}
	if len(mcqs) == 0 {
		return nil, fmt.Errorf("no usable MCQs in model output")
	}
	return mcqs, nil
}

// rawMCQ tolerates both structured options and plain string options.
type rawMCQ struct {
	Question string            `json:"question"`
	Options  []json.RawMessage `json:"options"`
}

func (r rawMCQ) toMCQ() (consultation.MCQ, bool) {
	if strings.TrimSpace(r.Question) == "" || len(r.Options) < 2 {
		return consultation.MCQ{}, false
	}
	mcq := consultation.MCQ{Question: strings.TrimSpace(r.Question)}
	for i, rawOpt := range r.Options {
		var opt consultation.MCQOption
		if err := json.Unmarshal(rawOpt, &opt); err == nil && opt.Label != "" {
			if opt.ID == "" {
				opt.ID = optionID(i)
			}
			if opt.Value == "" {
				opt.Value = opt.Label
			}
			mcq.Options = append(mcq.Options, opt)
			continue
		}
		var label string
		if err := json.Unmarshal(rawOpt, &label); err == nil && strings.TrimSpace(label) != "" {
			label = strings.TrimSpace(label)
			mcq.Options = append(mcq.Options, consultation.MCQOption{
				ID:    optionID(i),
				Label: label,
				Value: label,
			})
		}
	}
	if len(mcq.Options) < 2 {
		return consultation.MCQ{}, false
	}
	return mcq, true
}

func optionID(i int) string {
	return string(rune('a' + i%26))
}

// ParseAnalysis extracts a full analysis bundle. If the model output is
// unusable it degrades to a synthetic result keyed off the symptom text, so
// the caller always gets a structurally valid bundle.
func ParseAnalysis(text, symptoms string) consultation.AnalysisResult {
	if raw, ok := extractJSON(text); ok {
		var result consultation.AnalysisResult
		if err := json.Unmarshal([]byte(raw), &result); err == nil && len(result.Diagnoses) > 0 {
			normalizeAnalysis(&result)
			return result
		}
	}
	return syntheticAnalysis(symptoms)
}

func normalizeAnalysis(r *consultation.AnalysisResult) {
	for i := range r.Diagnoses {
		c := r.Diagnoses[i].Confidence
		if c < 0 {
			c = 0
		}
		if c > 100 {
			c = 100
		}
		r.Diagnoses[i].Confidence = c
	}
	r.OverallConfidence = meanConfidence(r.Diagnoses)
	if len(r.FollowUpQuestions) > maxQuestions {
		r.FollowUpQuestions = r.FollowUpQuestions[:maxQuestions]
	}
}

// meanConfidence is the rounded arithmetic mean of candidate confidences.
func meanConfidence(ds []consultation.DiagnosisCandidate) int {
	if len(ds) == 0 {
		return 0
	}
	sum := 0
	for _, d := range ds {
		sum += d.Confidence
	}
	return int(math.Round(float64(sum) / float64(len(ds))))
}

// symptomPattern maps a keyword cluster to a pre-authored diagnostic bundle.
// The first entry is the default when nothing matches.
type symptomPattern struct {
	keywords  []string
	diagnoses []consultation.DiagnosisCandidate
	redFlags  []string
	tests     []string
	followUps []string
}

var symptomPatterns = []symptomPattern{
	{
		keywords: []string{"fever", "tired", "fatigue", "ache", "chills"},
		diagnoses: []consultation.DiagnosisCandidate{
			{Name: "Viral syndrome", Description: "A self-limiting systemic viral illness.", Confidence: 55, Category: "Infectious",
				RedFlags: []string{"Fever above 39.5C for more than 3 days"}, RecommendedTests: []string{"Complete blood count if persistent"}},
			{Name: "Seasonal influenza", Description: "Influenza virus infection with fever and body aches.", Confidence: 45, Category: "Infectious",
				RedFlags: []string{"Difficulty breathing"}, RecommendedTests: []string{"Rapid influenza antigen test"}},
		},
		redFlags:  []string{"Persistent high fever", "Difficulty breathing"},
		tests:     []string{"Complete blood count"},
		followUps: []string{"How high has the fever been?", "Has anyone around you been unwell?"},
	},
	{
		keywords: []string{"fever", "joint pain", "rash", "headache", "eye pain"},
		diagnoses: []consultation.DiagnosisCandidate{
			{Name: "Dengue fever", Description: "Mosquito-borne viral infection with fever, joint pain and rash.", Confidence: 60, Category: "Infectious",
				RedFlags: []string{"Bleeding gums", "Severe abdominal pain", "Persistent vomiting"}, RecommendedTests: []string{"NS1 antigen test", "Platelet count"}},
			{Name: "Chikungunya", Description: "Mosquito-borne viral infection dominated by joint pain.", Confidence: 40, Category: "Infectious",
				RedFlags: []string{"High fever beyond 5 days"}, RecommendedTests: []string{"Chikungunya IgM serology"}},
		},
		redFlags:  []string{"Bleeding gums", "Severe abdominal pain", "Drowsiness"},
		tests:     []string{"NS1 antigen test", "Complete blood count with platelets"},
		followUps: []string{"Have you noticed any rash or bleeding?", "Have you traveled to a mosquito-prone area recently?"},
	},
	{
		keywords: []string{"chest pain", "shortness of breath", "breath", "palpitation", "sweating"},
		diagnoses: []consultation.DiagnosisCandidate{
			{Name: "Acute coronary syndrome", Description: "Reduced blood flow to the heart muscle; requires urgent exclusion.", Confidence: 50, Category: "Cardiovascular",
				RedFlags: []string{"Pain radiating to arm or jaw", "Sweating with nausea"}, RecommendedTests: []string{"ECG", "Troponin"}},
			{Name: "Panic attack", Description: "Sudden episode of intense anxiety with chest tightness and breathlessness.", Confidence: 35, Category: "Psychiatric",
				RedFlags: []string{}, RecommendedTests: []string{"ECG to rule out cardiac cause"}},
			{Name: "Pulmonary embolism", Description: "Blood clot in the lung circulation; breathlessness out of proportion to findings.", Confidence: 25, Category: "Cardiovascular",
				RedFlags: []string{"Coughing up blood", "Fainting"}, RecommendedTests: []string{"D-dimer", "CT pulmonary angiogram"}},
		},
		redFlags:  []string{"Pain radiating to arm or jaw", "Fainting", "Coughing up blood"},
		tests:     []string{"ECG", "Troponin", "Chest X-ray"},
		followUps: []string{"Does the pain change with breathing or position?", "Does the pain spread to your arm, neck or jaw?"},
	},
	{
		keywords: []string{"cough", "sore throat", "runny nose", "congestion", "sneezing"},
		diagnoses: []consultation.DiagnosisCandidate{
			{Name: "Viral upper respiratory infection", Description: "Common cold affecting nose and throat.", Confidence: 65, Category: "Infectious",
				RedFlags: []string{"Difficulty breathing"}, RecommendedTests: []string{"None routinely required"}},
			{Name: "Acute bronchitis", Description: "Inflammation of the large airways, usually viral.", Confidence: 35, Category: "Respiratory",
				RedFlags: []string{"Coughing up blood", "High fever"}, RecommendedTests: []string{"Chest X-ray if symptoms persist"}},
		},
		redFlags:  []string{"Difficulty breathing", "Coughing up blood"},
		tests:     []string{"Chest X-ray if cough persists beyond 3 weeks"},
		followUps: []string{"Is the cough dry or producing phlegm?", "Do you smoke?"},
	},
	{
		keywords: []string{"stomach", "abdominal pain", "nausea", "vomiting", "diarrhea", "diarrhoea"},
		diagnoses: []consultation.DiagnosisCandidate{
			{Name: "Acute gastroenteritis", Description: "Infection of the gut causing vomiting and loose stools.", Confidence: 60, Category: "Gastrointestinal",
				RedFlags: []string{"Blood in stool", "Signs of dehydration"}, RecommendedTests: []string{"Stool culture if bloody or prolonged"}},
			{Name: "Food poisoning", Description: "Toxin-mediated illness after contaminated food.", Confidence: 40, Category: "Gastrointestinal",
				RedFlags: []string{"High fever", "Severe dehydration"}, RecommendedTests: []string{"Electrolyte panel if severe"}},
		},
		redFlags:  []string{"Blood in stool", "Unable to keep fluids down", "Severe localized pain"},
		tests:     []string{"Stool examination", "Electrolyte panel"},
		followUps: []string{"Have you eaten anything unusual in the last 48 hours?", "Are you able to keep fluids down?"},
	},
	{
		keywords: []string{"headache", "migraine", "dizziness", "vision", "light"},
		diagnoses: []consultation.DiagnosisCandidate{
			{Name: "Tension-type headache", Description: "Band-like pressure headache linked to stress or posture.", Confidence: 55, Category: "Neurological",
				RedFlags: []string{"Sudden worst-ever headache"}, RecommendedTests: []string{"None routinely required"}},
			{Name: "Migraine", Description: "Recurrent throbbing headache, often one-sided, with light sensitivity.", Confidence: 45, Category: "Neurological",
				RedFlags: []string{"New neurological deficit"}, RecommendedTests: []string{"Neuroimaging only if atypical features"}},
		},
		redFlags:  []string{"Sudden worst-ever headache", "Neck stiffness with fever", "New weakness or numbness"},
		tests:     []string{"Blood pressure measurement"},
		followUps: []string{"Where exactly is the headache located?", "Does light or noise make it worse?"},
	},
}

// matchPattern scores each pattern by keyword hits against the symptom text
// and returns the best match, defaulting to the first table entry.
func matchPattern(symptoms string) symptomPattern {
	s := strings.ToLower(symptoms)
	best := symptomPatterns[0]
	bestScore := 0
	for _, p := range symptomPatterns {
		score := 0
		for _, kw := range p.keywords {
			if strings.Contains(s, kw) {
				score++
			}
		}
		if score > bestScore {
			best = p
			bestScore = score
		}
	}
	return best
}

// syntheticAnalysis builds a deterministic degraded bundle from the symptom
// pattern table.
func syntheticAnalysis(symptoms string) consultation.AnalysisResult {
	p := matchPattern(symptoms)

	diagnoses := make([]consultation.DiagnosisCandidate, len(p.diagnoses))
	copy(diagnoses, p.diagnoses)

	return consultation.AnalysisResult{
		Diagnoses:         diagnoses,
		RedFlags:          p.redFlags,
		RecommendedTests:  p.tests,
		FollowUpQuestions: p.followUps,
		OverallConfidence: meanConfidence(diagnoses),
		Degraded:          true,
	}
}
