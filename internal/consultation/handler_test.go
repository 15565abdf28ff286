package consultation_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"consult-ai-backend/internal/agent"
	"consult-ai-backend/internal/consultation"
)

type stubRenderer struct{}

func (stubRenderer) Render(bundle *consultation.ExportBundle) ([]byte, error) {
	return []byte("%PDF-stub"), nil
}

// newTestServer wires the real service against the in-memory store and a
// gateway with no credentials, i.e. the demo-mode deployment.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	gateway := agent.NewDeepSeekGateway("", "", "")
	aiClient := agent.NewClient(gateway)
	svc := consultation.NewService(consultation.NewMemoryStore(), aiClient)
	handler := consultation.NewHandler(svc, stubRenderer{})

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		consultation.RegisterRoutes(r, handler)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestHealthDemoMode(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	health := decodeBody[consultation.HealthStatus](t, resp)

	if health.Models.Reasoner != consultation.StatusDemoMode {
		t.Fatalf("models.reasoner = %q, want demo_mode", health.Models.Reasoner)
	}
	if health.Models.Chat != consultation.StatusDemoMode {
		t.Fatalf("models.chat = %q, want demo_mode", health.Models.Chat)
	}
	if health.Database != consultation.StatusConnected {
		t.Fatalf("database = %q, want connected", health.Database)
	}
}

func TestSessionUpsertIdempotence(t *testing.T) {
	srv := newTestServer(t)

	for _, age := range []int{30, 31} {
		resp := postJSON(t, srv.URL+"/api/sessions", consultation.UpsertSessionRequest{
			SessionID: "abc",
			Mode:      consultation.ModePatient,
			Patient:   &consultation.PatientInfo{Name: "Alice", Age: age},
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("upsert returned %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/api/sessions/abc")
	if err != nil {
		t.Fatal(err)
	}
	session := decodeBody[consultation.Session](t, resp)
	if session.ID != "abc" || session.Patient.Age != 31 {
		t.Fatalf("expected updated single record, got %+v", session)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/sessions/ghost")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGenerateQuestionsMCQScenario(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/generate-questions", consultation.QuestionsRequest{
		SessionID:    "mcq-session",
		Mode:         consultation.ModePatient,
		Symptoms:     "chest pain and shortness of breath",
		QuestionType: consultation.QuestionTypeMCQ,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody[consultation.QuestionsResponse](t, resp)

	if len(body.FollowUpMCQs) == 0 {
		t.Fatal("expected a non-empty followUpMCQs array")
	}
	if body.Questions != nil {
		t.Fatal("questions must be empty when MCQs are returned")
	}
	for _, m := range body.FollowUpMCQs {
		if m.Question == "" {
			t.Fatalf("MCQ missing question: %+v", m)
		}
		if len(m.Options) < 2 {
			t.Fatalf("MCQ needs at least 2 options: %+v", m)
		}
	}
	if !body.Degraded {
		t.Fatal("demo-mode content must be flagged degraded")
	}
}

func TestGenerateQuestionsShortSymptoms(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/generate-questions", consultation.QuestionsRequest{
		SessionID: "s", Mode: consultation.ModePatient, Symptoms: "cough",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAnalyzeRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	sessionID := "round-trip"

	qResp := postJSON(t, srv.URL+"/api/generate-questions", consultation.QuestionsRequest{
		SessionID: sessionID,
		Mode:      consultation.ModePatient,
		Symptoms:  "fever and fatigue since Monday",
	})
	questions := decodeBody[consultation.QuestionsResponse](t, qResp)
	if len(questions.Questions) == 0 {
		t.Fatal("expected descriptive questions")
	}

	var answers []consultation.FollowUpAnswer
	for _, q := range questions.Questions {
		answers = append(answers, consultation.FollowUpAnswer{Question: q, Answer: "yes"})
	}

	aResp := postJSON(t, srv.URL+"/api/analyze", consultation.AnalyzeRequest{
		SessionID:       sessionID,
		Mode:            consultation.ModePatient,
		Symptoms:        "fever and fatigue since Monday",
		FollowUpAnswers: answers,
	})
	if aResp.StatusCode != http.StatusOK {
		t.Fatalf("analyze returned %d", aResp.StatusCode)
	}
	result := decodeBody[consultation.AnalysisResult](t, aResp)

	if len(result.Diagnoses) == 0 {
		t.Fatal("expected diagnoses")
	}
	sum := 0
	for _, d := range result.Diagnoses {
		if d.Confidence < 0 || d.Confidence > 100 {
			t.Fatalf("confidence out of range: %d", d.Confidence)
		}
		sum += d.Confidence
	}
	wantOverall := int(math.Round(float64(sum) / float64(len(result.Diagnoses))))
	if result.OverallConfidence != wantOverall {
		t.Fatalf("overallConfidence = %d, want %d", result.OverallConfidence, wantOverall)
	}

	// Session reflects the completed flow.
	sResp, err := http.Get(fmt.Sprintf("%s/api/sessions/%s", srv.URL, sessionID))
	if err != nil {
		t.Fatal(err)
	}
	session := decodeBody[consultation.Session](t, sResp)
	if session.Analysis == nil {
		t.Fatal("aiAnalysis missing from session")
	}
	if session.State != consultation.StateComplete {
		t.Fatalf("state = %q, want %q", session.State, consultation.StateComplete)
	}
}

func TestConversationLogAfterAnalysis(t *testing.T) {
	srv := newTestServer(t)
	sessionID := "logged"

	resp := postJSON(t, srv.URL+"/api/analyze", consultation.AnalyzeRequest{
		SessionID: sessionID,
		Mode:      consultation.ModePatient,
		Symptoms:  "fever and fatigue since Monday",
	})
	resp.Body.Close()

	cResp, err := http.Get(fmt.Sprintf("%s/api/sessions/%s/conversation", srv.URL, sessionID))
	if err != nil {
		t.Fatal(err)
	}
	entries := decodeBody[[]consultation.Entry](t, cResp)
	if len(entries) == 0 {
		t.Fatal("expected conversation entries")
	}
	last := entries[len(entries)-1]
	if last.Role != consultation.RoleSystem {
		t.Fatalf("expected the analysis system entry last, got %+v", last)
	}
}

func TestExportSnapshot(t *testing.T) {
	srv := newTestServer(t)
	sessionID := "exported"

	resp := postJSON(t, srv.URL+"/api/analyze", consultation.AnalyzeRequest{
		SessionID: sessionID,
		Mode:      consultation.ModeDoctor,
		Symptoms:  "fever and fatigue since Monday",
	})
	resp.Body.Close()

	eResp, err := http.Get(fmt.Sprintf("%s/api/sessions/%s/export", srv.URL, sessionID))
	if err != nil {
		t.Fatal(err)
	}
	bundle := decodeBody[consultation.ExportBundle](t, eResp)

	if bundle.Session == nil || bundle.Session.ID != sessionID {
		t.Fatalf("export missing session: %+v", bundle.Session)
	}
	if len(bundle.Diagnoses) == 0 {
		t.Fatal("export missing diagnoses")
	}
	if bundle.ExportedAt.IsZero() {
		t.Fatal("export missing timestamp")
	}
}

func TestExportPDF(t *testing.T) {
	srv := newTestServer(t)
	sessionID := "pdf"

	resp := postJSON(t, srv.URL+"/api/analyze", consultation.AnalyzeRequest{
		SessionID: sessionID,
		Mode:      consultation.ModePatient,
		Symptoms:  "fever and fatigue since Monday",
	})
	resp.Body.Close()

	pResp, err := http.Get(fmt.Sprintf("%s/api/sessions/%s/export/pdf", srv.URL, sessionID))
	if err != nil {
		t.Fatal(err)
	}
	defer pResp.Body.Close()
	if pResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", pResp.StatusCode)
	}
	if ct := pResp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q, want application/pdf", ct)
	}
}
