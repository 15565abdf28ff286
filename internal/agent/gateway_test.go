package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"consult-ai-backend/internal/consultation"
)

func TestCompleteNoCredentialsServesCannedContent(t *testing.T) {
	gw := NewDeepSeekGateway("", "", "")

	c := gw.Complete(context.Background(), buildMCQPrompt("fever and chills", consultation.ModePatient), true)
	if !c.Degraded {
		t.Fatal("expected degraded completion without credentials")
	}
	if c.Text != cannedMCQs {
		t.Fatal("expected canned MCQ payload")
	}

	status := gw.Status()
	if status.Reasoner != consultation.StatusDemoMode || status.Chat != consultation.StatusDemoMode {
		t.Fatalf("expected demo_mode for both models, got %+v", status)
	}
}

func TestCompleteRemoteFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	gw := NewDeepSeekGateway("key", "key", srv.URL)
	c := gw.Complete(context.Background(), buildTreatmentPrompt("fever", nil), false)
	if !c.Degraded || c.Text != cannedTreatment {
		t.Fatalf("expected canned treatment fallback, got degraded=%v", c.Degraded)
	}

	if got := gw.Status().Chat; got != consultation.StatusDisconnected {
		t.Fatalf("chat status = %q, want disconnected", got)
	}
	// The reasoner was never called; its key is set, so it reports connected.
	if got := gw.Status().Reasoner; got != consultation.StatusConnected {
		t.Fatalf("reasoner status = %q, want connected", got)
	}
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		gotModel = req.Model
		json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{
				{Message: chatMessage{Role: "assistant", Content: `{"questions": ["Real question?"]}`}},
			},
		})
	}))
	defer srv.Close()

	gw := NewDeepSeekGateway("reasoner-key", "chat-key", srv.URL)
	c := gw.Complete(context.Background(), buildQuestionsPrompt("fever and chills today", consultation.ModePatient), true)
	if c.Degraded {
		t.Fatal("successful call should not be degraded")
	}
	if c.Text != `{"questions": ["Real question?"]}` {
		t.Fatalf("unexpected completion text: %q", c.Text)
	}
	if gotAuth != "Bearer reasoner-key" {
		t.Fatalf("wrong auth header: %q", gotAuth)
	}
	if gotModel != reasonerModel {
		t.Fatalf("wrong model selected: %q", gotModel)
	}
	if got := gw.Status().Reasoner; got != consultation.StatusConnected {
		t.Fatalf("reasoner status = %q, want connected", got)
	}
}

func TestCompleteMalformedBodyFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not json"))
	}))
	defer srv.Close()

	gw := NewDeepSeekGateway("key", "key", srv.URL)
	c := gw.Complete(context.Background(), buildAnalysisPrompt("fever and chills today", consultation.ModePatient, consultation.PatientInfo{}), true)
	if !c.Degraded || c.Text != cannedAnalysis {
		t.Fatal("malformed response body must degrade to canned analysis")
	}
}
