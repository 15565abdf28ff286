package consultation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ReportRenderer turns an export bundle into a downloadable document.
type ReportRenderer interface {
	Render(bundle *ExportBundle) ([]byte, error)
}

type Handler struct {
	svc     Service
	reports ReportRenderer
}

func NewHandler(svc Service, reports ReportRenderer) *Handler {
	return &Handler{svc: svc, reports: reports}
}

type UpsertSessionRequest struct {
	SessionID string       `json:"sessionId"`
	Mode      Mode         `json:"mode"`
	Patient   *PatientInfo `json:"patientInfo,omitempty"`
}

func (h *Handler) UpsertSession(w http.ResponseWriter, r *http.Request) {
	var req UpsertSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.svc.UpsertSession(r.Context(), req.SessionID, req.Mode, req.Patient)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, session)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, session)
}

func (h *Handler) PatchSession(w http.ResponseWriter, r *http.Request) {
	var patch SessionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.svc.PatchSession(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, session)
}

func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.ClearSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, session)
}

func (h *Handler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req QuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.svc.GenerateQuestions(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.svc.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Conversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, entries)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.svc.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, bundle)
}

func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.svc.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	pdf, err := h.reports.Render(bundle)
	if err != nil {
		http.Error(w, "Report generation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=consultation_%s.pdf", bundle.Session.ID))
	w.Write(pdf)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Health(r.Context()))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "Internal error: "+err.Error(), http.StatusInternalServerError)
	}
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/sessions", h.UpsertSession)
	r.Get("/sessions/{id}", h.GetSession)
	r.Patch("/sessions/{id}", h.PatchSession)
	r.Post("/sessions/{id}/clear", h.ClearSession)
	r.Get("/sessions/{id}/conversation", h.Conversation)
	r.Get("/sessions/{id}/export", h.Export)
	r.Get("/sessions/{id}/export/pdf", h.ExportPDF)
	r.Post("/generate-questions", h.GenerateQuestions)
	r.Post("/analyze", h.Analyze)
	r.Get("/health", h.Health)
}
