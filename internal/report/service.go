package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/signintech/gopdf"

	"consult-ai-backend/internal/consultation"
)

// Service renders a consultation export bundle as a PDF summary.
type Service struct {
	fontPaths []string
}

func NewService() *Service {
	return &Service{
		// Common DejaVuSans locations across Debian and Alpine images.
		fontPaths: []string{
			"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		},
	}
}

func (s *Service) Render(bundle *consultation.ExportBundle) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("failed to load font for PDF, ensure ttf-dejavu is installed: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Consultation Report")
	pdf.Br(30)

	session := bundle.Session
	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Date: %s", bundle.ExportedAt.Format("02.01.2006 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Session: %s", session.ID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Mode: %s", session.Mode))
	pdf.Br(15)
	if session.Patient.Name != "" {
		pdf.Cell(nil, fmt.Sprintf("Patient: %s", session.Patient.Name))
		pdf.Br(15)
	}
	pdf.Br(10)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Reported symptoms:")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	s.writeWrapped(&pdf, session.Symptoms)
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Diagnosis candidates:")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	if len(bundle.Diagnoses) == 0 {
		pdf.Cell(nil, "- No analysis recorded.")
		pdf.Br(15)
	}
	for _, d := range bundle.Diagnoses {
		s.writeWrapped(&pdf, fmt.Sprintf("- [%s] %s (confidence: %d%%)", d.Category, d.Name, d.Confidence))
		pdf.Br(5)
	}
	pdf.Br(10)

	if session.Analysis != nil {
		if session.Analysis.TreatmentPathway != "" {
			if err := pdf.SetFont("DejaVu", "", 14); err != nil {
				return nil, err
			}
			pdf.Cell(nil, "Treatment pathway:")
			pdf.Br(15)
			if err := pdf.SetFont("DejaVu", "", 11); err != nil {
				return nil, err
			}
			s.writeWrapped(&pdf, session.Analysis.TreatmentPathway)
			pdf.Br(10)
		}
		if session.Analysis.RiskAssessment != "" {
			if err := pdf.SetFont("DejaVu", "", 14); err != nil {
				return nil, err
			}
			pdf.Cell(nil, "Risk assessment:")
			pdf.Br(15)
			if err := pdf.SetFont("DejaVu", "", 11); err != nil {
				return nil, err
			}
			s.writeWrapped(&pdf, session.Analysis.RiskAssessment)
			pdf.Br(10)
		}
	}

	pdf.SetY(270)
	if err := pdf.SetFont("DejaVu", "", 9); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Generated %s. Not a medical diagnosis.", time.Now().Format("2006-01-02")))

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) writeWrapped(pdf *gopdf.GoPdf, text string) {
	lines, _ := pdf.SplitText(text, 500)
	for _, l := range lines {
		pdf.Cell(nil, l)
		pdf.Br(12)
	}
}
