// Package pdf renders completed medical reports into a printable document
// the user can hand to a healthcare provider.
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"healthbot/pkg"
)

const disclaimer = "This report was generated by an AI health assistant and is " +
	"not a medical diagnosis. It is intended to support, not replace, " +
	"consultation with a qualified healthcare professional."

// Render produces the PDF for a completed report.
func Render(rep *pkg.MedicalReport, user *pkg.User, conversationTitle string) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle(rep.Title, true)
	doc.SetAutoPageBreak(true, 20)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 10, rep.Title, "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(110, 110, 110)
	doc.CellFormat(0, 6, fmt.Sprintf("Share code %s  |  Generated %s  |  Urgency: %s",
		rep.ShareCode, rep.CreatedAt.Format("2006-01-02 15:04 MST"), strings.ToUpper(rep.UrgencyLevel)),
		"", 1, "C", false, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.Ln(4)

	section(doc, "Patient")
	field(doc, "Name", strOr(user.FullName, "Not provided"))
	field(doc, "Email", user.Email)
	if user.Age != nil {
		field(doc, "Age", fmt.Sprintf("%d", *user.Age))
	}
	if user.Gender != nil {
		field(doc, "Gender", *user.Gender)
	}
	if user.MedicalHistory != nil && *user.MedicalHistory != "" {
		field(doc, "Medical history", *user.MedicalHistory)
	}
	if user.Allergies != nil && *user.Allergies != "" {
		field(doc, "Allergies", *user.Allergies)
	}
	if user.Medications != nil && *user.Medications != "" {
		field(doc, "Medications", *user.Medications)
	}
	doc.Ln(2)

	section(doc, "Consultation")
	field(doc, "Session", conversationTitle)
	field(doc, "Report type", strings.ReplaceAll(rep.Type, "_", " "))
	if rep.CompletedAt != nil {
		field(doc, "Completed", rep.CompletedAt.Format(time.RFC1123))
	}
	doc.Ln(2)

	if rep.Summary != nil && *rep.Summary != "" {
		section(doc, "Summary")
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(0, 5, *rep.Summary, "", "L", false)
		doc.Ln(2)
	}

	bullets(doc, "Key findings", rep.KeyFindings)
	bullets(doc, "Recommendations", rep.Recommendations)
	bullets(doc, "Next steps", rep.NextSteps)
	bullets(doc, "Suggested specialties", rep.Specialties)

	doc.Ln(6)
	doc.SetFont("Helvetica", "I", 8)
	doc.SetTextColor(110, 110, 110)
	doc.MultiCell(0, 4, disclaimer, "", "L", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(doc *gofpdf.Fpdf, title string) {
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
	doc.Ln(1)
}

func field(doc *gofpdf.Fpdf, label, value string) {
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(40, 5, label, "", 0, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(0, 5, value, "", "L", false)
}

func bullets(doc *gofpdf.Fpdf, title string, items []string) {
	if len(items) == 0 {
		return
	}
	section(doc, title)
	doc.SetFont("Helvetica", "", 10)
	for _, item := range items {
		doc.CellFormat(6, 5, "-", "", 0, "R", false, 0, "")
		doc.MultiCell(0, 5, item, "", "L", false)
	}
	doc.Ln(2)
}

func strOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
