package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"healthbot/internal/llm"
	"healthbot/internal/logging"
	"healthbot/pkg"
)

// Report types accepted by Generate.
const (
	ReportInitialConsultation = "initial_consultation"
	ReportFollowUp            = "follow_up"
	ReportSymptomTracking     = "symptom_tracking"
)

// ReportService turns a finished (or sufficiently advanced) conversation
// into a structured medical report.
type ReportService struct {
	store Store
	llm   llm.Client
	log   *slog.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(store Store, client llm.Client) *ReportService {
	return &ReportService{store: store, llm: client, log: logging.Module("reports")}
}

// reportPayload mirrors the JSON schema requested from the model.
type reportPayload struct {
	Summary            string   `json:"summary"`
	KeyFindings        []string `json:"key_findings"`
	UrgencyLevel       string   `json:"urgency_level"`
	Recommendations    []string `json:"recommendations"`
	MedicalSpecialties []string `json:"medical_specialties"`
	NextSteps          []string `json:"next_steps"`
}

// Generate assembles the conversation context, asks the model for the
// structured report, and persists it. Model or parse failure degrades to a
// conservative fallback report; the report still completes so the user is
// never stuck with a pending row.
func (s *ReportService) Generate(ctx context.Context, userID, conversationID int64, reportType string) (*pkg.MedicalReport, error) {
	conv, err := s.store.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	symptoms, err := s.store.ListConversationSymptoms(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	rep, err := s.store.CreateReport(ctx, &pkg.MedicalReport{
		UserID:         userID,
		ConversationID: conversationID,
		ShareCode:      NewShareCode(),
		Title:          "Medical Report - " + conv.Title,
		Type:           reportType,
		Status:         pkg.ReportPending,
		UrgencyLevel:   "low",
	})
	if err != nil {
		return nil, err
	}

	prompt := buildReportPrompt(reportType, user, conv, messages, symptoms)
	result, genErr := s.llm.Generate(ctx, llm.GenerateRequest{
		System:      ReportSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.2,
	})

	var payload reportPayload
	parsed := false
	if genErr != nil {
		s.log.Warn("report generation failed", "conversation_id", conversationID, "error", genErr)
	} else {
		parsed = extractJSON(result.Text, &payload)
	}
	if !parsed {
		payload = reportPayload{
			Summary:            fmt.Sprintf("%s report for %q. AI analysis was unavailable; the transcript and recorded symptoms should be reviewed manually.", reportType, conv.Title),
			KeyFindings:        []string{},
			UrgencyLevel:       "moderate",
			Recommendations:    []string{"Professional medical evaluation recommended"},
			MedicalSpecialties: []string{"General Practice"},
			NextSteps:          []string{"Schedule healthcare provider consultation"},
		}
	}

	rep.Status = pkg.ReportCompleted
	rep.UrgencyLevel = defaultStr(payload.UrgencyLevel, "low")
	summary := payload.Summary
	rep.Summary = &summary
	rep.KeyFindings = orEmpty(payload.KeyFindings)
	rep.Recommendations = orEmpty(payload.Recommendations)
	rep.NextSteps = orEmpty(payload.NextSteps)
	rep.Specialties = orEmpty(payload.MedicalSpecialties)
	if genErr == nil {
		rep.ModelUsed = &result.Model
		rep.ProcessingMillis = &result.ProcessingMillis
	}

	if err := s.store.CompleteReport(ctx, rep); err != nil {
		return nil, err
	}
	if err := s.store.SetConversationUrgency(ctx, conversationID, rep.UrgencyLevel); err != nil {
		s.log.Warn("set conversation urgency failed", "conversation_id", conversationID, "error", err)
	}
	return rep, nil
}

// Get loads a report scoped to its owner.
func (s *ReportService) Get(ctx context.Context, userID, id int64) (*pkg.MedicalReport, error) {
	return s.store.GetReport(ctx, userID, id)
}

// List returns the user's reports.
func (s *ReportService) List(ctx context.Context, userID int64, limit, offset int) ([]pkg.MedicalReport, error) {
	return s.store.ListReports(ctx, userID, limit, offset)
}

// ByShareCode resolves a share code to its report. The code is the access
// capability, so no user scoping applies.
func (s *ReportService) ByShareCode(ctx context.Context, code string) (*pkg.MedicalReport, error) {
	return s.store.GetReportByShareCode(ctx, code)
}

// ForConversation returns the latest report of a conversation, if any.
func (s *ReportService) ForConversation(ctx context.Context, conversationID int64) (*pkg.MedicalReport, error) {
	return s.store.GetConversationReport(ctx, conversationID)
}

// NewShareCode produces a short opaque code for handing a report to a
// provider.
func NewShareCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func buildReportPrompt(reportType string, user *pkg.User, conv *pkg.Conversation, messages []pkg.Message, symptoms []pkg.SymptomRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MEDICAL REPORT GENERATION - %s\n\n", strings.ToUpper(reportType))

	b.WriteString("PATIENT INFORMATION:\n")
	fmt.Fprintf(&b, "Name: %s\n", strOr(user.FullName, "Unknown"))
	fmt.Fprintf(&b, "Email: %s\n", user.Email)
	if user.Age != nil {
		fmt.Fprintf(&b, "Age: %d\n", *user.Age)
	}
	if user.Gender != nil {
		fmt.Fprintf(&b, "Gender: %s\n", *user.Gender)
	}
	if user.MedicalHistory != nil && *user.MedicalHistory != "" {
		fmt.Fprintf(&b, "Medical History: %s\n", *user.MedicalHistory)
	}
	if user.Allergies != nil && *user.Allergies != "" {
		fmt.Fprintf(&b, "Known Allergies: %s\n", *user.Allergies)
	}
	if user.Medications != nil && *user.Medications != "" {
		fmt.Fprintf(&b, "Current Medications: %s\n", *user.Medications)
	}
	b.WriteString("\n")

	b.WriteString("CONSULTATION CONTEXT:\n")
	fmt.Fprintf(&b, "Chief Complaint: %s\n", strOr(conv.ChiefComplaint, "Not specified"))
	fmt.Fprintf(&b, "Consultation Date: %s\n\n", conv.StartedAt.Format(time.RFC3339))

	if len(symptoms) > 0 {
		b.WriteString("SYMPTOM DOCUMENTATION:\n")
		for i, sym := range symptoms {
			fmt.Fprintf(&b, "%d. %s\n", i+1, sym.Name)
			fmt.Fprintf(&b, "   Severity: %d/10\n", sym.Severity)
			fmt.Fprintf(&b, "   Category: %s\n", sym.Category)
			fmt.Fprintf(&b, "   Location: %s\n", strOr(sym.Location, "Not specified"))
			fmt.Fprintf(&b, "   Onset: %s\n", sym.OnsetDate.Format(time.RFC3339))
			if sym.Description != nil && *sym.Description != "" {
				fmt.Fprintf(&b, "   Description: %s\n", *sym.Description)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("CONSULTATION TRANSCRIPT:\n")
	b.WriteString(formatTranscript(messages))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Please generate a comprehensive %s report in JSON format.", reportType)
	return b.String()
}
