package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"healthbot/internal/db"
	"healthbot/pkg"
)

// ErrConversationInactive rejects messages to completed or archived
// conversations.
var ErrConversationInactive = errors.New("conversation is not active")

// Store is the persistence surface the services need. *db.Repository
// implements it; tests use an in-memory fake.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*pkg.User, error)

	CreateConversation(ctx context.Context, userID int64, title string, chiefComplaint *string) (*pkg.Conversation, error)
	GetConversation(ctx context.Context, userID, id int64) (*pkg.Conversation, error)
	ListConversations(ctx context.Context, userID int64, limit, offset int) ([]pkg.ConversationPreview, error)
	CompleteConversation(ctx context.Context, userID, id int64) error
	TouchConversation(ctx context.Context, id int64) error
	SetConversationUrgency(ctx context.Context, id int64, urgency string) error

	CreateMessage(ctx context.Context, m *pkg.Message) (*pkg.Message, error)
	ListMessages(ctx context.Context, conversationID int64) ([]pkg.Message, error)
	CountUserMessages(ctx context.Context, conversationID int64, symptomsOnly bool) (int, error)

	CreateSymptom(ctx context.Context, s *pkg.SymptomRecord) (*pkg.SymptomRecord, error)
	GetSymptom(ctx context.Context, userID, id int64) (*pkg.SymptomRecord, error)
	ListSymptoms(ctx context.Context, userID int64, f db.SymptomFilter) ([]pkg.SymptomRecord, error)
	ListSymptomsByIDs(ctx context.Context, userID int64, ids []int64) ([]pkg.SymptomRecord, error)
	ListConversationSymptoms(ctx context.Context, conversationID int64) ([]pkg.SymptomRecord, error)
	UpdateSymptom(ctx context.Context, s *pkg.SymptomRecord) error
	DeleteSymptom(ctx context.Context, userID, id int64) error

	CreateReport(ctx context.Context, rep *pkg.MedicalReport) (*pkg.MedicalReport, error)
	CompleteReport(ctx context.Context, rep *pkg.MedicalReport) error
	GetReport(ctx context.Context, userID, id int64) (*pkg.MedicalReport, error)
	GetReportByShareCode(ctx context.Context, code string) (*pkg.MedicalReport, error)
	GetConversationReport(ctx context.Context, conversationID int64) (*pkg.MedicalReport, error)
	ListReports(ctx context.Context, userID int64, limit, offset int) ([]pkg.MedicalReport, error)
}

// extractJSON pulls the outermost JSON object out of model output, which
// routinely wraps it in prose or code fences, and unmarshals it into v.
func extractJSON(text string, v any) bool {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(text[start:end+1]), v) == nil
}
