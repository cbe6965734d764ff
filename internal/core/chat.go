package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"healthbot/internal/db"
	"healthbot/internal/llm"
	"healthbot/internal/logging"
	"healthbot/pkg"
)

const (
	// historyWindow bounds how much context is replayed to the model.
	historyWindow = 6
	// followupWindow bounds the transcript used for follow-up questions.
	followupWindow = 10
	// autoDiagnosisThreshold is the minimum number of user messages before
	// a conversation becomes eligible for automatic report generation.
	autoDiagnosisThreshold = 3
)

// ChatService orchestrates consultations: it persists both sides of the
// exchange, replays recent history to the model, and decides when a
// conversation has gathered enough to trigger a diagnosis report.
type ChatService struct {
	store Store
	llm   llm.Client
	log   *slog.Logger
}

// NewChatService constructs a ChatService.
func NewChatService(store Store, client llm.Client) *ChatService {
	return &ChatService{store: store, llm: client, log: logging.Module("chat")}
}

// StartResult is returned by Start.
type StartResult struct {
	Conversation     *pkg.Conversation `json:"conversation"`
	UserMessage      *pkg.Message      `json:"user_message"`
	AssistantMessage *pkg.Message      `json:"ai_message"`
}

// SendResult is returned by Send.
type SendResult struct {
	UserMessage      *pkg.Message `json:"user_message"`
	AssistantMessage *pkg.Message `json:"ai_message"`
	DiagnosisReady   bool         `json:"diagnosis_ready"`
}

// Start opens a conversation with the user's initial message and the
// model's welcome response. An LLM failure degrades to a canned welcome;
// the conversation still starts.
func (s *ChatService) Start(ctx context.Context, userID int64, initialMessage string, chiefComplaint *string) (*StartResult, error) {
	title := "Medical consultation - " + time.Now().Format("2006-01-02 15:04")
	conv, err := s.store.CreateConversation(ctx, userID, title, chiefComplaint)
	if err != nil {
		return nil, err
	}

	// The opening message is assumed to describe the chief complaint.
	userMsg, err := s.store.CreateMessage(ctx, &pkg.Message{
		ConversationID:   conv.ID,
		Role:             pkg.RoleUser,
		Content:          initialMessage,
		ContainsSymptoms: true,
	})
	if err != nil {
		return nil, err
	}

	assistantMsg, err := s.respond(ctx, conv.ID, initialMessage, nil)
	if err != nil {
		return nil, err
	}

	return &StartResult{Conversation: conv, UserMessage: userMsg, AssistantMessage: assistantMsg}, nil
}

// Send appends a user message to an active conversation and generates the
// assistant's reply. DiagnosisReady flips once the auto-diagnosis rule is
// met and no report exists yet.
func (s *ChatService) Send(ctx context.Context, userID, conversationID int64, content string) (*SendResult, error) {
	conv, err := s.store.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status != pkg.StatusActive {
		return nil, ErrConversationInactive
	}

	history, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.store.CreateMessage(ctx, &pkg.Message{
		ConversationID:   conversationID,
		Role:             pkg.RoleUser,
		Content:          content,
		ContainsSymptoms: ContainsSymptoms(content),
	})
	if err != nil {
		return nil, err
	}

	assistantMsg, err := s.respond(ctx, conversationID, content, history)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchConversation(ctx, conversationID); err != nil {
		s.log.Warn("touch conversation failed", "conversation_id", conversationID, "error", err)
	}

	ready, err := s.diagnosisReady(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	return &SendResult{UserMessage: userMsg, AssistantMessage: assistantMsg, DiagnosisReady: ready}, nil
}

// respond asks the model for the next reply and persists it, falling back
// to a canned response when generation fails.
func (s *ChatService) respond(ctx context.Context, conversationID int64, userMessage string, history []pkg.Message) (*pkg.Message, error) {
	prompt := buildChatPrompt(userMessage, history)
	result, err := s.llm.Generate(ctx, llm.GenerateRequest{
		System:      ChatSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.7,
	})
	if err != nil {
		s.log.Warn("chat generation failed", "conversation_id", conversationID, "error", err)
		fallback := FallbackReply
		if len(history) == 0 {
			fallback = FallbackWelcome
		}
		return s.store.CreateMessage(ctx, &pkg.Message{
			ConversationID:   conversationID,
			Role:             pkg.RoleAssistant,
			Content:          fallback,
			RequiresFollowup: true,
		})
	}

	return s.store.CreateMessage(ctx, &pkg.Message{
		ConversationID:        conversationID,
		Role:                  pkg.RoleAssistant,
		Content:               result.Text,
		ModelUsed:             &result.Model,
		ProcessingMillis:      &result.ProcessingMillis,
		ContainsMedicalAdvice: ContainsMedicalAdvice(result.Text),
		RequiresFollowup:      RequiresFollowup(result.Text),
	})
}

// FollowupQuestions asks the model for clarifying questions over the
// recent transcript.
func (s *ChatService) FollowupQuestions(ctx context.Context, userID, conversationID int64) (string, error) {
	if _, err := s.store.GetConversation(ctx, userID, conversationID); err != nil {
		return "", err
	}
	history, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf(`Based on this conversation history, what follow-up questions should I ask?

Conversation:
%s

Please suggest 2-3 specific follow-up questions that would help gather important medical information.`,
		formatTranscript(tail(history, followupWindow)))

	result, err := s.llm.Generate(ctx, llm.GenerateRequest{
		System:      FollowupSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.5,
	})
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// Complete marks a conversation COMPLETED.
func (s *ChatService) Complete(ctx context.Context, userID, conversationID int64) error {
	return s.store.CompleteConversation(ctx, userID, conversationID)
}

// diagnosisReady applies the auto-diagnosis rule: enough user messages, at
// least one flagged as symptomatic, and no report generated yet.
func (s *ChatService) diagnosisReady(ctx context.Context, conversationID int64) (bool, error) {
	total, err := s.store.CountUserMessages(ctx, conversationID, false)
	if err != nil {
		return false, err
	}
	if total < autoDiagnosisThreshold {
		return false, nil
	}
	symptomatic, err := s.store.CountUserMessages(ctx, conversationID, true)
	if err != nil {
		return false, err
	}
	if symptomatic == 0 {
		return false, nil
	}
	_, err = s.store.GetConversationReport(ctx, conversationID)
	if err == nil {
		return false, nil // already generated
	}
	if !errors.Is(err, db.ErrNotFound) {
		return false, err
	}
	return true, nil
}

func buildChatPrompt(userMessage string, history []pkg.Message) string {
	recent := tail(history, historyWindow)
	return fmt.Sprintf(`Recent conversation:
%s

New user message: %s

Please respond appropriately to continue gathering symptom information or provide helpful guidance.`,
		formatTranscript(recent), userMessage)
}

func formatTranscript(msgs []pkg.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, string(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func tail(msgs []pkg.Message, n int) []pkg.Message {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
