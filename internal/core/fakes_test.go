package core

import (
	"context"
	"errors"
	"sort"
	"time"

	"healthbot/internal/db"
	"healthbot/internal/llm"
	"healthbot/pkg"
)

// fakeLLM scripts model behaviour for tests.
type fakeLLM struct {
	reply string
	err   error
	calls []llm.GenerateRequest
}

func (f *fakeLLM) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.GenerateResult{Text: f.reply, Model: "fake-model", ProcessingMillis: 7}, nil
}

func (f *fakeLLM) Available(context.Context) bool { return f.err == nil }
func (f *fakeLLM) ModelName() string              { return "fake-model" }

// memStore is an in-memory Store for service tests.
type memStore struct {
	users         map[int64]*pkg.User
	conversations map[int64]*pkg.Conversation
	messages      []pkg.Message
	symptoms      map[int64]*pkg.SymptomRecord
	reports       map[int64]*pkg.MedicalReport
	nextID        int64
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[int64]*pkg.User{},
		conversations: map[int64]*pkg.Conversation{},
		symptoms:      map[int64]*pkg.SymptomRecord{},
		reports:       map[int64]*pkg.MedicalReport{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addUser(u pkg.User) *pkg.User {
	u.ID = m.id()
	u.CreatedAt = time.Now()
	m.users[u.ID] = &u
	return &u
}

func (m *memStore) GetUserByID(_ context.Context, id int64) (*pkg.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, db.ErrNotFound
}

func (m *memStore) CreateConversation(_ context.Context, userID int64, title string, chiefComplaint *string) (*pkg.Conversation, error) {
	c := &pkg.Conversation{
		ID:             m.id(),
		UserID:         userID,
		Title:          title,
		Status:         pkg.StatusActive,
		ChiefComplaint: chiefComplaint,
		StartedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	m.conversations[c.ID] = c
	return c, nil
}

func (m *memStore) GetConversation(_ context.Context, userID, id int64) (*pkg.Conversation, error) {
	c, ok := m.conversations[id]
	if !ok || c.UserID != userID {
		return nil, db.ErrNotFound
	}
	return c, nil
}

func (m *memStore) ListConversations(_ context.Context, userID int64, limit, offset int) ([]pkg.ConversationPreview, error) {
	out := []pkg.ConversationPreview{}
	for _, c := range m.conversations {
		if c.UserID != userID {
			continue
		}
		count := 0
		for _, msg := range m.messages {
			if msg.ConversationID == c.ID {
				count++
			}
		}
		out = append(out, pkg.ConversationPreview{
			ID: c.ID, Title: c.Title, Status: c.Status,
			StartedAt: c.StartedAt, ChiefComplaint: c.ChiefComplaint,
			UrgencyLevel: c.UrgencyLevel, MessageCount: count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) CompleteConversation(_ context.Context, userID, id int64) error {
	c, ok := m.conversations[id]
	if !ok || c.UserID != userID {
		return db.ErrNotFound
	}
	now := time.Now()
	c.Status = pkg.StatusCompleted
	c.CompletedAt = &now
	return nil
}

func (m *memStore) TouchConversation(_ context.Context, id int64) error {
	if c, ok := m.conversations[id]; ok {
		c.UpdatedAt = time.Now()
	}
	return nil
}

func (m *memStore) SetConversationUrgency(_ context.Context, id int64, urgency string) error {
	if c, ok := m.conversations[id]; ok {
		c.UrgencyLevel = &urgency
	}
	return nil
}

func (m *memStore) CreateMessage(_ context.Context, msg *pkg.Message) (*pkg.Message, error) {
	if _, ok := m.conversations[msg.ConversationID]; !ok {
		return nil, errors.New("conversation missing")
	}
	msg.ID = m.id()
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, *msg)
	return msg, nil
}

func (m *memStore) ListMessages(_ context.Context, conversationID int64) ([]pkg.Message, error) {
	out := []pkg.Message{}
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memStore) CountUserMessages(_ context.Context, conversationID int64, symptomsOnly bool) (int, error) {
	n := 0
	for _, msg := range m.messages {
		if msg.ConversationID != conversationID || msg.Role != pkg.RoleUser {
			continue
		}
		if symptomsOnly && !msg.ContainsSymptoms {
			continue
		}
		n++
	}
	return n, nil
}

func (m *memStore) CreateSymptom(_ context.Context, s *pkg.SymptomRecord) (*pkg.SymptomRecord, error) {
	s.ID = m.id()
	s.RecordedAt = time.Now()
	m.symptoms[s.ID] = s
	return s, nil
}

func (m *memStore) GetSymptom(_ context.Context, userID, id int64) (*pkg.SymptomRecord, error) {
	s, ok := m.symptoms[id]
	if !ok || s.UserID != userID {
		return nil, db.ErrNotFound
	}
	return s, nil
}

func (m *memStore) ListSymptoms(_ context.Context, userID int64, f db.SymptomFilter) ([]pkg.SymptomRecord, error) {
	out := []pkg.SymptomRecord{}
	for _, s := range m.symptoms {
		if s.UserID != userID || s.RecordedAt.Before(f.Since) {
			continue
		}
		if f.Category != "" && string(s.Category) != f.Category {
			continue
		}
		if f.MinSeverity > 0 && s.Severity < f.MinSeverity {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) ListSymptomsByIDs(_ context.Context, userID int64, ids []int64) ([]pkg.SymptomRecord, error) {
	out := []pkg.SymptomRecord{}
	for _, id := range ids {
		if s, ok := m.symptoms[id]; ok && s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) ListConversationSymptoms(_ context.Context, conversationID int64) ([]pkg.SymptomRecord, error) {
	out := []pkg.SymptomRecord{}
	for _, s := range m.symptoms {
		if s.ConversationID != nil && *s.ConversationID == conversationID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateSymptom(_ context.Context, s *pkg.SymptomRecord) error {
	existing, ok := m.symptoms[s.ID]
	if !ok || existing.UserID != s.UserID {
		return db.ErrNotFound
	}
	m.symptoms[s.ID] = s
	return nil
}

func (m *memStore) DeleteSymptom(_ context.Context, userID, id int64) error {
	s, ok := m.symptoms[id]
	if !ok || s.UserID != userID {
		return db.ErrNotFound
	}
	delete(m.symptoms, id)
	return nil
}

func (m *memStore) CreateReport(_ context.Context, rep *pkg.MedicalReport) (*pkg.MedicalReport, error) {
	rep.ID = m.id()
	rep.CreatedAt = time.Now()
	rep.UpdatedAt = rep.CreatedAt
	m.reports[rep.ID] = rep
	return rep, nil
}

func (m *memStore) CompleteReport(_ context.Context, rep *pkg.MedicalReport) error {
	if _, ok := m.reports[rep.ID]; !ok {
		return db.ErrNotFound
	}
	now := time.Now()
	rep.UpdatedAt = now
	rep.CompletedAt = &now
	m.reports[rep.ID] = rep
	return nil
}

func (m *memStore) GetReport(_ context.Context, userID, id int64) (*pkg.MedicalReport, error) {
	rep, ok := m.reports[id]
	if !ok || rep.UserID != userID {
		return nil, db.ErrNotFound
	}
	return rep, nil
}

func (m *memStore) GetReportByShareCode(_ context.Context, code string) (*pkg.MedicalReport, error) {
	for _, rep := range m.reports {
		if rep.ShareCode == code {
			return rep, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memStore) GetConversationReport(_ context.Context, conversationID int64) (*pkg.MedicalReport, error) {
	var latest *pkg.MedicalReport
	for _, rep := range m.reports {
		if rep.ConversationID == conversationID {
			if latest == nil || rep.ID > latest.ID {
				latest = rep
			}
		}
	}
	if latest == nil {
		return nil, db.ErrNotFound
	}
	return latest, nil
}

func (m *memStore) ListReports(_ context.Context, userID int64, limit, offset int) ([]pkg.MedicalReport, error) {
	out := []pkg.MedicalReport{}
	for _, rep := range m.reports {
		if rep.UserID == userID {
			out = append(out, *rep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

var _ Store = (*memStore)(nil)
var _ llm.Client = (*fakeLLM)(nil)
