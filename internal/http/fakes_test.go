package http

import (
	"context"
	"errors"
	"sort"
	"time"

	"healthbot/internal/db"
	"healthbot/internal/llm"
	"healthbot/pkg"
)

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Generate(context.Context, llm.GenerateRequest) (*llm.GenerateResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.GenerateResult{Text: f.reply, Model: "fake-model", ProcessingMillis: 3}, nil
}

func (f *fakeLLM) Available(context.Context) bool { return f.err == nil }
func (f *fakeLLM) ModelName() string              { return "fake-model" }

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	pingErr       error
	users         map[int64]*pkg.User
	conversations map[int64]*pkg.Conversation
	messages      []pkg.Message
	symptoms      map[int64]*pkg.SymptomRecord
	reports       map[int64]*pkg.MedicalReport
	nextID        int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         map[int64]*pkg.User{},
		conversations: map[int64]*pkg.Conversation{},
		symptoms:      map[int64]*pkg.SymptomRecord{},
		reports:       map[int64]*pkg.MedicalReport{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) CreateUser(_ context.Context, u *pkg.User) (*pkg.User, error) {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return nil, db.ErrDuplicateEmail
		}
	}
	u.ID = f.id()
	u.IsActive = true
	u.CreatedAt = time.Now()
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*pkg.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*pkg.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) TouchLastLogin(_ context.Context, id int64) error {
	if u, ok := f.users[id]; ok {
		now := time.Now()
		u.LastLogin = &now
	}
	return nil
}

func (f *fakeStore) CreateConversation(_ context.Context, userID int64, title string, chiefComplaint *string) (*pkg.Conversation, error) {
	c := &pkg.Conversation{
		ID:             f.id(),
		UserID:         userID,
		Title:          title,
		Status:         pkg.StatusActive,
		ChiefComplaint: chiefComplaint,
		StartedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	f.conversations[c.ID] = c
	return c, nil
}

func (f *fakeStore) GetConversation(_ context.Context, userID, id int64) (*pkg.Conversation, error) {
	c, ok := f.conversations[id]
	if !ok || c.UserID != userID {
		return nil, db.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) ListConversations(_ context.Context, userID int64, limit, offset int) ([]pkg.ConversationPreview, error) {
	out := []pkg.ConversationPreview{}
	for _, c := range f.conversations {
		if c.UserID != userID {
			continue
		}
		count := 0
		for _, m := range f.messages {
			if m.ConversationID == c.ID {
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

func (f *fakeStore) CompleteConversation(_ context.Context, userID, id int64) error {
	c, ok := f.conversations[id]
	if !ok || c.UserID != userID {
		return db.ErrNotFound
	}
	now := time.Now()
	c.Status = pkg.StatusCompleted
	c.CompletedAt = &now
	return nil
}

func (f *fakeStore) TouchConversation(_ context.Context, id int64) error {
	if c, ok := f.conversations[id]; ok {
		c.UpdatedAt = time.Now()
	}
	return nil
}

func (f *fakeStore) SetConversationUrgency(_ context.Context, id int64, urgency string) error {
	if c, ok := f.conversations[id]; ok {
		c.UrgencyLevel = &urgency
	}
	return nil
}

func (f *fakeStore) CreateMessage(_ context.Context, m *pkg.Message) (*pkg.Message, error) {
	if _, ok := f.conversations[m.ConversationID]; !ok {
		return nil, errors.New("conversation missing")
	}
	m.ID = f.id()
	m.CreatedAt = time.Now()
	f.messages = append(f.messages, *m)
	return m, nil
}

func (f *fakeStore) ListMessages(_ context.Context, conversationID int64) ([]pkg.Message, error) {
	out := []pkg.Message{}
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) CountUserMessages(_ context.Context, conversationID int64, symptomsOnly bool) (int, error) {
	n := 0
	for _, m := range f.messages {
		if m.ConversationID != conversationID || m.Role != pkg.RoleUser {
			continue
		}
		if symptomsOnly && !m.ContainsSymptoms {
			continue
		}
		n++
	}
	return n, nil
}

func (f *fakeStore) CreateSymptom(_ context.Context, s *pkg.SymptomRecord) (*pkg.SymptomRecord, error) {
	s.ID = f.id()
	s.RecordedAt = time.Now()
	f.symptoms[s.ID] = s
	return s, nil
}

func (f *fakeStore) GetSymptom(_ context.Context, userID, id int64) (*pkg.SymptomRecord, error) {
	s, ok := f.symptoms[id]
	if !ok || s.UserID != userID {
		return nil, db.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) ListSymptoms(_ context.Context, userID int64, filter db.SymptomFilter) ([]pkg.SymptomRecord, error) {
	out := []pkg.SymptomRecord{}
	for _, s := range f.symptoms {
		if s.UserID != userID || s.RecordedAt.Before(filter.Since) {
			continue
		}
		if filter.Category != "" && string(s.Category) != filter.Category {
			continue
		}
		if filter.MinSeverity > 0 && s.Severity < filter.MinSeverity {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) ListSymptomsByIDs(_ context.Context, userID int64, ids []int64) ([]pkg.SymptomRecord, error) {
	out := []pkg.SymptomRecord{}
	for _, id := range ids {
		if s, ok := f.symptoms[id]; ok && s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListConversationSymptoms(_ context.Context, conversationID int64) ([]pkg.SymptomRecord, error) {
	out := []pkg.SymptomRecord{}
	for _, s := range f.symptoms {
		if s.ConversationID != nil && *s.ConversationID == conversationID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateSymptom(_ context.Context, s *pkg.SymptomRecord) error {
	existing, ok := f.symptoms[s.ID]
	if !ok || existing.UserID != s.UserID {
		return db.ErrNotFound
	}
	f.symptoms[s.ID] = s
	return nil
}

func (f *fakeStore) DeleteSymptom(_ context.Context, userID, id int64) error {
	s, ok := f.symptoms[id]
	if !ok || s.UserID != userID {
		return db.ErrNotFound
	}
	delete(f.symptoms, id)
	return nil
}

func (f *fakeStore) CreateReport(_ context.Context, rep *pkg.MedicalReport) (*pkg.MedicalReport, error) {
	rep.ID = f.id()
	rep.CreatedAt = time.Now()
	rep.UpdatedAt = rep.CreatedAt
	f.reports[rep.ID] = rep
	return rep, nil
}

func (f *fakeStore) CompleteReport(_ context.Context, rep *pkg.MedicalReport) error {
	if _, ok := f.reports[rep.ID]; !ok {
		return db.ErrNotFound
	}
	now := time.Now()
	rep.UpdatedAt = now
	rep.CompletedAt = &now
	f.reports[rep.ID] = rep
	return nil
}

func (f *fakeStore) GetReport(_ context.Context, userID, id int64) (*pkg.MedicalReport, error) {
	rep, ok := f.reports[id]
	if !ok || rep.UserID != userID {
		return nil, db.ErrNotFound
	}
	return rep, nil
}

func (f *fakeStore) GetReportByShareCode(_ context.Context, code string) (*pkg.MedicalReport, error) {
	for _, rep := range f.reports {
		if rep.ShareCode == code {
			return rep, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) GetConversationReport(_ context.Context, conversationID int64) (*pkg.MedicalReport, error) {
	var latest *pkg.MedicalReport
	for _, rep := range f.reports {
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

func (f *fakeStore) ListReports(_ context.Context, userID int64, limit, offset int) ([]pkg.MedicalReport, error) {
	out := []pkg.MedicalReport{}
	for _, rep := range f.reports {
		if rep.UserID == userID {
			out = append(out, *rep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

var _ Store = (*fakeStore)(nil)
var _ llm.Client = (*fakeLLM)(nil)
