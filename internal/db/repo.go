package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/lib/pq"

	"healthbot/pkg"
)

// ErrNotFound is returned when a row does not exist or belongs to another
// user. Handlers map it to 404 without distinguishing the two cases.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when registering an email that is taken.
var ErrDuplicateEmail = errors.New("email already registered")

// Repository wraps all database operations. The caller owns the sql.DB
// lifecycle.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a Repository from an existing sql.DB.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// Ping verifies database connectivity for health checks.
func (r *Repository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

// ---- users ----

// CreateUser inserts a new user. Email uniqueness is enforced by the
// schema; a pre-check keeps the common error readable.
func (r *Repository) CreateUser(ctx context.Context, u *pkg.User) (*pkg.User, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, u.Email,
	).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateEmail
	}
	err = r.DB.QueryRowContext(ctx,
		`INSERT INTO users (email, hashed_password, full_name, age, gender)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, is_active, is_verified, created_at`,
		u.Email, u.HashedPassword, u.FullName, u.Age, u.Gender,
	).Scan(&u.ID, &u.IsActive, &u.IsVerified, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

const userColumns = `id, email, hashed_password, full_name, age, gender,
    is_active, is_verified, medical_history, allergies, current_medications,
    created_at, last_login`

func scanUser(row *sql.Row) (*pkg.User, error) {
	var u pkg.User
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.FullName, &u.Age,
		&u.Gender, &u.IsActive, &u.IsVerified, &u.MedicalHistory,
		&u.Allergies, &u.Medications, &u.CreatedAt, &u.LastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*pkg.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// GetUserByID retrieves a user by primary key.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*pkg.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// TouchLastLogin records a successful login.
func (r *Repository) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET last_login = NOW() WHERE id = $1`, id)
	return err
}

// ---- conversations ----

// CreateConversation opens a new consultation session for a user.
func (r *Repository) CreateConversation(ctx context.Context, userID int64, title string, chiefComplaint *string) (*pkg.Conversation, error) {
	c := &pkg.Conversation{
		UserID:         userID,
		Title:          title,
		Status:         pkg.StatusActive,
		ChiefComplaint: chiefComplaint,
	}
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO conversations (user_id, title, chief_complaint)
         VALUES ($1, $2, $3)
         RETURNING id, started_at, updated_at`,
		userID, title, chiefComplaint,
	).Scan(&c.ID, &c.StartedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetConversation loads a conversation scoped to its owner.
func (r *Repository) GetConversation(ctx context.Context, userID, id int64) (*pkg.Conversation, error) {
	var c pkg.Conversation
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, title, status, chief_complaint, urgency_level,
                started_at, updated_at, completed_at
         FROM conversations
         WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&c.ID, &c.UserID, &c.Title, &c.Status, &c.ChiefComplaint,
		&c.UrgencyLevel, &c.StartedAt, &c.UpdatedAt, &c.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversations returns a user's conversations, most recently updated
// first, with message counts for the list view.
func (r *Repository) ListConversations(ctx context.Context, userID int64, limit, offset int) ([]pkg.ConversationPreview, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT c.id, c.title, c.status, c.started_at, c.chief_complaint,
                c.urgency_level, COUNT(m.id)
         FROM conversations c
         LEFT JOIN messages m ON m.conversation_id = c.id
         WHERE c.user_id = $1
         GROUP BY c.id
         ORDER BY c.updated_at DESC
         LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	previews := []pkg.ConversationPreview{}
	for rows.Next() {
		var p pkg.ConversationPreview
		if err := rows.Scan(&p.ID, &p.Title, &p.Status, &p.StartedAt,
			&p.ChiefComplaint, &p.UrgencyLevel, &p.MessageCount); err != nil {
			return nil, err
		}
		previews = append(previews, p)
	}
	return previews, rows.Err()
}

// CompleteConversation marks a conversation COMPLETED.
func (r *Repository) CompleteConversation(ctx context.Context, userID, id int64) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE conversations
         SET status = $1, completed_at = NOW(), updated_at = NOW()
         WHERE id = $2 AND user_id = $3`,
		pkg.StatusCompleted, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchConversation bumps updated_at after new messages arrive.
func (r *Repository) TouchConversation(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE conversations SET updated_at = NOW() WHERE id = $1`, id)
	return err
}

// SetConversationUrgency stores the urgency derived from report generation.
func (r *Repository) SetConversationUrgency(ctx context.Context, id int64, urgency string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE conversations SET urgency_level = $1, updated_at = NOW() WHERE id = $2`,
		urgency, id)
	return err
}

// ---- messages ----

// CreateMessage appends a message to a conversation.
func (r *Repository) CreateMessage(ctx context.Context, m *pkg.Message) (*pkg.Message, error) {
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, model_used,
                processing_ms, contains_symptoms, contains_medical_advice,
                requires_followup)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING id, created_at`,
		m.ConversationID, m.Role, m.Content, m.ModelUsed, m.ProcessingMillis,
		m.ContainsSymptoms, m.ContainsMedicalAdvice, m.RequiresFollowup,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages returns all messages of a conversation in chronological order.
func (r *Repository) ListMessages(ctx context.Context, conversationID int64) ([]pkg.Message, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, model_used, processing_ms,
                contains_symptoms, contains_medical_advice, requires_followup,
                created_at
         FROM messages
         WHERE conversation_id = $1
         ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	msgs := []pkg.Message{}
	for rows.Next() {
		var m pkg.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content,
			&m.ModelUsed, &m.ProcessingMillis, &m.ContainsSymptoms,
			&m.ContainsMedicalAdvice, &m.RequiresFollowup, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CountUserMessages counts user-authored messages, optionally only those
// flagged as containing symptoms. Drives the auto-diagnosis trigger.
func (r *Repository) CountUserMessages(ctx context.Context, conversationID int64, symptomsOnly bool) (int, error) {
	q := `SELECT COUNT(*) FROM messages
          WHERE conversation_id = $1 AND role = 'user'`
	if symptomsOnly {
		q += ` AND contains_symptoms`
	}
	var n int
	err := r.DB.QueryRowContext(ctx, q, conversationID).Scan(&n)
	return n, err
}

// ---- symptom records ----

// SymptomFilter narrows ListSymptoms.
type SymptomFilter struct {
	Since       time.Time
	Category    string
	MinSeverity int
	Limit       int
	Offset      int
}

// CreateSymptom stores a symptom record.
func (r *Repository) CreateSymptom(ctx context.Context, s *pkg.SymptomRecord) (*pkg.SymptomRecord, error) {
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO symptom_records (user_id, conversation_id, name,
                description, severity, severity_level, location, category,
                onset_date, duration_hours, triggers, alleviating_factors,
                associated_symptoms)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
         RETURNING id, recorded_at`,
		s.UserID, s.ConversationID, s.Name, s.Description, s.Severity,
		s.SeverityLevel, s.Location, s.Category, s.OnsetDate, s.DurationHours,
		jsonList(s.Triggers), jsonList(s.AlleviatingFactors),
		jsonList(s.AssociatedSymptoms),
	).Scan(&s.ID, &s.RecordedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

const symptomColumns = `id, user_id, conversation_id, name, description,
    severity, severity_level, location, category, onset_date, duration_hours,
    triggers, alleviating_factors, associated_symptoms, recorded_at`

func scanSymptom(scan func(dest ...any) error) (*pkg.SymptomRecord, error) {
	var s pkg.SymptomRecord
	var triggers, alleviating, associated []byte
	err := scan(&s.ID, &s.UserID, &s.ConversationID, &s.Name, &s.Description,
		&s.Severity, &s.SeverityLevel, &s.Location, &s.Category, &s.OnsetDate,
		&s.DurationHours, &triggers, &alleviating, &associated, &s.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Triggers = fromJSONList(triggers)
	s.AlleviatingFactors = fromJSONList(alleviating)
	s.AssociatedSymptoms = fromJSONList(associated)
	return &s, nil
}

// GetSymptom loads a symptom record scoped to its owner.
func (r *Repository) GetSymptom(ctx context.Context, userID, id int64) (*pkg.SymptomRecord, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+symptomColumns+` FROM symptom_records
         WHERE id = $1 AND user_id = $2`, id, userID)
	return scanSymptom(row.Scan)
}

// ListSymptoms returns a user's symptom records, newest first.
func (r *Repository) ListSymptoms(ctx context.Context, userID int64, f SymptomFilter) ([]pkg.SymptomRecord, error) {
	q := `SELECT ` + symptomColumns + ` FROM symptom_records
          WHERE user_id = $1 AND recorded_at >= $2`
	args := []any{userID, f.Since}
	if f.Category != "" {
		args = append(args, f.Category)
		q += ` AND category = $3`
	}
	if f.MinSeverity > 0 {
		args = append(args, f.MinSeverity)
		q += ` AND severity >= $` + itoa(len(args))
	}
	args = append(args, f.Limit, f.Offset)
	q += ` ORDER BY recorded_at DESC
           LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []pkg.SymptomRecord{}
	for rows.Next() {
		s, err := scanSymptom(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *s)
	}
	return records, rows.Err()
}

// ListSymptomsByIDs loads the given records, owner-scoped. Missing or
// foreign IDs simply do not come back; callers compare lengths.
func (r *Repository) ListSymptomsByIDs(ctx context.Context, userID int64, ids []int64) ([]pkg.SymptomRecord, error) {
	if len(ids) == 0 {
		return []pkg.SymptomRecord{}, nil
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+symptomColumns+` FROM symptom_records
         WHERE user_id = $1 AND id = ANY($2)
         ORDER BY recorded_at DESC`, userID, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []pkg.SymptomRecord{}
	for rows.Next() {
		s, err := scanSymptom(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *s)
	}
	return records, rows.Err()
}

// ListConversationSymptoms returns the records attached to a conversation,
// oldest first, for report assembly.
func (r *Repository) ListConversationSymptoms(ctx context.Context, conversationID int64) ([]pkg.SymptomRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+symptomColumns+` FROM symptom_records
         WHERE conversation_id = $1
         ORDER BY recorded_at ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []pkg.SymptomRecord{}
	for rows.Next() {
		s, err := scanSymptom(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *s)
	}
	return records, rows.Err()
}

// UpdateSymptom rewrites the mutable fields of a symptom record.
func (r *Repository) UpdateSymptom(ctx context.Context, s *pkg.SymptomRecord) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE symptom_records
         SET name = $1, description = $2, severity = $3, severity_level = $4,
             location = $5, category = $6, onset_date = $7,
             duration_hours = $8, triggers = $9, alleviating_factors = $10,
             associated_symptoms = $11
         WHERE id = $12 AND user_id = $13`,
		s.Name, s.Description, s.Severity, s.SeverityLevel, s.Location,
		s.Category, s.OnsetDate, s.DurationHours, jsonList(s.Triggers),
		jsonList(s.AlleviatingFactors), jsonList(s.AssociatedSymptoms),
		s.ID, s.UserID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSymptom removes a record scoped to its owner.
func (r *Repository) DeleteSymptom(ctx context.Context, userID, id int64) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM symptom_records WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- medical reports ----

// CreateReport inserts a pending report shell before generation starts.
func (r *Repository) CreateReport(ctx context.Context, rep *pkg.MedicalReport) (*pkg.MedicalReport, error) {
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO medical_reports (user_id, conversation_id, share_code,
                title, type, status, urgency_level)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING id, created_at, updated_at`,
		rep.UserID, rep.ConversationID, rep.ShareCode, rep.Title, rep.Type,
		rep.Status, rep.UrgencyLevel,
	).Scan(&rep.ID, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// CompleteReport stores the generated content and flips the status.
func (r *Repository) CompleteReport(ctx context.Context, rep *pkg.MedicalReport) error {
	return r.DB.QueryRowContext(ctx,
		`UPDATE medical_reports
         SET status = $1, urgency_level = $2, summary = $3, key_findings = $4,
             recommendations = $5, next_steps = $6, medical_specialties = $7,
             ai_model_used = $8, processing_ms = $9, completed_at = NOW(),
             updated_at = NOW()
         WHERE id = $10
         RETURNING updated_at, completed_at`,
		rep.Status, rep.UrgencyLevel, rep.Summary, jsonList(rep.KeyFindings),
		jsonList(rep.Recommendations), jsonList(rep.NextSteps),
		jsonList(rep.Specialties), rep.ModelUsed, rep.ProcessingMillis, rep.ID,
	).Scan(&rep.UpdatedAt, &rep.CompletedAt)
}

const reportColumns = `id, user_id, conversation_id, share_code, title, type,
    status, urgency_level, summary, key_findings, recommendations, next_steps,
    medical_specialties, ai_model_used, processing_ms, created_at, updated_at,
    completed_at`

func scanReport(scan func(dest ...any) error) (*pkg.MedicalReport, error) {
	var rep pkg.MedicalReport
	var findings, recs, steps, specs []byte
	err := scan(&rep.ID, &rep.UserID, &rep.ConversationID, &rep.ShareCode,
		&rep.Title, &rep.Type, &rep.Status, &rep.UrgencyLevel, &rep.Summary,
		&findings, &recs, &steps, &specs, &rep.ModelUsed,
		&rep.ProcessingMillis, &rep.CreatedAt, &rep.UpdatedAt, &rep.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rep.KeyFindings = fromJSONList(findings)
	rep.Recommendations = fromJSONList(recs)
	rep.NextSteps = fromJSONList(steps)
	rep.Specialties = fromJSONList(specs)
	return &rep, nil
}

// GetReport loads a report scoped to its owner.
func (r *Repository) GetReport(ctx context.Context, userID, id int64) (*pkg.MedicalReport, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM medical_reports
         WHERE id = $1 AND user_id = $2`, id, userID)
	return scanReport(row.Scan)
}

// GetConversationReport returns the report for a conversation if one exists.
func (r *Repository) GetConversationReport(ctx context.Context, conversationID int64) (*pkg.MedicalReport, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM medical_reports
         WHERE conversation_id = $1
         ORDER BY created_at DESC
         LIMIT 1`, conversationID)
	return scanReport(row.Scan)
}

// GetReportByShareCode loads a report by its share code. Not owner-scoped:
// the code itself is the capability.
func (r *Repository) GetReportByShareCode(ctx context.Context, code string) (*pkg.MedicalReport, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM medical_reports
         WHERE share_code = $1`, code)
	return scanReport(row.Scan)
}

// ListReports returns a user's reports, newest first.
func (r *Repository) ListReports(ctx context.Context, userID int64, limit, offset int) ([]pkg.MedicalReport, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM medical_reports
         WHERE user_id = $1
         ORDER BY created_at DESC
         LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	reports := []pkg.MedicalReport{}
	for rows.Next() {
		rep, err := scanReport(rows.Scan)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *rep)
	}
	return reports, rows.Err()
}

// ---- helpers ----

func jsonList(v []string) []byte {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return b
}

func fromJSONList(b []byte) []string {
	out := []string{}
	if len(b) > 0 {
		_ = json.Unmarshal(b, &out)
	}
	return out
}

func itoa(n int) string { return strconv.Itoa(n) }
