package pkg

import "time"

// User is an authenticated account. Optional profile fields feed the
// patient section of generated reports.
type User struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	FullName       *string    `json:"full_name,omitempty"`
	Age            *int       `json:"age,omitempty"`
	Gender         *string    `json:"gender,omitempty"`
	IsActive       bool       `json:"is_active"`
	IsVerified     bool       `json:"is_verified"`
	MedicalHistory *string    `json:"medical_history,omitempty"`
	Allergies      *string    `json:"allergies,omitempty"`
	Medications    *string    `json:"current_medications,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

// ConversationStatus describes the lifecycle of a consultation session.
type ConversationStatus string

const (
	StatusActive    ConversationStatus = "active"
	StatusCompleted ConversationStatus = "completed"
	StatusArchived  ConversationStatus = "archived"
)

// Conversation is one consultation session between a user and the assistant.
type Conversation struct {
	ID             int64              `json:"id"`
	UserID         int64              `json:"user_id"`
	Title          string             `json:"title"`
	Status         ConversationStatus `json:"status"`
	ChiefComplaint *string            `json:"chief_complaint,omitempty"`
	UrgencyLevel   *string            `json:"urgency_level,omitempty"`
	StartedAt      time.Time          `json:"started_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
}

// MessageRole describes who authored a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is a single chat message in a conversation. The AI metadata
// fields are only set on assistant messages.
type Message struct {
	ID                    int64       `json:"id"`
	ConversationID        int64       `json:"conversation_id"`
	Role                  MessageRole `json:"role"`
	Content               string      `json:"content"`
	ModelUsed             *string     `json:"model_used,omitempty"`
	ProcessingMillis      *int64      `json:"processing_time,omitempty"`
	ContainsSymptoms      bool        `json:"contains_symptoms"`
	ContainsMedicalAdvice bool        `json:"contains_medical_advice"`
	RequiresFollowup      bool        `json:"requires_followup"`
	CreatedAt             time.Time   `json:"created_at"`
}

// SymptomCategory buckets a symptom into a body system.
type SymptomCategory string

const (
	CategoryPain             SymptomCategory = "pain"
	CategoryRespiratory      SymptomCategory = "respiratory"
	CategoryGastrointestinal SymptomCategory = "gastrointestinal"
	CategoryNeurological     SymptomCategory = "neurological"
	CategoryCardiovascular   SymptomCategory = "cardiovascular"
	CategorySkin             SymptomCategory = "skin"
	CategoryConstitutional   SymptomCategory = "constitutional"
	CategoryGenitourinary    SymptomCategory = "genitourinary"
	CategoryMusculoskeletal  SymptomCategory = "musculoskeletal"
	CategoryOther            SymptomCategory = "other"
)

// SymptomCategories lists every valid category, in presentation order.
func SymptomCategories() []SymptomCategory {
	return []SymptomCategory{
		CategoryPain, CategoryRespiratory, CategoryGastrointestinal,
		CategoryNeurological, CategoryCardiovascular, CategorySkin,
		CategoryConstitutional, CategoryGenitourinary,
		CategoryMusculoskeletal, CategoryOther,
	}
}

// ValidCategory reports whether s names a known symptom category.
func ValidCategory(s string) bool {
	for _, c := range SymptomCategories() {
		if string(c) == s {
			return true
		}
	}
	return false
}

// SeverityLevel is the coarse label derived from the 1-10 severity score.
type SeverityLevel string

const (
	SeverityMild     SeverityLevel = "mild"
	SeverityModerate SeverityLevel = "moderate"
	SeveritySevere   SeverityLevel = "severe"
	SeverityCritical SeverityLevel = "critical"
)

// SymptomRecord is one user-recorded symptom, optionally tied to a
// conversation.
type SymptomRecord struct {
	ID                 int64           `json:"id"`
	UserID             int64           `json:"user_id"`
	ConversationID     *int64          `json:"conversation_id,omitempty"`
	Name               string          `json:"name"`
	Description        *string         `json:"description,omitempty"`
	Severity           int             `json:"severity"`
	SeverityLevel      SeverityLevel   `json:"severity_level"`
	Location           *string         `json:"location,omitempty"`
	Category           SymptomCategory `json:"category"`
	OnsetDate          time.Time       `json:"onset_date"`
	DurationHours      *int            `json:"duration_hours,omitempty"`
	Triggers           []string        `json:"triggers"`
	AlleviatingFactors []string        `json:"alleviating_factors"`
	AssociatedSymptoms []string        `json:"associated_symptoms"`
	RecordedAt         time.Time       `json:"recorded_at"`
}

// ReportStatus is the generation state of a medical report.
type ReportStatus string

const (
	ReportPending    ReportStatus = "pending"
	ReportInProgress ReportStatus = "in_progress"
	ReportCompleted  ReportStatus = "completed"
)

// MedicalReport is the structured diagnosis summary generated from a
// conversation. ShareCode is a short opaque code for handing the report
// to a healthcare provider.
type MedicalReport struct {
	ID               int64        `json:"id"`
	UserID           int64        `json:"user_id"`
	ConversationID   int64        `json:"conversation_id"`
	ShareCode        string       `json:"share_code"`
	Title            string       `json:"title"`
	Type             string       `json:"type"`
	Status           ReportStatus `json:"status"`
	UrgencyLevel     string       `json:"urgency_level"`
	Summary          *string      `json:"summary,omitempty"`
	KeyFindings      []string     `json:"key_findings"`
	Recommendations  []string     `json:"recommendations"`
	NextSteps        []string     `json:"next_steps"`
	Specialties      []string     `json:"medical_specialties"`
	ModelUsed        *string      `json:"ai_model_used,omitempty"`
	ProcessingMillis *int64       `json:"processing_time,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
}

// ConversationPreview is the list-view projection of a conversation.
type ConversationPreview struct {
	ID             int64              `json:"id"`
	Title          string             `json:"title"`
	Status         ConversationStatus `json:"status"`
	StartedAt      time.Time          `json:"started_at"`
	ChiefComplaint *string            `json:"chief_complaint,omitempty"`
	UrgencyLevel   *string            `json:"urgency_level,omitempty"`
	MessageCount   int                `json:"message_count"`
}
