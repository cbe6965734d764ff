package core

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"healthbot/internal/db"
	"healthbot/internal/llm"
	"healthbot/internal/logging"
	"healthbot/pkg"
)

// SymptomService records and analyses individual symptoms.
type SymptomService struct {
	store Store
	llm   llm.Client
	log   *slog.Logger
}

// NewSymptomService constructs a SymptomService.
func NewSymptomService(store Store, client llm.Client) *SymptomService {
	return &SymptomService{store: store, llm: client, log: logging.Module("symptoms")}
}

// SymptomInput is the mutable payload for recording or updating a symptom.
type SymptomInput struct {
	Name               string   `json:"name" binding:"required,max=200"`
	Description        *string  `json:"description,omitempty"`
	Severity           int      `json:"severity" binding:"required,min=1,max=10"`
	Location           *string  `json:"location,omitempty"`
	DurationHours      *int     `json:"duration_hours,omitempty"`
	Triggers           []string `json:"triggers"`
	AlleviatingFactors []string `json:"alleviating_factors"`
	AssociatedSymptoms []string `json:"associated_symptoms"`
	ConversationID     *int64   `json:"conversation_id,omitempty"`
}

// Record stores a new symptom, categorised by the model with a keyword
// fallback.
func (s *SymptomService) Record(ctx context.Context, userID int64, in SymptomInput) (*pkg.SymptomRecord, error) {
	rec := &pkg.SymptomRecord{
		UserID:             userID,
		ConversationID:     in.ConversationID,
		Name:               in.Name,
		Description:        in.Description,
		Severity:           in.Severity,
		SeverityLevel:      SeverityLevelFor(in.Severity),
		Location:           in.Location,
		Category:           s.categorize(ctx, in.Name, in.Description),
		OnsetDate:          onsetFrom(in.DurationHours),
		DurationHours:      in.DurationHours,
		Triggers:           in.Triggers,
		AlleviatingFactors: in.AlleviatingFactors,
		AssociatedSymptoms: in.AssociatedSymptoms,
	}
	return s.store.CreateSymptom(ctx, rec)
}

// Update rewrites an existing symptom record, re-deriving category,
// severity level, and onset.
func (s *SymptomService) Update(ctx context.Context, userID, id int64, in SymptomInput) (*pkg.SymptomRecord, error) {
	rec, err := s.store.GetSymptom(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rec.Name = in.Name
	rec.Description = in.Description
	rec.Severity = in.Severity
	rec.SeverityLevel = SeverityLevelFor(in.Severity)
	rec.Location = in.Location
	rec.DurationHours = in.DurationHours
	rec.Triggers = in.Triggers
	rec.AlleviatingFactors = in.AlleviatingFactors
	rec.AssociatedSymptoms = in.AssociatedSymptoms
	rec.OnsetDate = onsetFrom(in.DurationHours)
	rec.Category = s.categorize(ctx, in.Name, in.Description)

	if err := s.store.UpdateSymptom(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns the user's symptoms within the filter window.
func (s *SymptomService) List(ctx context.Context, userID int64, f db.SymptomFilter) ([]pkg.SymptomRecord, error) {
	return s.store.ListSymptoms(ctx, userID, f)
}

// Delete removes a symptom record.
func (s *SymptomService) Delete(ctx context.Context, userID, id int64) error {
	return s.store.DeleteSymptom(ctx, userID, id)
}

// Analysis is the structured outcome of a pattern analysis.
type Analysis struct {
	PatternID           string              `json:"pattern_id"`
	Symptoms            []pkg.SymptomRecord `json:"symptoms"`
	Analysis            string              `json:"analysis"`
	UrgencyLevel        string              `json:"urgency_level"`
	Recommendations     []string            `json:"recommendations"`
	MedicalSpecialties  []string            `json:"medical_specialties"`
	PotentialConditions []string            `json:"potential_conditions"`
	RedFlags            []string            `json:"red_flags"`
}

// analysisPayload mirrors the JSON schema requested from the model.
type analysisPayload struct {
	Analysis            string   `json:"analysis"`
	UrgencyLevel        string   `json:"urgency_level"`
	Recommendations     []string `json:"recommendations"`
	MedicalSpecialties  []string `json:"medical_specialties"`
	PotentialConditions []string `json:"potential_conditions"`
	RedFlags            []string `json:"red_flags"`
}

// ErrSymptomsMissing is returned when analysis references unknown or
// foreign symptom IDs.
var ErrSymptomsMissing = fmt.Errorf("one or more symptoms not found")

// Analyze runs an LLM pattern analysis over the given symptom records. On
// model or parse failure it degrades to a severity-based fallback rather
// than failing the request.
func (s *SymptomService) Analyze(ctx context.Context, userID int64, symptomIDs []int64, additionalContext string) (*Analysis, error) {
	records, err := s.store.ListSymptomsByIDs(ctx, userID, symptomIDs)
	if err != nil {
		return nil, err
	}
	if len(records) != len(symptomIDs) {
		return nil, ErrSymptomsMissing
	}

	out := &Analysis{
		PatternID: fmt.Sprintf("pattern_%d_%s", userID, time.Now().UTC().Format("20060102_150405")),
		Symptoms:  records,
	}

	result, err := s.llm.Generate(ctx, llm.GenerateRequest{
		System:      AnalyzeSystemPrompt,
		Prompt:      buildAnalysisPrompt(records, additionalContext),
		Temperature: 0.3,
	})
	var payload analysisPayload
	parsed := false
	if err != nil {
		s.log.Warn("symptom analysis failed", "error", err)
	} else {
		parsed = extractJSON(result.Text, &payload)
	}
	if !parsed {
		out.PatternID = fmt.Sprintf("fallback_%d_%s", userID, time.Now().UTC().Format("20060102_150405"))
		out.Analysis = FallbackAnalysis
		out.UrgencyLevel = fallbackUrgency(records)
		out.Recommendations = []string{FallbackRecommendation}
		out.MedicalSpecialties = []string{"General Practice"}
		out.PotentialConditions = []string{}
		out.RedFlags = []string{}
		return out, nil
	}

	out.Analysis = payload.Analysis
	out.UrgencyLevel = defaultStr(payload.UrgencyLevel, "low")
	out.Recommendations = orEmpty(payload.Recommendations)
	out.MedicalSpecialties = orEmpty(payload.MedicalSpecialties)
	out.PotentialConditions = orEmpty(payload.PotentialConditions)
	out.RedFlags = orEmpty(payload.RedFlags)
	return out, nil
}

// Stats summarises a user's recent symptoms.
type Stats struct {
	TotalSymptoms        int             `json:"total_symptoms"`
	AverageSeverity      float64         `json:"average_severity"`
	MostCommonCategory   *string         `json:"most_common_category"`
	SeverityDistribution map[int]int     `json:"severity_distribution"`
	CategoryDistribution map[string]int  `json:"category_distribution"`
	TrendingSymptoms     []TrendingEntry `json:"trending_symptoms"`
}

// TrendingEntry is one row of the most-frequent-symptoms list.
type TrendingEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ComputeStats aggregates the user's symptoms over the lookback window.
func (s *SymptomService) ComputeStats(ctx context.Context, userID int64, daysBack int) (*Stats, error) {
	records, err := s.store.ListSymptoms(ctx, userID, db.SymptomFilter{
		Since: time.Now().AddDate(0, 0, -daysBack),
		Limit: 1000,
	})
	if err != nil {
		return nil, err
	}
	return computeStats(records), nil
}

func computeStats(records []pkg.SymptomRecord) *Stats {
	stats := &Stats{
		SeverityDistribution: map[int]int{},
		CategoryDistribution: map[string]int{},
		TrendingSymptoms:     []TrendingEntry{},
	}
	if len(records) == 0 {
		return stats
	}

	stats.TotalSymptoms = len(records)
	total := 0
	names := map[string]int{}
	for _, r := range records {
		total += r.Severity
		stats.SeverityDistribution[r.Severity]++
		stats.CategoryDistribution[string(r.Category)]++
		names[r.Name]++
	}
	stats.AverageSeverity = round2(float64(total) / float64(len(records)))

	best, bestN := "", 0
	for cat, n := range stats.CategoryDistribution {
		if n > bestN || (n == bestN && cat < best) {
			best, bestN = cat, n
		}
	}
	stats.MostCommonCategory = &best

	for name, n := range names {
		stats.TrendingSymptoms = append(stats.TrendingSymptoms, TrendingEntry{Name: name, Count: n})
	}
	sort.Slice(stats.TrendingSymptoms, func(i, j int) bool {
		a, b := stats.TrendingSymptoms[i], stats.TrendingSymptoms[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if len(stats.TrendingSymptoms) > 5 {
		stats.TrendingSymptoms = stats.TrendingSymptoms[:5]
	}
	return stats
}

// categorize asks the model for a category, falling back to keywords when
// the model is unavailable or answers outside the fixed set.
func (s *SymptomService) categorize(ctx context.Context, name string, description *string) pkg.SymptomCategory {
	prompt := "Symptom: " + name
	if description != nil && *description != "" {
		prompt += "\nDescription: " + *description
	}
	result, err := s.llm.Generate(ctx, llm.GenerateRequest{
		System:      CategorizeSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.1,
	})
	if err == nil {
		category := strings.ToLower(strings.TrimSpace(result.Text))
		if pkg.ValidCategory(category) {
			return pkg.SymptomCategory(category)
		}
	}
	return CategorizeByKeywords(name, description)
}

// CategorizeByKeywords buckets a symptom using the keyword fallback.
func CategorizeByKeywords(name string, description *string) pkg.SymptomCategory {
	text := strings.ToLower(name)
	if description != nil {
		text += " " + strings.ToLower(*description)
	}
	switch {
	case containsAny(text, []string{"pain", "ache", "hurt", "sore"}):
		return pkg.CategoryPain
	case containsAny(text, []string{"nausea", "vomit", "stomach", "digestive"}):
		return pkg.CategoryGastrointestinal
	case containsAny(text, []string{"cough", "breath", "chest", "lung"}):
		return pkg.CategoryRespiratory
	case containsAny(text, []string{"fever", "temperature", "chills"}):
		return pkg.CategoryConstitutional
	case containsAny(text, []string{"rash", "skin", "itch"}):
		return pkg.CategorySkin
	case containsAny(text, []string{"headache", "dizzy", "neurological"}):
		return pkg.CategoryNeurological
	default:
		return pkg.CategoryOther
	}
}

// SeverityLevelFor maps a 1-10 score onto the coarse level.
func SeverityLevelFor(severity int) pkg.SeverityLevel {
	switch {
	case severity <= 3:
		return pkg.SeverityMild
	case severity <= 6:
		return pkg.SeverityModerate
	case severity <= 8:
		return pkg.SeveritySevere
	default:
		return pkg.SeverityCritical
	}
}

func buildAnalysisPrompt(records []pkg.SymptomRecord, additionalContext string) string {
	var b strings.Builder
	b.WriteString("SYMPTOMS ANALYSIS REQUEST:\n\n")
	for i, r := range records {
		fmt.Fprintf(&b, "Symptom %d:\n", i+1)
		fmt.Fprintf(&b, "  Name: %s\n", r.Name)
		fmt.Fprintf(&b, "  Severity: %d/10\n", r.Severity)
		fmt.Fprintf(&b, "  Category: %s\n", r.Category)
		fmt.Fprintf(&b, "  Location: %s\n", strOr(r.Location, "Not specified"))
		fmt.Fprintf(&b, "  Onset: %s\n", r.OnsetDate.Format(time.RFC3339))
		if r.DurationHours != nil {
			fmt.Fprintf(&b, "  Duration: %d hours\n", *r.DurationHours)
		}
		if r.Description != nil && *r.Description != "" {
			fmt.Fprintf(&b, "  Description: %s\n", *r.Description)
		}
		if len(r.Triggers) > 0 {
			fmt.Fprintf(&b, "  Triggers: %s\n", strings.Join(r.Triggers, ", "))
		}
		if len(r.AlleviatingFactors) > 0 {
			fmt.Fprintf(&b, "  Relieving factors: %s\n", strings.Join(r.AlleviatingFactors, ", "))
		}
		if len(r.AssociatedSymptoms) > 0 {
			fmt.Fprintf(&b, "  Associated symptoms: %s\n", strings.Join(r.AssociatedSymptoms, ", "))
		}
		b.WriteString("\n")
	}
	if additionalContext != "" {
		fmt.Fprintf(&b, "Additional Context: %s\n\n", additionalContext)
	}
	b.WriteString("Please analyze these symptoms and provide structured insights in JSON format.")
	return b.String()
}

// fallbackUrgency keys off the highest severity when the model cannot
// analyse the pattern.
func fallbackUrgency(records []pkg.SymptomRecord) string {
	for _, r := range records {
		if r.Severity >= 8 {
			return "high"
		}
	}
	return "moderate"
}

func onsetFrom(durationHours *int) time.Time {
	now := time.Now().UTC()
	if durationHours != nil && *durationHours > 0 {
		return now.Add(-time.Duration(*durationHours) * time.Hour)
	}
	return now
}

func strOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}

func defaultStr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
