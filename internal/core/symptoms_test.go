package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthbot/internal/db"
	"healthbot/pkg"
)

func TestSymptomRecord(t *testing.T) {
	store := newMemStore()
	user := store.addUser(pkg.User{Email: "pat@example.com"})
	svc := NewSymptomService(store, &fakeLLM{reply: "respiratory"})

	hours := 48
	rec, err := svc.Record(context.Background(), user.ID, SymptomInput{
		Name:          "persistent cough",
		Severity:      5,
		DurationHours: &hours,
	})
	require.NoError(t, err)

	assert.Equal(t, pkg.CategoryRespiratory, rec.Category)
	assert.Equal(t, pkg.SeverityModerate, rec.SeverityLevel)
	assert.WithinDuration(t, time.Now().UTC().Add(-48*time.Hour), rec.OnsetDate, time.Minute)
}

func TestSymptomRecordKeywordFallback(t *testing.T) {
	store := newMemStore()
	user := store.addUser(pkg.User{Email: "pat@example.com"})

	// Model down: keywords decide.
	svc := NewSymptomService(store, &fakeLLM{err: errors.New("timeout")})
	rec, err := svc.Record(context.Background(), user.ID, SymptomInput{Name: "stomach cramps and nausea", Severity: 4})
	require.NoError(t, err)
	assert.Equal(t, pkg.CategoryGastrointestinal, rec.Category)

	// Model answers outside the fixed set: keywords decide.
	svc = NewSymptomService(store, &fakeLLM{reply: "tummy trouble"})
	rec, err = svc.Record(context.Background(), user.ID, SymptomInput{Name: "itchy rash on arm", Severity: 2})
	require.NoError(t, err)
	assert.Equal(t, pkg.CategorySkin, rec.Category)
}

func TestCategorizeByKeywords(t *testing.T) {
	desc := "burning sensation"
	assert.Equal(t, pkg.CategoryPain, CategorizeByKeywords("back ache", nil))
	assert.Equal(t, pkg.CategoryGastrointestinal, CategorizeByKeywords("vomiting", nil))
	assert.Equal(t, pkg.CategoryRespiratory, CategorizeByKeywords("shortness of breath", nil))
	assert.Equal(t, pkg.CategoryConstitutional, CategorizeByKeywords("fever and chills", nil))
	assert.Equal(t, pkg.CategorySkin, CategorizeByKeywords("red skin", &desc))
	assert.Equal(t, pkg.CategoryNeurological, CategorizeByKeywords("dizzy spells", nil))
	assert.Equal(t, pkg.CategoryOther, CategorizeByKeywords("hiccups", nil))
}

func TestSeverityLevelFor(t *testing.T) {
	assert.Equal(t, pkg.SeverityMild, SeverityLevelFor(1))
	assert.Equal(t, pkg.SeverityMild, SeverityLevelFor(3))
	assert.Equal(t, pkg.SeverityModerate, SeverityLevelFor(4))
	assert.Equal(t, pkg.SeverityModerate, SeverityLevelFor(6))
	assert.Equal(t, pkg.SeveritySevere, SeverityLevelFor(7))
	assert.Equal(t, pkg.SeveritySevere, SeverityLevelFor(8))
	assert.Equal(t, pkg.SeverityCritical, SeverityLevelFor(9))
	assert.Equal(t, pkg.SeverityCritical, SeverityLevelFor(10))
}

func TestSymptomUpdate(t *testing.T) {
	store := newMemStore()
	user := store.addUser(pkg.User{Email: "pat@example.com"})
	svc := NewSymptomService(store, &fakeLLM{err: errors.New("down")})

	rec, err := svc.Record(context.Background(), user.ID, SymptomInput{Name: "mild headache", Severity: 2})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), user.ID, rec.ID, SymptomInput{Name: "severe headache", Severity: 9})
	require.NoError(t, err)
	assert.Equal(t, "severe headache", updated.Name)
	assert.Equal(t, pkg.SeverityCritical, updated.SeverityLevel)

	other := store.addUser(pkg.User{Email: "other@example.com"})
	_, err = svc.Update(context.Background(), other.ID, rec.ID, SymptomInput{Name: "x", Severity: 1})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestSymptomAnalyze(t *testing.T) {
	store := newMemStore()
	user := store.addUser(pkg.User{Email: "pat@example.com"})
	model := &fakeLLM{reply: `{
		"analysis": "Pattern consistent with a viral infection.",
		"urgency_level": "moderate",
		"recommendations": ["rest", "hydration"],
		"medical_specialties": ["General Practice"],
		"potential_conditions": ["viral infection"],
		"red_flags": []
	}`}
	svc := NewSymptomService(store, model)

	s1, _ := store.CreateSymptom(context.Background(), &pkg.SymptomRecord{UserID: user.ID, Name: "fever", Severity: 6, Category: pkg.CategoryConstitutional})
	s2, _ := store.CreateSymptom(context.Background(), &pkg.SymptomRecord{UserID: user.ID, Name: "cough", Severity: 4, Category: pkg.CategoryRespiratory})

	out, err := svc.Analyze(context.Background(), user.ID, []int64{s1.ID, s2.ID}, "started after travel")
	require.NoError(t, err)
	assert.Equal(t, "moderate", out.UrgencyLevel)
	assert.Equal(t, []string{"rest", "hydration"}, out.Recommendations)
	assert.Len(t, out.Symptoms, 2)
	assert.Contains(t, out.PatternID, "pattern_")
	assert.Contains(t, model.calls[0].Prompt, "started after travel")
}

func TestSymptomAnalyzeMissingIDs(t *testing.T) {
	store := newMemStore()
	user := store.addUser(pkg.User{Email: "pat@example.com"})
	svc := NewSymptomService(store, &fakeLLM{reply: "{}"})

	_, err := svc.Analyze(context.Background(), user.ID, []int64{999}, "")
	assert.ErrorIs(t, err, ErrSymptomsMissing)
}

func TestSymptomAnalyzeFallback(t *testing.T) {
	store := newMemStore()
	user := store.addUser(pkg.User{Email: "pat@example.com"})
	svc := NewSymptomService(store, &fakeLLM{err: errors.New("down")})

	s1, _ := store.CreateSymptom(context.Background(), &pkg.SymptomRecord{UserID: user.ID, Name: "chest pain", Severity: 9, Category: pkg.CategoryPain})

	out, err := svc.Analyze(context.Background(), user.ID, []int64{s1.ID}, "")
	require.NoError(t, err)
	assert.Contains(t, out.PatternID, "fallback_")
	assert.Equal(t, "high", out.UrgencyLevel)
	assert.Equal(t, FallbackAnalysis, out.Analysis)
	assert.Equal(t, []string{FallbackRecommendation}, out.Recommendations)
}

func TestComputeStats(t *testing.T) {
	records := []pkg.SymptomRecord{
		{Name: "headache", Severity: 6, Category: pkg.CategoryNeurological},
		{Name: "headache", Severity: 4, Category: pkg.CategoryNeurological},
		{Name: "nausea", Severity: 3, Category: pkg.CategoryGastrointestinal},
	}
	stats := computeStats(records)

	assert.Equal(t, 3, stats.TotalSymptoms)
	assert.InDelta(t, 4.33, stats.AverageSeverity, 0.001)
	require.NotNil(t, stats.MostCommonCategory)
	assert.Equal(t, "neurological", *stats.MostCommonCategory)
	assert.Equal(t, 2, stats.SeverityDistribution[6]+stats.SeverityDistribution[4])
	require.NotEmpty(t, stats.TrendingSymptoms)
	assert.Equal(t, TrendingEntry{Name: "headache", Count: 2}, stats.TrendingSymptoms[0])
}

func TestComputeStatsSeverityRounding(t *testing.T) {
	records := []pkg.SymptomRecord{
		{Name: "a", Severity: 2, Category: pkg.CategoryOther},
		{Name: "b", Severity: 3, Category: pkg.CategoryOther},
		{Name: "c", Severity: 9, Category: pkg.CategoryOther},
	}
	// 14/3 = 4.666..., rounded to two decimals.
	assert.Equal(t, 4.67, computeStats(records).AverageSeverity)
	assert.Equal(t, 0.67, round2(2.0/3.0))
	assert.Equal(t, -0.67, round2(-2.0/3.0))
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := computeStats(nil)
	assert.Equal(t, 0, stats.TotalSymptoms)
	assert.Zero(t, stats.AverageSeverity)
	assert.Nil(t, stats.MostCommonCategory)
	assert.Empty(t, stats.TrendingSymptoms)
}
