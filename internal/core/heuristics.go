package core

import "strings"

// Keyword heuristics used to flag messages. Deliberately crude: the flags
// feed the auto-diagnosis trigger and report assembly, not any clinical
// decision.

var symptomKeywords = []string{
	"pain", "ache", "hurt", "sore", "fever", "headache", "nausea",
	"vomit", "cough", "sneeze", "tired", "fatigue", "dizzy", "swollen",
	"rash", "itch", "bleeding", "shortness", "breath", "chest",
}

var adviceKeywords = []string{
	"recommend", "suggest", "should take", "prescription", "medication",
	"treatment", "see a doctor", "emergency", "urgent care",
}

var followupIndicators = []string{
	"?", "tell me more", "can you describe", "how long", "when did",
	"have you tried", "any other symptoms",
}

func containsAny(content string, keywords []string) bool {
	lower := strings.ToLower(content)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// ContainsSymptoms reports whether a message looks like a symptom
// description.
func ContainsSymptoms(content string) bool {
	return containsAny(content, symptomKeywords)
}

// ContainsMedicalAdvice reports whether an assistant message reads like
// care advice.
func ContainsMedicalAdvice(content string) bool {
	return containsAny(content, adviceKeywords)
}

// RequiresFollowup reports whether an assistant message expects an answer.
func RequiresFollowup(content string) bool {
	return containsAny(content, followupIndicators)
}
