package model

import (
	"time"

	"github.com/google/uuid"
)

// CategoryScore is a single category's normalized score.
type CategoryScore struct {
	Score int `json:"score"`
	// Incomplete marks a category that had no answered questions and was
	// therefore scored zero.
	Incomplete bool `json:"incomplete,omitempty"`
}

// ScoreResult is the deterministic outcome of scoring one session. It is
// computed exactly once and cached; repeated result fetches return the same
// value.
type ScoreResult struct {
	SessionID  uuid.UUID   `json:"session_id"`
	TestID     string      `json:"test_id"`
	Mode       ScoringMode `json:"mode"`
	ComputedAt time.Time   `json:"computed_at"`

	// CategoryAverage mode only.
	CategoryScores   map[string]CategoryScore `json:"category_scores,omitempty"`
	RankedCategories []string                 `json:"ranked_categories,omitempty"`

	// PercentCorrect mode only.
	PercentCorrect *int `json:"percent_correct,omitempty"`
	CorrectCount   int  `json:"correct_count,omitempty"`
	TotalQuestions int  `json:"total_questions,omitempty"`

	// Classification is the dominant category (CategoryAverage) or the
	// threshold-derived skill level (PercentCorrect).
	Classification string `json:"classification"`

	// Recommendation is attached asynchronously after scoring when a
	// recommendation provider is configured. Empty until then.
	Recommendation string `json:"recommendation,omitempty"`
}
