package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// TestSummary describes an available test definition in list responses.
type TestSummary struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description,omitempty"`
	ScoringMode     ScoringMode `json:"scoring_mode"`
	TotalQuestions  int         `json:"total_questions"`
	TotalPages      int         `json:"total_pages"`
	DurationSeconds int         `json:"duration_seconds,omitempty"`
	// AllowDefaultFill tells the client it may offer neutral pre-filling.
	// The server still rejects incomplete pages either way.
	AllowDefaultFill bool `json:"allow_default_fill,omitempty"`
}

// StartSessionResponse is returned when a session is created (or resumed).
type StartSessionResponse struct {
	SessionID      uuid.UUID `json:"session_id"`
	Title          string    `json:"title"`
	TotalQuestions int       `json:"total_questions"`
	TotalPages     int       `json:"total_pages"`
	// EstimatedDuration is the time limit in seconds for timed tests, or a
	// rough estimate for untimed ones.
	EstimatedDuration int  `json:"estimated_duration"`
	Resumed           bool `json:"resumed,omitempty"`
}

// QuestionView is a question as shown to the session owner: for
// multiple-choice questions the correct flag is stripped.
type QuestionView struct {
	ID       string     `json:"id"`
	Prompt   string     `json:"prompt"`
	Category string     `json:"category,omitempty"`
	Kind     AnswerKind `json:"kind"`
	Options  []Option   `json:"options,omitempty"`
}

// PageView is one page of questions merged with any previously submitted
// answers for that page.
type PageView struct {
	SessionID   uuid.UUID      `json:"session_id"`
	Page        int            `json:"page"`
	TotalPages  int            `json:"total_pages"`
	CurrentPage int            `json:"current_page"`
	Title       string         `json:"title,omitempty"`
	Questions   []QuestionView `json:"questions"`
	// Answers holds the previously submitted values for questions on this
	// page, keyed by question id. Empty for pages not yet submitted.
	Answers map[string]string `json:"answers"`
	// RemainingSeconds is present only for timed sessions.
	RemainingSeconds *int `json:"remaining_seconds,omitempty"`
}

// SubmitAnswer is one answered question in a page submission. Value carries
// the Likert value as a decimal string or the selected option id.
type SubmitAnswer struct {
	QuestionID string `json:"question_id" binding:"required"`
	Value      string `json:"value" binding:"required"`
}

// SubmitPageRequest is the payload for submitting one page of answers.
type SubmitPageRequest struct {
	Page    int            `json:"page" binding:"required,min=1"`
	Answers []SubmitAnswer `json:"answers" binding:"required,min=1,dive"`
}

// SubmitResult reports the outcome of a page submission.
type SubmitResult struct {
	SessionID   uuid.UUID    `json:"session_id"`
	State       SessionState `json:"state"`
	CurrentPage int          `json:"current_page"`
	// Completed is true once the last page was accepted and the session
	// was scored.
	Completed bool `json:"completed"`
}

// DemographicsRequest wraps the opaque demographic payload. The engine
// stores it verbatim and never looks inside.
type DemographicsRequest struct {
	Payload json.RawMessage `json:"payload" binding:"required"`
}
