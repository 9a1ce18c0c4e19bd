package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionState enumerates assessment session states.
type SessionState string

const (
	SessionStateActive            SessionState = "ACTIVE"
	SessionStateAutoSubmitted     SessionState = "AUTO_SUBMITTED"
	SessionStateManuallySubmitted SessionState = "MANUALLY_SUBMITTED"
	SessionStateExpired           SessionState = "EXPIRED"
	SessionStateScored            SessionState = "SCORED"
)

// Terminal reports whether no further mutation of the session is allowed.
// AutoSubmitted and ManuallySubmitted are transient claim states on the way
// to Scored: answers are frozen but the result has not been written yet.
func (s SessionState) Terminal() bool {
	return s == SessionStateScored || s == SessionStateExpired
}

// Session is one in-progress or completed attempt at a TestDefinition by
// one owner. All mutation goes through the store's CompareAndSwap, keyed on
// Version.
type Session struct {
	ID      uuid.UUID    `json:"id"`
	TestID  string       `json:"test_id"`
	OwnerID uuid.UUID    `json:"owner_id"`
	State   SessionState `json:"state"`

	// CurrentPage is the 1-based page the owner must submit next. It ranges
	// from 1 to TotalPages+1; TotalPages+1 means every page was submitted.
	CurrentPage int `json:"current_page"`

	// Answers maps question id to the submitted value. Likert answers are
	// stored as their decimal string ("1".."5"), multiple-choice answers as
	// the selected option id.
	Answers map[string]string `json:"answers"`

	StartedAt time.Time  `json:"started_at"`
	Deadline  *time.Time `json:"deadline,omitempty"`

	// Demographics is an opaque payload attached verbatim to the session.
	// The engine never interprets it.
	Demographics json.RawMessage `json:"demographics,omitempty"`

	// Result is set exactly once, when the session transitions to Scored.
	Result *ScoreResult `json:"result,omitempty"`

	// Version is incremented by the store on every successful swap.
	Version int64 `json:"version"`
}

// Expired reports whether the deadline has passed at the given instant.
// Untimed sessions never expire.
func (s *Session) Expired(now time.Time) bool {
	return s.Deadline != nil && now.After(*s.Deadline)
}

// RemainingSeconds returns the whole seconds left before the deadline,
// clamped at zero. Returns nil for untimed sessions.
func (s *Session) RemainingSeconds(now time.Time) *int {
	if s.Deadline == nil {
		return nil
	}
	remaining := int(s.Deadline.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// Clone returns a deep copy so callers can build a new version for
// CompareAndSwap without mutating the copy they read.
func (s *Session) Clone() *Session {
	out := *s
	out.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	if s.Demographics != nil {
		out.Demographics = append(json.RawMessage(nil), s.Demographics...)
	}
	if s.Result != nil {
		res := *s.Result
		out.Result = &res
	}
	return &out
}
