package engine

import "errors"

// Engine errors, surfaced to handlers which map them onto HTTP statuses.
var (
	// ErrSessionNotFound covers both unknown session ids and sessions the
	// caller does not own, so ownership is never leaked.
	ErrSessionNotFound = errors.New("session not found")

	// ErrPageNotReady means the requested page is ahead of current_page.
	ErrPageNotReady = errors.New("page not reachable yet")

	// ErrWrongPage means a submission targeted a page other than
	// current_page (an already-submitted page or a skipped-ahead one).
	ErrWrongPage = errors.New("submission must target the current page")

	// ErrIncompleteAnswers means a page submission left questions
	// unanswered. The engine never fills defaults; completeness is the
	// caller's job.
	ErrIncompleteAnswers = errors.New("page submission incomplete")

	// ErrInvalidAnswer means a value fell outside the question's answer
	// space (Likert out of [1,5], or an unknown option id).
	ErrInvalidAnswer = errors.New("answer outside the allowed answer space")

	// ErrSessionNotActive means the session already left the Active state.
	ErrSessionNotActive = errors.New("session is not active")

	// ErrConflict is surfaced after the single internal retry on a
	// version conflict also lost its race.
	ErrConflict = errors.New("session modified concurrently")

	// ErrResultNotReady means the session exists but has not been scored.
	ErrResultNotReady = errors.New("result not ready")

	// ErrNoResult means the session was aborted before scoring; no result
	// will ever exist.
	ErrNoResult = errors.New("no result for aborted session")
)
