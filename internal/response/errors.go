package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Session-specific ──────────────────────────────────────────────
	ErrPageOutOfRange    ErrCode = "PAGE_OUT_OF_RANGE"
	ErrPageNotReady      ErrCode = "PAGE_NOT_READY"
	ErrIncompleteAnswers ErrCode = "INCOMPLETE_ANSWERS"
	ErrInvalidAnswer     ErrCode = "INVALID_ANSWER"
	ErrSessionNotActive  ErrCode = "SESSION_NOT_ACTIVE"
	ErrResultNotReady    ErrCode = "RESULT_NOT_READY"
	ErrNoResult          ErrCode = "NO_RESULT"

	// ─── Infrastructure ────────────────────────────────────────────────
	ErrStoreUnavailable ErrCode = "STORE_UNAVAILABLE"
	ErrInternal         ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The session was modified concurrently. Please retry."

	// ─── Session-specific ──────────────────────────────────────────────
	case ErrPageOutOfRange:
		return "The requested page does not exist for this test."
	case ErrPageNotReady:
		return "This page is not reachable yet. Submit the current page first."
	case ErrIncompleteAnswers:
		return "Every question on the page must be answered before submitting."
	case ErrInvalidAnswer:
		return "One or more answers are outside the allowed answer space."
	case ErrSessionNotActive:
		return "The session has already been submitted, expired, or aborted."
	case ErrResultNotReady:
		return "The session has not been scored yet."
	case ErrNoResult:
		return "The session was aborted before scoring; no result exists."

	// ─── Infrastructure ────────────────────────────────────────────────
	case ErrStoreUnavailable:
		return "The session store is temporarily unavailable. Please retry."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
