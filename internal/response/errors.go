package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Session tokens ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Session-specific ──────────────────────────────────────────────
	ErrExamNotFound       ErrCode = "EXAM_NOT_FOUND"
	ErrExamUnreadable     ErrCode = "EXAM_UNREADABLE"
	ErrSessionNotFound    ErrCode = "SESSION_NOT_FOUND"
	ErrSessionFinished    ErrCode = "SESSION_FINISHED"
	ErrSessionNotFinished ErrCode = "SESSION_NOT_FINISHED"
	ErrInvalidOption      ErrCode = "INVALID_OPTION"
	ErrInvalidQuestion    ErrCode = "INVALID_QUESTION_INDEX"
	ErrForwardOnly        ErrCode = "FORWARD_ONLY_NAVIGATION"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "A session token is required."
	case ErrTokenInvalid:
		return "The session token is invalid or expired."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "The request payload is invalid."
	case ErrNotFound:
		return "Resource not found."
	case ErrExamNotFound:
		return "No exam exists with that ID."
	case ErrExamUnreadable:
		return "The exam content could not be loaded. No session was started."
	case ErrSessionNotFound:
		return "No active session matches this token."
	case ErrSessionFinished:
		return "The session is already finished."
	case ErrSessionNotFinished:
		return "The session has not been finished yet."
	case ErrInvalidOption:
		return "The selected option does not exist for this question."
	case ErrInvalidQuestion:
		return "The question index is out of range."
	case ErrForwardOnly:
		return "Going back is not allowed in this exam."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
