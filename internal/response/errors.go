package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Session access ────────────────────────────────────────────────
	ErrTokenRequired  ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid   ErrCode = "TOKEN_INVALID"
	ErrSessionMissing ErrCode = "SESSION_NOT_FOUND"
	ErrForbidden      ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation        ErrCode = "VALIDATION_ERROR"
	ErrInvalidID         ErrCode = "INVALID_ID"
	ErrInvalidPayload    ErrCode = "INVALID_PAYLOAD"
	ErrInvalidQuestions  ErrCode = "INVALID_QUESTION_SET"
	ErrInvalidOption     ErrCode = "INVALID_OPTION"
	ErrInvalidPosition   ErrCode = "INVALID_POSITION"
	ErrUnsupportedFormat ErrCode = "UNSUPPORTED_FORMAT"

	// ─── Upload ────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Quiz flow ─────────────────────────────────────────────────────
	ErrNoSavedQuestions ErrCode = "NO_SAVED_QUESTION_SET"
	ErrNotCompleted     ErrCode = "SESSION_NOT_COMPLETED"
	ErrNotFound         ErrCode = "NOT_FOUND"

	// ─── Generation ────────────────────────────────────────────────────
	ErrGenerationFailed  ErrCode = "GENERATION_FAILED"
	ErrGenerationInvalid ErrCode = "GENERATION_INVALID"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal           ErrCode = "INTERNAL_ERROR"
	ErrFeatureUnavailable ErrCode = "FEATURE_UNAVAILABLE"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Session access ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "A session token is required."
	case ErrTokenInvalid:
		return "The session token is invalid or has expired."
	case ErrSessionMissing:
		return "The quiz session does not exist or has expired."
	case ErrForbidden:
		return "This token does not grant access to the requested session."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "The request contains invalid fields."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request body is not valid JSON."
	case ErrInvalidQuestions:
		return "The question set is invalid."
	case ErrInvalidOption:
		return "That option does not exist for the current question."
	case ErrInvalidPosition:
		return "That question number does not exist."
	case ErrUnsupportedFormat:
		return "Unsupported export format. Use json or xlsx."

	// ─── Upload ────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file is required in the \"file\" field."
	case ErrUnsupportedFile:
		return "Only .json question-set files are accepted."
	case ErrFileTooLarge:
		return "The uploaded file exceeds the maximum allowed size."

	// ─── Quiz flow ─────────────────────────────────────────────────────
	case ErrNoSavedQuestions:
		return "No saved question set was found."
	case ErrNotCompleted:
		return "The quiz has not been completed yet."
	case ErrNotFound:
		return "The requested resource was not found."

	// ─── Generation ────────────────────────────────────────────────────
	case ErrGenerationFailed:
		return "Failed to generate questions. Please try again."
	case ErrGenerationInvalid:
		return "The generated questions were not usable. Please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please slow down."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	case ErrFeatureUnavailable:
		return "This feature is not enabled on this server."

	default:
		return "An unknown error occurred."
	}
}
