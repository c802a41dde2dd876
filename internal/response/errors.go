package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrForbidden          ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Gate ──────────────────────────────────────────────────────────
	ErrSessionNotFound ErrCode = "TOKEN_NOT_FOUND"
	ErrExamNotOpen     ErrCode = "EXAM_NOT_OPEN"
	ErrExamEnded       ErrCode = "EXAM_ENDED"

	// ─── Listening ticket ──────────────────────────────────────────────
	ErrMaxPlays         ErrCode = "MAX_PLAYS"
	ErrBadTicket        ErrCode = "BAD_TICKET"
	ErrTicketExpired    ErrCode = "TICKET_EXPIRED"
	ErrAlreadySubmitted ErrCode = "ALREADY_SUBMITTED"

	// ─── Limits & preconditions ────────────────────────────────────────
	ErrSnapshotLimit ErrCode = "SNAPSHOT_LIMIT"
	ErrAckRequired   ErrCode = "ACK_REQUIRED"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrTokenRequired:
		return "An access token is required."
	case ErrTokenInvalid:
		return "The access token is not valid."
	case ErrForbidden:
		return "You do not have permission to access this resource."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrSessionNotFound:
		return "No exam session matches this token."
	case ErrExamNotOpen:
		return "The exam window has not opened yet."
	case ErrExamEnded:
		return "The exam window has ended."

	case ErrMaxPlays:
		return "The listening audio has already been played the maximum number of times."
	case ErrBadTicket:
		return "The listening ticket is not valid."
	case ErrTicketExpired:
		return "The listening ticket has expired."
	case ErrAlreadySubmitted:
		return "This session has already been submitted."

	case ErrSnapshotLimit:
		return "The snapshot limit for this session has been reached."
	case ErrAckRequired:
		return "The proctoring rules must be acknowledged first."

	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "File size exceeds the limit."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
