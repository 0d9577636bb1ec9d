// Package funnelerrors defines the domain error taxonomy the funnel exposes
// to callers. Every code except CodeInviteInvalid and
// CodeRespondentIsOperator is recoverable by retrying from the respondent's
// side. Infrastructure failures (store connectivity, constraint violations)
// are deliberately NOT part of this taxonomy; they propagate wrapped and the
// transport layer turns them into a generic retry prompt.
package funnelerrors

import (
	"errors"
	"net/http"
)

// Code classifies a domain failure.
type Code string

const (
	CodeInviteInvalid         Code = "invite_invalid"
	CodeRespondentIsOperator  Code = "respondent_is_operator"
	CodeConflictingSession    Code = "conflicting_session"
	CodeSessionExpired        Code = "session_expired"
	CodeVerificationFailed    Code = "verification_failed"
	CodeNoQuestionsConfigured Code = "no_questions_configured"
	CodeEmptyAnswer           Code = "empty_answer"
	CodeUnexpectedInputType   Code = "unexpected_input_type"

	// Transport-edge codes, not part of the respondent-facing taxonomy.
	CodeInvalidInput Code = "invalid_input"
	CodeInternal     Code = "internal"
)

// Error carries a domain code plus a human-readable message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// New builds a domain error with the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf extracts the domain code from an error chain, or CodeInternal when
// the error is not a domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is lets errors.Is match two domain errors by code alone.
func (e *Error) Is(target error) bool {
	var de *Error
	if errors.As(target, &de) {
		return de.Code == e.Code
	}
	return false
}

// IsCode reports whether err carries the given domain code.
func IsCode(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}

// ToHTTPStatus maps domain codes onto HTTP statuses at the transport edge.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInviteInvalid, CodeSessionExpired:
		return http.StatusNotFound
	case CodeRespondentIsOperator:
		return http.StatusForbidden
	case CodeConflictingSession:
		return http.StatusConflict
	case CodeVerificationFailed:
		return http.StatusUnprocessableEntity
	case CodeNoQuestionsConfigured:
		return http.StatusServiceUnavailable
	case CodeEmptyAnswer, CodeUnexpectedInputType, CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
