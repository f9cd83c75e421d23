// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Every error response carries one of these codes in the envelope
// {request_id, code, message}. Clients branch on the code; the message is
// safe to show to users.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_failed"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeInvalidLogin     = "invalid_credentials"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeUnavailable      = "service_unavailable"
	ErrCodeInternal         = "internal_error"
)
