package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to API callers. Validation failures carry these
// so UI handlers can branch without parsing message text.
const (
	CodeInvalidRole          = "INVALID_ROLE"
	CodeInvalidTicketKind    = "INVALID_TICKET_KIND"
	CodeNoOpTransfer         = "NO_OP_TRANSFER"
	CodeTransitionNotAllowed = "TRANSITION_NOT_ALLOWED"
	CodeTicketNotFound       = "TICKET_NOT_FOUND"
	CodeOwnershipMismatch    = "OWNERSHIP_MISMATCH"
	CodeTicketClosed         = "TICKET_CLOSED"
	CodeStorageFailure       = "STORAGE_FAILURE"

	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeInternal         = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewInvalidRole(role string) *DomainError {
	return NewDomainError(CodeInvalidRole, fmt.Sprintf("unknown role %q", role), http.StatusBadRequest, map[string]any{"role": role})
}

func NewInvalidTicketKind(kind string) *DomainError {
	return NewDomainError(CodeInvalidTicketKind, fmt.Sprintf("unknown ticket kind %q", kind), http.StatusBadRequest, map[string]any{"ticket_kind": kind})
}

func NewNoOpTransfer(role string) *DomainError {
	return NewDomainError(CodeNoOpTransfer, "source and target role are the same", http.StatusBadRequest, map[string]any{"role": role})
}

func NewTransitionNotAllowed(kind, from, to string) *DomainError {
	return NewDomainError(CodeTransitionNotAllowed,
		fmt.Sprintf("transfer %s → %s is not allowed for %s tickets", from, to, kind),
		http.StatusUnprocessableEntity,
		map[string]any{"ticket_kind": kind, "from_role": from, "to_role": to})
}

func NewTicketNotFound(kind, id string) *DomainError {
	return NewDomainError(CodeTicketNotFound, "ticket not found", http.StatusNotFound,
		map[string]any{"ticket_kind": kind, "ticket_id": id})
}

// NewOwnershipMismatch reports a transfer attempted with a stale
// from-role. raced distinguishes the guarded-update loss inside the
// transaction from the pre-check failure, so operators can tell a
// stale UI from a lost race.
func NewOwnershipMismatch(kind, id, fromRole string, raced bool) *DomainError {
	return NewDomainError(CodeOwnershipMismatch, "ticket is no longer owned by the source role", http.StatusConflict,
		map[string]any{"ticket_kind": kind, "ticket_id": id, "from_role": fromRole, "raced": raced})
}

func NewTicketClosed(kind, id, status string) *DomainError {
	return NewDomainError(CodeTicketClosed, "ticket is in a terminal status", http.StatusConflict,
		map[string]any{"ticket_kind": kind, "ticket_id": id, "status": status})
}

func NewStorageFailure(err error) *DomainError {
	return &DomainError{
		Code:       CodeStorageFailure,
		Message:    "storage operation failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts an error to its DomainError form.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
