package app

import (
	"errors"
	"fmt"
	"net/http"

	"sheetsync/api/internal/auth"
	"sheetsync/api/internal/store"
)

// Error codes returned in the "code" field of an error response.
const (
	codeValidation   = "VALIDATION_ERROR"
	codeInvalidBody  = "INVALID_BODY"
	codeInvalidTable = "INVALID_TABLE"
	codeNotFound     = "NOT_FOUND"
	codeEmailExists  = "EMAIL_EXISTS"
	codeBadLogin     = "INVALID_CREDENTIALS"
	codeUnauthorized = "UNAUTHORIZED"
	codeServer       = "SERVER_ERROR"
)

// DomainError is an error the service reports to clients as-is.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func validationError(message string) *DomainError {
	return &DomainError{Status: http.StatusUnprocessableEntity, Code: codeValidation, Message: message}
}

func notFoundError(message string) *DomainError {
	return &DomainError{Status: http.StatusNotFound, Code: codeNotFound, Message: message}
}

// mapError turns any service error into the status and body fields of a
// response. Unknown errors become a generic 500.
func mapError(err error) *DomainError {
	var domainErr *DomainError
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, store.ErrNotFound):
		return notFoundError("Not found")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return &DomainError{Status: http.StatusUnauthorized, Code: codeUnauthorized, Message: "Unauthorized"}
	}
	return &DomainError{Status: http.StatusInternalServerError, Code: codeServer, Message: "Server error"}
}

func bodyError(err error) *DomainError {
	return &DomainError{Status: http.StatusBadRequest, Code: codeInvalidBody, Message: err.Error()}
}
