package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/pasinduf/blog-platform/internal/accounts"
	"github.com/pasinduf/blog-platform/internal/auth"
	"github.com/pasinduf/blog-platform/internal/moderation"
	"github.com/pasinduf/blog-platform/internal/session"
)

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
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// accountError translates the account service sentinels into domain
// errors with the right HTTP status.
func accountError(err error) error {
	switch {
	case errors.Is(err, accounts.ErrEmailTaken):
		return domainError(http.StatusConflict, "EMAIL_EXISTS", err.Error(), nil)
	case errors.Is(err, accounts.ErrInvalidCredentials):
		return domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error(), nil)
	case errors.Is(err, accounts.ErrAccountPending):
		return domainError(http.StatusForbidden, "ACCOUNT_PENDING", err.Error(), nil)
	case errors.Is(err, accounts.ErrMissingFields),
		errors.Is(err, accounts.ErrInvalidEmail),
		errors.Is(err, accounts.ErrWeakPassword),
		errors.Is(err, accounts.ErrPasswordMismatch),
		errors.Is(err, accounts.ErrWrongPassword),
		errors.Is(err, accounts.ErrInvalidResetToken):
		return domainError(http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	default:
		return err
	}
}

// moderationError turns a denied moderation decision into a domain
// error. Authorization denials are 403; wrong-state denials are 409.
func moderationError(decision moderation.Decision) *DomainError {
	switch decision.Reason {
	case "Unauthorized", "Cannot publish your own post", "Cannot review your own post":
		return domainError(http.StatusForbidden, "FORBIDDEN", decision.Reason, nil)
	default:
		return domainError(http.StatusConflict, "INVALID_STATE", decision.Reason, nil)
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, session.ErrNotFound) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
