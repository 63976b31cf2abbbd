package app

import (
	"database/sql"
	"errors"
	"net/http"

	"buildwise/api/internal/aiassist"
	"buildwise/api/internal/auth"
	"buildwise/api/internal/authpw"
	"buildwise/api/internal/export"
	"buildwise/api/internal/home"
	"buildwise/api/internal/storage"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	return e.Message
}

func domainError(status int, code, message string, details any) error {
	return &DomainError{Status: status, Code: code, Message: message, Details: details}
}

func notFound(code, message string) error {
	return domainError(http.StatusNotFound, code, message, nil)
}

func invalid(message string, details any) error {
	return domainError(http.StatusBadRequest, "VALIDATION_FAILED", message, details)
}

var errHomeNotFound = notFound("HOME_NOT_FOUND", "Home not found")

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil

	case errors.Is(err, home.ErrTradeNotFound):
		return http.StatusNotFound, "TRADE_NOT_FOUND", "Trade not found", nil
	case errors.Is(err, home.ErrTaskNotFound):
		return http.StatusNotFound, "TASK_NOT_FOUND", "Task not found", nil
	case errors.Is(err, home.ErrCheckNotFound):
		return http.StatusNotFound, "CHECK_NOT_FOUND", "Quality check not found", nil
	case errors.Is(err, home.ErrInvoiceNotFound):
		return http.StatusNotFound, "INVOICE_NOT_FOUND", "Invoice not found", nil
	case errors.Is(err, home.ErrDocumentNotFound):
		return http.StatusNotFound, "DOCUMENT_NOT_FOUND", "Document not found", nil
	case errors.Is(err, home.ErrInvalidDependency):
		return http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil

	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	case errors.Is(err, authpw.ErrInviteRequired):
		return http.StatusForbidden, "INVITE_REQUIRED", "Registration requires an invitation", nil
	case errors.Is(err, authpw.ErrUserExists):
		return http.StatusConflict, "USER_EXISTS", "User already exists", nil
	case errors.Is(err, authpw.ErrWeakPassword):
		return http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil
	case errors.Is(err, authpw.ErrInvalidToken):
		return http.StatusBadRequest, "INVALID_TOKEN", "Invalid confirmation token", nil
	case errors.Is(err, authpw.ErrTokenExpired):
		return http.StatusBadRequest, "TOKEN_EXPIRED", "Confirmation token expired", nil

	case errors.Is(err, aiassist.ErrNotConfigured):
		return http.StatusInternalServerError, "AI_NOT_CONFIGURED", "Missing OPENAI_API_KEY", nil
	case errors.Is(err, aiassist.ErrUnsupportedContent):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_CONTENT", "Unsupported or empty content at URL(s)", nil

	case errors.Is(err, storage.ErrNotConfigured):
		return http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Object storage not configured", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

// upstreamError surfaces a third-party failure with its message.
func upstreamError(err error) error {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if status, _, _, _ := mapError(err); status != http.StatusInternalServerError {
		return err
	}
	return domainError(http.StatusInternalServerError, "UPSTREAM_FAILURE", err.Error(), nil)
}
