package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes shared by the client core and the development authority.
const (
	CodeAuth              = "AUTH_ERROR"
	CodeNetwork           = "NETWORK_ERROR"
	CodeMalformedResponse = "MALFORMED_RESPONSE"
	CodePermission        = "PERMISSION_ERROR"
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInternal          = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAuthError reports a missing, malformed or expired credential.
func NewAuthError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeAuth,
		Message: message,
		Err:     err,
	}
}

// NewNetworkError reports a transport failure, a timeout or an unexpected status.
func NewNetworkError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeNetwork,
		Message: fmt.Sprintf("%s failed", operation),
		Err:     err,
	}
}

// NewMalformedResponseError reports a response body that did not match the contract.
func NewMalformedResponseError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeMalformedResponse,
		Message: fmt.Sprintf("%s returned an unexpected response", operation),
		Err:     err,
	}
}

// NewPermissionError reports denied access to local storage.
func NewPermissionError(message string, err error) *AppError {
	return &AppError{
		Code:    CodePermission,
		Message: message,
		Err:     err,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// CodeOf returns the AppError code found in err's chain, or "" when there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsAuth reports whether err is an authentication error.
func IsAuth(err error) bool {
	return CodeOf(err) == CodeAuth
}

// IsNetwork reports whether err should be presented to the user as a network
// failure. Malformed responses count as network failures.
func IsNetwork(err error) bool {
	code := CodeOf(err)
	return code == CodeNetwork || code == CodeMalformedResponse
}

// IsPermission reports whether err is a local storage permission error.
func IsPermission(err error) bool {
	return CodeOf(err) == CodePermission
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
