package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// Authentication errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	// Key material errors
	ErrCodeKeyNotFound         ErrorCode = "KEY_NOT_FOUND"
	ErrCodeRecipientKeyMissing ErrorCode = "RECIPIENT_KEY_MISSING"
	ErrCodeNotAParticipant     ErrorCode = "NOT_A_PARTICIPANT"
	ErrCodeDecryptionFailed    ErrorCode = "DECRYPTION_FAILED"
	ErrCodeWrongPassphrase     ErrorCode = "WRONG_PASSPHRASE_OR_CORRUPT"
	ErrCodeMalformedPayload    ErrorCode = "MALFORMED_PAYLOAD"
	ErrCodeInvalidKeyMaterial  ErrorCode = "INVALID_KEY_MATERIAL"
	ErrCodeVaultExists         ErrorCode = "VAULT_EXISTS"

	// Generic errors
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeConflict       ErrorCode = "CONFLICT"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase       ErrorCode = "DATABASE_ERROR"
	ErrCodeStorage        ErrorCode = "STORAGE_ERROR"
	ErrCodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
)

// Sentinels for errors.Is checks. Matching is by code, so any AppError carrying
// the same code (whatever its message or cause) satisfies errors.Is.
var (
	ErrKeyNotFound         = NewWithStatus(ErrCodeKeyNotFound, "key not found", http.StatusNotFound)
	ErrRecipientKeyMissing = NewWithStatus(ErrCodeRecipientKeyMissing, "recipient has no published key", http.StatusUnprocessableEntity)
	ErrNotAParticipant     = NewWithStatus(ErrCodeNotAParticipant, "message is not addressed to this user", http.StatusForbidden)
	ErrDecryptionFailed    = NewWithStatus(ErrCodeDecryptionFailed, "message could not be decrypted", http.StatusUnprocessableEntity)
	ErrWrongPassphrase     = NewWithStatus(ErrCodeWrongPassphrase, "wrong password or corrupted file", http.StatusUnprocessableEntity)
	ErrMalformedPayload    = NewWithStatus(ErrCodeMalformedPayload, "malformed encrypted payload", http.StatusBadRequest)
	ErrVaultExists         = NewWithStatus(ErrCodeVaultExists, "key vault already exists", http.StatusConflict)
)

// AppError represents a structured application error with code, message, and HTTP status
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Details    any       `json:"details,omitempty"`
	Err        error     `json:"-"`
}

// Error implements the error interface, returning a formatted error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AppError with the given code and message
// The status code defaults to 500 Internal Server Error
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewWithStatus creates a new AppError with a specific HTTP status code
func NewWithStatus(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an existing error with an AppError, preserving the original error
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// WrapWithStatus wraps an existing error with an AppError and specific status code
func WrapWithStatus(code ErrorCode, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// WithDetails adds additional details to an AppError
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// Validation errors
func ValidationError(message string) *AppError {
	return NewWithStatus(ErrCodeValidation, message, http.StatusBadRequest)
}

// Authentication errors
func UnauthorizedError(message string) *AppError {
	return NewWithStatus(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func ForbiddenError(message string) *AppError {
	return NewWithStatus(ErrCodeForbidden, message, http.StatusForbidden)
}

// Key material errors

// KeyNotFoundError reports an absent local private key or directory public key.
func KeyNotFoundError(message string) *AppError {
	return NewWithStatus(ErrCodeKeyNotFound, message, http.StatusNotFound)
}

// RecipientKeyMissingError reports that userID has never published a key.
func RecipientKeyMissingError(userID string, err error) *AppError {
	return WrapWithStatus(ErrCodeRecipientKeyMissing,
		fmt.Sprintf("participant %s has no published public key", userID),
		http.StatusUnprocessableEntity, err).WithDetails(map[string]string{"user_id": userID})
}

func NotAParticipantError() *AppError {
	return NewWithStatus(ErrCodeNotAParticipant, "message is not addressed to this user", http.StatusForbidden)
}

// DecryptionFailedError wraps the underlying cause. The cause must never carry
// key bytes or plaintext.
func DecryptionFailedError(err error) *AppError {
	return WrapWithStatus(ErrCodeDecryptionFailed, "message could not be decrypted", http.StatusUnprocessableEntity, err)
}

func WrongPassphraseError(err error) *AppError {
	return WrapWithStatus(ErrCodeWrongPassphrase, "wrong password or corrupted file", http.StatusUnprocessableEntity, err)
}

func MalformedPayloadError(message string) *AppError {
	return NewWithStatus(ErrCodeMalformedPayload, message, http.StatusBadRequest)
}

func InvalidKeyMaterialError(message string, err error) *AppError {
	return WrapWithStatus(ErrCodeInvalidKeyMaterial, message, http.StatusBadRequest, err)
}

// Generic errors
func NotFoundError(resource string) *AppError {
	return NewWithStatus(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func ConflictError(message string) *AppError {
	return NewWithStatus(ErrCodeConflict, message, http.StatusConflict)
}

func InternalError(message string) *AppError {
	return NewWithStatus(ErrCodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(err error) *AppError {
	return WrapWithStatus(ErrCodeDatabase, "Database error", http.StatusInternalServerError, err)
}

func StorageError(err error) *AppError {
	return WrapWithStatus(ErrCodeStorage, "Storage error", http.StatusInternalServerError, err)
}

func ServiceUnavailableError(message string) *AppError {
	return NewWithStatus(ErrCodeServiceUnavail, message, http.StatusServiceUnavailable)
}

// IsAppError checks if an error chain contains an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError extracts the outermost AppError from an error chain, wrapping
// anything else as InternalError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(ErrCodeInternal, "internal error", err)
}

// CodeOf returns the code of the outermost AppError in err's chain, or the empty
// code when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
