package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Status  int       `json:"status,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so callers can write
// errors.Is(err, errors.ErrLoginFailed).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrLogin
	ErrDownload
	ErrFetchPatients
	ErrNoSession
)

// Sentinels for errors.Is matching by code.
var (
	ErrLoginFailed         = &AppError{Code: ErrLogin}
	ErrDownloadFailed      = &AppError{Code: ErrDownload}
	ErrFetchPatientsFailed = &AppError{Code: ErrFetchPatients}
	ErrSessionMissing      = &AppError{Code: ErrNoSession}
)

const (
	MsgNoToken        = "No token received from server."
	MsgUnexpected     = "Unexpected error occurred."
	MsgDownloadFailed = "Failed to download"
	MsgNoSession      = "no active session"
	MsgFetchPatients  = "Failed to load patients"
	msgLoginStatusFmt = "Login failed: %d"
	msgFetchStatusFmt = "Failed to load patients: %d"
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// NewLoginStatus reports a token request answered with a non-2xx status.
func NewLoginStatus(status int) *AppError {
	return &AppError{
		Code:    ErrLogin,
		Message: fmt.Sprintf(msgLoginStatusFmt, status),
		Status:  status,
	}
}

// NewLoginNoToken reports a 2xx token response without access_token.
func NewLoginNoToken() *AppError {
	return &AppError{Code: ErrLogin, Message: MsgNoToken}
}

// NewLoginFailure wraps a transport or decode failure during login. The
// cause's message is shown as is; an empty cause falls back to a generic text.
func NewLoginFailure(err error) *AppError {
	msg := MsgUnexpected
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &AppError{Code: ErrLogin, Message: msg, Err: err}
}

func NewDownloadStatus(status int) *AppError {
	return &AppError{
		Code:    ErrDownload,
		Message: MsgDownloadFailed,
		Status:  status,
	}
}

func NewDownloadFailure(err error) *AppError {
	return &AppError{Code: ErrDownload, Message: MsgDownloadFailed, Err: err}
}

func NewFetchPatientsStatus(status int) *AppError {
	return &AppError{
		Code:    ErrFetchPatients,
		Message: fmt.Sprintf(msgFetchStatusFmt, status),
		Status:  status,
	}
}

func NewFetchPatientsFailure(err error) *AppError {
	return &AppError{Code: ErrFetchPatients, Message: MsgFetchPatients, Err: err}
}

func NewNoSession() *AppError {
	return &AppError{Code: ErrNoSession, Message: MsgNoSession}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

// CodeOf returns the code of the first AppError in err's chain, or 0.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return 0
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
