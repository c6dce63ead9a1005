package apperrors

import "errors"

// Error taxonomy shared by every handler
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrResourceNotFound   = errors.New("resource not found")
	ErrConflict           = errors.New("conflict")
	ErrBadRequest         = errors.New("bad request")
	ErrPreconditionFailed = errors.New("precondition failed")
)

// Token errors
var (
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("invalid token")
	ErrInvalidFormat = errors.New("invalid token format")
)

// Room errors
var (
	ErrRoomNotFound    = NewResourceNotFoundError("room not found")
	ErrRoomClosed      = NewPreconditionFailedError("room is closed")
	ErrRoomEnded       = NewPreconditionFailedError("room has already ended")
	ErrRoomStarted     = NewPreconditionFailedError("room has already started")
	ErrRoomFull        = NewConflictError("room is full")
	ErrRoomJoinLocked  = NewPreconditionFailedError("membership is locked right after creation")
	ErrNotParticipant  = NewPreconditionFailedError("not a participant of this room")
	ErrRoomAborted     = NewPreconditionFailedError("room was cancelled for lack of participants")
	ErrVoteWindow      = NewPreconditionFailedError("voting is not open for this room")
	ErrTitlesApplied   = NewConflictError("titles were already awarded for this room")
	ErrNoShowApplied   = NewConflictError("no-show was already applied for this participant")
	ErrRoomStillActive = NewPreconditionFailedError("room is not closed yet")
)

// Store errors, wrapped by repositories
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// NewUnauthorizedError creates a new custom error for missing or invalid credentials
func NewUnauthorizedError(message string) error {
	return &CustomError{Err: ErrUnauthorized, Message: message}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{Err: ErrPermissionDenied, Message: message}
}

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{Err: ErrResourceNotFound, Message: message}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{Err: ErrConflict, Message: message}
}

// NewBadRequestError creates a new custom error for invalid input with a message
func NewBadRequestError(message string) error {
	return &CustomError{Err: ErrBadRequest, Message: message}
}

// NewPreconditionFailedError is used when an action is attempted outside its time window or state
func NewPreconditionFailedError(message string) error {
	return &CustomError{Err: ErrPreconditionFailed, Message: message}
}

// Is returns whether err matches target or any of errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}
	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// Message returns the plain text message carried by err
func Message(err error) string {
	var custom *CustomError
	if errors.As(err, &custom) {
		return custom.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}
