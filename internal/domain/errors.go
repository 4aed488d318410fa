package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
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

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrResourceBusy = &AppError{
		Code:       "RESOURCE_BUSY",
		Message:    "Camera is already held by another pipeline",
		StatusCode: 409,
	}

	ErrStoreUnavailable = &AppError{
		Code:       "STORE_UNAVAILABLE",
		Message:    "Template store could not be reached",
		StatusCode: 503,
	}

	ErrCameraDisconnected = &AppError{
		Code:       "CAMERA_DISCONNECTED",
		Message:    "Camera stream was lost",
		StatusCode: 503,
	}

	ErrSessionAlreadyActive = &AppError{
		Code:       "SESSION_ALREADY_ACTIVE",
		Message:    "A session is already in progress",
		StatusCode: 409,
	}

	ErrNoActiveSession = &AppError{
		Code:       "NO_ACTIVE_SESSION",
		Message:    "No session is currently active",
		StatusCode: 409,
	}

	ErrSessionNotFound = &AppError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "Session not found",
		StatusCode: 404,
	}

	ErrSessionEnded = &AppError{
		Code:       "SESSION_ENDED",
		Message:    "Session has already ended and cannot be reopened",
		StatusCode: 409,
	}

	ErrRecordNotFound = &AppError{
		Code:       "RECORD_NOT_FOUND",
		Message:    "Attendance record not found",
		StatusCode: 404,
	}

	ErrSyncEntryNotFound = &AppError{
		Code:       "SYNC_ENTRY_NOT_FOUND",
		Message:    "Sync queue entry not found",
		StatusCode: 404,
	}

	ErrSyncEntryNotFailed = &AppError{
		Code:       "SYNC_ENTRY_NOT_FAILED",
		Message:    "Only failed sync entries can be requeued",
		StatusCode: 409,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the frame",
		StatusCode: 422,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted frame",
		StatusCode: 422,
	}
)
