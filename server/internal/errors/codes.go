package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode names the layer an inventory operation failed in.
type ErrorCode string

const (
	// ErrCodeRemoteStore indicates the entity store rejected or could not serve a request.
	ErrCodeRemoteStore ErrorCode = "REMOTE_STORE"
	// ErrCodeMediaPipeline indicates an image could not be decoded, resized or re-encoded.
	ErrCodeMediaPipeline ErrorCode = "MEDIA_PIPELINE"
	// ErrCodeUpload indicates the media store rejected an upload.
	ErrCodeUpload ErrorCode = "UPLOAD"
	// ErrCodeEncoding indicates an identifier code could not be rendered.
	ErrCodeEncoding ErrorCode = "ENCODING"
	// ErrCodeExtraction indicates the extraction collaborator failed.
	ErrCodeExtraction ErrorCode = "EXTRACTION"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates a lookup by id matched nothing.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// InventoryError is a structured error carrying the failing layer.
type InventoryError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *InventoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *InventoryError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *InventoryError) WithContext(key string, value any) *InventoryError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *InventoryError {
	return &InventoryError{Code: ErrCodeInvalidArgument, Message: msg}
}

// RemoteStore wraps an entity store failure.
func RemoteStore(msg string, cause error) *InventoryError {
	return &InventoryError{Code: ErrCodeRemoteStore, Message: msg, Cause: cause}
}

// Upload wraps a media store failure.
func Upload(msg string, cause error) *InventoryError {
	return &InventoryError{Code: ErrCodeUpload, Message: msg, Cause: cause}
}

// Encoding wraps an identifier rendering failure.
func Encoding(msg string, cause error) *InventoryError {
	return &InventoryError{Code: ErrCodeEncoding, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with a code.
func Wrap(cause error, code ErrorCode, msg string) *InventoryError {
	return &InventoryError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if any error in the chain carries the code.
func IsCode(err error, code ErrorCode) bool {
	var invErr *InventoryError
	for err != nil {
		if !stderrors.As(err, &invErr) {
			return false
		}
		if invErr.Code == code {
			return true
		}
		err = invErr.Cause
	}
	return false
}

// GetCodeFromError extracts the outermost code, or defaultCode.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var invErr *InventoryError
	if stderrors.As(err, &invErr) {
		return invErr.Code
	}
	return defaultCode
}
