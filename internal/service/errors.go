package service

import (
	"errors"
	"fmt"
)

// ErrNoSession is returned when a wizard step needs an upload that has not
// happened yet (or whose token was invalidated).
var ErrNoSession = errors.New("no active upload session")

// UploadError means the external parser rejected the uploaded file. The user
// has to upload a different file.
type UploadError struct {
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q rejected: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// SessionExpiredError means the service no longer knows the upload token.
// It is terminal: callers restart from Upload.
type SessionExpiredError struct {
	Token string
	Err   error
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("upload session %s expired: %v", e.Token, e.Err)
}

func (e *SessionExpiredError) Unwrap() error { return e.Err }

// RankingServiceError is a transport or service fault during catalog
// matching. Retrying the same call is safe; worksheet state is unaffected.
type RankingServiceError struct {
	Err error
}

func (e *RankingServiceError) Error() string {
	return fmt.Sprintf("catalog ranking failed: %v", e.Err)
}

func (e *RankingServiceError) Unwrap() error { return e.Err }

// RecomputeError means the batch sizing call failed. No row result was
// changed.
type RecomputeError struct {
	Rows int
	Err  error
}

func (e *RecomputeError) Error() string {
	return fmt.Sprintf("bulk sizing of %d rows failed: %v", e.Rows, e.Err)
}

func (e *RecomputeError) Unwrap() error { return e.Err }

// ImportRecordError describes one value that could not be used during an
// import. It never aborts the import; the default is substituted.
type ImportRecordError struct {
	Record  int         `json:"record"`
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Default interface{} `json:"default"`
}

func (e *ImportRecordError) Error() string {
	return fmt.Sprintf("record %d: field %s: unusable value %v, using %v", e.Record, e.Field, e.Value, e.Default)
}

// ValidationError is a caller mistake (unknown field, bad parameter).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
