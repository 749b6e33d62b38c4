package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cable-orchestrator/internal/service"
	"cable-orchestrator/internal/state"
	"cable-orchestrator/internal/upstream"

	"github.com/go-playground/validator/v10"
)

// Error is the JSON error body of every failed request.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error
func NewError(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

var (
	errWorkspaceNotFound = NewError(http.StatusNotFound, "workspace not found", nil)
	errRowNotFound       = NewError(http.StatusNotFound, "row not found", nil)
)

// classify maps an error to the status code and message the client sees.
func classify(err error) *Error {
	var (
		apiErr     *Error
		validation *service.ValidationError
		fieldErrs  validator.ValidationErrors
		uploadErr  *service.UploadError
		expired    *service.SessionExpiredError
		ranking    *service.RankingServiceError
		recompute  *service.RecomputeError
		status     *upstream.StatusError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &fieldErrs):
		return NewError(http.StatusBadRequest, describeFieldErrors(fieldErrs), err)
	case errors.As(err, &validation):
		return NewError(http.StatusUnprocessableEntity, validation.Error(), err)
	case errors.As(err, &uploadErr):
		return NewError(http.StatusBadRequest, uploadErr.Error(), err)
	case errors.As(err, &expired):
		return NewError(http.StatusGone, "upload session expired, upload the file again", err)
	case errors.As(err, &ranking):
		return NewError(http.StatusBadGateway, ranking.Error(), err)
	case errors.As(err, &recompute):
		return NewError(http.StatusBadGateway, recompute.Error(), err)
	case errors.Is(err, service.ErrNoSession), errors.Is(err, state.ErrNoMatch):
		return NewError(http.StatusConflict, err.Error(), err)
	case errors.As(err, &status):
		return NewError(http.StatusBadGateway, status.Error(), err)
	}
	return NewError(http.StatusInternalServerError, "internal server error", err)
}

func describeFieldErrors(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
