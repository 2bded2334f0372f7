package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/machinehub/machinehub/internal/apperr"
)

// Machine-readable error codes.
const (
	CodeMissingExternalID = "missing_external_id"
	CodeRequiredField     = "required_field"
	CodeInvalidField      = "invalid_field"
	CodeValidation        = "validation_error"
	CodeNotFound          = "not_found"
	CodeConflict          = "conflict"
	CodeInternal          = "internal_error"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Field     string            `json:"field,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// RespondJSON writes data as a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logrus.WithError(err).Warn("Failed to encode JSON response")
		}
	}
}

// RespondError writes a standard error response.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message})
}

// RespondErrorWithCode writes an error response with a machine-readable code.
func RespondErrorWithCode(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// RespondValidationError writes field-level request errors as a 400 response.
func RespondValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	RespondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "Validation failed",
		Code:    CodeValidation,
		Details: fieldErrors,
	})
}

// RespondAppError maps an engine or service error onto a status code.
// Storage failures are logged and answered without their details.
func RespondAppError(w http.ResponseWriter, err error) {
	var v *apperr.ValidationError
	switch {
	case errors.As(err, &v):
		code := CodeInvalidField
		switch {
		case errors.Is(err, apperr.ErrMissingExternalID):
			code = CodeMissingExternalID
		case errors.Is(err, apperr.ErrRequiredField):
			code = CodeRequiredField
		}
		RespondJSON(w, http.StatusBadRequest, ErrorResponse{Error: v.Error(), Code: code, Field: v.Field})
	case apperr.IsNotFound(err):
		RespondJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: CodeNotFound})
	case apperr.IsConflict(err):
		RespondJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeConflict, Retryable: true})
	default:
		logrus.WithError(err).Error("Request failed")
		RespondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: CodeInternal})
	}
}

// RespondNoContent writes a 204 No Content response with no body.
func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
