package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"moodwave/logger"
	"moodwave/repository"

	"github.com/go-playground/validator/v10"
)

// APIError is an error with a fixed HTTP status and JSON body.
type APIError struct {
	Status int
	Body   interface{}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %v", e.Status, e.Body)
}

func detailError(status int, detail string) *APIError {
	return &APIError{Status: status, Body: map[string]string{"detail": detail}}
}

func codedError(status int, detail, code string) *APIError {
	return &APIError{Status: status, Body: map[string]string{"detail": detail, "code": code}}
}

// FieldErrors maps a request field to its validation messages.
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &APIError{Status: http.StatusBadRequest, Body: f}
}

var (
	errNotAuthenticated = detailError(http.StatusUnauthorized, "Authentication credentials were not provided.")
	errNotFound         = detailError(http.StatusNotFound, "Not found.")
	errPermissionDenied = detailError(http.StatusForbidden, "You do not have permission to perform this action.")
	errBadCredentials   = detailError(http.StatusUnauthorized, "No active account found with the given credentials")
	errTokenNotValid    = codedError(http.StatusUnauthorized, "Token is invalid or expired", "token_not_valid")
	errBadBearerToken   = codedError(http.StatusUnauthorized, "Given token not valid for any token type", "token_not_valid")
	errUserNotFound     = codedError(http.StatusUnauthorized, "User not found", "user_not_found")
	errUserInactive     = codedError(http.StatusUnauthorized, "User is inactive", "user_inactive")
	errBodyTooLarge     = detailError(http.StatusRequestEntityTooLarge, "Request body too large.")
	errBadHost          = detailError(http.StatusBadRequest, "Bad Request (400)")
	errServer           = detailError(http.StatusInternalServerError, "A server error occurred.")
)

// HandlerFunc is an http.HandlerFunc that reports failure by returning an error.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts h, rendering any returned error as JSON.
func handle(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, repository.ErrNotFound):
		apiErr = errNotFound
	default:
		logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.ErrorField(err))
		apiErr = errServer
	}

	if apiErr.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}
	writeJSON(w, apiErr.Status, apiErr.Body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", logger.ErrorField(err))
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst. An empty body decodes as {} so
// missing fields surface as field errors.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return detailError(http.StatusBadRequest, "JSON parse error - "+err.Error())
	}
	return nil
}

// validateFields runs the struct's validate tags and collects the failures by field.
func validateFields(v interface{}) FieldErrors {
	fields := FieldErrors{}
	err := validate.Struct(v)
	if err == nil {
		return fields
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields.Add("non_field_errors", err.Error())
		return fields
	}
	for _, fe := range verrs {
		fields.Add(fe.Field(), validationMessage(fe))
	}
	return fields
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	default:
		return fmt.Sprintf("Invalid value for %s.", fe.Field())
	}
}
