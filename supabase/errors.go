package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is the decoded error envelope for any non-2xx Supabase
// response. GoTrue and PostgREST use different field names; both are
// mapped onto Code and Message.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.Status, e.Message)
}

func parseAPIError(status int, raw []byte) *APIError {
	out := &APIError{Status: status}

	var envelope struct {
		Code             string `json:"code"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorCode        string `json:"error_code"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		switch {
		case envelope.Message != "":
			out.Message = envelope.Message
		case envelope.Msg != "":
			out.Message = envelope.Msg
		case envelope.ErrorDescription != "":
			out.Message = envelope.ErrorDescription
		case envelope.Error != "":
			out.Message = envelope.Error
		}
		switch {
		case envelope.Code != "":
			out.Code = envelope.Code
		case envelope.ErrorCode != "":
			out.Code = envelope.ErrorCode
		}
	}
	if out.Message == "" {
		out.Message = string(raw)
	}

	return out
}

// IsStatus reports whether err is an [APIError] with the given HTTP
// status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// IsAuthFailure reports whether err represents a rejected credential or
// token, as opposed to a transport or server problem.
func IsAuthFailure(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
		return true
	default:
		return false
	}
}

// IsConflict reports whether err represents a uniqueness violation,
// e.g. signing up an email that already exists.
func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusConflict || apiErr.Code == "user_already_exists" || apiErr.Code == "email_exists"
}
