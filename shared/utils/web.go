package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	internal_errors "github.com/studcollab/looped/shared/errors"
	"github.com/studcollab/looped/shared/logger"
	"github.com/studcollab/looped/shared/validation"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// WriteErrorAndStatusCode answers with the status err maps to. 5xx bodies
// never leak internal messages.
func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	status := internal_errors.StatusCode(err)
	body := errorBody{Error: err.Error()}

	var v *internal_errors.ValidationError
	var u *internal_errors.UserError
	switch {
	case errors.As(err, &v):
		body = errorBody{Error: v.Message, Field: v.Field}
	case errors.As(err, &u):
		body.Error = u.Message
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway:
		body.Error = http.StatusText(status)
	}
	WriteJSON(w, status, body)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("failed to encode response", "error", err)
	}
}

func DecodeValidate(r io.ReadCloser, body any) error {
	if err := Decode(r, body); err != nil {
		return err
	}
	return validation.Struct(body)
}

func Decode(r io.ReadCloser, body any) error {
	data, err := io.ReadAll(io.LimitReader(r, validation.MaxBodyBytes+1))
	if err != nil {
		logger.Log.Debug("failed to read request body", "error", err)
		return &internal_errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: http.StatusBadRequest}
	}
	if len(data) > validation.MaxBodyBytes {
		return &internal_errors.ErrorWithStatusCode{Message: validation.ErrPayloadTooLarge.Error(), StatusCode: http.StatusRequestEntityTooLarge}
	}
	if err := json.Unmarshal(data, body); err != nil {
		logger.Log.Debug("invalid request body", "error", err)
		return &internal_errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: http.StatusBadRequest}
	}
	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
