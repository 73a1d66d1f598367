package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transport", Unavailable(errors.New("dial tcp: refused")), true},
		{"timeout", fmt.Errorf("get feed: %w", context.DeadlineExceeded), true},
		{"5xx", &ErrorWithStatusCode{Message: "boom", StatusCode: http.StatusServiceUnavailable}, true},
		{"4xx", &ErrorWithStatusCode{Message: "bad", StatusCode: http.StatusBadRequest}, false},
		{"validation", &ValidationError{Field: "message", Message: "required"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRecoverable(tt.err))
		})
	}
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusCode(&ValidationError{Message: "x"}))
	assert.Equal(t, http.StatusNotFound, StatusCode(fmt.Errorf("wrap: %w", &ErrorWithStatusCode{StatusCode: http.StatusNotFound})))
	assert.Equal(t, http.StatusBadGateway, StatusCode(Unavailable(errors.New("eof"))))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("other")))
}

func TestUserErrorUnwrap(t *testing.T) {
	cause := Unavailable(errors.New("eof"))
	err := &UserError{Message: "Failed to apply", Err: cause}
	assert.True(t, errors.Is(err, ErrBackendUnavailable))
	assert.Contains(t, err.Error(), "Failed to apply")
}
