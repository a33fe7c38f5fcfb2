package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"agenda/errs"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *errs.Error
		expected string
	}{
		{
			name:     "invalid error",
			err:      &errs.Error{Code: errs.EINVALID, Message: "invalid input"},
			expected: "application error: code=invalid message=invalid input",
		},
		{
			name:     "conflict error",
			err:      &errs.Error{Code: errs.ECONFLICT, Message: "contact already registered"},
			expected: "application error: code=conflict message=contact already registered",
		},
		{
			name:     "cause is not part of the text",
			err:      errs.Wrap(errs.EINTERNAL, errors.New("connection refused"), "try again later"),
			expected: "application error: code=internal message=try again later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error returns empty string", err: nil, expected: ""},
		{name: "not found error", err: errs.Errorf(errs.ENOTFOUND, "contact not found"), expected: errs.ENOTFOUND},
		{name: "business rule error", err: errs.Errorf(errs.EBUSINESS, "invalid area code"), expected: errs.EBUSINESS},
		{name: "concurrency error", err: errs.Errorf(errs.ECONCURRENCY, "modified"), expected: errs.ECONCURRENCY},
		{name: "non-application error returns EINTERNAL", err: errors.New("standard error"), expected: errs.EINTERNAL},
		{
			name:     "wrapped application error",
			err:      fmt.Errorf("store: %w", errs.Errorf(errs.EINVALID, "bad request")),
			expected: errs.EINVALID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, errs.ErrorCode(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error returns empty string", err: nil, expected: ""},
		{name: "application error returns its message", err: errs.Errorf(errs.EINVALID, "invalid input provided"), expected: "invalid input provided"},
		{name: "non-application error returns Internal error", err: errors.New("disk write error"), expected: "Internal error."},
		{
			name:     "wrapped application error",
			err:      errors.Join(&errs.Error{Code: errs.ENOTFOUND, Message: "contact not found"}),
			expected: "contact not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, errs.ErrorMessage(tt.err))
		})
	}
}

func TestErrorf(t *testing.T) {
	err := errs.Errorf(errs.ECONFLICT, "duplicate entry: id=%d, name=%s", 123, "test")

	assert.Equal(t, errs.ECONFLICT, err.Code)
	assert.Equal(t, "duplicate entry: id=123, name=test", err.Message)
	assert.Nil(t, err.Unwrap())
}

func TestWrap(t *testing.T) {
	cause := errors.New("pq: connection refused")

	err := errs.Wrap(errs.EINTERNAL, cause, "failed to add contact, try again later")

	assert.Equal(t, errs.EINTERNAL, errs.ErrorCode(err))
	assert.Equal(t, "failed to add contact, try again later", errs.ErrorMessage(err))
	assert.ErrorIs(t, err, cause)
}

func TestErrorDetails(t *testing.T) {
	t.Run("nil and foreign errors have no details", func(t *testing.T) {
		assert.Nil(t, errs.ErrorDetails(nil))
		assert.Nil(t, errs.ErrorDetails(errors.New("boom")))
	})

	t.Run("validation details are returned as is", func(t *testing.T) {
		d := errs.Detail{PropertyName: "Nome", Code: "required", Message: "Nome is required"}

		err := errs.Invalid("validation error", d)

		assert.Equal(t, []errs.Detail{d}, errs.ErrorDetails(err))
	})

	t.Run("cause is appended as an anonymous detail", func(t *testing.T) {
		err := errs.Wrap(errs.EINTERNAL, errors.New("pq: timeout"), "failed")

		assert.Equal(t, []errs.Detail{{Message: "pq: timeout"}}, errs.ErrorDetails(err))
	})

	t.Run("does not mutate the original details", func(t *testing.T) {
		err := &errs.Error{
			Code:    errs.EINTERNAL,
			Details: make([]errs.Detail, 1, 4),
			Err:     errors.New("cause"),
		}

		_ = errs.ErrorDetails(err)

		assert.Len(t, err.Details, 1)
	})
}

func TestErrorCodes(t *testing.T) {
	codes := map[string]string{
		errs.EBUSINESS:    "business_rule",
		errs.ECONCURRENCY: "concurrency",
		errs.ECONFLICT:    "conflict",
		errs.EINTERNAL:    "internal",
		errs.EINVALID:     "invalid",
		errs.ENOTFOUND:    "not_found",
	}

	for got, want := range codes {
		assert.Equal(t, want, got)
	}
}
