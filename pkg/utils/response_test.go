package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"rental-backend/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestRespondErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperror.Validation("bad input"), http.StatusBadRequest},
		{apperror.BusinessRule("Unit is already occupied"), http.StatusBadRequest},
		{apperror.Auth("Invalid credentials"), http.StatusUnauthorized},
		{apperror.NotFound("Unit"), http.StatusNotFound},
		{fmt.Errorf("assign tenant: %w", apperror.NotFound("Unit")), http.StatusNotFound},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err, false)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.False(t, decode(t, rec).Success)
	}
}

func TestRespondErrorHidesInternalMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: relation missing"), false)
	assert.Equal(t, "Internal server error", decode(t, rec).Message)

	rec = httptest.NewRecorder()
	RespondError(rec, errors.New("pq: relation missing"), true)
	assert.Contains(t, decode(t, rec).Message, "relation missing")
}

func TestRespondErrorIncludesFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, apperror.Validation("Validation failed",
		apperror.FieldError{Field: "email", Message: "Valid email is required"}), false)

	env := decode(t, rec)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "email", env.Errors[0].Field)
}

func TestRespondData(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondData(rec, http.StatusCreated, map[string]int{"id": 7})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"id":7}}`, rec.Body.String())
}
