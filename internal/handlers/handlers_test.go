package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/health"
	"rental-backend/internal/middleware"
	"rental-backend/internal/models"
	"rental-backend/internal/services"
	"rental-backend/pkg/utils"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) utils.Envelope {
	t.Helper()
	var env utils.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func asOwner(r *http.Request, id int) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), &models.User{ID: id, Username: "asha", Role: models.RoleOwner}))
}

func TestOwnerIDWithoutAuthenticatedContext(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := ownerID(rec, httptest.NewRequest(http.MethodGet, "/api/apartments", nil))

	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, decode(t, rec).Success)

	rec = httptest.NewRecorder()
	id, ok := ownerID(rec, asOwner(httptest.NewRequest(http.MethodGet, "/api/apartments", nil), 42))
	assert.True(t, ok)
	assert.Equal(t, 42, id)
}

func TestPathID(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"7", 7, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": tc.raw})
			rec := httptest.NewRecorder()

			id, ok := pathID(rec, req, "id")
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, id)
			if !tc.ok {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				env := decode(t, rec)
				require.Len(t, env.Errors, 1)
				assert.Equal(t, "id", env.Errors[0].Field)
			}
		})
	}
}

func TestReportFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/reports/monthly?apartmentId=3&from=2025-01&to=2025-03", nil)
	filter, err := reportFilter(req)
	require.NoError(t, err)
	require.NotNil(t, filter.ApartmentID)
	assert.Equal(t, 3, *filter.ApartmentID)
	assert.Equal(t, "2025-01", filter.From)
	assert.Equal(t, "2025-03", filter.To)

	filter, err = reportFilter(httptest.NewRequest(http.MethodGet, "/api/reports/monthly", nil))
	require.NoError(t, err)
	assert.Nil(t, filter.ApartmentID)

	_, err = reportFilter(httptest.NewRequest(http.MethodGet, "/api/reports/monthly?apartmentId=x", nil))
	assert.Error(t, err)
}

func TestCreateApartmentValidatesBody(t *testing.T) {
	h := NewApartmentHandler(nil)

	body := `{"name":"","address":"MG Road","floors_count":0,"units_per_floor":4}`
	req := asOwner(httptest.NewRequest(http.MethodPost, "/api/apartments", strings.NewReader(body)), 42)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	fields := map[string]bool{}
	for _, fe := range env.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["floors_count"])

	rec = httptest.NewRecorder()
	h.Create(rec, asOwner(httptest.NewRequest(http.MethodPost, "/api/apartments", strings.NewReader("{")), 42))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordPaymentRejectsBadRentLogID(t *testing.T) {
	h := NewUnitHandler(nil, nil)

	req := asOwner(httptest.NewRequest(http.MethodPost, "/api/units/rent-logs/x/pay", strings.NewReader(`{}`)), 42)
	req = mux.SetURLVars(req, map[string]string{"rentLogId": "x"})
	rec := httptest.NewRecorder()
	h.RecordPayment(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookSignature(t *testing.T) {
	const secret = "whsec_test"
	h := NewRazorpayHandler(services.NewRazorpayService("", "", secret, "INR", nil, nil))
	body := `{"event":"refund.created","payload":{}}`

	sign := func(b string) string {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(b))
		return hex.EncodeToString(mac.Sum(nil))
	}

	tests := []struct {
		name      string
		signature string
		status    int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", sign("other body"), http.StatusUnauthorized},
		{"valid, ignored event", sign(body), http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", strings.NewReader(body))
			if tc.signature != "" {
				req.Header.Set("X-Razorpay-Signature", tc.signature)
			}
			rec := httptest.NewRecorder()
			h.HandleWebhook(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestWebhookAcknowledgesMalformedPayload(t *testing.T) {
	const secret = "whsec_test"
	h := NewRazorpayHandler(services.NewRazorpayService("", "", secret, "INR", nil, nil))
	body := `not json`

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", strings.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", hex.EncodeToString(mac.Sum(nil)))
	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, req)

	// Retrying a payload that cannot be parsed would never succeed
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRespondErrorHidesInternalsOutsideDevelopment(t *testing.T) {
	defer SetExposeInternalErrors(false)
	cause := errors.New("pq: connection refused")

	SetExposeInternalErrors(false)
	rec := httptest.NewRecorder()
	respondError(rec, cause)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	SetExposeInternalErrors(true)
	rec = httptest.NewRecorder()
	respondError(rec, cause)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestHealthBasic(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil).BasicHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(context.Background()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealthReadiness(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	h := NewHealthHandler(health.NewHealthChecker(mock))

	mock.ExpectPing()
	rec := httptest.NewRecorder()
	h.ReadinessHealth(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	rec = httptest.NewRecorder()
	h.ReadinessHealth(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unhealthy"`)

	assert.NoError(t, mock.ExpectationsWereMet())
}
