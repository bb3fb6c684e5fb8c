package phonevalidation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NeuralTrust/SMSGuard/pkg/domain/signals"
	"github.com/NeuralTrust/SMSGuard/pkg/infra/phonevalidation"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(endpoint, apiKey string) phonevalidation.Validator {
	return phonevalidation.NewClient(phonevalidation.Config{
		Endpoint:       endpoint,
		APIKey:         apiKey,
		BreakerMax:     3,
		BreakerTimeout: time.Second,
	}, logrus.New())
}

func TestClient_Validate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "+971501234567", body["phone"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"country_iso2": "ae", "phone_type": "mobile"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "secret")

	result, err := client.Validate(context.Background(), "+971501234567")

	require.NoError(t, err)
	assert.Equal(t, "AE", result.CountryISO2)
	assert.Equal(t, signals.PhoneTypeMobile, result.PhoneType)
}

func TestClient_Validate_NoAPIKeyOmitsAuthorization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"country_iso2": "SA", "phone_type": "PREPAID"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")

	result, err := client.Validate(context.Background(), "+966501234567")

	require.NoError(t, err)
	assert.Equal(t, "SA", result.CountryISO2)
	assert.Equal(t, signals.PhoneTypePrepaid, result.PhoneType)
}

func TestClient_Validate_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")

	_, err := client.Validate(context.Background(), "+971501234567")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestClient_Validate_InvalidResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"country_iso2":`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")

	_, err := client.Validate(context.Background(), "+971501234567")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode validation response")
}

func TestClient_Validate_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")

	for i := 0; i < 3; i++ {
		_, err := client.Validate(context.Background(), "+971501234567")
		require.Error(t, err)
	}

	// The breaker is open now; the request never reaches the server.
	_, err := client.Validate(context.Background(), "+971501234567")
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestClient_Validate_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Validate(ctx, "+971501234567")
	assert.Error(t, err)
}
